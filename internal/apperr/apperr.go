// Package apperr defines the error taxonomy shared by the domain packages and
// the boundary layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or out-of-range input, or an
	// internally inconsistent structure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates a requested day, level, task or document is absent.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict indicates an operation against a module or program in
	// the wrong lifecycle state.
	ErrStateConflict = errors.New("state conflict")

	// ErrConcurrencyConflict indicates the document changed since it was
	// loaded. Callers retry the whole read-modify-write with a fresh load.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// Error is a classified error. Kind is one of the sentinels above; Code
// narrows it for callers that need to tell cases apart.
type Error struct {
	Kind error
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Is matches another *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code && t.Kind == e.Kind
}

// Codes with a dedicated sentinel.
const (
	CodeAlreadyCompleted = "already_completed"
	CodeDayLocked        = "day_locked"
)

var (
	// ErrAlreadyCompleted is returned when the branching assessment is resubmitted.
	ErrAlreadyCompleted = &Error{Kind: ErrStateConflict, Code: CodeAlreadyCompleted, Msg: "branching assessment already completed"}

	// ErrDayLocked is returned when a response targets a day that is not unlocked.
	ErrDayLocked = &Error{Kind: ErrStateConflict, Code: CodeDayLocked, Msg: "day is locked"}
)

func newf(kind error, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Validation builds an ErrValidation error.
func Validation(code, format string, args ...any) *Error {
	return newf(ErrValidation, code, format, args...)
}

// NotFound builds an ErrNotFound error.
func NotFound(code, format string, args ...any) *Error {
	return newf(ErrNotFound, code, format, args...)
}

// StateConflict builds an ErrStateConflict error.
func StateConflict(code, format string, args ...any) *Error {
	return newf(ErrStateConflict, code, format, args...)
}

// ConcurrencyConflict builds an ErrConcurrencyConflict error.
func ConcurrencyConflict(format string, args ...any) *Error {
	return newf(ErrConcurrencyConflict, "concurrent_update", format, args...)
}

// DayLocked builds an ErrDayLocked error for a specific day.
func DayLocked(day int) *Error {
	return newf(ErrStateConflict, CodeDayLocked, "day %d is locked", day)
}

// CodeOf returns the code of a classified error, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
