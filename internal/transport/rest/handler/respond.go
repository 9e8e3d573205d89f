package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"carepath/internal/apperr"
	"carepath/internal/payload"

	"github.com/gorilla/mux"
)

// maxBodyBytes bounds request bodies; a full day structure is well under it
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Retry bool   `json:"retry,omitempty"` // The document changed underneath; reload and try again
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeAppError maps the error taxonomy onto HTTP statuses
func writeAppError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error(), Code: apperr.CodeOf(err)}
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, apperr.ErrConcurrencyConflict):
		resp.Retry = true
		writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, apperr.ErrStateConflict):
		writeJSON(w, http.StatusConflict, resp)
	default:
		log.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody reads the request body, checks it against the schema for kind
// and decodes it into out. It writes the error response itself.
func decodeBody(w http.ResponseWriter, r *http.Request, kind payload.Kind, out interface{}) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := payload.Decode(kind, raw, out); err != nil {
		writeAppError(w, err)
		return false
	}
	return true
}

// dayVar parses the {day} path variable
func dayVar(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(mux.Vars(r)["day"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must be a number")
		return 0, false
	}
	return day, true
}
