// Package progression owns the per-participant program aggregate: day
// modules, the one-time branching assessment, the unlock schedule and
// escalation state.
//
// Every operation works on a copy of the program and only writes it back
// when it succeeds, so a failed call leaves the caller's document untouched.
package progression

import (
	"fmt"
	"strconv"
	"time"

	"carepath/internal/apperr"
	"carepath/internal/config"
	"carepath/internal/model"
	"carepath/internal/unlock"

	"github.com/google/uuid"
)

// Catalog resolves the authoritative structure of a day, or nil.
type Catalog interface {
	Day(day int) *model.DynamicDayStructure
}

// Effects describes what an operation changed beyond the program itself.
type Effects struct {
	Unlocked      []int                `json:"unlocked,omitempty"`
	Notifications []model.Notification `json:"notifications,omitempty"`
}

// Empty reports whether nothing observable happened.
func (e Effects) Empty() bool {
	return len(e.Unlocked) == 0 && len(e.Notifications) == 0
}

// Machine applies progression rules under one policy.
type Machine struct {
	policy  config.Policy
	catalog Catalog
	newID   func() string
}

// NewMachine creates a machine reading day structures from catalog.
func NewMachine(policy config.Policy, catalog Catalog) *Machine {
	return &Machine{policy: policy, catalog: catalog, newID: uuid.NewString}
}

// Policy returns the policy the machine was built with.
func (m *Machine) Policy() config.Policy {
	return m.policy
}

// NewProgram creates a program with every day module in place and day 0
// unlocked at now.
func (m *Machine) NewProgram(participantID, language string, overrides *model.WaitOverrides, now time.Time) (*model.ParticipantProgram, error) {
	if participantID == "" {
		return nil, apperr.Validation("bad_participant", "participant id is required")
	}
	if err := m.validateOverrides(overrides); err != nil {
		return nil, err
	}
	if language == "" {
		language = m.policy.BaseLanguage
	}

	p := &model.ParticipantProgram{
		ID:             participantID,
		Language:       language,
		DayModules:     make([]model.DayModule, m.policy.TotalDays),
		UnlockSchedule: []model.UnlockScheduleEntry{},
		Notifications:  []model.Notification{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for d := range p.DayModules {
		p.DayModules[d] = model.DayModule{Day: d, TaskResponses: []model.TaskResponse{}}
	}
	if overrides != nil {
		p.CustomWaitOverrides = cloneOverrides(overrides)
	}

	unlock.Schedule(p, 0, now)
	if _, err := unlock.Unlock(p, 0, model.UnlockAutomatic, now); err != nil {
		return nil, err
	}
	m.bind(p, &p.DayModules[0], true)
	return p, nil
}

// ResolveWait returns the hours to wait before day unlocks. A participant
// override wins over the plan fixed at assessment time, which wins over the
// current policy.
func (m *Machine) ResolveWait(p *model.ParticipantProgram, day int) float64 {
	if o := p.CustomWaitOverrides; o != nil {
		if h, ok := o.DayWaitHours[config.DayKey(day)]; ok {
			return h
		}
		if o.WaitHours != nil {
			return *o.WaitHours
		}
	}
	if day >= 0 && day < len(p.WaitPlanHours) {
		return p.WaitPlanHours[day]
	}
	return m.policy.WaitHours(day)
}

// SetWaitOverrides replaces the participant's wait overrides. Days already
// scheduled keep their time.
func (m *Machine) SetWaitOverrides(p *model.ParticipantProgram, overrides *model.WaitOverrides, now time.Time) error {
	if err := m.validateOverrides(overrides); err != nil {
		return err
	}
	_, err := m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		w.CustomWaitOverrides = cloneOverrides(overrides)
		return Effects{}, nil
	})
	return err
}

func (m *Machine) validateOverrides(o *model.WaitOverrides) error {
	if o == nil {
		return nil
	}
	if o.WaitHours != nil && *o.WaitHours < 0 {
		return apperr.Validation("bad_wait", "wait hours must not be negative")
	}
	for k, h := range o.DayWaitHours {
		day, err := strconv.Atoi(k)
		if err != nil || day < 1 || day >= m.policy.TotalDays {
			return apperr.Validation("bad_wait", "wait override day %q is not a program day", k)
		}
		if h < 0 {
			return apperr.Validation("bad_wait", "wait hours for day %d must not be negative", day)
		}
	}
	return nil
}

func (m *Machine) apply(p *model.ParticipantProgram, now time.Time, fn func(w *model.ParticipantProgram) (Effects, error)) (Effects, error) {
	w := p.Clone()
	eff, err := fn(w)
	if err != nil {
		return Effects{}, err
	}
	w.UpdatedAt = now
	*p = *w
	return eff, nil
}

func (m *Machine) module(p *model.ParticipantProgram, day int) (*model.DayModule, error) {
	mod, ok := p.Module(day)
	if !ok {
		return nil, apperr.NotFound("day_not_found", "day %d does not exist", day)
	}
	return mod, nil
}

func (m *Machine) notify(p *model.ParticipantProgram, kind model.NotificationKind, day int, now time.Time, format string, args ...any) model.Notification {
	n := model.Notification{
		ID:        m.newID(),
		Kind:      kind,
		Day:       day,
		Message:   fmt.Sprintf(format, args...),
		CreatedAt: now,
	}
	p.Notifications = append(p.Notifications, n)
	return n
}

func cloneOverrides(o *model.WaitOverrides) *model.WaitOverrides {
	if o == nil {
		return nil
	}
	holder := model.ParticipantProgram{CustomWaitOverrides: o}
	return holder.Clone().CustomWaitOverrides
}
