// Package unlock computes when program days become available and applies
// the unlock transition. Time is always passed in; nothing here reads a clock.
package unlock

import (
	"time"

	"carepath/internal/apperr"
	"carepath/internal/model"
)

// Duration converts a wait in hours to a time.Duration.
func Duration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// ScheduleNext returns when the day after prev becomes available: prev's
// completion time, else its unlock time, else now, plus wait.
func ScheduleNext(prev *model.DayModule, wait time.Duration, now time.Time) time.Time {
	base := now
	switch {
	case prev != nil && prev.CompletedAt != nil:
		base = *prev.CompletedAt
	case prev != nil && prev.UnlockedAt != nil:
		base = *prev.UnlockedAt
	}
	return base.Add(wait)
}

// Schedule sets day's scheduled unlock time and appends its schedule entry.
// It reports false and changes nothing when the day is unknown, already
// unlocked or already scheduled.
func Schedule(p *model.ParticipantProgram, day int, at time.Time) bool {
	m, ok := p.Module(day)
	if !ok || m.Unlocked || m.ScheduledUnlockAt != nil {
		return false
	}
	t := at
	m.ScheduledUnlockAt = &t
	if _, exists := p.ScheduleEntry(day); !exists {
		p.UnlockSchedule = append(p.UnlockSchedule, model.UnlockScheduleEntry{
			Day:               day,
			ScheduledUnlockAt: at,
			UnlockMethod:      model.UnlockAutomatic,
		})
	}
	return true
}

// Unlock makes day available. Unlocking an unlocked day is a no-op and
// reports false. A day unlocked without a prior schedule gets an entry
// scheduled at now.
func Unlock(p *model.ParticipantProgram, day int, method model.UnlockMethod, now time.Time) (bool, error) {
	m, ok := p.Module(day)
	if !ok {
		return false, apperr.NotFound("day_not_found", "day %d does not exist", day)
	}
	if m.Unlocked {
		return false, nil
	}

	at := now
	m.Unlocked = true
	m.UnlockedAt = &at

	entry, exists := p.ScheduleEntry(day)
	if !exists {
		p.UnlockSchedule = append(p.UnlockSchedule, model.UnlockScheduleEntry{
			Day:               day,
			ScheduledUnlockAt: now,
		})
		entry = &p.UnlockSchedule[len(p.UnlockSchedule)-1]
	}
	if entry.ActualUnlockedAt == nil {
		actual := now
		entry.ActualUnlockedAt = &actual
		entry.UnlockMethod = method
	}
	return true, nil
}

// DueDays lists locked days whose scheduled time has passed and whose
// previous day is complete, in day order.
func DueDays(p *model.ParticipantProgram, now time.Time) []int {
	var due []int
	for i := range p.DayModules {
		m := &p.DayModules[i]
		if m.Unlocked || m.ScheduledUnlockAt == nil || now.Before(*m.ScheduledUnlockAt) {
			continue
		}
		if i > 0 && !p.DayModules[i-1].Completed {
			continue
		}
		due = append(due, m.Day)
	}
	return due
}

// Sweep unlocks every due day automatically and returns the days it unlocked.
func Sweep(p *model.ParticipantProgram, now time.Time) []int {
	var unlocked []int
	for _, day := range DueDays(p, now) {
		if ok, _ := Unlock(p, day, model.UnlockAutomatic, now); ok {
			unlocked = append(unlocked, day)
		}
	}
	return unlocked
}
