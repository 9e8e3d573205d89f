package progression

import (
	"strings"
	"time"

	"carepath/internal/apperr"
	"carepath/internal/model"
	"carepath/internal/unlock"
)

// CompleteModule marks an unlocked day complete once all its required tasks
// have responses, advances the participant and schedules the next day.
func (m *Machine) CompleteModule(p *model.ParticipantProgram, day int, now time.Time) (Effects, error) {
	return m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		mod, err := m.module(w, day)
		if err != nil {
			return Effects{}, err
		}
		if mod.Completed {
			return Effects{}, apperr.StateConflict("day_completed", "day %d is already completed", day)
		}
		if !mod.Unlocked {
			return Effects{}, apperr.DayLocked(day)
		}
		if day == m.policy.AssessmentDay && m.assessmentTest() != nil && w.BranchingAssessment == nil {
			return Effects{}, apperr.StateConflict("assessment_required", "day %d needs the assessment first", day)
		}
		m.bind(w, mod, true)
		if !mod.Bound {
			return Effects{}, apperr.StateConflict("assessment_required", "day %d content depends on the assessment", day)
		}
		if missing := requiredMissing(mod); len(missing) > 0 {
			return Effects{}, apperr.StateConflict("required_tasks_missing", "day %d is missing responses for %s", day, strings.Join(missing, ", "))
		}

		at := now
		mod.Completed = true
		mod.CompletedAt = &at
		updateProgress(mod)

		completed := 0
		for i := range w.DayModules {
			if w.DayModules[i].Completed {
				completed++
			}
		}
		w.OverallProgress = float64(completed) / float64(len(w.DayModules)) * 100
		if day+1 < len(w.DayModules) && w.CurrentDay < day+1 {
			w.CurrentDay = day + 1
		}

		next := day + 1
		if next >= len(w.DayModules) {
			return Effects{}, nil
		}
		wait := unlock.Duration(m.ResolveWait(w, next))
		unlock.Schedule(w, next, unlock.ScheduleNext(mod, wait, now))
		return m.sweep(w, now), nil
	})
}

// ManualUnlock unlocks day immediately regardless of its schedule. Unlocking
// an unlocked day does nothing.
func (m *Machine) ManualUnlock(p *model.ParticipantProgram, day int, now time.Time) (Effects, error) {
	return m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		ok, err := unlock.Unlock(w, day, model.UnlockManual, now)
		if err != nil || !ok {
			return Effects{}, err
		}
		mod := &w.DayModules[day]
		m.bind(w, mod, true)
		n := m.notify(w, model.NotificationDayUnlocked, day, now, "day %d unlocked by an operator", day)
		return Effects{Unlocked: []int{day}, Notifications: []model.Notification{n}}, nil
	})
}

// Sweep unlocks every day whose scheduled time has passed. It leaves p
// untouched when nothing is due.
func (m *Machine) Sweep(p *model.ParticipantProgram, now time.Time) Effects {
	if len(unlock.DueDays(p, now)) == 0 {
		return Effects{}
	}
	eff, _ := m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		return m.sweep(w, now), nil
	})
	return eff
}

func (m *Machine) sweep(p *model.ParticipantProgram, now time.Time) Effects {
	var eff Effects
	for _, day := range unlock.Sweep(p, now) {
		m.bind(p, &p.DayModules[day], true)
		eff.Unlocked = append(eff.Unlocked, day)
		eff.Notifications = append(eff.Notifications,
			m.notify(p, model.NotificationDayUnlocked, day, now, "day %d is now available", day))
	}
	return eff
}
