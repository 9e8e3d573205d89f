package progression

import (
	"time"

	"carepath/internal/apperr"
	"carepath/internal/model"
)

// RecordTaskResponse stores or replaces the response to a bound task of an
// unlocked day and evaluates escalation signals.
func (m *Machine) RecordTaskResponse(p *model.ParticipantProgram, day int, taskID string, response model.ResponseData, now time.Time) (Effects, error) {
	if response.IsEmpty() {
		return Effects{}, apperr.Validation("empty_response", "response for task %q is empty", taskID)
	}
	return m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		mod, err := m.module(w, day)
		if err != nil {
			return Effects{}, err
		}
		if !mod.Unlocked {
			return Effects{}, apperr.DayLocked(day)
		}
		m.bind(w, mod, true)
		if !mod.Bound {
			return Effects{}, apperr.StateConflict("assessment_required", "day %d content depends on the assessment", day)
		}
		if _, ok := mod.BoundTask(taskID); !ok {
			return Effects{}, apperr.NotFound("task_not_found", "task %q is not part of day %d", taskID, day)
		}

		upsertResponse(mod, model.TaskResponse{TaskID: taskID, Response: response, AnsweredAt: now})
		updateProgress(mod)

		var eff Effects
		if n, ok := m.evaluateSignals(w, mod, taskID, now); ok {
			eff.Notifications = append(eff.Notifications, n)
		}
		return eff, nil
	})
}

func upsertResponse(mod *model.DayModule, r model.TaskResponse) {
	for i := range mod.TaskResponses {
		if mod.TaskResponses[i].TaskID == r.TaskID {
			mod.TaskResponses[i] = r
			return
		}
	}
	mod.TaskResponses = append(mod.TaskResponses, r)
}

// evaluateSignals updates the negative streak once every signal task of the
// module has an answer. Only highest-tier participants are tracked, and a
// module adds to the streak at most once.
func (m *Machine) evaluateSignals(p *model.ParticipantProgram, mod *model.DayModule, taskID string, now time.Time) (model.Notification, bool) {
	esc := m.policy.Escalation
	if !esc.IsSignalTask(taskID) {
		return model.Notification{}, false
	}
	if p.BranchingAssessment == nil || !p.BranchingAssessment.HighestTier {
		return model.Notification{}, false
	}

	negative := true
	for _, t := range mod.Tasks {
		if !esc.IsSignalTask(t.TaskID) {
			continue
		}
		r, ok := mod.Response(t.TaskID)
		if !ok {
			return model.Notification{}, false
		}
		if !m.isNegative(r) {
			negative = false
		}
	}

	if !negative {
		p.ConsecutiveNegativeCount = 0
		p.LastSignalDay = nil
		return model.Notification{}, false
	}
	// A module counts once per streak however often it is re-answered.
	if p.LastSignalDay != nil && *p.LastSignalDay == mod.Day {
		return model.Notification{}, false
	}
	day := mod.Day
	p.LastSignalDay = &day
	p.ConsecutiveNegativeCount++
	if p.ConsecutiveNegativeCount < esc.Threshold || p.EscalationTriggered {
		return model.Notification{}, false
	}
	p.EscalationTriggered = true
	n := m.notify(p, model.NotificationSupportEscalation, mod.Day, now,
		"participant %s reported %d consecutive negative check-ins", p.ID, p.ConsecutiveNegativeCount)
	return n, true
}

func (m *Machine) isNegative(r model.ResponseData) bool {
	esc := m.policy.Escalation
	if r.SelectedOption != "" && esc.IsNegativeOption(r.SelectedOption) {
		return true
	}
	return r.Rating != nil && esc.NegativeRatingMax != nil && *r.Rating <= *esc.NegativeRatingMax
}
