package progression

import (
	"time"

	"carepath/internal/apperr"
	"carepath/internal/compose"
	"carepath/internal/model"
	"carepath/internal/scoring"
	"carepath/internal/unlock"
)

// SubmitBranchingAssessment scores the one-time assessment, fixes the
// participant's outcome level and wait plan, binds every day whose content
// is known and schedules the day after the assessment if nothing has yet.
func (m *Machine) SubmitBranchingAssessment(p *model.ParticipantProgram, responses map[string]int, now time.Time) (Effects, error) {
	return m.apply(p, now, func(w *model.ParticipantProgram) (Effects, error) {
		if w.BranchingAssessment != nil {
			return Effects{}, apperr.ErrAlreadyCompleted
		}
		mod, err := m.module(w, m.policy.AssessmentDay)
		if err != nil {
			return Effects{}, err
		}
		if !mod.Unlocked {
			return Effects{}, apperr.DayLocked(mod.Day)
		}
		s := m.catalog.Day(m.policy.AssessmentDay)
		if s == nil || !s.HasTest || s.TestStructure == nil {
			return Effects{}, apperr.NotFound("no_assessment", "day %d has no assessment", m.policy.AssessmentDay)
		}
		test := compose.Compose(s, nil, "").TestStructure

		res, err := scoring.Score(responses, test.QuestionIDs(), m.policy.MaxPerQuestion, test.ScoreRanges)
		if err != nil {
			return Effects{}, err
		}

		stored := make(map[string]int, len(responses))
		for k, v := range responses {
			stored[k] = v
		}
		w.BranchingAssessment = &model.BranchingResult{
			Responses:    stored,
			TotalScore:   res.TotalScore,
			OutcomeLevel: res.OutcomeLevel,
			Percentage:   res.Percentage,
			HighestTier:  res.HighestTier,
			CompletedAt:  now,
		}
		w.OutcomeLevel = res.OutcomeLevel

		plan := make([]float64, len(w.DayModules))
		for d := 1; d < len(plan); d++ {
			plan[d] = m.ResolveWait(w, d)
		}
		w.WaitPlanHours = plan

		for i := range w.DayModules {
			m.bind(w, &w.DayModules[i], w.DayModules[i].Unlocked)
		}
		m.bindFollowups(mod, test, responses)
		updateProgress(mod)

		if next := mod.Day + 1; next < len(w.DayModules) {
			at := unlock.ScheduleNext(mod, unlock.Duration(m.ResolveWait(w, next)), now)
			unlock.Schedule(w, next, at)
		}
		return Effects{}, nil
	})
}
