package progression

import (
	"carepath/internal/compose"
	"carepath/internal/levelkey"
	"carepath/internal/model"
)

// bind fixes the module's task list once. Levelled days wait for the
// assessment outcome unless levels are disabled. A day with no structure
// is only bound when force is set, and then carries no tasks.
func (m *Machine) bind(p *model.ParticipantProgram, mod *model.DayModule, force bool) {
	if mod.Bound {
		return
	}
	s := m.catalog.Day(mod.Day)
	if s == nil {
		if force {
			mod.Bound = true
		}
		return
	}

	day := compose.Compose(s, nil, "")
	var level model.Level
	switch {
	case len(day.ContentLevels) == 0:
		mod.Bound = true
		return
	case !s.Levelled():
		level = day.ContentLevels[0]
	default:
		key, ok := m.levelFor(p)
		if !ok {
			return
		}
		l, found := compose.Level(day, key)
		if !found {
			l = m.fallbackLevel(day)
		}
		level = l
	}

	mod.Bound = true
	mod.LevelKey = level.LevelKey
	mod.Tasks = make([]model.BoundTask, 0, len(level.Tasks))
	for _, t := range level.Tasks {
		if !t.Enabled {
			continue
		}
		mod.Tasks = append(mod.Tasks, model.BoundTask{
			TaskID:   t.TaskID,
			TaskType: t.TaskType,
			Title:    t.Title,
			Required: !t.Optional,
		})
	}
	updateProgress(mod)
}

// levelFor returns the level key a levelled day should use for p.
func (m *Machine) levelFor(p *model.ParticipantProgram) (string, bool) {
	if test := m.assessmentTest(); test != nil && test.DisableLevels {
		return test.FallbackLevelKey, true
	}
	if p.OutcomeLevel == "" {
		return "", false
	}
	return p.OutcomeLevel, true
}

func (m *Machine) fallbackLevel(day *model.ComposedDay) model.Level {
	if test := m.assessmentTest(); test != nil && test.FallbackLevelKey != "" {
		if l, _, ok := levelkey.FindLevelByKey(day.ContentLevels, test.FallbackLevelKey); ok {
			return l
		}
	}
	return day.ContentLevels[0]
}

func (m *Machine) assessmentTest() *model.TestStructure {
	s := m.catalog.Day(m.policy.AssessmentDay)
	if s == nil || !s.HasTest {
		return nil
	}
	return s.TestStructure
}

// bindFollowups appends the follow-up task of each chosen option to the
// assessment module as optional work.
func (m *Machine) bindFollowups(mod *model.DayModule, test *model.TestStructure, responses map[string]int) {
	if !mod.Bound || !test.EnableFollowupTasks {
		return
	}
	for _, q := range test.Questions {
		v, ok := responses[q.QuestionID]
		if !ok {
			continue
		}
		for _, o := range q.Options {
			if o.Value != v {
				continue
			}
			if o.FollowupActive {
				if _, exists := mod.BoundTask(o.FollowupTask.TaskID); !exists {
					mod.Tasks = append(mod.Tasks, model.BoundTask{
						TaskID:   o.FollowupTask.TaskID,
						TaskType: o.FollowupTask.TaskType,
						Title:    o.FollowupTask.Title,
						Followup: true,
					})
				}
			}
			break
		}
	}
}

// requiredMissing lists required bound tasks without a response.
func requiredMissing(mod *model.DayModule) []string {
	var missing []string
	for _, t := range mod.Tasks {
		if !t.Required {
			continue
		}
		if _, ok := mod.Response(t.TaskID); !ok {
			missing = append(missing, t.TaskID)
		}
	}
	return missing
}

func updateProgress(mod *model.DayModule) {
	if mod.Completed {
		mod.ProgressPercent = 100
		return
	}
	required := 0
	for _, t := range mod.Tasks {
		if t.Required {
			required++
		}
	}
	if required == 0 {
		mod.ProgressPercent = 0
		return
	}
	answered := required - len(requiredMissing(mod))
	mod.ProgressPercent = float64(answered) / float64(required) * 100
}
