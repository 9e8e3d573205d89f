package compose

import (
	"sort"

	"carepath/internal/apperr"
	"carepath/internal/levelkey"
	"carepath/internal/model"
	"carepath/internal/scoring"
)

// ValidateStructure checks the internal consistency of a day structure.
// maxPerQuestion bounds option values and the score space.
func ValidateStructure(s *model.DynamicDayStructure, maxPerQuestion int) error {
	if s.DayNumber < 0 {
		return apperr.Validation("bad_day", "day number %d is negative", s.DayNumber)
	}
	if s.BaseLanguage == "" {
		return apperr.Validation("no_base_language", "day %d has no base language", s.DayNumber)
	}

	taskIDs := make(map[string]bool)
	levelKeys := make(map[string]bool, len(s.ContentLevels))
	for _, l := range s.ContentLevels {
		key := levelkey.Normalize(l.LevelKey)
		if key == "" {
			return apperr.Validation("bad_level", "level %q has an empty key", l.LevelLabel)
		}
		if levelKeys[key] {
			return apperr.Validation("duplicate_level", "level key %q is used twice", l.LevelKey)
		}
		levelKeys[key] = true

		orders := make([]int, 0, len(l.Tasks))
		for _, t := range l.Tasks {
			if err := validateTask(t, taskIDs); err != nil {
				return err
			}
			orders = append(orders, t.TaskOrder)
		}
		sort.Ints(orders)
		for i, o := range orders {
			if o != i+1 {
				return apperr.Validation("bad_task_order", "level %q task orders are not dense from 1", l.LevelKey)
			}
		}
	}

	if s.HasTest != (s.TestStructure != nil) {
		return apperr.Validation("bad_test", "day %d hasTest does not match its test structure", s.DayNumber)
	}
	if s.TestStructure != nil {
		return validateTest(s, maxPerQuestion, taskIDs)
	}
	return nil
}

func validateTask(t model.Task, seen map[string]bool) error {
	if t.TaskID == "" {
		return apperr.Validation("bad_task", "task %q has no id", t.Title)
	}
	if seen[t.TaskID] {
		return apperr.Validation("duplicate_task", "task id %q is used twice", t.TaskID)
	}
	seen[t.TaskID] = true
	if !model.ValidTaskTypes[t.TaskType] {
		return apperr.Validation("bad_task_type", "task %q has unknown type %q", t.TaskID, t.TaskType)
	}
	return nil
}

func validateTest(s *model.DynamicDayStructure, maxPerQuestion int, taskIDs map[string]bool) error {
	test := s.TestStructure
	if len(test.Questions) == 0 {
		return apperr.Validation("bad_test", "day %d test has no questions", s.DayNumber)
	}
	questions := make(map[string]bool, len(test.Questions))
	for _, q := range test.Questions {
		if q.QuestionID == "" || questions[q.QuestionID] {
			return apperr.Validation("bad_question", "question id %q is empty or duplicated", q.QuestionID)
		}
		questions[q.QuestionID] = true
		options := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if o.OptionKey == "" || options[o.OptionKey] {
				return apperr.Validation("bad_option", "question %q option key %q is empty or duplicated", q.QuestionID, o.OptionKey)
			}
			options[o.OptionKey] = true
			if o.Value < 0 || o.Value > maxPerQuestion {
				return apperr.Validation("bad_option", "question %q option %q value %d outside [0,%d]", q.QuestionID, o.OptionKey, o.Value, maxPerQuestion)
			}
			if o.FollowupTask != nil {
				if err := validateTask(*o.FollowupTask, taskIDs); err != nil {
					return err
				}
			}
		}
	}

	if test.FallbackLevelKey != "" && levelkey.Normalize(test.FallbackLevelKey) == "" {
		return apperr.Validation("bad_fallback_level", "fallback level %q is not a valid key", test.FallbackLevelKey)
	}
	return scoring.ValidateRanges(test.ScoreRanges, len(test.Questions), maxPerQuestion)
}

// Renumber sorts each level's tasks by their current order and rewrites
// taskOrder densely from 1. Ties keep their relative position.
func Renumber(levels []model.Level) {
	for i := range levels {
		tasks := levels[i].Tasks
		sort.SliceStable(tasks, func(a, b int) bool { return tasks[a].TaskOrder < tasks[b].TaskOrder })
		for j := range tasks {
			tasks[j].TaskOrder = j + 1
		}
	}
}
