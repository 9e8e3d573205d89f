// Package compose merges a day structure with an optional translation overlay
// into the configuration clients render, and derives the legacy day record
// from the same merge.
package compose

import (
	"carepath/internal/levelkey"
	"carepath/internal/model"
)

// Compose returns the effective configuration of structure in language. A
// nil translation yields the structure's own content. Translation entries
// that no longer match a level, task, question or option are ignored.
func Compose(structure *model.DynamicDayStructure, translation *model.DynamicDayTranslation, language string) *model.ComposedDay {
	if language == "" {
		language = structure.BaseLanguage
	}
	out := &model.ComposedDay{
		DayNumber:     structure.DayNumber,
		Language:      language,
		BaseLanguage:  structure.BaseLanguage,
		HasTest:       structure.HasTest,
		TestStructure: model.CloneTest(structure.TestStructure),
		ContentLevels: model.CloneLevels(structure.ContentLevels),
	}
	if out.ContentLevels == nil {
		out.ContentLevels = []model.Level{}
	}
	markFollowups(out.TestStructure)

	if translation == nil {
		return out
	}
	out.Translated = true

	for i := range out.ContentLevels {
		level := &out.ContentLevels[i]
		lt, _, ok := levelkey.FindLevelByKey(translation.LevelContent, level.LevelKey)
		if !ok {
			continue
		}
		if lt.LevelLabel != "" {
			level.LevelLabel = lt.LevelLabel
		}
		for j := range level.Tasks {
			if tt, ok := findTaskTranslation(lt.Tasks, level.Tasks[j].TaskID); ok {
				applyTask(&level.Tasks[j], tt)
			}
		}
	}

	if out.TestStructure != nil && translation.TestContent != nil {
		applyTest(out.TestStructure, translation.TestContent)
	}
	return out
}

func markFollowups(test *model.TestStructure) {
	if test == nil {
		return
	}
	for qi := range test.Questions {
		for oi := range test.Questions[qi].Options {
			o := &test.Questions[qi].Options[oi]
			o.FollowupActive = test.EnableFollowupTasks && o.FollowupTask != nil && o.FollowupTask.Enabled
		}
	}
}

func findTaskTranslation(tasks []model.TaskTranslation, taskID string) (model.TaskTranslation, bool) {
	for _, t := range tasks {
		if t.TaskID == taskID {
			return t, true
		}
	}
	return model.TaskTranslation{}, false
}

func applyTask(task *model.Task, tt model.TaskTranslation) {
	if tt.Title != "" {
		task.Title = tt.Title
	}
	if tt.Description != "" {
		task.Description = tt.Description
	}
	if len(tt.ContentOverrides) == 0 {
		return
	}
	if task.Content == nil {
		task.Content = make(map[string]interface{}, len(tt.ContentOverrides))
	}
	overrides := model.CloneContent(tt.ContentOverrides)
	for k, v := range overrides {
		task.Content[k] = v
	}
}

func applyTest(test *model.TestStructure, tt *model.TestTranslation) {
	for qi := range test.Questions {
		q := &test.Questions[qi]
		qt, ok := findQuestionTranslation(tt.Questions, q.QuestionID)
		if !ok {
			continue
		}
		if qt.QuestionText != "" {
			q.QuestionText = qt.QuestionText
		}
		for oi := range q.Options {
			for _, ot := range qt.Options {
				if ot.OptionKey == q.Options[oi].OptionKey && ot.OptionText != "" {
					q.Options[oi].OptionText = ot.OptionText
					break
				}
			}
		}
	}
}

func findQuestionTranslation(questions []model.QuestionTranslation, id string) (model.QuestionTranslation, bool) {
	for _, q := range questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return model.QuestionTranslation{}, false
}

// Level returns the composed level matching key under variant matching.
func Level(day *model.ComposedDay, key string) (model.Level, bool) {
	l, _, ok := levelkey.FindLevelByKey(day.ContentLevels, key)
	return l, ok
}

// ForModule narrows a composed day to what one participant sees: the level
// bound to their module, its enabled tasks, and only the follow-ups that are
// active. An unbound module sees no levels. day is not modified.
func ForModule(day *model.ComposedDay, mod *model.DayModule) *model.ComposedDay {
	out := *day
	out.ContentLevels = []model.Level{}
	if mod.Bound && mod.LevelKey != "" {
		if l, ok := Level(day, mod.LevelKey); ok {
			level := model.Level{LevelKey: l.LevelKey, LevelLabel: l.LevelLabel, Tasks: []model.Task{}}
			for _, t := range l.Tasks {
				if t.Enabled {
					level.Tasks = append(level.Tasks, model.CloneTask(t))
				}
			}
			out.ContentLevels = append(out.ContentLevels, level)
		}
	}

	out.TestStructure = model.CloneTest(day.TestStructure)
	if out.TestStructure != nil {
		for qi := range out.TestStructure.Questions {
			for oi := range out.TestStructure.Questions[qi].Options {
				o := &out.TestStructure.Questions[qi].Options[oi]
				if !o.FollowupActive {
					o.FollowupTask = nil
				}
			}
		}
	}
	return &out
}
