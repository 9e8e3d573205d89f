// Package testutil provides fixtures, in-memory collaborators and a
// controllable clock for package tests.
package testutil

import (
	"fmt"
	"time"

	"carepath/internal/model"
)

// T0 is the fixed start time used across tests.
var T0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// Burden levels used by the fixtures.
const (
	Mild     = "mild"
	Moderate = "moderate"
	Severe   = "severe"
)

// Signal task IDs carried by the severe level of every levelled day.
func SignalTasks(day int) []string {
	return []string{fmt.Sprintf("d%d-severe-mood", day), fmt.Sprintf("d%d-severe-coping", day)}
}

// BurdenRanges is the score partition for a seven question, 0..4 test.
func BurdenRanges() []model.ScoreRange {
	return []model.ScoreRange{
		{LevelKey: Mild, MinScore: 0, MaxScore: 10},
		{LevelKey: Moderate, MinScore: 11, MaxScore: 20},
		{LevelKey: Severe, MinScore: 21, MaxScore: 28},
	}
}

// AssessmentDay returns a single-level day carrying the seven question
// branching test. Answering "always" (4) to q1 reaches a follow-up task.
func AssessmentDay(day int) *model.DynamicDayStructure {
	questions := make([]model.TestQuestion, 7)
	labels := []string{"never", "rarely", "sometimes", "often", "always"}
	for i := range questions {
		q := model.TestQuestion{
			QuestionID:   fmt.Sprintf("q%d", i+1),
			QuestionText: fmt.Sprintf("Question %d", i+1),
		}
		for v, label := range labels {
			q.Options = append(q.Options, model.TestOption{OptionKey: label, OptionText: label, Value: v})
		}
		questions[i] = q
	}
	questions[0].Options[4].FollowupTask = &model.Task{
		TaskID:   fmt.Sprintf("d%d-followup-q1", day),
		TaskType: model.TaskTypeActivity,
		Title:    "Breathing exercise",
		Enabled:  true,
	}

	return &model.DynamicDayStructure{
		ID:           fmt.Sprintf("day-%d", day),
		DayNumber:    day,
		BaseLanguage: "en",
		HasTest:      true,
		TestStructure: &model.TestStructure{
			Questions:           questions,
			ScoreRanges:         BurdenRanges(),
			EnableFollowupTasks: true,
		},
		ContentLevels: []model.Level{{
			LevelKey:   "intro",
			LevelLabel: "Introduction",
			Tasks: []model.Task{
				{TaskID: fmt.Sprintf("d%d-welcome", day), TaskType: model.TaskTypeVideo, TaskOrder: 1, Title: "Welcome", Enabled: true,
					Content: map[string]interface{}{"url": "https://cdn.example.org/welcome.mp4", "durationSec": 120}},
				{TaskID: fmt.Sprintf("d%d-expectations", day), TaskType: model.TaskTypeReflection, TaskOrder: 2, Title: "What do you hope for?", Enabled: true},
			},
		}},
		Version: 1,
	}
}

// LevelledDay returns a day with mild, moderate and severe levels. Each level
// has a required text task and an optional activity; severe adds the two
// signal tasks.
func LevelledDay(day int) *model.DynamicDayStructure {
	levels := make([]model.Level, 0, 3)
	for _, key := range []string{Mild, Moderate, Severe} {
		l := model.Level{
			LevelKey:   key,
			LevelLabel: fmt.Sprintf("%s burden", key),
			Tasks: []model.Task{
				{TaskID: fmt.Sprintf("d%d-%s-read", day, key), TaskType: model.TaskTypeText, TaskOrder: 1,
					Title: fmt.Sprintf("Day %d reading (%s)", day, key), Description: "Read the article", Enabled: true,
					Content: map[string]interface{}{"body": fmt.Sprintf("%s article", key), "minutes": 5}},
				{TaskID: fmt.Sprintf("d%d-%s-extra", day, key), TaskType: model.TaskTypeActivity, TaskOrder: 2,
					Title: "Optional walk", Enabled: true, Optional: true},
			},
		}
		if key == Severe {
			sig := SignalTasks(day)
			l.Tasks = append(l.Tasks,
				model.Task{TaskID: sig[0], TaskType: model.TaskTypeChoice, TaskOrder: 3, Title: "Are you feeling ok?", Enabled: true,
					Content: map[string]interface{}{"options": []interface{}{"yes", "no"}}},
				model.Task{TaskID: sig[1], TaskType: model.TaskTypeRating, TaskOrder: 4, Title: "How well are you coping?", Enabled: true,
					Content: map[string]interface{}{"min": 1, "max": 5}},
			)
		}
		levels = append(levels, l)
	}
	return &model.DynamicDayStructure{
		ID:            fmt.Sprintf("day-%d", day),
		DayNumber:     day,
		BaseLanguage:  "en",
		ContentLevels: levels,
		Version:       1,
	}
}

// Catalog is a map-backed day lookup.
type Catalog map[int]*model.DynamicDayStructure

// Day returns the structure for day, or nil.
func (c Catalog) Day(day int) *model.DynamicDayStructure {
	return c[day]
}

// ProgramCatalog returns an assessment day 0 followed by levelled days.
func ProgramCatalog(days int) Catalog {
	c := Catalog{0: AssessmentDay(0)}
	for d := 1; d < days; d++ {
		c[d] = LevelledDay(d)
	}
	return c
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// Answers returns q1..q7 responses with the given values.
func Answers(values ...int) map[string]int {
	out := make(map[string]int, len(values))
	for i, v := range values {
		out[fmt.Sprintf("q%d", i+1)] = v
	}
	return out
}
