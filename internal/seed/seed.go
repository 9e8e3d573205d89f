// Package seed builds and applies starter day structures.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"carepath/internal/apperr"
	"carepath/internal/config"
	"carepath/internal/model"
	"carepath/internal/payload"
)

// Burden levels of the starter program
const (
	LevelMild     = "mild"
	LevelModerate = "moderate"
	LevelSevere   = "severe"
)

// ContentEditor is the part of the content service seeding needs
type ContentEditor interface {
	Structure(ctx context.Context, day int) (*model.DynamicDayStructure, error)
	ApplyStructureEdit(ctx context.Context, edit model.StructureEdit) (*model.DynamicDayStructure, error)
}

// Result counts what Apply did
type Result struct {
	Created  []int `json:"created"`
	Replaced []int `json:"replaced"`
	Skipped  []int `json:"skipped"`
}

// Apply stores each edit. Days that already have a structure are skipped
// unless force is set.
func Apply(ctx context.Context, editor ContentEditor, edits []model.StructureEdit, force bool) (Result, error) {
	var res Result
	for _, edit := range edits {
		_, err := editor.Structure(ctx, edit.DayNumber)
		exists := err == nil
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return res, fmt.Errorf("failed to check day %d: %w", edit.DayNumber, err)
		}
		if exists && !force {
			res.Skipped = append(res.Skipped, edit.DayNumber)
			continue
		}

		if _, err := editor.ApplyStructureEdit(ctx, edit); err != nil {
			return res, fmt.Errorf("failed to seed day %d: %w", edit.DayNumber, err)
		}
		if exists {
			res.Replaced = append(res.Replaced, edit.DayNumber)
		} else {
			res.Created = append(res.Created, edit.DayNumber)
		}
		log.Printf("Seeded day %d", edit.DayNumber)
	}
	return res, nil
}

// LoadFile reads a JSON array of structure edits. Each element is checked
// against the structure edit schema before decoding.
func LoadFile(path string) ([]model.StructureEdit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("seed file %s is not a JSON array: %w", path, err)
	}

	edits := make([]model.StructureEdit, 0, len(items))
	for i, item := range items {
		var edit model.StructureEdit
		if err := payload.Decode(payload.StructureEdit, item, &edit); err != nil {
			return nil, fmt.Errorf("seed file entry %d: %w", i, err)
		}
		edits = append(edits, edit)
	}
	return edits, nil
}

// DefaultProgram returns a starter structure for every day of the policy:
// the burden assessment on the assessment day and three burden levels on
// every other day.
func DefaultProgram(policy config.Policy) []model.StructureEdit {
	edits := make([]model.StructureEdit, 0, policy.TotalDays)
	for day := 0; day < policy.TotalDays; day++ {
		if day == policy.AssessmentDay {
			edits = append(edits, assessmentDay(day, policy))
			continue
		}
		edits = append(edits, levelledDay(day, policy.BaseLanguage))
	}
	return edits
}

// SignalTaskIDs lists the check-in tasks of the starter program, for use as
// escalation.signal_tasks in the policy file.
func SignalTaskIDs(policy config.Policy) []string {
	var ids []string
	for day := 0; day < policy.TotalDays; day++ {
		if day != policy.AssessmentDay {
			ids = append(ids, taskID(day, LevelSevere, "checkin"), taskID(day, LevelSevere, "coping"))
		}
	}
	return ids
}

// WithSignals returns policy with the starter program's check-ins as its
// escalation signals. A "no" check-in and a low coping rating both count
// as negative, so rating signals are switched on when the policy has none.
func WithSignals(policy config.Policy) config.Policy {
	esc := policy.Escalation
	esc.SignalTasks = SignalTaskIDs(policy)
	if !esc.IsNegativeOption(checkinNegative) {
		esc.NegativeOptions = append(append([]string(nil), esc.NegativeOptions...), checkinNegative)
	}
	if esc.NegativeRatingMax == nil {
		v := config.DefaultNegativeRatingMax
		esc.NegativeRatingMax = &v
	}
	policy.Escalation = esc
	return policy
}

const checkinNegative = "no"

var burdenQuestions = []string{
	"How often do you feel you don't have enough time for yourself?",
	"How often do you feel stressed between caring and other responsibilities?",
	"How often do you feel angry when you are around your relative?",
	"How often do you feel your health has suffered?",
	"How often do you feel you don't have as much privacy as you would like?",
	"How often do you feel your social life has suffered?",
	"How often do you feel you have lost control of your life?",
}

var frequencyOptions = []string{"never", "rarely", "sometimes", "quite_often", "nearly_always"}

func assessmentDay(day int, policy config.Policy) model.StructureEdit {
	questions := make([]model.TestQuestion, len(burdenQuestions))
	for i, text := range burdenQuestions {
		q := model.TestQuestion{QuestionID: fmt.Sprintf("q%d", i+1), QuestionText: text}
		for v, key := range frequencyOptions {
			if v > policy.MaxPerQuestion {
				break
			}
			q.Options = append(q.Options, model.TestOption{OptionKey: key, OptionText: key, Value: v})
		}
		questions[i] = q
	}

	// Answering the top value on the control question opens a grounding exercise
	last := len(questions[6].Options) - 1
	questions[6].Options[last].FollowupTask = &model.Task{
		TaskID:   taskID(day, "followup", "grounding"),
		TaskType: model.TaskTypeActivity,
		Title:    "A five minute grounding exercise",
		Enabled:  true,
	}

	return model.StructureEdit{
		DayNumber: day,
		Language:  policy.BaseLanguage,
		HasTest:   true,
		TestStructure: &model.TestStructure{
			Questions:           questions,
			ScoreRanges:         burdenRanges(len(questions), policy.MaxPerQuestion),
			EnableFollowupTasks: true,
		},
		ContentLevels: []model.Level{{
			LevelKey:   "welcome",
			LevelLabel: "Welcome",
			Tasks: []model.Task{
				{TaskID: taskID(day, "welcome", "video"), TaskType: model.TaskTypeVideo, Title: "Welcome to the program", Enabled: true},
				{TaskID: taskID(day, "welcome", "hopes"), TaskType: model.TaskTypeReflection, Title: "What would you like to change?", Enabled: true},
			},
		}},
	}
}

// burdenRanges splits the score space into three contiguous bands
func burdenRanges(questions, maxPerQuestion int) []model.ScoreRange {
	possible := questions * maxPerQuestion
	third := possible / 3
	return []model.ScoreRange{
		{LevelKey: LevelMild, MinScore: 0, MaxScore: third},
		{LevelKey: LevelModerate, MinScore: third + 1, MaxScore: 2 * third},
		{LevelKey: LevelSevere, MinScore: 2*third + 1, MaxScore: possible},
	}
}

func levelledDay(day int, language string) model.StructureEdit {
	levels := make([]model.Level, 0, 3)
	for _, key := range []string{LevelMild, LevelModerate, LevelSevere} {
		l := model.Level{
			LevelKey:   key,
			LevelLabel: fmt.Sprintf("%s burden", key),
			Tasks: []model.Task{
				{TaskID: taskID(day, key, "read"), TaskType: model.TaskTypeText, Title: fmt.Sprintf("Day %d reading", day), Enabled: true},
				{TaskID: taskID(day, key, "practice"), TaskType: model.TaskTypeActivity, Title: "Practice", Enabled: true},
				{TaskID: taskID(day, key, "journal"), TaskType: model.TaskTypeReflection, Title: "Journal", Enabled: true, Optional: true},
			},
		}
		if key == LevelSevere {
			l.Tasks = append(l.Tasks,
				model.Task{TaskID: taskID(day, key, "checkin"), TaskType: model.TaskTypeChoice, Title: "Are you managing today?", Enabled: true,
					Content: map[string]interface{}{"options": []interface{}{"yes", checkinNegative}}},
				model.Task{TaskID: taskID(day, key, "coping"), TaskType: model.TaskTypeRating, Title: "How well are you coping?", Enabled: true,
					Content: map[string]interface{}{"min": 1, "max": 5}},
			)
		}
		levels = append(levels, l)
	}
	return model.StructureEdit{DayNumber: day, Language: language, ContentLevels: levels}
}

func taskID(day int, level, name string) string {
	return fmt.Sprintf("d%d-%s-%s", day, level, name)
}
