package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskType is the closed set of content kinds a task can render as
type TaskType string

const (
	TaskTypeVideo      TaskType = "video"
	TaskTypeAudio      TaskType = "audio"
	TaskTypeText       TaskType = "text"
	TaskTypeReflection TaskType = "reflection" // Free-text answer
	TaskTypeChoice     TaskType = "choice"     // Single choice, can be a negative signal
	TaskTypeRating     TaskType = "rating"     // Numeric scale, can be a negative signal
	TaskTypeChecklist  TaskType = "checklist"
	TaskTypeActivity   TaskType = "activity"
)

// ValidTaskTypes is the canonical set of accepted task types
var ValidTaskTypes = map[TaskType]bool{
	TaskTypeVideo: true, TaskTypeAudio: true, TaskTypeText: true,
	TaskTypeReflection: true, TaskTypeChoice: true, TaskTypeRating: true,
	TaskTypeChecklist: true, TaskTypeActivity: true,
}

// Task is one ordered unit of content within a level
type Task struct {
	TaskID      string                 `json:"taskId" bson:"taskId"` // Stable across edits
	TaskType    TaskType               `json:"taskType" bson:"taskType"`
	TaskOrder   int                    `json:"taskOrder" bson:"taskOrder"` // Dense, 1-based within the level
	Title       string                 `json:"title" bson:"title"`
	Description string                 `json:"description" bson:"description"`
	Content     map[string]interface{} `json:"content,omitempty" bson:"content,omitempty"`
	Enabled     bool                   `json:"enabled" bson:"enabled"`
	Optional    bool                   `json:"optional,omitempty" bson:"optional,omitempty"`
}

// Level groups the tasks shown to participants of one outcome level
type Level struct {
	LevelKey   string `json:"levelKey" bson:"levelKey"`
	LevelLabel string `json:"levelLabel" bson:"levelLabel"`
	Tasks      []Task `json:"tasks" bson:"tasks"`
}

func (l Level) Key() string   { return l.LevelKey }
func (l Level) Label() string { return l.LevelLabel }

// TestOption is one answer of a test question
type TestOption struct {
	OptionKey    string `json:"optionKey" bson:"optionKey"`
	OptionText   string `json:"optionText" bson:"optionText"`
	Value        int    `json:"value" bson:"value"` // Score contributed when chosen
	FollowupTask *Task  `json:"followupTask,omitempty" bson:"followupTask,omitempty"`

	// Set by composition, never stored
	FollowupActive bool `json:"followupActive,omitempty" bson:"-"`
}

// TestQuestion is one item of the branching test
type TestQuestion struct {
	QuestionID   string       `json:"questionId" bson:"questionId"`
	QuestionText string       `json:"questionText" bson:"questionText"`
	Options      []TestOption `json:"options" bson:"options"`
}

// ScoreRange maps an inclusive total-score band to a level
type ScoreRange struct {
	LevelKey string `json:"levelKey" bson:"levelKey"`
	MinScore int    `json:"minScore" bson:"minScore"`
	MaxScore int    `json:"maxScore" bson:"maxScore"`
}

// TestStructure is the branching test definition of a day
type TestStructure struct {
	Questions           []TestQuestion `json:"questions" bson:"questions"`
	ScoreRanges         []ScoreRange   `json:"scoreRanges" bson:"scoreRanges"`
	DisableLevels       bool           `json:"disableLevels" bson:"disableLevels"`
	EnableFollowupTasks bool           `json:"enableFollowupTasks" bson:"enableFollowupTasks"`
	FallbackLevelKey    string         `json:"fallbackLevelKey,omitempty" bson:"fallbackLevelKey,omitempty"` // Used when levels are disabled
}

// QuestionIDs returns the question IDs in order
func (t *TestStructure) QuestionIDs() []string {
	ids := make([]string, len(t.Questions))
	for i, q := range t.Questions {
		ids[i] = q.QuestionID
	}
	return ids
}

// DynamicDayStructure is the authoritative, language-agnostic shape of one day
type DynamicDayStructure struct {
	ID            string         `json:"id" bson:"_id"`
	DayNumber     int            `json:"dayNumber" bson:"dayNumber"`
	BaseLanguage  string         `json:"baseLanguage" bson:"baseLanguage"` // Set once at creation
	HasTest       bool           `json:"hasTest" bson:"hasTest"`
	TestStructure *TestStructure `json:"testStructure,omitempty" bson:"testStructure,omitempty"`
	ContentLevels []Level        `json:"contentLevels" bson:"contentLevels"`
	Version       int64          `json:"version" bson:"version"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Levelled reports whether participants are routed between several levels
func (s *DynamicDayStructure) Levelled() bool {
	return len(s.ContentLevels) > 1
}

// TaskTranslation overrides the text of one structural task
type TaskTranslation struct {
	TaskID           string                 `json:"taskId" bson:"taskId"`
	Title            string                 `json:"title,omitempty" bson:"title,omitempty"`
	Description      string                 `json:"description,omitempty" bson:"description,omitempty"`
	ContentOverrides map[string]interface{} `json:"contentOverrides,omitempty" bson:"contentOverrides,omitempty"`
}

// LevelTranslation overrides one level's label and task text
type LevelTranslation struct {
	LevelKey   string            `json:"levelKey" bson:"levelKey"`
	LevelLabel string            `json:"levelLabel,omitempty" bson:"levelLabel,omitempty"`
	Tasks      []TaskTranslation `json:"tasks,omitempty" bson:"tasks,omitempty"`
}

func (l LevelTranslation) Key() string   { return l.LevelKey }
func (l LevelTranslation) Label() string { return l.LevelLabel }

// OptionTranslation overrides an option's text
type OptionTranslation struct {
	OptionKey  string `json:"optionKey" bson:"optionKey"`
	OptionText string `json:"optionText,omitempty" bson:"optionText,omitempty"`
}

// QuestionTranslation overrides a question's and its options' text
type QuestionTranslation struct {
	QuestionID   string              `json:"questionId" bson:"questionId"`
	QuestionText string              `json:"questionText,omitempty" bson:"questionText,omitempty"`
	Options      []OptionTranslation `json:"options,omitempty" bson:"options,omitempty"`
}

// TestTranslation overrides test text
type TestTranslation struct {
	Questions []QuestionTranslation `json:"questions,omitempty" bson:"questions,omitempty"`
}

// DynamicDayTranslation is a per-language overlay on a day structure
type DynamicDayTranslation struct {
	ID           string             `json:"id" bson:"_id"`
	DayNumber    int                `json:"dayNumber" bson:"dayNumber"`
	Language     string             `json:"language" bson:"language"`
	LevelContent []LevelTranslation `json:"levelContent" bson:"levelContent"`
	TestContent  *TestTranslation   `json:"testContent,omitempty" bson:"testContent,omitempty"`
	Version      int64              `json:"version" bson:"version"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CloneContent deep-copies a free-form content payload. Nested documents
// decoded by the mongo driver are normalised to plain maps and slices.
func CloneContent(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneContent(t)
	case primitive.M:
		return CloneContent(map[string]interface{}(t))
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = cloneValue(e.Value)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// CloneTask deep-copies a task
func CloneTask(t Task) Task {
	t.Content = CloneContent(t.Content)
	return t
}

// CloneLevels deep-copies a level list
func CloneLevels(levels []Level) []Level {
	if levels == nil {
		return nil
	}
	out := make([]Level, len(levels))
	for i, l := range levels {
		cl := l
		if l.Tasks != nil {
			cl.Tasks = make([]Task, len(l.Tasks))
			for j, t := range l.Tasks {
				cl.Tasks[j] = CloneTask(t)
			}
		}
		out[i] = cl
	}
	return out
}

// CloneTest deep-copies a test structure
func CloneTest(t *TestStructure) *TestStructure {
	if t == nil {
		return nil
	}
	c := *t
	c.ScoreRanges = append([]ScoreRange(nil), t.ScoreRanges...)
	if t.Questions != nil {
		c.Questions = make([]TestQuestion, len(t.Questions))
		for i, q := range t.Questions {
			cq := q
			if q.Options != nil {
				cq.Options = make([]TestOption, len(q.Options))
				for j, o := range q.Options {
					co := o
					if o.FollowupTask != nil {
						ft := CloneTask(*o.FollowupTask)
						co.FollowupTask = &ft
					}
					cq.Options[j] = co
				}
			}
			c.Questions[i] = cq
		}
	}
	return &c
}

// Clone deep-copies the structure
func (s *DynamicDayStructure) Clone() *DynamicDayStructure {
	if s == nil {
		return nil
	}
	c := *s
	c.TestStructure = CloneTest(s.TestStructure)
	c.ContentLevels = CloneLevels(s.ContentLevels)
	return &c
}

// StructureID is the document ID of a day's structure
func StructureID(day int) string {
	return fmt.Sprintf("day-%d", day)
}

// TranslationID is the document ID of a day's translation in language
func TranslationID(day int, language string) string {
	return fmt.Sprintf("day-%d-%s", day, language)
}

// Clone deep-copies the translation
func (t *DynamicDayTranslation) Clone() *DynamicDayTranslation {
	if t == nil {
		return nil
	}
	c := *t
	if t.LevelContent != nil {
		c.LevelContent = make([]LevelTranslation, len(t.LevelContent))
		for i, l := range t.LevelContent {
			cl := l
			if l.Tasks != nil {
				cl.Tasks = make([]TaskTranslation, len(l.Tasks))
				for j, tt := range l.Tasks {
					tt.ContentOverrides = CloneContent(tt.ContentOverrides)
					cl.Tasks[j] = tt
				}
			}
			c.LevelContent[i] = cl
		}
	}
	if t.TestContent != nil {
		tc := TestTranslation{}
		for _, q := range t.TestContent.Questions {
			q.Options = append([]OptionTranslation(nil), q.Options...)
			tc.Questions = append(tc.Questions, q)
		}
		c.TestContent = &tc
	}
	return &c
}
