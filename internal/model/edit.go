package model

// StructureEdit replaces the structural shape of a day. Only accepted in the
// day's base language.
type StructureEdit struct {
	DayNumber     int            `json:"dayNumber"`
	Language      string         `json:"language"`
	HasTest       bool           `json:"hasTest"`
	TestStructure *TestStructure `json:"testStructure,omitempty"`
	ContentLevels []Level        `json:"contentLevels"`
}

// TaskUpsert creates or replaces one task, creating the day and level when missing
type TaskUpsert struct {
	DayNumber  int    `json:"dayNumber"`
	Language   string `json:"language"`
	LevelKey   string `json:"levelKey"`
	LevelLabel string `json:"levelLabel,omitempty"`
	Task       Task   `json:"task"`
}

// TranslationEdit carries overlay fields only; it cannot express structural changes
type TranslationEdit struct {
	DayNumber    int                `json:"dayNumber"`
	Language     string             `json:"language"`
	LevelContent []LevelTranslation `json:"levelContent"`
	TestContent  *TestTranslation   `json:"testContent,omitempty"`
}
