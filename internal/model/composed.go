package model

import "time"

// ComposedDay is the effective, client-ready configuration of one day in one language
type ComposedDay struct {
	DayNumber     int            `json:"dayNumber" bson:"dayNumber"`
	Language      string         `json:"language" bson:"language"`
	BaseLanguage  string         `json:"baseLanguage" bson:"baseLanguage"`
	Translated    bool           `json:"translated" bson:"translated"` // An overlay was applied
	HasTest       bool           `json:"hasTest" bson:"hasTest"`
	TestStructure *TestStructure `json:"testStructure,omitempty" bson:"testStructure,omitempty"`
	ContentLevels []Level        `json:"contentLevels" bson:"contentLevels"`
}

// LegacyLanguageConfig is one language entry of the flattened legacy record
type LegacyLanguageConfig struct {
	Language string      `json:"language" bson:"language"`
	Config   ComposedDay `json:"config" bson:"config"`
}

// SourceVersion pins the document version a legacy entry was derived from
type SourceVersion struct {
	Language string `json:"language" bson:"language"`
	Version  int64  `json:"version" bson:"version"`
}

// LegacyDayConfig is the denormalized all-languages day record read by older
// consumers. It is always derived from the structure and its translations.
type LegacyDayConfig struct {
	ID                  string                 `json:"id" bson:"_id"`
	DayNumber           int                    `json:"dayNumber" bson:"dayNumber"`
	BaseLanguage        string                 `json:"baseLanguage" bson:"baseLanguage"`
	Languages           []LegacyLanguageConfig `json:"languages" bson:"languages"` // Sorted by language
	StructureVersion    int64                  `json:"structureVersion" bson:"structureVersion"`
	TranslationVersions []SourceVersion        `json:"translationVersions" bson:"translationVersions"`
	Checksum            string                 `json:"checksum" bson:"checksum"` // SHA-256 of Languages
	SyncedAt            time.Time              `json:"syncedAt" bson:"syncedAt"`
}
