package compose

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"carepath/internal/model"
)

// LegacyID is the document ID of a day's legacy record.
func LegacyID(day int) string {
	return fmt.Sprintf("day-%d", day)
}

// ProjectLegacy composes structure for its base language, every language in
// languages and every language with a translation, and flattens the result
// into one record. The checksum covers the composed languages only, so two
// projections of the same sources always agree.
func ProjectLegacy(structure *model.DynamicDayStructure, translations []*model.DynamicDayTranslation, languages []string, now time.Time) (*model.LegacyDayConfig, error) {
	byLang := make(map[string]*model.DynamicDayTranslation, len(translations))
	for _, t := range translations {
		if t != nil && t.DayNumber == structure.DayNumber {
			byLang[t.Language] = t
		}
	}

	set := map[string]bool{structure.BaseLanguage: true}
	for _, l := range languages {
		if l != "" {
			set[l] = true
		}
	}
	for l := range byLang {
		set[l] = true
	}
	langs := make([]string, 0, len(set))
	for l := range set {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	rec := &model.LegacyDayConfig{
		ID:                  LegacyID(structure.DayNumber),
		DayNumber:           structure.DayNumber,
		BaseLanguage:        structure.BaseLanguage,
		Languages:           make([]model.LegacyLanguageConfig, 0, len(langs)),
		StructureVersion:    structure.Version,
		TranslationVersions: []model.SourceVersion{},
		SyncedAt:            now,
	}
	for _, l := range langs {
		var tr *model.DynamicDayTranslation
		if l != structure.BaseLanguage {
			tr = byLang[l]
		}
		rec.Languages = append(rec.Languages, model.LegacyLanguageConfig{
			Language: l,
			Config:   *Compose(structure, tr, l),
		})
		if t, ok := byLang[l]; ok && l != structure.BaseLanguage {
			rec.TranslationVersions = append(rec.TranslationVersions, model.SourceVersion{Language: l, Version: t.Version})
		}
	}

	sum, err := Checksum(rec.Languages)
	if err != nil {
		return nil, err
	}
	rec.Checksum = sum
	return rec, nil
}

// Checksum is the hex SHA-256 of the canonical JSON of the composed languages.
func Checksum(languages []model.LegacyLanguageConfig) (string, error) {
	raw, err := json.Marshal(languages)
	if err != nil {
		return "", fmt.Errorf("failed to encode legacy config: %w", err)
	}
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:]), nil
}
