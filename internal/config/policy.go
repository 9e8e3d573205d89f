// Package config loads process settings from the environment and the
// program policy from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxDays bounds the length of a program.
const MaxDays = 10

// DefaultNegativeRatingMax is the highest rating that counts as a negative
// check-in unless the policy file says otherwise.
const DefaultNegativeRatingMax = 2

// EscalationPolicy selects the signal tasks and what counts as negative.
type EscalationPolicy struct {
	Threshold         int      `yaml:"threshold"`
	SignalTasks       []string `yaml:"signal_tasks"`
	NegativeOptions   []string `yaml:"negative_options"`
	NegativeRatingMax *int     `yaml:"negative_rating_max"` // null disables rating signals
}

// Policy is the program-wide progression policy.
type Policy struct {
	TotalDays        int              `yaml:"total_days"`
	AssessmentDay    int              `yaml:"assessment_day"`
	DefaultWaitHours float64          `yaml:"default_wait_hours"`
	DayWaitHours     map[int]float64  `yaml:"day_wait_hours"` // keyed by the day being unlocked
	MaxPerQuestion   int              `yaml:"max_per_question"`
	BaseLanguage     string           `yaml:"base_language"`
	Languages        []string         `yaml:"languages"`
	Escalation       EscalationPolicy `yaml:"escalation"`
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{
		TotalDays:        7,
		AssessmentDay:    0,
		DefaultWaitHours: 24,
		DayWaitHours:     map[int]float64{},
		MaxPerQuestion:   4,
		BaseLanguage:     "en",
		Languages:        []string{"en"},
		Escalation: EscalationPolicy{
			Threshold:         3,
			NegativeOptions:   []string{"no"},
			NegativeRatingMax: intPtr(DefaultNegativeRatingMax),
		},
	}
}

func intPtr(v int) *int { return &v }

// LoadPolicy merges the YAML file at path over the defaults. An empty path
// or a missing file yields the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return Policy{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if p.DayWaitHours == nil {
		p.DayWaitHours = map[int]float64{}
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Validate rejects policies the progression rules cannot honour.
func (p Policy) Validate() error {
	if p.TotalDays < 1 || p.TotalDays > MaxDays {
		return fmt.Errorf("total_days must be within 1..%d, got %d", MaxDays, p.TotalDays)
	}
	if p.AssessmentDay < 0 || p.AssessmentDay >= p.TotalDays {
		return fmt.Errorf("assessment_day %d outside the program", p.AssessmentDay)
	}
	if p.DefaultWaitHours < 0 {
		return fmt.Errorf("default_wait_hours must not be negative")
	}
	for day, h := range p.DayWaitHours {
		if day < 1 || day >= p.TotalDays {
			return fmt.Errorf("day_wait_hours has day %d outside 1..%d", day, p.TotalDays-1)
		}
		if h < 0 {
			return fmt.Errorf("day_wait_hours for day %d must not be negative", day)
		}
	}
	if p.MaxPerQuestion < 1 {
		return fmt.Errorf("max_per_question must be positive")
	}
	if p.BaseLanguage == "" {
		return fmt.Errorf("base_language is required")
	}
	if p.Escalation.Threshold < 1 {
		return fmt.Errorf("escalation.threshold must be at least 1")
	}
	return nil
}

// WaitHours is the policy wait before day unlocks.
func (p Policy) WaitHours(day int) float64 {
	if h, ok := p.DayWaitHours[day]; ok {
		return h
	}
	return p.DefaultWaitHours
}

// IsSignalTask reports whether taskID feeds escalation.
func (e EscalationPolicy) IsSignalTask(taskID string) bool {
	for _, id := range e.SignalTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// IsNegativeOption reports whether a selected option counts as negative.
func (e EscalationPolicy) IsNegativeOption(option string) bool {
	for _, o := range e.NegativeOptions {
		if o == option {
			return true
		}
	}
	return false
}

// DayKey formats a day for string-keyed override maps.
func DayKey(day int) string {
	return strconv.Itoa(day)
}
