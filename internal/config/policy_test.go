package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(body)), 0644))
	return path
}

func TestLoadPolicy_DefaultsWhenUnset(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	p, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, p.TotalDays)
	assert.Equal(t, 3, p.Escalation.Threshold)
	require.NotNil(t, p.Escalation.NegativeRatingMax, "low ratings count as negative by default")
	assert.Equal(t, DefaultNegativeRatingMax, *p.Escalation.NegativeRatingMax)
}

func TestLoadPolicy_NullDisablesRatingSignals(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, `
escalation:
  negative_rating_max: null
`))
	require.NoError(t, err)
	assert.Nil(t, p.Escalation.NegativeRatingMax)
	assert.Equal(t, []string{"no"}, p.Escalation.NegativeOptions)
}

func TestLoadPolicy_MergesOverDefaults(t *testing.T) {
	path := writePolicy(t, `
total_days: 5
day_wait_hours:
  2: 48
languages: [en, es, fr]
escalation:
  signal_tasks: [d1-severe-mood, d1-severe-coping]
  negative_rating_max: 1
`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalDays)
	assert.Equal(t, 24.0, p.DefaultWaitHours, "unset keys keep their default")
	assert.Equal(t, 48.0, p.WaitHours(2))
	assert.Equal(t, 24.0, p.WaitHours(3))
	assert.Equal(t, []string{"en", "es", "fr"}, p.Languages)
	assert.Equal(t, 3, p.Escalation.Threshold)
	assert.Equal(t, []string{"no"}, p.Escalation.NegativeOptions)
	require.NotNil(t, p.Escalation.NegativeRatingMax)
	assert.Equal(t, 1, *p.Escalation.NegativeRatingMax)
	assert.True(t, p.Escalation.IsSignalTask("d1-severe-mood"))
	assert.False(t, p.Escalation.IsSignalTask("d1-mild-read"))
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"too many days", "total_days: 11", "total_days"},
		{"assessment outside", "assessment_day: 7", "assessment_day"},
		{"negative wait", "default_wait_hours: -1", "default_wait_hours"},
		{"wait for day 0", "day_wait_hours: {0: 3}", "day_wait_hours"},
		{"zero threshold", "escalation: {threshold: 0}", "threshold"},
		{"not yaml", "total_days: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEscalationPolicy_IsNegativeOption(t *testing.T) {
	e := DefaultPolicy().Escalation
	assert.True(t, e.IsNegativeOption("no"))
	assert.False(t, e.IsNegativeOption("yes"))
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("MONGO_DB", "carepath_test")
	t.Setenv("PROGRAM_POLICY_FILE", writePolicy(t, "total_days: 3"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, "carepath_test", cfg.MongoDB)
	assert.Equal(t, 3, cfg.Policy.TotalDays)
}
