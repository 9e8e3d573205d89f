package progression

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"carepath/internal/apperr"
	"carepath/internal/config"
	"carepath/internal/model"
	"carepath/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const days = 5

func testPolicy() config.Policy {
	p := config.DefaultPolicy()
	p.TotalDays = days
	for d := 1; d < days; d++ {
		p.Escalation.SignalTasks = append(p.Escalation.SignalTasks, testutil.SignalTasks(d)...)
	}
	p.Escalation.NegativeRatingMax = testutil.IntPtr(2)
	return p
}

func newMachine(policy config.Policy, catalog Catalog) *Machine {
	m := NewMachine(policy, catalog)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("n%d", n)
	}
	return m
}

func defaultMachine() *Machine {
	return newMachine(testPolicy(), testutil.ProgramCatalog(days))
}

func snapshot(t *testing.T, p *model.ParticipantProgram) string {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return string(raw)
}

// finishDay0 submits the assessment and completes day 0 at `at`.
func finishDay0(t *testing.T, m *Machine, p *model.ParticipantProgram, answers map[string]int, at time.Time) {
	t.Helper()
	_, err := m.SubmitBranchingAssessment(p, answers, at)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-welcome", model.ResponseData{Viewed: true}, at)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-expectations", model.ResponseData{Text: "some rest"}, at)
	require.NoError(t, err)
	_, err = m.CompleteModule(p, 0, at)
	require.NoError(t, err)
}

// checkInvariants asserts the program-wide rules that must hold after every operation.
func checkInvariants(t *testing.T, p *model.ParticipantProgram) {
	t.Helper()
	require.NotEmpty(t, p.DayModules)
	assert.True(t, p.DayModules[0].Unlocked, "day 0 is always unlocked")

	seen := map[int]bool{}
	for _, e := range p.UnlockSchedule {
		assert.False(t, seen[e.Day], "one schedule entry per day, day %d repeated", e.Day)
		seen[e.Day] = true
	}
	for i := 1; i < len(p.DayModules); i++ {
		mod := p.DayModules[i]
		if !mod.Unlocked || p.DayModules[i-1].Completed {
			continue
		}
		e, ok := p.ScheduleEntry(i)
		require.True(t, ok, "unlocked day %d has a schedule entry", i)
		assert.Equal(t, model.UnlockManual, e.UnlockMethod, "day %d unlocked before day %d completed", i, i-1)
	}

	escalations := 0
	for _, n := range p.Notifications {
		if n.Kind == model.NotificationSupportEscalation {
			escalations++
		}
	}
	assert.LessOrEqual(t, escalations, 1)
	assert.Equal(t, escalations == 1, p.EscalationTriggered)
	if p.BranchingAssessment != nil {
		assert.Equal(t, p.BranchingAssessment.OutcomeLevel, p.OutcomeLevel)
	}
}

func TestNewProgram(t *testing.T) {
	m := defaultMachine()

	p, err := m.NewProgram("p1", "", nil, testutil.T0)
	require.NoError(t, err)
	checkInvariants(t, p)

	assert.Equal(t, "en", p.Language)
	require.Len(t, p.DayModules, days)
	day0 := p.DayModules[0]
	assert.Equal(t, model.ModuleUnlocked, day0.State())
	assert.Equal(t, testutil.T0, *day0.UnlockedAt)
	assert.True(t, day0.Bound)
	assert.Equal(t, "intro", day0.LevelKey)
	assert.Len(t, day0.Tasks, 2)

	require.Len(t, p.UnlockSchedule, 1)
	e := p.UnlockSchedule[0]
	assert.Equal(t, testutil.T0, e.ScheduledUnlockAt)
	assert.Equal(t, testutil.T0, *e.ActualUnlockedAt)
	assert.Equal(t, model.UnlockAutomatic, e.UnlockMethod)

	for _, mod := range p.DayModules[1:] {
		assert.Equal(t, model.ModuleLocked, mod.State())
		assert.False(t, mod.Bound, "levelled days wait for the assessment")
	}
}

func TestNewProgram_Rejects(t *testing.T) {
	m := defaultMachine()

	_, err := m.NewProgram("", "en", nil, testutil.T0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.NewProgram("p1", "en", &model.WaitOverrides{WaitHours: testutil.FloatPtr(-1)}, testutil.T0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = m.NewProgram("p1", "en", &model.WaitOverrides{DayWaitHours: map[string]float64{"0": 1}}, testutil.T0)
	assert.Equal(t, "bad_wait", apperr.CodeOf(err))
}

func TestCompleteModule_SchedulesNextDay(t *testing.T) {
	m := defaultMachine()
	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)

	completedAt := testutil.T0.Add(2 * time.Hour)
	finishDay0(t, m, p, testutil.Answers(2, 1, 0, 2, 1, 1, 1), completedAt)
	checkInvariants(t, p)

	day1 := p.DayModules[1]
	require.NotNil(t, day1.ScheduledUnlockAt)
	assert.Equal(t, testutil.T0.Add(24*time.Hour), *day1.ScheduledUnlockAt, "scheduled at the assessment from day 0's unlock")
	assert.False(t, day1.Unlocked)
	assert.Equal(t, model.ModuleScheduledForUnlock, day1.State())
	assert.Equal(t, 1, p.CurrentDay)
	assert.InDelta(t, 20.0, p.OverallProgress, 0.001)
	assert.Equal(t, 100.0, p.DayModules[0].ProgressPercent)

	eff := m.Sweep(p, day1.ScheduledUnlockAt.Add(-time.Second))
	assert.True(t, eff.Empty())
	assert.False(t, p.DayModules[1].Unlocked)

	eff = m.Sweep(p, *day1.ScheduledUnlockAt)
	assert.Equal(t, []int{1}, eff.Unlocked)
	require.Len(t, eff.Notifications, 1)
	assert.Equal(t, model.NotificationDayUnlocked, eff.Notifications[0].Kind)
	assert.True(t, p.DayModules[1].Unlocked)
	assert.Equal(t, testutil.Mild, p.DayModules[1].LevelKey)
	checkInvariants(t, p)

	assert.True(t, m.Sweep(p, day1.ScheduledUnlockAt.Add(time.Hour)).Empty(), "sweeping again is a no-op")
	assert.Len(t, p.UnlockSchedule, 2)
}

func TestCompleteModule_SchedulesFromCompletionWithoutAssessment(t *testing.T) {
	catalog := testutil.ProgramCatalog(days)
	intro := *catalog[0]
	intro.HasTest = false
	intro.TestStructure = nil
	catalog[0] = &intro
	m := newMachine(testPolicy(), catalog)

	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)
	completedAt := testutil.T0.Add(2 * time.Hour)
	_, err = m.RecordTaskResponse(p, 0, "d0-welcome", model.ResponseData{Viewed: true}, completedAt)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-expectations", model.ResponseData{Text: "x"}, completedAt)
	require.NoError(t, err)
	assert.Nil(t, p.DayModules[1].ScheduledUnlockAt)

	_, err = m.CompleteModule(p, 0, completedAt)
	require.NoError(t, err)
	require.NotNil(t, p.DayModules[1].ScheduledUnlockAt)
	assert.Equal(t, completedAt.Add(24*time.Hour), *p.DayModules[1].ScheduledUnlockAt)
	checkInvariants(t, p)
}

func TestCompleteModule_Failures(t *testing.T) {
	m := defaultMachine()
	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)

	before := snapshot(t, p)
	_, err = m.CompleteModule(p, 0, testutil.T0)
	assert.Equal(t, "assessment_required", apperr.CodeOf(err))
	assert.Equal(t, before, snapshot(t, p))

	_, err = m.SubmitBranchingAssessment(p, testutil.Answers(1, 1, 1, 1, 1, 1, 1), testutil.T0)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-welcome", model.ResponseData{Viewed: true}, testutil.T0)
	require.NoError(t, err)

	before = snapshot(t, p)
	_, err = m.CompleteModule(p, 0, testutil.T0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	assert.Equal(t, "required_tasks_missing", apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "d0-expectations")
	assert.Equal(t, before, snapshot(t, p), "a failed completion leaves the program unchanged")

	_, err = m.CompleteModule(p, 2, testutil.T0)
	assert.ErrorIs(t, err, apperr.ErrDayLocked)

	_, err = m.CompleteModule(p, 42, testutil.T0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = m.RecordTaskResponse(p, 0, "d0-expectations", model.ResponseData{Text: "ok"}, testutil.T0)
	require.NoError(t, err)
	_, err = m.CompleteModule(p, 0, testutil.T0)
	require.NoError(t, err)
	_, err = m.CompleteModule(p, 0, testutil.T0)
	assert.Equal(t, "day_completed", apperr.CodeOf(err))
}

func TestCompleteModule_ZeroWaitUnlocksImmediately(t *testing.T) {
	m := defaultMachine()
	overrides := &model.WaitOverrides{DayWaitHours: map[string]float64{"1": 0}}
	p, err := m.NewProgram("p1", "en", overrides, testutil.T0)
	require.NoError(t, err)

	_, err = m.SubmitBranchingAssessment(p, testutil.Answers(0, 0, 0, 0, 0, 0, 0), testutil.T0)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-welcome", model.ResponseData{Viewed: true}, testutil.T0)
	require.NoError(t, err)
	_, err = m.RecordTaskResponse(p, 0, "d0-expectations", model.ResponseData{Text: "x"}, testutil.T0)
	require.NoError(t, err)

	eff, err := m.CompleteModule(p, 0, testutil.T0)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, eff.Unlocked)
	assert.True(t, p.DayModules[1].Unlocked)
	checkInvariants(t, p)
}

func TestResolveWait(t *testing.T) {
	policy := testPolicy()
	policy.DayWaitHours = map[int]float64{2: 48}
	m := newMachine(policy, testutil.ProgramCatalog(days))

	p := &model.ParticipantProgram{}
	assert.Equal(t, 24.0, m.ResolveWait(p, 1))
	assert.Equal(t, 48.0, m.ResolveWait(p, 2))

	p.WaitPlanHours = []float64{0, 12, 12, 12, 12}
	assert.Equal(t, 12.0, m.ResolveWait(p, 2), "the stored plan wins over the policy")

	p.CustomWaitOverrides = &model.WaitOverrides{WaitHours: testutil.FloatPtr(6), DayWaitHours: map[string]float64{"3": 1}}
	assert.Equal(t, 6.0, m.ResolveWait(p, 2))
	assert.Equal(t, 1.0, m.ResolveWait(p, 3))
}

func TestWaitPlanFixedAtAssessment(t *testing.T) {
	slow := testPolicy()
	slow.DayWaitHours = map[int]float64{1: 48}
	catalog := testutil.ProgramCatalog(days)

	p, err := newMachine(slow, catalog).NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)
	_, err = newMachine(slow, catalog).SubmitBranchingAssessment(p, testutil.Answers(0, 0, 0, 0, 0, 0, 0), testutil.T0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 48, 24, 24, 24}, p.WaitPlanHours)

	// Policy edited afterwards: the participant keeps the plan.
	fast := newMachine(testPolicy(), catalog)
	_, err = fast.RecordTaskResponse(p, 0, "d0-welcome", model.ResponseData{Viewed: true}, testutil.T0)
	require.NoError(t, err)
	_, err = fast.RecordTaskResponse(p, 0, "d0-expectations", model.ResponseData{Text: "x"}, testutil.T0)
	require.NoError(t, err)
	_, err = fast.CompleteModule(p, 0, testutil.T0)
	require.NoError(t, err)
	assert.Equal(t, testutil.T0.Add(48*time.Hour), *p.DayModules[1].ScheduledUnlockAt)
}

func TestSetWaitOverrides(t *testing.T) {
	m := defaultMachine()
	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)

	require.NoError(t, m.SetWaitOverrides(p, &model.WaitOverrides{WaitHours: testutil.FloatPtr(2)}, testutil.T0))
	assert.Equal(t, 2.0, m.ResolveWait(p, 1))

	err = m.SetWaitOverrides(p, &model.WaitOverrides{DayWaitHours: map[string]float64{"x": 1}}, testutil.T0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 2.0, m.ResolveWait(p, 1))

	require.NoError(t, m.SetWaitOverrides(p, nil, testutil.T0))
	assert.Nil(t, p.CustomWaitOverrides)
}

func TestManualUnlock(t *testing.T) {
	m := defaultMachine()
	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)
	_, err = m.SubmitBranchingAssessment(p, testutil.Answers(2, 2, 2, 2, 2, 2, 2), testutil.T0)
	require.NoError(t, err)

	now := testutil.T0.Add(time.Hour)
	eff, err := m.ManualUnlock(p, 3, now)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, eff.Unlocked)
	require.Len(t, eff.Notifications, 1)
	assert.Equal(t, 3, eff.Notifications[0].Day)
	checkInvariants(t, p)

	e, ok := p.ScheduleEntry(3)
	require.True(t, ok)
	assert.Equal(t, model.UnlockManual, e.UnlockMethod)
	assert.Equal(t, now, *e.ActualUnlockedAt)
	assert.Equal(t, testutil.Moderate, p.DayModules[3].LevelKey)

	eff, err = m.ManualUnlock(p, 3, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, eff.Empty())
	assert.Len(t, p.UnlockSchedule, 3, "day 0, day 1 scheduled at the assessment, day 3")

	_, err = m.ManualUnlock(p, 9, now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestManualUnlock_FillsScheduledEntry(t *testing.T) {
	m := defaultMachine()
	p, err := m.NewProgram("p1", "en", nil, testutil.T0)
	require.NoError(t, err)
	finishDay0(t, m, p, testutil.Answers(0, 0, 0, 0, 0, 0, 0), testutil.T0)

	_, err = m.ManualUnlock(p, 1, testutil.T0.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, p.UnlockSchedule, 2)
	e, _ := p.ScheduleEntry(1)
	assert.Equal(t, testutil.T0.Add(24*time.Hour), e.ScheduledUnlockAt, "the planned time is kept for audit")
	assert.Equal(t, model.UnlockManual, e.UnlockMethod)
}
