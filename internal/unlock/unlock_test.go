package unlock

import (
	"testing"
	"time"

	"carepath/internal/apperr"
	"carepath/internal/model"
	"carepath/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func program(days int) *model.ParticipantProgram {
	p := &model.ParticipantProgram{ID: "p1"}
	for d := 0; d < days; d++ {
		p.DayModules = append(p.DayModules, model.DayModule{Day: d})
	}
	return p
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, Duration(24))
	assert.Equal(t, 90*time.Minute, Duration(1.5))
	assert.Equal(t, time.Duration(0), Duration(0))
}

func TestScheduleNext(t *testing.T) {
	completed := testutil.T0.Add(2 * time.Hour)
	unlocked := testutil.T0.Add(time.Hour)
	now := testutil.T0.Add(10 * time.Hour)

	assert.Equal(t, completed.Add(24*time.Hour),
		ScheduleNext(&model.DayModule{CompletedAt: &completed, UnlockedAt: &unlocked}, 24*time.Hour, now))
	assert.Equal(t, unlocked.Add(24*time.Hour),
		ScheduleNext(&model.DayModule{UnlockedAt: &unlocked}, 24*time.Hour, now))
	assert.Equal(t, now.Add(24*time.Hour), ScheduleNext(&model.DayModule{}, 24*time.Hour, now))
	assert.Equal(t, now, ScheduleNext(nil, 0, now))
}

func TestSchedule_AppendsOnce(t *testing.T) {
	p := program(3)
	at := testutil.T0.Add(24 * time.Hour)

	require.True(t, Schedule(p, 1, at))
	assert.False(t, Schedule(p, 1, at.Add(time.Hour)), "already scheduled")
	assert.False(t, Schedule(p, 7, at), "unknown day")

	require.Len(t, p.UnlockSchedule, 1)
	assert.Equal(t, at, *p.DayModules[1].ScheduledUnlockAt)
	assert.Equal(t, model.ModuleScheduledForUnlock, p.DayModules[1].State())
	assert.Nil(t, p.UnlockSchedule[0].ActualUnlockedAt)
}

func TestUnlock_Idempotent(t *testing.T) {
	p := program(2)
	Schedule(p, 1, testutil.T0)
	p.DayModules[0].Completed = true

	ok, err := Unlock(p, 1, model.UnlockAutomatic, testutil.T0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	before := *p.Clone()
	ok, err = Unlock(p, 1, model.UnlockManual, testutil.T0.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, *p, "second unlock changes nothing")

	require.Len(t, p.UnlockSchedule, 1)
	e := p.UnlockSchedule[0]
	assert.Equal(t, model.UnlockAutomatic, e.UnlockMethod)
	assert.Equal(t, testutil.T0.Add(time.Minute), *e.ActualUnlockedAt)
}

func TestUnlock_ManualWithoutSchedule(t *testing.T) {
	p := program(3)
	now := testutil.T0.Add(time.Hour)

	ok, err := Unlock(p, 2, model.UnlockManual, now)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, p.UnlockSchedule, 1)
	assert.Equal(t, model.UnlockScheduleEntry{Day: 2, ScheduledUnlockAt: now, ActualUnlockedAt: &now, UnlockMethod: model.UnlockManual}, p.UnlockSchedule[0])

	_, err = Unlock(p, 5, model.UnlockManual, now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSweep(t *testing.T) {
	p := program(3)
	p.DayModules[0].Unlocked = true
	p.DayModules[0].Completed = true
	at := testutil.T0.Add(24 * time.Hour)
	Schedule(p, 1, at)

	assert.Empty(t, Sweep(p, at.Add(-time.Second)))
	assert.False(t, p.DayModules[1].Unlocked)

	assert.Equal(t, []int{1}, Sweep(p, at))
	assert.True(t, p.DayModules[1].Unlocked)
	assert.Empty(t, Sweep(p, at.Add(time.Hour)), "re-sweeping fires nothing")
	assert.Len(t, p.UnlockSchedule, 1)
}

func TestDueDays_RequiresPreviousCompleted(t *testing.T) {
	p := program(3)
	p.DayModules[0].Unlocked = true
	Schedule(p, 2, testutil.T0)

	assert.Empty(t, DueDays(p, testutil.T0.Add(time.Hour)))
}
