package service

import (
	"context"
	"fmt"
	"testing"

	"carepath/internal/apperr"
	"carepath/internal/model"
	"carepath/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storedDays leaves the last program day without a structure.
const storedDays = testDays - 1

type contentFixture struct {
	svc          *ContentService
	structures   *testutil.StructureStore
	translations *testutil.TranslationStore
	legacy       *testutil.LegacyStore
	cache        *testutil.ComposedCache
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	policy := servicePolicy()
	policy.Languages = []string{"en", "fr"}
	f := &contentFixture{
		structures:   structures(storedDays),
		translations: testutil.NewTranslationStore(),
		legacy:       testutil.NewLegacyStore(),
		cache:        testutil.NewComposedCache(),
	}
	f.svc = NewContentService(f.structures, f.translations, f.legacy, f.cache, policy)
	f.svc.SetClock(testutil.NewClock(testutil.T0).Now)
	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return f
}

func taskIDs(l model.Level) []string {
	ids := make([]string, len(l.Tasks))
	for i, t := range l.Tasks {
		ids[i] = t.TaskID
	}
	return ids
}

func TestApplyStructureEdit_CreatesDay(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, &model.ComposedDay{DayNumber: 4, Language: "en"}))

	st, err := f.svc.ApplyStructureEdit(ctx, model.StructureEdit{
		DayNumber: 4,
		Language:  "en",
		ContentLevels: []model.Level{{
			LevelLabel: "Everyone",
			Tasks: []model.Task{
				{TaskType: model.TaskTypeText, Title: "Read", TaskOrder: 7, Enabled: true},
				{TaskID: "keep-me", TaskType: model.TaskTypeAudio, Title: "Listen", TaskOrder: 3, Enabled: true},
			},
		}},
	})
	require.NoError(t, err)

	level := st.ContentLevels[0]
	assert.Equal(t, "everyone", level.LevelKey)
	assert.Equal(t, []string{"gen-1", "keep-me"}, taskIDs(level))
	assert.Equal(t, 1, level.Tasks[0].TaskOrder)
	assert.Equal(t, 2, level.Tasks[1].TaskOrder)
	assert.Equal(t, int64(1), st.Version)
	assert.Equal(t, "en", st.BaseLanguage)

	assert.False(t, f.cache.Cached(4, "en"), "edits drop cached compositions")
	rec, err := f.legacy.Get(ctx, 4)
	require.NoError(t, err)
	require.Len(t, rec.Languages, 2)
	assert.Equal(t, "en", rec.Languages[0].Language)
	assert.Equal(t, "fr", rec.Languages[1].Language)
}

func TestApplyStructureEdit_Rejects(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApplyStructureEdit(ctx, model.StructureEdit{DayNumber: 1, Language: "fr"})
	assert.Equal(t, "not_base_language", apperr.CodeOf(err))

	_, err = f.svc.ApplyStructureEdit(ctx, model.StructureEdit{DayNumber: testDays, Language: "en"})
	assert.Equal(t, "bad_day", apperr.CodeOf(err))

	_, err = f.svc.ApplyStructureEdit(ctx, model.StructureEdit{DayNumber: 1, Language: "en", HasTest: true})
	assert.Equal(t, "bad_test", apperr.CodeOf(err))

	st, err := f.svc.Structure(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, st.ContentLevels, 3, "rejected edits are not saved")
}

func TestUpsertTask(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	st, err := f.svc.UpsertTask(ctx, model.TaskUpsert{
		DayNumber: 1,
		LevelKey:  "mild-level",
		Task:      model.Task{TaskID: "d1-mild-new", TaskType: model.TaskTypeChecklist, Title: "Plan", TaskOrder: 1, Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1-mild-new", "d1-mild-read", "d1-mild-extra"}, taskIDs(st.ContentLevels[0]))

	again, err := f.svc.UpsertTask(ctx, model.TaskUpsert{
		DayNumber: 1,
		LevelKey:  "mild",
		Task:      model.Task{TaskID: "d1-mild-new", TaskType: model.TaskTypeChecklist, Title: "Plan", TaskOrder: 1, Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, st.ContentLevels, again.ContentLevels, "upserting the same task twice changes nothing")

	moved, err := f.svc.UpsertTask(ctx, model.TaskUpsert{
		DayNumber: 1,
		LevelKey:  "moderate",
		Task:      model.Task{TaskID: "d1-mild-new", TaskType: model.TaskTypeChecklist, Title: "Plan", Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1-mild-read", "d1-mild-extra"}, taskIDs(moved.ContentLevels[0]))
	assert.Equal(t, []string{"d1-moderate-read", "d1-moderate-extra", "d1-mild-new"}, taskIDs(moved.ContentLevels[1]))
}

func TestUpsertTask_CreatesDayAndLevel(t *testing.T) {
	f := newContentFixture(t)

	st, err := f.svc.UpsertTask(context.Background(), model.TaskUpsert{
		DayNumber:  4,
		LevelLabel: "Wind Down",
		Task:       model.Task{TaskType: model.TaskTypeVideo, Title: "Stretch", Enabled: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "en", st.BaseLanguage)
	require.Len(t, st.ContentLevels, 1)
	assert.Equal(t, "wind-down", st.ContentLevels[0].LevelKey)
	assert.Equal(t, []string{"gen-1"}, taskIDs(st.ContentLevels[0]))

	_, err = f.svc.UpsertTask(context.Background(), model.TaskUpsert{DayNumber: 4, Task: model.Task{Title: "x"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoveTask(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	st, err := f.svc.RemoveTask(ctx, 1, "d1-severe-read")
	require.NoError(t, err)
	severe := st.ContentLevels[2]
	assert.Equal(t, []string{"d1-severe-extra", "d1-severe-mood", "d1-severe-coping"}, taskIDs(severe))
	assert.Equal(t, 1, severe.Tasks[0].TaskOrder)
	assert.Equal(t, 3, severe.Tasks[2].TaskOrder)

	_, err = f.svc.RemoveTask(ctx, 1, "d1-severe-read")
	assert.Equal(t, "task_not_found", apperr.CodeOf(err))
}

func TestReorderTasks(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	st, err := f.svc.ReorderTasks(ctx, 1, "Mild Burden", []string{"d1-mild-extra", "d1-mild-read"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1-mild-extra", "d1-mild-read"}, taskIDs(st.ContentLevels[0]))

	tests := []struct {
		name string
		ids  []string
	}{
		{"too few", []string{"d1-mild-read"}},
		{"duplicate", []string{"d1-mild-read", "d1-mild-read"}},
		{"foreign", []string{"d1-mild-read", "d1-moderate-read"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReorderTasks(ctx, 1, "mild", tt.ids)
			assert.Equal(t, "bad_reorder", apperr.CodeOf(err))
		})
	}

	_, err = f.svc.ReorderTasks(ctx, 1, "extreme", nil)
	assert.Equal(t, "level_not_found", apperr.CodeOf(err))
}

func TestApplyTranslationEdit(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	tr, err := f.svc.ApplyTranslationEdit(ctx, model.TranslationEdit{
		DayNumber: 1,
		Language:  "fr",
		LevelContent: []model.LevelTranslation{{
			LevelKey:   "mild",
			LevelLabel: "Charge légère",
			Tasks:      []model.TaskTranslation{{TaskID: "d1-mild-read", Title: "Lecture"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TranslationID(1, "fr"), tr.ID)
	assert.Equal(t, int64(1), tr.Version)

	day, err := f.svc.Composed(ctx, 1, "fr")
	require.NoError(t, err)
	assert.True(t, day.Translated)
	assert.Equal(t, "Charge légère", day.ContentLevels[0].LevelLabel)
	assert.Equal(t, "Lecture", day.ContentLevels[0].Tasks[0].Title)
	assert.Equal(t, "Optional walk", day.ContentLevels[0].Tasks[1].Title)

	rec, err := f.legacy.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rec.TranslationVersions, 1)
	assert.Equal(t, model.SourceVersion{Language: "fr", Version: 1}, rec.TranslationVersions[0])
}

func TestApplyTranslationEdit_Rejects(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		edit model.TranslationEdit
		code string
	}{
		{"base language", model.TranslationEdit{DayNumber: 1, Language: "en"}, "base_language"},
		{"no language", model.TranslationEdit{DayNumber: 1}, "no_language"},
		{"unknown level", model.TranslationEdit{DayNumber: 1, Language: "fr",
			LevelContent: []model.LevelTranslation{{LevelKey: "extreme"}}}, "unknown_level"},
		{"task from another level", model.TranslationEdit{DayNumber: 1, Language: "fr",
			LevelContent: []model.LevelTranslation{{LevelKey: "mild", Tasks: []model.TaskTranslation{{TaskID: "d1-severe-mood"}}}}}, "unknown_task"},
		{"test on a day without one", model.TranslationEdit{DayNumber: 1, Language: "fr",
			TestContent: &model.TestTranslation{}}, "unknown_question"},
		{"unknown question", model.TranslationEdit{DayNumber: 0, Language: "fr",
			TestContent: &model.TestTranslation{Questions: []model.QuestionTranslation{{QuestionID: "q99"}}}}, "unknown_question"},
		{"unknown option", model.TranslationEdit{DayNumber: 0, Language: "fr",
			TestContent: &model.TestTranslation{Questions: []model.QuestionTranslation{{QuestionID: "q1",
				Options: []model.OptionTranslation{{OptionKey: "maybe"}}}}}}, "unknown_option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ApplyTranslationEdit(ctx, tt.edit)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}

	_, err := f.svc.ApplyTranslationEdit(ctx, model.TranslationEdit{DayNumber: 2, Language: "fr"})
	require.NoError(t, err)
	_, err = f.svc.ApplyTranslationEdit(ctx, model.TranslationEdit{DayNumber: storedDays, Language: "fr"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestComposed_CachesPerLanguage(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	first, err := f.svc.Composed(ctx, 2, "de")
	require.NoError(t, err)
	assert.False(t, first.Translated)
	assert.Equal(t, "de", first.Language)
	assert.True(t, f.cache.Cached(2, "de"))

	second, err := f.svc.Composed(ctx, 2, "de")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.Hits)

	base, err := f.svc.Composed(ctx, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "en", base.Language)

	_, err = f.svc.UpsertTask(ctx, model.TaskUpsert{DayNumber: 2, LevelKey: "mild",
		Task: model.Task{TaskID: "d2-mild-read", TaskType: model.TaskTypeText, Title: "Changed", Enabled: true}})
	require.NoError(t, err)
	assert.False(t, f.cache.Cached(2, "de"))

	third, err := f.svc.Composed(ctx, 2, "de")
	require.NoError(t, err)
	assert.Equal(t, "Changed", third.ContentLevels[0].Tasks[0].Title)
}

func TestSyncAll(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	n, err := f.svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, storedDays, n)

	for d := 0; d < storedDays; d++ {
		rec, err := f.svc.LegacyConfig(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.StructureVersion)
		assert.NotEmpty(t, rec.Checksum)
		assert.Equal(t, testutil.T0, rec.SyncedAt)
	}
}
