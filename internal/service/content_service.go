package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"carepath/internal/apperr"
	"carepath/internal/cache"
	"carepath/internal/compose"
	"carepath/internal/config"
	"carepath/internal/levelkey"
	"carepath/internal/model"
	"carepath/internal/repository"

	"github.com/google/uuid"
)

// ContentService is the authoring gateway: it owns structure and
// translation edits and everything derived from them.
type ContentService struct {
	structures   repository.StructureRepo
	translations repository.TranslationRepo
	legacy       repository.LegacyConfigRepo
	composed     cache.ComposedCache
	policy       config.Policy
	observer     UseCaseObserver
	now          func() time.Time
	newID        func() string
}

// NewContentService creates a new content service
func NewContentService(
	structures repository.StructureRepo,
	translations repository.TranslationRepo,
	legacy repository.LegacyConfigRepo,
	composed cache.ComposedCache,
	policy config.Policy,
	observers ...UseCaseObserver,
) *ContentService {
	return &ContentService{
		structures:   structures,
		translations: translations,
		legacy:       legacy,
		composed:     composed,
		policy:       policy,
		observer:     observerOrNoop(observers),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// SetClock replaces the time source
func (s *ContentService) SetClock(now func() time.Time) {
	s.now = now
}

// Structure returns the stored structure of a day
func (s *ContentService) Structure(ctx context.Context, day int) (*model.DynamicDayStructure, error) {
	return s.structures.Get(ctx, day)
}

// ListStructures returns every stored structure ordered by day
func (s *ContentService) ListStructures(ctx context.Context) ([]*model.DynamicDayStructure, error) {
	return s.structures.List(ctx)
}

// ApplyStructureEdit replaces a day's levels and test. Task order follows
// list position and blank task IDs are generated.
func (s *ContentService) ApplyStructureEdit(ctx context.Context, edit model.StructureEdit) (st *model.DynamicDayStructure, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "apply_structure_edit", start, err, map[string]any{"day": edit.DayNumber})
	}()

	st, err = s.loadForEdit(ctx, edit.DayNumber, edit.Language)
	if err != nil {
		return nil, err
	}
	st.HasTest = edit.HasTest
	st.TestStructure = model.CloneTest(edit.TestStructure)
	st.ContentLevels = model.CloneLevels(edit.ContentLevels)
	if st.ContentLevels == nil {
		st.ContentLevels = []model.Level{}
	}
	for i := range st.ContentLevels {
		l := &st.ContentLevels[i]
		if l.LevelKey == "" {
			l.LevelKey = levelkey.Normalize(l.LevelLabel)
		}
		for j := range l.Tasks {
			l.Tasks[j].TaskOrder = j + 1
		}
	}
	s.assignIDs(st)

	if err := s.saveStructure(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// UpsertTask inserts or replaces one task, creating the day and the level
// when they do not exist yet. A non-zero taskOrder places the task at that
// position; otherwise a replaced task keeps its place and a new one goes
// last. A task moved from another level is removed there.
func (s *ContentService) UpsertTask(ctx context.Context, up model.TaskUpsert) (st *model.DynamicDayStructure, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "upsert_task", start, err, map[string]any{"day": up.DayNumber, "task_id": up.Task.TaskID})
	}()

	if levelkey.Normalize(up.LevelKey) == "" && levelkey.Normalize(up.LevelLabel) == "" {
		return nil, apperr.Validation("bad_level", "a level key or label is required")
	}
	st, err = s.loadForEdit(ctx, up.DayNumber, up.Language)
	if err != nil {
		return nil, err
	}

	task := model.CloneTask(up.Task)
	if task.TaskID == "" {
		task.TaskID = s.newID()
	}

	requested := up.LevelKey
	if requested == "" {
		requested = up.LevelLabel
	}
	_, idx, ok := levelkey.FindLevelByKey(st.ContentLevels, requested)
	if !ok {
		label := up.LevelLabel
		if label == "" {
			label = up.LevelKey
		}
		st.ContentLevels = append(st.ContentLevels, model.Level{
			LevelKey:   levelkey.Normalize(requested),
			LevelLabel: label,
			Tasks:      []model.Task{},
		})
		idx = len(st.ContentLevels) - 1
	}

	compose.Renumber(st.ContentLevels)
	level := &st.ContentLevels[idx]
	pos := len(level.Tasks)
	for i := range level.Tasks {
		if level.Tasks[i].TaskID == task.TaskID {
			pos = i
			break
		}
	}
	for i := range st.ContentLevels {
		st.ContentLevels[i].Tasks = removeTask(st.ContentLevels[i].Tasks, task.TaskID)
	}
	if task.TaskOrder > 0 {
		pos = task.TaskOrder - 1
	}
	if pos > len(level.Tasks) {
		pos = len(level.Tasks)
	}
	level.Tasks = append(level.Tasks, model.Task{})
	copy(level.Tasks[pos+1:], level.Tasks[pos:])
	level.Tasks[pos] = task
	for i := range level.Tasks {
		level.Tasks[i].TaskOrder = i + 1
	}
	s.assignIDs(st)

	if err := s.saveStructure(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// RemoveTask deletes a task from whichever level holds it
func (s *ContentService) RemoveTask(ctx context.Context, day int, taskID string) (st *model.DynamicDayStructure, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "remove_task", start, err, map[string]any{"day": day, "task_id": taskID})
	}()

	st, err = s.structures.Get(ctx, day)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range st.ContentLevels {
		before := len(st.ContentLevels[i].Tasks)
		st.ContentLevels[i].Tasks = removeTask(st.ContentLevels[i].Tasks, taskID)
		if len(st.ContentLevels[i].Tasks) != before {
			found = true
		}
	}
	if !found {
		return nil, apperr.NotFound("task_not_found", "task %s not found on day %d", taskID, day)
	}
	compose.Renumber(st.ContentLevels)

	if err := s.saveStructure(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ReorderTasks sets a level's task order to the order of taskIDs, which must
// list every task of the level exactly once.
func (s *ContentService) ReorderTasks(ctx context.Context, day int, levelKey string, taskIDs []string) (st *model.DynamicDayStructure, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "reorder_tasks", start, err, map[string]any{"day": day, "level": levelKey})
	}()

	st, err = s.structures.Get(ctx, day)
	if err != nil {
		return nil, err
	}
	_, idx, ok := levelkey.FindLevelByKey(st.ContentLevels, levelKey)
	if !ok {
		return nil, apperr.NotFound("level_not_found", "level %q not found on day %d", levelKey, day)
	}

	level := &st.ContentLevels[idx]
	if len(taskIDs) != len(level.Tasks) {
		return nil, apperr.Validation("bad_reorder", "expected %d task ids, got %d", len(level.Tasks), len(taskIDs))
	}
	pos := make(map[string]int, len(taskIDs))
	for i, id := range taskIDs {
		if _, dup := pos[id]; dup {
			return nil, apperr.Validation("bad_reorder", "task %s listed twice", id)
		}
		pos[id] = i + 1
	}
	for i := range level.Tasks {
		order, ok := pos[level.Tasks[i].TaskID]
		if !ok {
			return nil, apperr.Validation("bad_reorder", "task %s is missing from the new order", level.Tasks[i].TaskID)
		}
		level.Tasks[i].TaskOrder = order
	}
	compose.Renumber(st.ContentLevels)

	if err := s.saveStructure(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// ApplyTranslationEdit replaces a day's overlay in a non-base language.
// Every referenced level, task, question and option must exist in the
// structure at write time.
func (s *ContentService) ApplyTranslationEdit(ctx context.Context, edit model.TranslationEdit) (tr *model.DynamicDayTranslation, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "apply_translation_edit", start, err, map[string]any{"day": edit.DayNumber, "language": edit.Language})
	}()

	if edit.Language == "" {
		return nil, apperr.Validation("no_language", "translation language is required")
	}
	st, err := s.structures.Get(ctx, edit.DayNumber)
	if err != nil {
		return nil, err
	}
	if edit.Language == st.BaseLanguage {
		return nil, apperr.Validation("base_language", "day %d is authored in %s; edit the structure instead", edit.DayNumber, st.BaseLanguage)
	}
	if err := checkTranslationRefs(st, edit); err != nil {
		return nil, err
	}

	tr, err = s.translations.Get(ctx, edit.DayNumber, edit.Language)
	if errors.Is(err, apperr.ErrNotFound) {
		tr = &model.DynamicDayTranslation{
			ID:        model.TranslationID(edit.DayNumber, edit.Language),
			DayNumber: edit.DayNumber,
			Language:  edit.Language,
		}
	} else if err != nil {
		return nil, err
	}

	overlay := (&model.DynamicDayTranslation{LevelContent: edit.LevelContent, TestContent: edit.TestContent}).Clone()
	tr.LevelContent = overlay.LevelContent
	if tr.LevelContent == nil {
		tr.LevelContent = []model.LevelTranslation{}
	}
	tr.TestContent = overlay.TestContent
	tr.UpdatedAt = s.now()

	if err := s.translations.Save(ctx, tr); err != nil {
		return nil, err
	}
	s.afterEdit(ctx, edit.DayNumber)
	return tr, nil
}

func checkTranslationRefs(st *model.DynamicDayStructure, edit model.TranslationEdit) error {
	for _, lt := range edit.LevelContent {
		level, _, ok := levelkey.FindLevelByKey(st.ContentLevels, lt.LevelKey)
		if !ok {
			return apperr.Validation("unknown_level", "level %q does not exist on day %d", lt.LevelKey, st.DayNumber)
		}
		for _, tt := range lt.Tasks {
			if !hasTask(level.Tasks, tt.TaskID) {
				return apperr.Validation("unknown_task", "task %s is not in level %q", tt.TaskID, level.LevelKey)
			}
		}
	}
	if edit.TestContent == nil {
		return nil
	}
	if st.TestStructure == nil {
		return apperr.Validation("unknown_question", "day %d has no test", st.DayNumber)
	}
	for _, qt := range edit.TestContent.Questions {
		q, ok := findQuestion(st.TestStructure.Questions, qt.QuestionID)
		if !ok {
			return apperr.Validation("unknown_question", "question %s does not exist", qt.QuestionID)
		}
		for _, ot := range qt.Options {
			if !hasOption(q.Options, ot.OptionKey) {
				return apperr.Validation("unknown_option", "option %s is not in question %s", ot.OptionKey, qt.QuestionID)
			}
		}
	}
	return nil
}

// Composed returns a day in language, served from the cache when possible.
// An empty language means the day's base language.
func (s *ContentService) Composed(ctx context.Context, day int, language string) (*model.ComposedDay, error) {
	if language != "" {
		cached, err := s.composed.Get(ctx, day, language)
		if err != nil {
			log.Printf("Warning: composed cache read failed for day %d: %v", day, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	st, err := s.structures.Get(ctx, day)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = st.BaseLanguage
	}
	var tr *model.DynamicDayTranslation
	if language != st.BaseLanguage {
		tr, err = s.translations.Get(ctx, day, language)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	composed := compose.Compose(st, tr, language)
	if err := s.composed.Set(ctx, composed); err != nil {
		log.Printf("Warning: failed to cache composed day %d: %v", day, err)
	}
	return composed, nil
}

// SyncLegacy rebuilds the flattened all-languages record of a day
func (s *ContentService) SyncLegacy(ctx context.Context, day int) (*model.LegacyDayConfig, error) {
	st, err := s.structures.Get(ctx, day)
	if err != nil {
		return nil, err
	}
	translations, err := s.translations.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	rec, err := compose.ProjectLegacy(st, translations, s.policy.Languages, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.legacy.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SyncAll rebuilds the legacy record of every stored day
func (s *ContentService) SyncAll(ctx context.Context) (int, error) {
	structures, err := s.structures.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, st := range structures {
		if _, err := s.SyncLegacy(ctx, st.DayNumber); err != nil {
			return i, fmt.Errorf("failed to sync day %d: %w", st.DayNumber, err)
		}
	}
	return len(structures), nil
}

// LegacyConfig returns the stored legacy record of a day
func (s *ContentService) LegacyConfig(ctx context.Context, day int) (*model.LegacyDayConfig, error) {
	return s.legacy.Get(ctx, day)
}

// loadForEdit returns the structure of day, or a new one authored in
// language. Structural edits are only accepted in the base language.
func (s *ContentService) loadForEdit(ctx context.Context, day int, language string) (*model.DynamicDayStructure, error) {
	if day < 0 || day >= s.policy.TotalDays {
		return nil, apperr.Validation("bad_day", "day %d is outside the %d day program", day, s.policy.TotalDays)
	}
	st, err := s.structures.Get(ctx, day)
	if errors.Is(err, apperr.ErrNotFound) {
		if language == "" {
			language = s.policy.BaseLanguage
		}
		now := s.now()
		return &model.DynamicDayStructure{
			ID:            model.StructureID(day),
			DayNumber:     day,
			BaseLanguage:  language,
			ContentLevels: []model.Level{},
			CreatedAt:     now,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if language != "" && language != st.BaseLanguage {
		return nil, apperr.Validation("not_base_language", "day %d structure can only be edited in %s", day, st.BaseLanguage)
	}
	return st, nil
}

func (s *ContentService) saveStructure(ctx context.Context, st *model.DynamicDayStructure) error {
	if err := compose.ValidateStructure(st, s.policy.MaxPerQuestion); err != nil {
		return err
	}
	st.UpdatedAt = s.now()
	if err := s.structures.Save(ctx, st); err != nil {
		return err
	}
	s.afterEdit(ctx, st.DayNumber)
	return nil
}

// afterEdit drops cached compositions and refreshes the legacy record.
// Failures are logged; carectl sync-legacy repairs a stale record.
func (s *ContentService) afterEdit(ctx context.Context, day int) {
	if err := s.composed.Invalidate(ctx, day); err != nil {
		log.Printf("Warning: failed to invalidate composed day %d: %v", day, err)
	}
	if _, err := s.SyncLegacy(ctx, day); err != nil {
		log.Printf("Warning: failed to sync legacy config for day %d: %v", day, err)
	}
}

func (s *ContentService) assignIDs(st *model.DynamicDayStructure) {
	for i := range st.ContentLevels {
		for j := range st.ContentLevels[i].Tasks {
			if st.ContentLevels[i].Tasks[j].TaskID == "" {
				st.ContentLevels[i].Tasks[j].TaskID = s.newID()
			}
		}
	}
	if st.TestStructure == nil {
		return
	}
	for i := range st.TestStructure.Questions {
		q := &st.TestStructure.Questions[i]
		for j := range q.Options {
			if f := q.Options[j].FollowupTask; f != nil && f.TaskID == "" {
				f.TaskID = s.newID()
			}
		}
	}
}

func removeTask(tasks []model.Task, taskID string) []model.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.TaskID != taskID {
			out = append(out, t)
		}
	}
	return out
}

func hasTask(tasks []model.Task, taskID string) bool {
	for _, t := range tasks {
		if t.TaskID == taskID {
			return true
		}
	}
	return false
}

func findQuestion(questions []model.TestQuestion, id string) (model.TestQuestion, bool) {
	for _, q := range questions {
		if q.QuestionID == id {
			return q, true
		}
	}
	return model.TestQuestion{}, false
}

func hasOption(options []model.TestOption, key string) bool {
	for _, o := range options {
		if o.OptionKey == key {
			return true
		}
	}
	return false
}
