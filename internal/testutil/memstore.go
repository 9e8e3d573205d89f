package testutil

import (
	"context"
	"sort"
	"sync"

	"carepath/internal/apperr"
	"carepath/internal/model"
)

// ProgramStore is an in-memory ProgramRepo with the same versioning rules
// as the mongo implementation.
type ProgramStore struct {
	mu       sync.Mutex
	programs map[string]*model.ParticipantProgram

	// SaveErr, when set, fails the next Save.
	SaveErr error
	Saves   int
}

func NewProgramStore() *ProgramStore {
	return &ProgramStore{programs: map[string]*model.ParticipantProgram{}}
}

func (s *ProgramStore) Get(_ context.Context, id string) (*model.ParticipantProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[id]
	if !ok {
		return nil, apperr.NotFound("not_found", "program %s not found", id)
	}
	return p.Clone(), nil
}

func (s *ProgramStore) Save(_ context.Context, p *model.ParticipantProgram) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		err := s.SaveErr
		s.SaveErr = nil
		return err
	}
	stored, exists := s.version(p.ID)
	if err := checkVersion("program", p.ID, p.Version, stored, exists); err != nil {
		return err
	}
	p.Version++
	s.programs[p.ID] = p.Clone()
	s.Saves++
	return nil
}

func (s *ProgramStore) ListEscalated(_ context.Context) ([]*model.ParticipantProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.ParticipantProgram{}
	for _, p := range s.programs {
		if p.EscalationTriggered {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put stores p as-is, bypassing versioning.
func (s *ProgramStore) Put(p *model.ParticipantProgram) {
	s.mu.Lock()
	s.programs[p.ID] = p.Clone()
	s.mu.Unlock()
}

func (s *ProgramStore) version(id string) (int64, bool) {
	p, ok := s.programs[id]
	if !ok {
		return 0, false
	}
	return p.Version, true
}

// StructureStore is an in-memory StructureRepo.
type StructureStore struct {
	mu   sync.Mutex
	days map[int]*model.DynamicDayStructure
}

func NewStructureStore(structures ...*model.DynamicDayStructure) *StructureStore {
	s := &StructureStore{days: map[int]*model.DynamicDayStructure{}}
	for _, st := range structures {
		s.days[st.DayNumber] = st.Clone()
	}
	return s
}

func (s *StructureStore) Get(_ context.Context, day int) (*model.DynamicDayStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.days[day]
	if !ok {
		return nil, apperr.NotFound("not_found", "structure for day %d not found", day)
	}
	return st.Clone(), nil
}

func (s *StructureStore) List(_ context.Context) ([]*model.DynamicDayStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.DynamicDayStructure{}
	for _, st := range s.days {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (s *StructureStore) Save(_ context.Context, st *model.DynamicDayStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int64
	existing, ok := s.days[st.DayNumber]
	if ok {
		stored = existing.Version
	}
	if err := checkVersion("structure", model.StructureID(st.DayNumber), st.Version, stored, ok); err != nil {
		return err
	}
	if st.ID == "" {
		st.ID = model.StructureID(st.DayNumber)
	}
	st.Version++
	s.days[st.DayNumber] = st.Clone()
	return nil
}

// TranslationStore is an in-memory TranslationRepo.
type TranslationStore struct {
	mu   sync.Mutex
	docs map[string]*model.DynamicDayTranslation
}

func NewTranslationStore(translations ...*model.DynamicDayTranslation) *TranslationStore {
	s := &TranslationStore{docs: map[string]*model.DynamicDayTranslation{}}
	for _, t := range translations {
		s.docs[model.TranslationID(t.DayNumber, t.Language)] = t.Clone()
	}
	return s
}

func (s *TranslationStore) Get(_ context.Context, day int, language string) (*model.DynamicDayTranslation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.docs[model.TranslationID(day, language)]
	if !ok {
		return nil, apperr.NotFound("not_found", "%s translation for day %d not found", language, day)
	}
	return t.Clone(), nil
}

func (s *TranslationStore) ListByDay(_ context.Context, day int) ([]*model.DynamicDayTranslation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.DynamicDayTranslation{}
	for _, t := range s.docs {
		if t.DayNumber == day {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}

func (s *TranslationStore) Save(_ context.Context, t *model.DynamicDayTranslation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := model.TranslationID(t.DayNumber, t.Language)
	var stored int64
	existing, ok := s.docs[id]
	if ok {
		stored = existing.Version
	}
	if err := checkVersion("translation", id, t.Version, stored, ok); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = id
	}
	t.Version++
	s.docs[id] = t.Clone()
	return nil
}

// LegacyStore is an in-memory LegacyConfigRepo.
type LegacyStore struct {
	mu   sync.Mutex
	docs map[int]model.LegacyDayConfig
}

func NewLegacyStore() *LegacyStore {
	return &LegacyStore{docs: map[int]model.LegacyDayConfig{}}
}

func (s *LegacyStore) Get(_ context.Context, day int) (*model.LegacyDayConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.docs[day]
	if !ok {
		return nil, apperr.NotFound("not_found", "legacy config for day %d not found", day)
	}
	return &c, nil
}

func (s *LegacyStore) Save(_ context.Context, c *model.LegacyDayConfig) error {
	s.mu.Lock()
	s.docs[c.DayNumber] = *c
	s.mu.Unlock()
	return nil
}

func checkVersion(kind, id string, version, stored int64, exists bool) error {
	switch {
	case version == 0 && exists:
		return apperr.ConcurrencyConflict("%s %s was created concurrently", kind, id)
	case version != 0 && (!exists || stored != version):
		return apperr.ConcurrencyConflict("%s %s changed since version %d", kind, id, version)
	}
	return nil
}

