package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"carepath/internal/cache"
	"carepath/internal/config"
	"carepath/internal/model"
	"carepath/internal/progression"
	"carepath/internal/repository"

	"github.com/google/uuid"
)

// ProgramService runs participant program operations as whole-document
// read-modify-write cycles.
type ProgramService struct {
	programs    repository.ProgramRepo
	structures  repository.StructureRepo
	unlockIndex cache.UnlockIndex
	policy      config.Policy
	authSvc     *AuthService
	broadcaster Broadcaster
	observer    UseCaseObserver
	now         func() time.Time
}

// NewProgramService creates a new program service
func NewProgramService(
	programs repository.ProgramRepo,
	structures repository.StructureRepo,
	unlockIndex cache.UnlockIndex,
	policy config.Policy,
	authSvc *AuthService,
	observers ...UseCaseObserver,
) *ProgramService {
	return &ProgramService{
		programs:    programs,
		structures:  structures,
		unlockIndex: unlockIndex,
		policy:      policy,
		authSvc:     authSvc,
		broadcaster: noopBroadcaster{},
		observer:    observerOrNoop(observers),
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster (called after hub is created)
func (s *ProgramService) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	s.broadcaster = b
}

// SetClock replaces the time source
func (s *ProgramService) SetClock(now func() time.Time) {
	s.now = now
}

// catalog is a day-indexed snapshot of the stored structures
type catalog map[int]*model.DynamicDayStructure

func (c catalog) Day(day int) *model.DynamicDayStructure {
	return c[day]
}

func (s *ProgramService) machine(ctx context.Context) (*progression.Machine, error) {
	structures, err := s.structures.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load day structures: %w", err)
	}
	c := make(catalog, len(structures))
	for _, st := range structures {
		c[st.DayNumber] = st
	}
	return progression.NewMachine(s.policy, c), nil
}

// Enroll creates a program for a participant and issues their token.
// A blank participantID gets a generated one.
func (s *ProgramService) Enroll(ctx context.Context, participantID, language string, overrides *model.WaitOverrides) (resp *model.EnrollmentResponse, err error) {
	start := time.Now()
	if participantID == "" {
		participantID = uuid.NewString()
	}
	defer func() {
		observe(ctx, s.observer, "enroll", start, err, map[string]any{"participant_id": participantID})
	}()

	m, err := s.machine(ctx)
	if err != nil {
		return nil, err
	}
	p, err := m.NewProgram(participantID, language, overrides, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.programs.Save(ctx, p); err != nil {
		return nil, err
	}
	s.reindex(ctx, p)

	token, err := s.authSvc.GenerateParticipantToken(participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue participant token: %w", err)
	}
	return &model.EnrollmentResponse{
		ParticipantID: participantID,
		Token:         token,
		Program:       p,
	}, nil
}

// Status returns the program after unlocking every day whose time has come.
// The program is only written when something unlocked.
func (s *ProgramService) Status(ctx context.Context, participantID string) (*model.ParticipantProgram, error) {
	p, _, err := s.withProgram(ctx, "status", participantID, nil, true, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return m.Sweep(p, now), nil
	})
	return p, err
}

// SubmitAssessment scores the branching assessment and binds content levels
func (s *ProgramService) SubmitAssessment(ctx context.Context, participantID string, responses map[string]int) (*model.ParticipantProgram, error) {
	p, _, err := s.withProgram(ctx, "submit_assessment", participantID, nil, false, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return m.SubmitBranchingAssessment(p, responses, now)
	})
	return p, err
}

// RecordResponse stores a task answer and evaluates escalation signals
func (s *ProgramService) RecordResponse(ctx context.Context, participantID string, day int, taskID string, response model.ResponseData) (*model.ParticipantProgram, error) {
	fields := map[string]any{"day": day, "task_id": taskID}
	p, _, err := s.withProgram(ctx, "record_response", participantID, fields, false, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return m.RecordTaskResponse(p, day, taskID, response, now)
	})
	return p, err
}

// CompleteDay completes a day module and schedules the next one
func (s *ProgramService) CompleteDay(ctx context.Context, participantID string, day int) (*model.ParticipantProgram, error) {
	p, _, err := s.withProgram(ctx, "complete_day", participantID, map[string]any{"day": day}, false, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return m.CompleteModule(p, day, now)
	})
	return p, err
}

// ManualUnlock fast-tracks a day for a participant
func (s *ProgramService) ManualUnlock(ctx context.Context, participantID string, day int) (*model.ParticipantProgram, error) {
	p, eff, err := s.withProgram(ctx, "manual_unlock", participantID, map[string]any{"day": day}, false, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return m.ManualUnlock(p, day, now)
	})
	if err == nil && len(eff.Unlocked) > 0 {
		s.broadcaster.BroadcastToOperators(MsgProgramUpdated, map[string]interface{}{
			"participantId": participantID,
			"unlocked":      eff.Unlocked,
		})
	}
	return p, err
}

// SetWaitOverrides replaces a participant's wait-time overrides
func (s *ProgramService) SetWaitOverrides(ctx context.Context, participantID string, overrides *model.WaitOverrides) (*model.ParticipantProgram, error) {
	p, _, err := s.withProgram(ctx, "set_wait_overrides", participantID, nil, false, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
		return progression.Effects{}, m.SetWaitOverrides(p, overrides, now)
	})
	return p, err
}

// Escalated lists programs whose support escalation has fired
func (s *ProgramService) Escalated(ctx context.Context) ([]*model.ParticipantProgram, error) {
	return s.programs.ListEscalated(ctx)
}

// SweepReport summarises one SweepDue pass
type SweepReport struct {
	Checked  int      `json:"checked"`
	Unlocked int      `json:"unlocked"`
	Failed   []string `json:"failed,omitempty"`
}

// SweepDue sweeps up to limit participants whose next unlock is due.
// A participant that fails is reported and skipped.
func (s *ProgramService) SweepDue(ctx context.Context, limit int) (report SweepReport, err error) {
	start := time.Now()
	defer func() {
		observe(ctx, s.observer, "sweep_due", start, err, map[string]any{"checked": report.Checked, "unlocked": report.Unlocked})
	}()

	ids, err := s.unlockIndex.Due(ctx, s.now(), limit)
	if err != nil {
		return report, fmt.Errorf("failed to read unlock index: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		_, eff, err := s.withProgram(ctx, "sweep", id, nil, true, func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error) {
			return m.Sweep(p, now), nil
		})
		if err != nil {
			log.Printf("Warning: sweep failed for %s: %v", id, err)
			report.Failed = append(report.Failed, id)
			continue
		}
		report.Unlocked += len(eff.Unlocked)
	}
	return report, nil
}

type programOp func(m *progression.Machine, p *model.ParticipantProgram, now time.Time) (progression.Effects, error)

// withProgram loads the program, applies op and saves it. Nothing is written
// when op fails, or when a lazy op had no effects.
func (s *ProgramService) withProgram(ctx context.Context, name, participantID string, fields map[string]any, lazy bool, op programOp) (p *model.ParticipantProgram, eff progression.Effects, err error) {
	start := time.Now()
	if fields == nil {
		fields = map[string]any{}
	}
	fields["participant_id"] = participantID
	defer func() {
		observe(ctx, s.observer, name, start, err, fields)
	}()

	p, err = s.programs.Get(ctx, participantID)
	if err != nil {
		return nil, eff, err
	}
	m, err := s.machine(ctx)
	if err != nil {
		return nil, eff, err
	}

	eff, err = op(m, p, s.now())
	if err != nil {
		return nil, eff, err
	}
	if lazy && eff.Empty() {
		return p, eff, nil
	}
	if err := s.programs.Save(ctx, p); err != nil {
		return nil, progression.Effects{}, err
	}

	s.reindex(ctx, p)
	s.publish(p.ID, eff)
	return p, eff, nil
}

// reindex keeps the due-unlock index pointed at the next pending unlock
func (s *ProgramService) reindex(ctx context.Context, p *model.ParticipantProgram) {
	if next, ok := p.NextPendingUnlock(); ok {
		if err := s.unlockIndex.Track(ctx, p.ID, next); err != nil {
			log.Printf("Warning: failed to index unlock for %s: %v", p.ID, err)
		}
		return
	}
	if err := s.unlockIndex.Untrack(ctx, p.ID); err != nil {
		log.Printf("Warning: failed to clear unlock index for %s: %v", p.ID, err)
	}
}

func (s *ProgramService) publish(participantID string, eff progression.Effects) {
	for _, n := range eff.Notifications {
		payload := NotificationPayload{ParticipantID: participantID, Notification: n}
		switch n.Kind {
		case model.NotificationSupportEscalation:
			s.broadcaster.BroadcastToOperators(MsgSupportEscalation, payload)
		case model.NotificationDayUnlocked:
			s.broadcaster.BroadcastToParticipant(participantID, MsgDayUnlocked, payload)
		}
	}
}
