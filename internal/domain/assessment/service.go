package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	store     StoreAPI
	cycles    CycleScope
	ratings   RatingPolicy
	publisher Publisher
	clock     func() time.Time
}

func NewService(store StoreAPI, cycles CycleScope, ratings RatingPolicy, publisher Publisher) *Service {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Service{
		store:     store,
		cycles:    cycles,
		ratings:   ratings,
		publisher: publisher,
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) Get(ctx context.Context, tenantID, assessmentID string) (Assessment, error) {
	return s.store.Get(ctx, tenantID, assessmentID)
}

func (s *Service) Snapshot(ctx context.Context, tenantID, assessmentID string) (Snapshot, error) {
	return s.store.Snapshot(ctx, tenantID, assessmentID)
}

func (s *Service) History(ctx context.Context, tenantID, assessmentID string) ([]HistoryEntry, error) {
	return s.store.History(ctx, tenantID, assessmentID)
}

// Assign creates a pending assessment and announces it to the assessor.
func (s *Service) Assign(ctx context.Context, tenantID, actorID string, in AssignInput) (Assessment, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Assessment{}, invalid("employeeId", "employee is required")
	}
	if strings.TrimSpace(in.AssessorID) == "" {
		return Assessment{}, invalid("assessorId", "assessor is required")
	}
	if _, err := ParseType(string(in.Type)); err != nil {
		return Assessment{}, invalid("assessmentType", "assessment type must be self, manager or peer")
	}

	competency, err := s.store.Competency(ctx, tenantID, in.CompetencyID)
	if errors.Is(err, ErrCompetencyNotFound) {
		return Assessment{}, invalid("competencyId", "competency does not exist")
	}
	if err != nil {
		return Assessment{}, err
	}
	if !competency.Active {
		return Assessment{}, invalid("competencyId", "competency is inactive")
	}

	if in.CycleID != "" && s.cycles != nil {
		allowed, err := s.cycles.AllowsType(ctx, tenantID, in.CycleID, in.Type)
		if err != nil {
			return Assessment{}, fmt.Errorf("checking cycle scope: %w", err)
		}
		if !allowed {
			return Assessment{}, invalid("assessmentType", "assessment type is not in the cycle's scope")
		}
	}

	now := s.clock()
	a := Assessment{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		EmployeeID:   in.EmployeeID,
		AssessorID:   in.AssessorID,
		CompetencyID: in.CompetencyID,
		CycleID:      in.CycleID,
		Type:         in.Type,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return Assessment{}, err
	}

	s.publish(ctx, EventAssigned, tenantID, a.ID, actorID, "", now)
	return a, nil
}

func (s *Service) Submit(ctx context.Context, tenantID, actorID, assessmentID string, expected Status, sub Submission) (Assessment, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID:     tenantID,
		ActorID:      actorID,
		AssessmentID: assessmentID,
		Action:       ActionSubmit,
		Expected:     expected,
		Submission:   sub,
	})
}

// Approve always uses submitted as the precondition; a second approval of
// the same assessment fails with InvalidTransition.
func (s *Service) Approve(ctx context.Context, tenantID, actorID, assessmentID string) (Assessment, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID:     tenantID,
		ActorID:      actorID,
		AssessmentID: assessmentID,
		Action:       ActionApprove,
		Expected:     StatusSubmitted,
	})
}

func (s *Service) Reject(ctx context.Context, tenantID, actorID, assessmentID, reason string) (Assessment, error) {
	return s.Transition(ctx, TransitionRequest{
		TenantID:     tenantID,
		ActorID:      actorID,
		AssessmentID: assessmentID,
		Action:       ActionReject,
		Expected:     StatusSubmitted,
		Reason:       reason,
	})
}

// Transition applies one lifecycle action with compare-and-swap semantics.
// On any failure the stored assessment is left untouched.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (Assessment, error) {
	if err := s.validate(req); err != nil {
		return Assessment{}, err
	}

	current, err := s.store.Get(ctx, req.TenantID, req.AssessmentID)
	if err != nil {
		return Assessment{}, err
	}
	// Only the assessor rates, including revisions after a rejection.
	if req.Action == ActionSubmit && req.ActorID != current.AssessorID {
		return Assessment{}, &ForbiddenError{AssessmentID: req.AssessmentID, ActorID: req.ActorID, Action: req.Action}
	}
	expected := current.Status
	if req.Expected != "" {
		if req.Expected != current.Status {
			return Assessment{}, &InvalidTransitionError{AssessmentID: req.AssessmentID, From: current.Status, Action: req.Action}
		}
		expected = req.Expected
	}

	next, ok := Next(expected, req.Action)
	if !ok {
		return Assessment{}, &InvalidTransitionError{AssessmentID: req.AssessmentID, From: expected, Action: req.Action}
	}

	now := s.clock()
	change := Change{
		History: HistoryEntry{
			AssessmentID: req.AssessmentID,
			From:         expected,
			To:           next,
			ActorID:      req.ActorID,
			At:           now,
		},
	}
	switch req.Action {
	case ActionSubmit:
		sub := req.Submission
		sub.Comments = strings.TrimSpace(sub.Comments)
		sub.DevelopmentNotes = strings.TrimSpace(sub.DevelopmentNotes)
		change.Submission = &sub
	case ActionReject:
		change.RejectionReason = strings.TrimSpace(req.Reason)
		change.History.Reason = change.RejectionReason
	case ActionApprove:
	}

	swapped, err := s.store.CompareAndSetStatus(ctx, req.TenantID, req.AssessmentID, expected, next, change)
	if err != nil {
		return Assessment{}, err
	}
	if !swapped {
		latest := expected
		if fresh, err := s.store.Get(ctx, req.TenantID, req.AssessmentID); err == nil {
			latest = fresh.Status
		}
		return Assessment{}, &InvalidTransitionError{AssessmentID: req.AssessmentID, From: latest, Action: req.Action, Lost: true}
	}

	updated, err := s.store.Get(ctx, req.TenantID, req.AssessmentID)
	if err != nil {
		return Assessment{}, err
	}
	s.publish(ctx, eventFor(req.Action), req.TenantID, req.AssessmentID, req.ActorID, change.RejectionReason, now)
	return updated, nil
}

func (s *Service) validate(req TransitionRequest) error {
	if strings.TrimSpace(req.ActorID) == "" {
		return invalid("actorId", "actor is required")
	}
	if req.Expected != "" {
		if _, err := ParseStatus(string(req.Expected)); err != nil {
			return invalid("expectedStatus", err.Error())
		}
	}
	switch req.Action {
	case ActionSubmit:
		return s.ratings.Validate(req.Submission)
	case ActionReject:
		if strings.TrimSpace(req.Reason) == "" {
			return invalid("reason", "rejection reason is required")
		}
		return nil
	case ActionApprove:
		return nil
	}
	return invalid("action", fmt.Sprintf("unknown action %q", req.Action))
}

func (s *Service) publish(ctx context.Context, kind EventKind, tenantID, assessmentID, actorID, reason string, at time.Time) {
	snap, err := s.store.Snapshot(ctx, tenantID, assessmentID)
	if err != nil {
		slog.Warn("assessment snapshot for event failed", "assessmentId", assessmentID, "event", kind, "err", err)
		return
	}
	s.publisher.Publish(ctx, Event{Kind: kind, Snapshot: snap, ActorID: actorID, Reason: reason, At: at})
}
