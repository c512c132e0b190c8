package goals

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier delivers best-effort user notifications. Delivery failures
// are logged, never surfaced to the caller.
type Notifier interface {
	Send(ctx context.Context, tenantID, userID, kind, title, body string) error
}

type Service struct {
	Store    *Store
	Notifier Notifier
}

func NewService(store *Store, notifier Notifier) *Service {
	return &Service{Store: store, Notifier: notifier}
}

func (s *Service) Create(ctx context.Context, tenantID, userID string, input CreateInput) (Goal, error) {
	if !ValidCategory(input.Category) {
		return Goal{}, fmt.Errorf("%w: unknown category %q", ErrInvalidState, input.Category)
	}
	ok, err := s.Store.CycleExists(ctx, tenantID, input.CycleID)
	if err != nil {
		return Goal{}, fmt.Errorf("check cycle: %w", err)
	}
	if !ok {
		return Goal{}, ErrCycleNotFound
	}
	input.UserID = userID
	return s.Store.Create(ctx, tenantID, input)
}

func (s *Service) Get(ctx context.Context, tenantID, goalID string) (Goal, error) {
	return s.Store.Get(ctx, tenantID, goalID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Goal, error) {
	return s.Store.List(ctx, tenantID, filter, limit, offset)
}

// Update edits a goal's fields. Only the owner may edit, and only while
// the goal is draft or pending approval.
func (s *Service) Update(ctx context.Context, tenantID, goalID, actorID string, input UpdateInput) (Goal, error) {
	oc, err := s.Store.OwnerContext(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if oc.OwnerID != actorID {
		return Goal{}, ErrForbidden
	}
	if !CanEdit(oc.Status) {
		return Goal{}, fmt.Errorf("%w: cannot edit goal in status %s", ErrInvalidState, oc.Status)
	}
	return s.Store.UpdateFields(ctx, tenantID, goalID, input)
}

// Submit moves an owned draft goal into the manager's approval queue.
func (s *Service) Submit(ctx context.Context, tenantID, goalID, actorID string) (Goal, error) {
	oc, err := s.Store.OwnerContext(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if oc.OwnerID != actorID {
		return Goal{}, ErrForbidden
	}
	if !CanSubmit(oc.Status) {
		return Goal{}, fmt.Errorf("%w: cannot submit goal in status %s", ErrInvalidState, oc.Status)
	}
	goal, err := s.Store.UpdateStatus(ctx, tenantID, goalID, StatusPendingApproval)
	if err != nil {
		return Goal{}, err
	}
	if oc.OwnerManagerID != "" {
		s.notify(ctx, tenantID, oc.OwnerManagerID, "goal_submitted", "Goal awaiting approval", goal.Title)
	}
	return goal, nil
}

// Approve records the manager's decision. The actor must be the goal
// owner's current manager and the goal must be pending approval.
func (s *Service) Approve(ctx context.Context, tenantID, goalID, actorID string) (Goal, error) {
	oc, err := s.Store.OwnerContext(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if !CanDecide(oc.Status) {
		return Goal{}, fmt.Errorf("%w: goal is %s, not pending approval", ErrInvalidState, oc.Status)
	}
	if oc.OwnerManagerID == "" || oc.OwnerManagerID != actorID {
		return Goal{}, ErrForbidden
	}
	goal, err := s.Store.MarkApproved(ctx, tenantID, goalID, actorID)
	if err != nil {
		return Goal{}, err
	}
	if err := s.Store.InsertApproval(ctx, goalID, actorID, DecisionApproved, ""); err != nil {
		return Goal{}, fmt.Errorf("record approval: %w", err)
	}
	s.notify(ctx, tenantID, oc.OwnerID, "goal_approved", "Goal approved", goal.Title)
	return goal, nil
}

// Reject returns a pending goal to draft so the owner can rework it.
// The comment is kept with the decision record.
func (s *Service) Reject(ctx context.Context, tenantID, goalID, actorID, comment string) (Goal, error) {
	oc, err := s.Store.OwnerContext(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if !CanDecide(oc.Status) {
		return Goal{}, fmt.Errorf("%w: goal is %s, not pending approval", ErrInvalidState, oc.Status)
	}
	if oc.OwnerManagerID == "" || oc.OwnerManagerID != actorID {
		return Goal{}, ErrForbidden
	}
	goal, err := s.Store.UpdateStatus(ctx, tenantID, goalID, StatusDraft)
	if err != nil {
		return Goal{}, err
	}
	if err := s.Store.InsertApproval(ctx, goalID, actorID, DecisionRejected, comment); err != nil {
		return Goal{}, fmt.Errorf("record rejection: %w", err)
	}
	s.notify(ctx, tenantID, oc.OwnerID, "goal_rejected", "Goal returned for rework", goal.Title)
	return goal, nil
}

// RecordProgress appends a progress entry and refreshes the goal's
// snapshot. The first entry against an approved goal moves it to
// in_progress; any later entries leave the status alone. Completion
// is decided during evaluation, not by hitting 100 percent.
func (s *Service) RecordProgress(ctx context.Context, tenantID, goalID, actorID string, percentage float64, comment string) (Goal, error) {
	if percentage < 0 || percentage > 100 {
		return Goal{}, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidState)
	}
	oc, err := s.Store.OwnerContext(ctx, tenantID, goalID)
	if err != nil {
		return Goal{}, err
	}
	if oc.OwnerID != actorID {
		return Goal{}, ErrForbidden
	}
	if !CanRecordProgress(oc.Status) {
		return Goal{}, fmt.Errorf("%w: cannot record progress for goal in status %s", ErrInvalidState, oc.Status)
	}
	if _, err := s.Store.InsertProgress(ctx, goalID, percentage, comment, actorID); err != nil {
		return Goal{}, fmt.Errorf("insert progress: %w", err)
	}
	return s.Store.UpdateProgressSnapshot(ctx, tenantID, goalID, percentage, NextStatusAfterProgress(oc.Status))
}

func (s *Service) ProgressHistory(ctx context.Context, tenantID, goalID string) ([]Progress, error) {
	if _, err := s.Store.OwnerContext(ctx, tenantID, goalID); err != nil {
		return nil, err
	}
	return s.Store.ListProgress(ctx, goalID)
}

func (s *Service) PendingApprovals(ctx context.Context, tenantID, managerID string, limit, offset int) ([]PendingGoal, int, error) {
	return s.Store.PendingForManager(ctx, tenantID, managerID, limit, offset)
}

func (s *Service) notify(ctx context.Context, tenantID, userID, kind, title, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, tenantID, userID, kind, title, body); err != nil {
		slog.Warn("notification delivery failed", "kind", kind, "error", err)
	}
}
