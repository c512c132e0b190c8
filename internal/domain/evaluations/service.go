package evaluations

import (
	"context"
	"fmt"
	"log/slog"
)

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

func (s *Service) CreateCycle(ctx context.Context, tenantID string, in CycleInput) (Cycle, error) {
	if !in.EndDate.After(in.StartDate) {
		return Cycle{}, fmt.Errorf("%w: cycle end date must follow start date", ErrInvalidState)
	}
	return s.Store.CreateCycle(ctx, tenantID, in)
}

func (s *Service) GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	return s.Store.GetCycle(ctx, tenantID, cycleID)
}

func (s *Service) ListCycles(ctx context.Context, tenantID, status string, limit, offset int) ([]Cycle, error) {
	return s.Store.ListCycles(ctx, tenantID, status, limit, offset)
}

// ActivateCycle opens a draft cycle ahead of its start date.
func (s *Service) ActivateCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	cycle, err := s.Store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if cycle.Status != CycleStatusDraft {
		return Cycle{}, fmt.Errorf("%w: cycle is %s, not draft", ErrInvalidState, cycle.Status)
	}
	return s.Store.UpdateCycleStatus(ctx, tenantID, cycleID, CycleStatusActive)
}

// CloseCycle finalizes an active cycle. Closed cycles never reopen.
func (s *Service) CloseCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	cycle, err := s.Store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, err
	}
	if cycle.Status != CycleStatusActive {
		return Cycle{}, fmt.Errorf("%w: cycle is %s, not active", ErrInvalidState, cycle.Status)
	}
	return s.Store.UpdateCycleStatus(ctx, tenantID, cycleID, CycleStatusClosed)
}

func (s *Service) Create(ctx context.Context, tenantID, cycleID, evaluateeID, evaluatorID, evalType string) (Evaluation, error) {
	if !ValidType(evalType) {
		return Evaluation{}, fmt.Errorf("%w: unknown evaluation type %q", ErrInvalidState, evalType)
	}
	cycle, err := s.Store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Evaluation{}, err
	}
	if cycle.Status == CycleStatusClosed {
		return Evaluation{}, fmt.Errorf("%w: cycle %s is closed", ErrInvalidState, cycle.Name)
	}
	return s.Store.CreateEvaluation(ctx, tenantID, cycleID, evaluateeID, evaluatorID, evalType)
}

func (s *Service) Get(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	return s.Store.GetEvaluation(ctx, tenantID, evaluationID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Evaluation, error) {
	return s.Store.ListEvaluations(ctx, tenantID, filter, limit, offset)
}

func (s *Service) Scores(ctx context.Context, tenantID, evaluationID string) ([]Score, error) {
	if _, err := s.Store.GetEvaluation(ctx, tenantID, evaluationID); err != nil {
		return nil, err
	}
	return s.Store.ListScores(ctx, evaluationID)
}

// Submit scores the evaluation and finalizes it. Only the assigned
// evaluator may submit, and the cycle must still be open. Repeated
// goalId entries collapse to the last occurrence before writing.
func (s *Service) Submit(ctx context.Context, tenantID, evaluationID, actorID string, scores []ScoreInput, overallComment string) (Evaluation, error) {
	evaluation, err := s.Store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	if evaluation.EvaluatorID != actorID {
		return Evaluation{}, ErrForbidden
	}
	cycle, err := s.Store.GetCycle(ctx, tenantID, evaluation.CycleID)
	if err != nil {
		return Evaluation{}, err
	}
	if cycle.Status == CycleStatusClosed {
		return Evaluation{}, fmt.Errorf("%w: cycle %s is closed", ErrInvalidState, cycle.Name)
	}
	for _, score := range scores {
		if !ValidScore(score.Score) {
			return Evaluation{}, fmt.Errorf("%w: goal %s scored %.1f", ErrInvalidScore, score.GoalID, score.Score)
		}
	}

	deduped := DedupeScores(scores)
	submitted, err := s.Store.Submit(ctx, tenantID, evaluationID, deduped, OverallScore(deduped), overallComment)
	if err != nil {
		return Evaluation{}, err
	}
	s.notify(ctx, tenantID, submitted.EvaluateeID, "evaluation_submitted", "Evaluation submitted", cycle.Name)
	return submitted, nil
}

func (s *Service) CycleResults(ctx context.Context, tenantID, cycleID string) (Cycle, []CycleResult, error) {
	cycle, err := s.Store.GetCycle(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, nil, err
	}
	results, err := s.Store.CycleResults(ctx, tenantID, cycleID)
	if err != nil {
		return Cycle{}, nil, err
	}
	return cycle, results, nil
}

func (s *Service) notify(ctx context.Context, tenantID, userID, kind, title, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, tenantID, userID, kind, title, body); err != nil {
		slog.Warn("notification delivery failed", "kind", kind, "error", err)
	}
}
