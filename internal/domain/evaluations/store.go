package evaluations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const cycleColumns = `
    id, tenant_id, name, start_date, end_date,
    self_evaluation_start, self_evaluation_end, manager_evaluation_start, manager_evaluation_end,
    status, created_at, updated_at`

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.StartDate, &c.EndDate,
		&c.SelfEvaluationStart, &c.SelfEvaluationEnd, &c.ManagerEvaluationStart, &c.ManagerEvaluationEnd,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCycle(ctx context.Context, tenantID string, in CycleInput) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_cycles (
      tenant_id, name, start_date, end_date,
      self_evaluation_start, self_evaluation_end, manager_evaluation_start, manager_evaluation_end,
      status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING`+cycleColumns,
		tenantID, in.Name, in.StartDate, in.EndDate,
		in.SelfEvaluationStart, in.SelfEvaluationEnd, in.ManagerEvaluationStart, in.ManagerEvaluationEnd,
		CycleStatusDraft)
	return scanCycle(row)
}

func (s *Store) GetCycle(ctx context.Context, tenantID, cycleID string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+cycleColumns+` FROM evaluation_cycles WHERE tenant_id = $1 AND id = $2
  `, tenantID, cycleID)
	cycle, err := scanCycle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrCycleNotFound
	}
	return cycle, err
}

func (s *Store) ListCycles(ctx context.Context, tenantID, status string, limit, offset int) ([]Cycle, error) {
	query := `SELECT` + cycleColumns + ` FROM evaluation_cycles WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY start_date DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cycle)
	}
	return out, nil
}

func (s *Store) UpdateCycleStatus(ctx context.Context, tenantID, cycleID, status string) (Cycle, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE evaluation_cycles SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
    RETURNING`+cycleColumns, status, tenantID, cycleID)
	cycle, err := scanCycle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrCycleNotFound
	}
	return cycle, err
}

const evaluationColumns = `
    id, tenant_id, cycle_id, evaluatee_id, evaluator_id, type, status,
    overall_score, COALESCE(overall_comment, ''), submitted_at, created_at, updated_at`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	err := row.Scan(&e.ID, &e.TenantID, &e.CycleID, &e.EvaluateeID, &e.EvaluatorID, &e.Type, &e.Status,
		&e.OverallScore, &e.OverallComment, &e.SubmittedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) CreateEvaluation(ctx context.Context, tenantID, cycleID, evaluateeID, evaluatorID, evalType string) (Evaluation, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO evaluations (tenant_id, cycle_id, evaluatee_id, evaluator_id, type, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING`+evaluationColumns,
		tenantID, cycleID, evaluateeID, evaluatorID, evalType, EvaluationStatusDraft)
	evaluation, err := scanEvaluation(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return Evaluation{}, ErrCycleNotFound
	}
	return evaluation, err
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+evaluationColumns+` FROM evaluations WHERE tenant_id = $1 AND id = $2
  `, tenantID, evaluationID)
	evaluation, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return evaluation, err
}

type Filter struct {
	CycleID     string
	EvaluateeID string
	EvaluatorID string
	Status      string
}

func (s *Store) ListEvaluations(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Evaluation, error) {
	query := `SELECT` + evaluationColumns + ` FROM evaluations WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.CycleID != "" {
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args)+1)
		args = append(args, filter.CycleID)
	}
	if filter.EvaluateeID != "" {
		query += fmt.Sprintf(" AND evaluatee_id = $%d", len(args)+1)
		args = append(args, filter.EvaluateeID)
	}
	if filter.EvaluatorID != "" {
		query += fmt.Sprintf(" AND evaluator_id = $%d", len(args)+1)
		args = append(args, filter.EvaluatorID)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		evaluation, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, evaluation)
	}
	return out, nil
}

// Submit writes the per-goal scores and finalizes the evaluation in a
// single transaction. Re-scoring an already scored goal overwrites the
// prior row.
func (s *Store) Submit(ctx context.Context, tenantID, evaluationID string, scores []ScoreInput, overall *float64, overallComment string) (Evaluation, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, score := range scores {
		if _, err := tx.Exec(ctx, `
      INSERT INTO evaluation_scores (evaluation_id, goal_id, score, achievement, comment)
      VALUES ($1,$2,$3,$4,$5)
      ON CONFLICT (evaluation_id, goal_id)
      DO UPDATE SET score = EXCLUDED.score, achievement = EXCLUDED.achievement,
        comment = EXCLUDED.comment, updated_at = now()
    `, evaluationID, score.GoalID, score.Score, score.Achievement, nullIfEmpty(score.Comment)); err != nil {
			return Evaluation{}, fmt.Errorf("upsert score for goal %s: %w", score.GoalID, err)
		}
	}

	row := tx.QueryRow(ctx, `
    UPDATE evaluations
    SET status = $1, overall_score = $2, overall_comment = COALESCE(NULLIF($3,''), overall_comment),
        submitted_at = now(), updated_at = now()
    WHERE tenant_id = $4 AND id = $5
    RETURNING`+evaluationColumns,
		EvaluationStatusSubmitted, overall, overallComment, tenantID, evaluationID)
	evaluation, err := scanEvaluation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, fmt.Errorf("commit submit: %w", err)
	}
	return evaluation, nil
}

func (s *Store) ListScores(ctx context.Context, evaluationID string) ([]Score, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, evaluation_id, goal_id, score, achievement, COALESCE(comment, ''), created_at, updated_at
    FROM evaluation_scores
    WHERE evaluation_id = $1
    ORDER BY created_at
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var score Score
		if err := rows.Scan(&score.ID, &score.EvaluationID, &score.GoalID, &score.Score, &score.Achievement, &score.Comment, &score.CreatedAt, &score.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, nil
}

// CycleResults lists each submitted or pending evaluation in a cycle
// with the evaluatee's name, for reporting and PDF export.
func (s *Store) CycleResults(ctx context.Context, tenantID, cycleID string) ([]CycleResult, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.evaluatee_id, u.first_name, u.last_name, e.type, e.overall_score, e.status
    FROM evaluations e
    JOIN users u ON e.evaluatee_id = u.id
    WHERE e.tenant_id = $1 AND e.cycle_id = $2
    ORDER BY u.last_name, u.first_name, e.type
  `, tenantID, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleResult
	for rows.Next() {
		var result CycleResult
		if err := rows.Scan(&result.EvaluateeID, &result.EvaluateeFirstName, &result.EvaluateeLastName,
			&result.EvaluationType, &result.OverallScore, &result.Status); err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// ApplyCycleTransitions activates due draft cycles and closes expired
// ones across all tenants. The background sweeper calls it on a timer.
func ApplyCycleTransitions(ctx context.Context, db *pgxpool.Pool, now time.Time) (activated, closed int64, err error) {
	activatedTag, err := db.Exec(ctx, `
    UPDATE evaluation_cycles SET status = $1, updated_at = now()
    WHERE status = $2 AND start_date <= $3 AND end_date >= $3
  `, CycleStatusActive, CycleStatusDraft, now)
	if err != nil {
		return 0, 0, fmt.Errorf("activate cycles: %w", err)
	}
	closedTag, err := db.Exec(ctx, `
    UPDATE evaluation_cycles SET status = $1, updated_at = now()
    WHERE status IN ($2, $3) AND end_date < $4
  `, CycleStatusClosed, CycleStatusDraft, CycleStatusActive, now)
	if err != nil {
		return 0, 0, fmt.Errorf("close cycles: %w", err)
	}
	return activatedTag.RowsAffected(), closedTag.RowsAffected(), nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
