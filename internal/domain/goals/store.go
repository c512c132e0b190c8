package goals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const goalColumns = `
    id, tenant_id, user_id, cycle_id, COALESCE(parent_goal_id::text, ''),
    title, COALESCE(description, ''), COALESCE(success_criteria, ''), category, weight,
    target_value, current_value, progress_percentage, status,
    COALESCE(approved_by::text, ''), approved_at, created_at, updated_at`

func scanGoal(row pgx.Row) (Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.TenantID, &g.UserID, &g.CycleID, &g.ParentGoalID,
		&g.Title, &g.Description, &g.SuccessCriteria, &g.Category, &g.Weight,
		&g.TargetValue, &g.CurrentValue, &g.ProgressPercentage, &g.Status,
		&g.ApprovedBy, &g.ApprovedAt, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func (s *Store) CycleExists(ctx context.Context, tenantID, cycleID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM evaluation_cycles WHERE tenant_id = $1 AND id = $2
  `, tenantID, cycleID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type CreateInput struct {
	UserID          string
	CycleID         string
	ParentGoalID    string
	Title           string
	Description     string
	SuccessCriteria string
	Category        string
	Weight          float64
	TargetValue     *float64
}

func (s *Store) Create(ctx context.Context, tenantID string, input CreateInput) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO goals (tenant_id, user_id, cycle_id, parent_goal_id, title, description, success_criteria, category, weight, target_value, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    RETURNING`+goalColumns,
		tenantID, input.UserID, input.CycleID, nullIfEmpty(input.ParentGoalID),
		input.Title, nullIfEmpty(input.Description), nullIfEmpty(input.SuccessCriteria),
		input.Category, input.Weight, input.TargetValue, StatusDraft)
	return scanGoal(row)
}

func (s *Store) Get(ctx context.Context, tenantID, goalID string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+goalColumns+`
    FROM goals
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, goalID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

type Filter struct {
	UserID  string
	CycleID string
	Status  string
}

func (s *Store) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Goal, error) {
	query := `
    SELECT` + goalColumns + `
    FROM goals
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", len(args)+1)
		args = append(args, filter.UserID)
	}
	if filter.CycleID != "" {
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args)+1)
		args = append(args, filter.CycleID)
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

	var out []Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, nil
}

type UpdateInput struct {
	Title           string
	Description     string
	SuccessCriteria string
	Category        string
	Weight          *float64
	TargetValue     *float64
	CurrentValue    *float64
}

func (s *Store) UpdateFields(ctx context.Context, tenantID, goalID string, input UpdateInput) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals
    SET title            = COALESCE(NULLIF($1,''), title),
        description      = COALESCE(NULLIF($2,''), description),
        success_criteria = COALESCE(NULLIF($3,''), success_criteria),
        category         = COALESCE(NULLIF($4,''), category),
        weight           = COALESCE($5, weight),
        target_value     = COALESCE($6, target_value),
        current_value    = COALESCE($7, current_value),
        updated_at       = now()
    WHERE tenant_id = $8 AND id = $9
    RETURNING`+goalColumns,
		input.Title, input.Description, input.SuccessCriteria, input.Category,
		input.Weight, input.TargetValue, input.CurrentValue, tenantID, goalID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

func (s *Store) UpdateStatus(ctx context.Context, tenantID, goalID, status string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals SET status = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
    RETURNING`+goalColumns, status, tenantID, goalID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

func (s *Store) MarkApproved(ctx context.Context, tenantID, goalID, approverID string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals SET status = $1, approved_by = $2, approved_at = now(), updated_at = now()
    WHERE tenant_id = $3 AND id = $4
    RETURNING`+goalColumns, StatusApproved, approverID, tenantID, goalID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

func (s *Store) InsertApproval(ctx context.Context, goalID, approverID, decision, comment string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO goal_approvals (goal_id, approver_id, decision, comment)
    VALUES ($1,$2,$3,$4)
  `, goalID, approverID, decision, nullIfEmpty(comment))
	return err
}

func (s *Store) InsertProgress(ctx context.Context, goalID string, percentage float64, comment, updatedBy string) (Progress, error) {
	var p Progress
	err := s.DB.QueryRow(ctx, `
    INSERT INTO goal_progress (goal_id, progress_percentage, comment, updated_by)
    VALUES ($1,$2,$3,$4)
    RETURNING id, goal_id, progress_percentage, COALESCE(comment, ''), updated_by, created_at
  `, goalID, percentage, nullIfEmpty(comment), updatedBy).Scan(
		&p.ID, &p.GoalID, &p.ProgressPercentage, &p.Comment, &p.UpdatedBy, &p.CreatedAt)
	return p, err
}

func (s *Store) UpdateProgressSnapshot(ctx context.Context, tenantID, goalID string, percentage float64, status string) (Goal, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE goals SET progress_percentage = $1, status = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4
    RETURNING`+goalColumns, percentage, status, tenantID, goalID)
	goal, err := scanGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	return goal, err
}

func (s *Store) ListProgress(ctx context.Context, goalID string) ([]Progress, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, goal_id, progress_percentage, COALESCE(comment, ''), updated_by, created_at
    FROM goal_progress
    WHERE goal_id = $1
    ORDER BY created_at DESC
  `, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Progress
	for rows.Next() {
		var p Progress
		if err := rows.Scan(&p.ID, &p.GoalID, &p.ProgressPercentage, &p.Comment, &p.UpdatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// OwnerContext carries what the transition guards need in one lookup:
// the goal's status plus the owner and the owner's manager.
type OwnerContext struct {
	OwnerID        string
	OwnerManagerID string
	Status         string
}

func (s *Store) OwnerContext(ctx context.Context, tenantID, goalID string) (OwnerContext, error) {
	var oc OwnerContext
	err := s.DB.QueryRow(ctx, `
    SELECT g.user_id, COALESCE(u.manager_id::text, ''), g.status
    FROM goals g
    JOIN users u ON g.user_id = u.id
    WHERE g.tenant_id = $1 AND g.id = $2
  `, tenantID, goalID).Scan(&oc.OwnerID, &oc.OwnerManagerID, &oc.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return OwnerContext{}, ErrNotFound
	}
	return oc, err
}

func (s *Store) PendingForManager(ctx context.Context, tenantID, managerID string, limit, offset int) ([]PendingGoal, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM goals g
    JOIN users u ON g.user_id = u.id
    WHERE g.tenant_id = $1 AND g.status = $2 AND u.manager_id = $3 AND u.deleted_at IS NULL
  `, tenantID, StatusPendingApproval, managerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT g.id, g.tenant_id, g.user_id, g.cycle_id, COALESCE(g.parent_goal_id::text, ''),
           g.title, COALESCE(g.description, ''), COALESCE(g.success_criteria, ''), g.category, g.weight,
           g.target_value, g.current_value, g.progress_percentage, g.status,
           COALESCE(g.approved_by::text, ''), g.approved_at, g.created_at, g.updated_at,
           u.first_name, u.last_name, c.name
    FROM goals g
    JOIN users u ON g.user_id = u.id
    JOIN evaluation_cycles c ON g.cycle_id = c.id
    WHERE g.tenant_id = $1 AND g.status = $2 AND u.manager_id = $3 AND u.deleted_at IS NULL
    ORDER BY g.created_at
    LIMIT $4 OFFSET $5
  `, tenantID, StatusPendingApproval, managerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PendingGoal
	for rows.Next() {
		var pg PendingGoal
		if err := rows.Scan(&pg.ID, &pg.TenantID, &pg.UserID, &pg.CycleID, &pg.ParentGoalID,
			&pg.Title, &pg.Description, &pg.SuccessCriteria, &pg.Category, &pg.Weight,
			&pg.TargetValue, &pg.CurrentValue, &pg.ProgressPercentage, &pg.Status,
			&pg.ApprovedBy, &pg.ApprovedAt, &pg.CreatedAt, &pg.UpdatedAt,
			&pg.OwnerFirstName, &pg.OwnerLastName, &pg.CycleName); err != nil {
			return nil, 0, err
		}
		out = append(out, pg)
	}
	return out, total, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
