package identity

import (
	"context"
	"errors"
	"fmt"

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

const userColumns = `
    id, tenant_id, email, first_name, last_name,
    COALESCE(employee_no, ''), COALESCE(position, ''), COALESCE(manager_id::text, ''),
    status, hire_date, last_login_at, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName,
		&u.EmployeeNo, &u.Position, &u.ManagerID,
		&u.Status, &u.HireDate, &u.LastLoginAt, &u.CreatedAt)
	return u, err
}

type CreateUserInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	EmployeeNo   string
	Position     string
	ManagerID    string
	HireDate     any
}

func (s *Store) CreateUser(ctx context.Context, tenantID string, input CreateUserInput) (User, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, first_name, last_name, employee_no, position, manager_id, hire_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING`+userColumns,
		tenantID, input.Email, input.PasswordHash, input.FirstName, input.LastName,
		nullIfEmpty(input.EmployeeNo), nullIfEmpty(input.Position), nullIfEmpty(input.ManagerID), input.HireDate)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrConflict
		}
		return User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (User, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT`+userColumns+`
    FROM users
    WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
  `, tenantID, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

type UserFilter struct {
	Status    string
	ManagerID string
}

func (s *Store) ListUsers(ctx context.Context, tenantID string, filter UserFilter, limit, offset int) ([]User, error) {
	query := `
    SELECT` + userColumns + `
    FROM users
    WHERE tenant_id = $1 AND deleted_at IS NULL
  `
	args := []any{tenantID}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	if filter.ManagerID != "" {
		query += fmt.Sprintf(" AND manager_id = $%d", len(args)+1)
		args = append(args, filter.ManagerID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

type UpdateUserInput struct {
	FirstName  string
	LastName   string
	EmployeeNo string
	Position   string
	ManagerID  *string
	Status     string
}

func (s *Store) UpdateUser(ctx context.Context, tenantID, userID string, input UpdateUserInput) (User, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE users
    SET first_name  = COALESCE(NULLIF($1,''), first_name),
        last_name   = COALESCE(NULLIF($2,''), last_name),
        employee_no = COALESCE(NULLIF($3,''), employee_no),
        position    = COALESCE(NULLIF($4,''), position),
        manager_id  = CASE WHEN $5::text IS NULL THEN manager_id ELSE NULLIF($5,'')::uuid END,
        status      = COALESCE(NULLIF($6,''), status),
        updated_at  = now()
    WHERE tenant_id = $7 AND id = $8 AND deleted_at IS NULL
    RETURNING`+userColumns,
		input.FirstName, input.LastName, input.EmployeeNo, input.Position,
		input.ManagerID, input.Status, tenantID, userID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (s *Store) SoftDeleteUser(ctx context.Context, tenantID, userID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET deleted_at = now(), status = $1
    WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL
  `, UserStatusInactive, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Subordinates(ctx context.Context, tenantID, managerID string) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+userColumns+`
    FROM users
    WHERE tenant_id = $1 AND manager_id = $2 AND deleted_at IS NULL
    ORDER BY last_name, first_name
  `, tenantID, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) ManagerID(ctx context.Context, userID string) (string, error) {
	var managerID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(manager_id::text, '') FROM users WHERE id = $1 AND deleted_at IS NULL
  `, userID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return managerID, err
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, name, COALESCE(display_name, ''), permissions
    FROM roles
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.TenantID, &role.Name, &role.DisplayName, &role.Permissions); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
