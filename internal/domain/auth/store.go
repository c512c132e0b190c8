package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmailTaken = errors.New("email already registered")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID           string
	TenantID     string
	Email        string
	FirstName    string
	LastName     string
	Password     string
	Roles        []string
	MFAEnabled   bool
	MFASecretEnc []byte
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT u.id, u.tenant_id, u.email, u.first_name, u.last_name, u.password_hash, u.mfa_enabled, u.mfa_secret_enc,
           COALESCE(ARRAY(SELECT r.name FROM user_roles ur JOIN roles r ON ur.role_id = r.id WHERE ur.user_id = u.id), '{}')
    FROM users u
    WHERE u.email = $1 AND u.status = 'active' AND u.deleted_at IS NULL
  `, email).Scan(&out.ID, &out.TenantID, &out.Email, &out.FirstName, &out.LastName, &out.Password, &out.MFAEnabled, &out.MFASecretEnc, &out.Roles)
	return out, err
}

// TenantIDByDomain maps a signup email's domain to its tenant.
func (s *Store) TenantIDByDomain(ctx context.Context, domain string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM tenants WHERE domain = $1", domain).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) RegisterUser(ctx context.Context, tenantID, email, passwordHash, firstName, lastName string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, first_name, last_name)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, email, passwordHash, firstName, lastName).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return id, nil
}

func (s *Store) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.name
    FROM user_roles ur
    JOIN roles r ON ur.role_id = r.id
    WHERE ur.user_id = $1
    ORDER BY r.name
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, nil
}

// HasPermission satisfies the RBAC middleware: true when any of the
// caller's roles grants the permission within the tenant.
func (s *Store) HasPermission(ctx context.Context, tenantID string, roles []string, permission string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM roles
    WHERE tenant_id = $1 AND name = ANY($2) AND ('*' = ANY(permissions) OR $3 = ANY(permissions))
  `, tenantID, roles, permission).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Sessions store only the hash of the opaque session token; the raw
// token lives in the JWT's sid claim and nowhere else.

func (s *Store) CreateSession(ctx context.Context, userID, sessionID string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, refresh_token, expires_at)
    VALUES ($1,$2,$3)
  `, userID, HashToken(sessionID), expires)
	return err
}

// SessionValid backs the auth middleware: a token is only honored
// while its session row is live.
func (s *Store) SessionValid(ctx context.Context, sessionID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sessions
    WHERE refresh_token = $1 AND expires_at > now() AND revoked_at IS NULL
  `, HashToken(sessionID)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) RotateSession(ctx context.Context, userID, oldSessionID, newSessionID string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET refresh_token = $1, expires_at = $2, rotated_at = now()
    WHERE user_id = $3 AND refresh_token = $4
  `, HashToken(newSessionID), expires, userID, HashToken(oldSessionID))
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, sessionID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND refresh_token = $2", userID, HashToken(sessionID))
	return err
}

func (s *Store) RevokeAllSessions(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	if err := s.DB.QueryRow(ctx, "SELECT password_hash FROM users WHERE id = $1 AND deleted_at IS NULL", userID).Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID)
	return err
}

func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_secret_enc = $1, mfa_enabled = false WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) GetMFASecret(ctx context.Context, userID string) ([]byte, error) {
	var secretEnc []byte
	if err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM users WHERE id = $1", userID).Scan(&secretEnc); err != nil {
		return nil, err
	}
	return secretEnc, nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) RoleIDByName(ctx context.Context, tenantID, name string) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO user_roles (user_id, role_id) VALUES ($1,$2) ON CONFLICT DO NOTHING", userID, roleID)
	return err
}
