package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
	"github.com/Qrokawa/jinzai-ikusei/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, pool, cfg.SeedTenantName, cfg.SeedTenantDomain)
	if err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool, tenantID)
	if err != nil {
		return err
	}

	return ensureAdminUser(ctx, pool, tenantID, roleIDs[auth.RoleAdmin], cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, name, domain string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE domain = $1", domain).Scan(&id)
	if err == nil {
		return id, nil
	}

	err = pool.QueryRow(ctx, "INSERT INTO tenants (name, domain) VALUES ($1, $2) RETURNING id", name, domain).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName, perms := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name, permissions)
      VALUES ($1, $2, $3)
      ON CONFLICT (tenant_id, name) DO UPDATE SET permissions = EXCLUDED.permissions
      RETURNING id
    `, tenantID, roleName, perms).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	err = pool.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, first_name, last_name, status)
    VALUES ($1, $2, $3, $4, $5, 'active')
    RETURNING id
  `, tenantID, email, hash, "System", "Admin").Scan(&id)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, "INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", id, roleID)
	return err
}
