package middleware

import (
	"context"
	"net/http"

	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
)

// PermissionStore answers whether any of the caller's roles grants a
// permission within the tenant.
type PermissionStore interface {
	HasPermission(ctx context.Context, tenantID string, roles []string, permission string) (bool, error)
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			denyUnauthenticated(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route group on one permission string.
func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r.Context())
			if !ok {
				denyUnauthenticated(w, r)
				return
			}
			switch allowed, err := store.HasPermission(r.Context(), user.TenantID, user.Roles, permission); {
			case err != nil:
				api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", GetRequestID(r.Context()))
			case !allowed:
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
