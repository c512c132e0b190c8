package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
)

// SessionStore rejects tokens whose backing session has been revoked.
// A nil store skips the check.
type SessionStore interface {
	SessionValid(ctx context.Context, sessionID string) (bool, error)
}

// Auth resolves the bearer token into a UserContext. It never rejects
// the request itself; anonymous and invalid tokens simply carry no
// user, and RequireAuth or RequirePermission deny downstream.
func Auth(secret string, sessions SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := resolveClaims(r, secret)
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.SessionValid(r.Context(), claims.SessionID)
				if err != nil || !valid {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
				UserID:    claims.UserID,
				TenantID:  claims.TenantID,
				Roles:     claims.Roles,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveClaims(r *http.Request, secret string) *auth.Claims {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil
	}
	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		return nil
	}
	return claims
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}
