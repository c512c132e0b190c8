package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/api"
	"github.com/Qrokawa/jinzai-ikusei/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

// RateLimit enforces a fixed window per key. The default key is the
// authenticated actor, falling back to client IP for anonymous calls.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit layers tighter limits on credential
// endpoints (quarter of the base, keyed by IP and by login email) and
// on approval or submission mutations (half of the base, per actor).
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	authByIP := newRateLimiter(authLimit, window, clientIPKey)
	authByEmail := newRateLimiter(authLimit, window, AuthEmailOrIPKey("email"))
	mutationByActor := newRateLimiter(mutationLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.enforce(w, r) || !authByEmail.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !mutationByActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys by the (lowercased) email in the JSON body so a
// credential-stuffing run against one account throttles regardless of
// source IP.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		if email := peekJSONField(r, field); email != "" {
			return "email:" + strings.ToLower(email)
		}
		return clientIPKey(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	return shared.ClientIP(r)
}

type rateLimiter struct {
	limit  int
	window time.Duration
	keyFn  RateLimitKeyFunc

	mu      sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		windows: make(map[string]*rateWindow),
	}
}

// take counts the request against its window and reports the verdict.
func (rl *rateLimiter) take(key string, now time.Time) (allowed bool, remaining, resetIn int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	win := rl.windows[key]
	if win == nil || now.After(win.resetAt) {
		win = &rateWindow{resetAt: now.Add(rl.window)}
		rl.windows[key] = win
	}
	win.count++

	resetIn = int(win.resetAt.Sub(now).Seconds())
	if resetIn < 1 {
		resetIn = 1
	}
	return win.count <= rl.limit, max(rl.limit-win.count, 0), resetIn
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}
	key := rl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}

	allowed, remaining, resetIn := rl.take(key, time.Now())

	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	headers.Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if allowed {
		return true
	}

	headers.Set("Retry-After", strconv.Itoa(resetIn))
	slog.Warn("rate limit exceeded",
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", rl.limit,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// peekJSONField reads one string field from a JSON body and restores
// the body for the handler.
func peekJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type sensitiveScope int

const (
	sensitiveScopeNone sensitiveScope = iota
	sensitiveScopeAuth
	sensitiveScopeActor
)

var sensitiveAuthPaths = map[string]struct{}{
	"/auth/login":       {},
	"/auth/register":    {},
	"/auth/refresh":     {},
	"/auth/mfa/setup":   {},
	"/auth/mfa/enable":  {},
	"/auth/mfa/disable": {},
}

var sensitiveActorSuffixes = map[string][]string{
	"/goals/":       {"/submit", "/approve", "/reject"},
	"/evaluations/": {"/submit"},
	"/cycles/":      {"/activate", "/close"},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	if r == nil {
		return sensitiveScopeNone
	}
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	if _, ok := sensitiveAuthPaths[path]; ok {
		return sensitiveScopeAuth
	}
	for prefix, suffixes := range sensitiveActorSuffixes {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(path, suffix) {
				return sensitiveScopeActor
			}
		}
	}
	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		return "/" + cleaned
	}
	return cleaned
}
