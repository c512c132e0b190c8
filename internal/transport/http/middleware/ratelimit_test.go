package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Qrokawa/jinzai-ikusei/internal/domain/auth"
)

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func hit(t *testing.T, h http.Handler, method, path, remoteAddr, body string, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func asUser(tenantID, userID string) context.Context {
	return context.WithValue(context.Background(), ctxKeyUser, auth.UserContext{
		TenantID: tenantID,
		UserID:   userID,
	})
}

func TestRateLimitKeysByActorNotIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(noContent))
	ctx := asUser("tenant-1", "user-1")

	if rec := hit(t, limited, http.MethodPost, "/api/v1/goals/g1/submit", "198.51.100.11:2222", "", ctx); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	// Same actor from a different IP still shares the window.
	if rec := hit(t, limited, http.MethodPost, "/api/v1/goals/g1/submit", "198.51.100.12:3333", "", ctx); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by actor key, got %d", rec.Code)
	}
}

func TestRateLimitAnonymousFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(noContent))

	if rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", "203.0.113.10:4444", `{"email":"a@corp.test"}`, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", "203.0.113.10:5555", `{"email":"b@corp.test"}`, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same IP to be throttled, got %d", rec.Code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(http.HandlerFunc(noContent))
	const addr = "192.0.2.20:1111"

	if rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, `{"email":"a@corp.test"}`, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, `{"email":"a@corp.test"}`, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec.Code)
	}

	time.Sleep(50 * time.Millisecond)

	if rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, `{"email":"a@corp.test"}`, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", rec.Code)
	}
}

func TestRateLimitRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(noContent))
	const addr = "192.0.2.30:1234"

	hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, `{"email":"a@corp.test"}`, nil)
	rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, `{"email":"a@corp.test"}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled response, got %d", rec.Code)
	}
	for _, header := range []string{"Retry-After", "X-RateLimit-Reset", "X-RateLimit-Limit"} {
		if rec.Header().Get(header) == "" {
			t.Fatalf("expected %s header on throttled response", header)
		}
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(http.HandlerFunc(noContent))

	// Reads never touch the sensitive limiter.
	for i := 0; i < 6; i++ {
		if rec := hit(t, limited, http.MethodGet, "/api/v1/reports/dashboard", "198.51.100.40:8888", "", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("expected read request %d to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	// Approvals run at half the base limit per actor.
	ctx := asUser("tenant-1", "manager-1")
	for i := 0; i < 3; i++ {
		rec := hit(t, limited, http.MethodPost, "/api/v1/goals/g1/approve", "198.51.100.41:9999", "", ctx)
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("approve request %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}

func TestSensitiveMutationRateLimitKeysAuthByEmail(t *testing.T) {
	// Base 8 means auth endpoints allow 2 per window.
	limited := SensitiveMutationRateLimit(8, time.Minute)(http.HandlerFunc(noContent))

	body := `{"email":"target@corp.test","password":"x"}`
	for i := 0; i < 3; i++ {
		addr := []string{"203.0.113.50:1000", "203.0.113.51:1000", "203.0.113.52:1000"}[i]
		rec := hit(t, limited, http.MethodPost, "/api/v1/auth/login", addr, body, nil)
		want := http.StatusNoContent
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("login attempt %d against one account: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}
