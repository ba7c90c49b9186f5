package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wolfman30/orderdesk/internal/tenancy"
)

func TestRateLimiterBurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Close()
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be rejected")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected separate bucket per key")
	}

	frozen = frozen.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected token to refill after one second")
	}
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }

	rl.Allow("idle")
	frozen = frozen.Add(limiterIdleTTL + time.Second)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["idle"]; ok {
		t.Fatalf("expected idle key to be swept")
	}
}

func TestRateLimitKeysByTenant(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Close()
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(tenantID, ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/chatbot/message", nil)
		req.RemoteAddr = ip
		if tenantID != "" {
			req = req.WithContext(tenancy.WithScope(req.Context(), tenancy.Scope{TenantID: tenantID}))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("tenant-1", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("expected first tenant request allowed, got %d", code)
	}
	if code := send("tenant-1", "10.0.0.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected tenant bucket shared across IPs, got %d", code)
	}
	if code := send("tenant-2", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("expected other tenant allowed, got %d", code)
	}
	if code := send("", "10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("expected anonymous request keyed by IP, got %d", code)
	}
	if code := send("", "10.0.0.1:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected repeated anonymous request rejected, got %d", code)
	}
}
