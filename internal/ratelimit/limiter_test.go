package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllowRequest_Refill(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerWindow: 3, Window: time.Minute, Clock: clock})
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		if result := limiter.AllowRequest("203.0.113.5"); !result.Allowed {
			t.Fatalf("burst request %d should be allowed, got %s", i+1, result.Reason)
		}
	}

	result := limiter.AllowRequest("203.0.113.5")
	if result.Allowed {
		t.Fatal("fourth request should be blocked")
	}
	if result.Reason != "ip_limit" {
		t.Errorf("Expected reason 'ip_limit', got '%s'", result.Reason)
	}
	if d := result.RetryAfter - 20*time.Second; d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("Expected RetryAfter about 20s, got %v", result.RetryAfter)
	}

	if other := limiter.AllowRequest("203.0.113.6"); !other.Allowed {
		t.Error("different IP should have its own bucket")
	}

	clock.Advance(20 * time.Second)
	if result := limiter.AllowRequest("203.0.113.5"); !result.Allowed {
		t.Errorf("one token should have refilled, got %s", result.Reason)
	}
	if result := limiter.AllowRequest("203.0.113.5"); result.Allowed {
		t.Error("only one token should have refilled")
	}
}

func TestSweepForgetsIdleBuckets(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerWindow: 1, Window: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.AllowRequest("203.0.113.5")
	clock.Advance(30 * time.Second)
	limiter.sweep()
	if len(limiter.ips.buckets) != 1 {
		t.Fatalf("recent bucket should survive, have %d", len(limiter.ips.buckets))
	}

	clock.Advance(time.Minute)
	limiter.sweep()
	if len(limiter.ips.buckets) != 0 {
		t.Fatalf("idle bucket should be dropped, have %d", len(limiter.ips.buckets))
	}
}

func TestAllowMutation_NormalizesKey(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MutationsPerWindow: 1, Window: time.Minute, Clock: clock})
	defer limiter.Close()

	if result := limiter.AllowMutation("7"); !result.Allowed {
		t.Fatal("first mutation should be allowed")
	}
	if result := limiter.AllowMutation(" 7 "); result.Allowed {
		t.Fatal("second mutation should be blocked")
	}
}

func TestZeroLimitDisablesCheck(t *testing.T) {
	limiter := New(&Config{Clock: newMockClock()})
	defer limiter.Close()

	for i := 0; i < 1000; i++ {
		if !limiter.AllowRequest("198.51.100.1").Allowed {
			t.Fatal("zero limit should allow everything")
		}
	}
}

func TestMiddleware_RejectsWithRetryAfter(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{RequestsPerWindow: 10, MutationsPerWindow: 1, Window: time.Minute, Clock: clock})
	defer limiter.Close()

	handler := limiter.Middleware(func(r *http.Request) string {
		return r.Header.Get("X-Employee-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/inventory", nil)
		req.RemoteAddr = "192.0.2.10:5123"
		req.Header.Set("X-Employee-ID", "3")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(http.MethodPost); rec.Code != http.StatusNoContent {
		t.Fatalf("first POST: %d", rec.Code)
	}
	if rec := send(http.MethodGet); rec.Code != http.StatusNoContent {
		t.Fatalf("GET should not count against mutations: %d", rec.Code)
	}
	clock.Advance(15 * time.Second)
	rec := send(http.MethodPatch)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "45" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "xff ignored without trust", remoteAddr: "192.0.2.1:1234", xff: "203.0.113.9", want: "192.0.2.1"},
		{name: "xff rightmost public", remoteAddr: "10.0.0.1:1", xff: "198.51.100.2, 203.0.113.9, 10.0.0.3", trustProxy: true, want: "203.0.113.9"},
		{name: "xff all private", remoteAddr: "10.0.0.1:1", xff: "10.0.0.2, 192.168.1.4", trustProxy: true, want: "192.168.1.4"},
		{name: "x-real-ip", remoteAddr: "10.0.0.1:1", xri: "203.0.113.7", trustProxy: true, want: "203.0.113.7"},
		{name: "no port", remoteAddr: "192.0.2.8", want: "192.0.2.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := GetClientIP(req, tt.trustProxy); got != tt.want {
				t.Fatalf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
