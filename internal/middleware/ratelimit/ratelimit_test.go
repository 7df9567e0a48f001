package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are counted separately")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("a new window should reset the counter")
	}
	if rl.Rejected() != 1 {
		t.Fatalf("rejected = %d", rl.Rejected())
	}
}

func TestDisabledLimiter(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 0})
	defer rl.Stop()
	for i := 0; i < 1000; i++ {
		if !rl.Allow("a") {
			t.Fatal("disabled limiter must allow everything")
		}
	}
	if rl.ActiveClients() != 0 {
		t.Fatal("disabled limiter should not track clients")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5})
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(11 * time.Minute)
	rl.Allow("fresh")
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("expected 1 client after cleanup, got %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsConfiguredMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	defer rl.Stop()

	h := rl.Middleware(func(r *http.Request) string { return "client" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	codes := func(method string, n int) []int {
		out := make([]int, n)
		for i := range out {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(method, "/api/todos", nil))
			out[i] = rr.Code
		}
		return out
	}

	for _, c := range codes(http.MethodGet, 5) {
		if c != http.StatusOK {
			t.Fatalf("GET should never be limited, got %d", c)
		}
	}
	posts := codes(http.MethodPost, 2)
	if posts[0] != http.StatusOK || posts[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected POST codes %v", posts)
	}
}

func TestMiddlewareCustomHandler(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()
	called := false
	h := rl.Middleware(
		func(r *http.Request) string { return "c" },
		func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if !called || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("custom handler not used (called=%v, retry=%q)", called, rr.Header().Get("Retry-After"))
	}
}
