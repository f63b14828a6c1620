package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.HandlerFunc {
	return rl.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(handler http.HandlerFunc, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler(w, req)
	return w.Code
}

func TestAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter("webhook", 5)
	defer rl.Stop()
	handler := limitedHandler(rl)

	for i := 0; i < 5; i++ {
		if code := doRequest(handler, "10.0.0.1:1111"); code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, code)
		}
	}
}

func TestRejectsOverBudget(t *testing.T) {
	rl := NewRateLimiter("webhook", 3)
	defer rl.Stop()
	handler := limitedHandler(rl)

	for i := 0; i < 3; i++ {
		doRequest(handler, "10.0.0.1:1111")
	}

	if code := doRequest(handler, "10.0.0.1:1111"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 over budget, got %d", code)
	}
}

func TestBudgetIsPerClient(t *testing.T) {
	rl := NewRateLimiter("query", 1)
	defer rl.Stop()
	handler := limitedHandler(rl)

	doRequest(handler, "10.0.0.1:1111")
	if code := doRequest(handler, "10.0.0.1:2222"); code != http.StatusTooManyRequests {
		t.Errorf("Expected same host limited regardless of port, got %d", code)
	}

	if code := doRequest(handler, "10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("Expected different host to have its own budget, got %d", code)
	}
}

func TestStopReleasesCleanup(t *testing.T) {
	rl := NewRateLimiter("webhook", 5)

	exited := make(chan struct{})
	go func() {
		rl.cleanup()
		close(exited)
	}()

	rl.Stop()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Expected cleanup to return after Stop")
	}

	// Stop is idempotent
	rl.Stop()
}
