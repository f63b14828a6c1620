package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kubemedic/kubemedic/internal/webhook"
)

func TestHandleAdminStats(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	srv.handleAdminStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)

	for _, key := range []string{"webhook_stats", "dead_letter_count", "memory_stats", "recursion_stats"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("Expected %s in admin stats, got %v", key, resp)
		}
	}

	ws, ok := resp["webhook_stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected webhook_stats object, got %v", resp["webhook_stats"])
	}
	for _, key := range []string{"total_received", "total_success", "total_failed"} {
		if _, ok := ws[key]; !ok {
			t.Errorf("Expected %s in webhook_stats, got %v", key, ws)
		}
	}

	rs, ok := resp["recursion_stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected recursion_stats object, got %v", resp["recursion_stats"])
	}
	for _, key := range []string{"total_hits", "total_invocations", "hit_rate_percent", "by_thread"} {
		if _, ok := rs[key]; !ok {
			t.Errorf("Expected %s in recursion_stats, got %v", key, rs)
		}
	}
}

func TestHandleAdminStatsDegraded(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	srv.handleAdminStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)

	// No agent: memory and recursion stats are null, webhook stats still real
	if resp["memory_stats"] != nil {
		t.Errorf("Expected null memory_stats when degraded, got %v", resp["memory_stats"])
	}
	if _, ok := resp["webhook_stats"].(map[string]interface{}); !ok {
		t.Errorf("Expected webhook_stats present when degraded, got %v", resp["webhook_stats"])
	}
}

func TestHandleDeadLettersList(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))
	srv.pipeline.DeadLetters().Add(webhook.DeadLetterEntry{
		ThreadID:   "webhook-abc123",
		Payload:    map[string]interface{}{"event": "x"},
		Error:      "engine unavailable",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RetryCount: 3,
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/dead-letters", nil)
	w := httptest.NewRecorder()
	srv.handleDeadLetters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp DeadLettersResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Count != 1 || len(resp.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %+v", resp)
	}
	if resp.Failures[0].ThreadID != "webhook-abc123" {
		t.Errorf("Expected entry preserved, got %+v", resp.Failures[0])
	}
}

func TestHandleDeadLettersClear(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))
	srv.pipeline.DeadLetters().Add(webhook.DeadLetterEntry{ThreadID: "a"})
	srv.pipeline.DeadLetters().Add(webhook.DeadLetterEntry{ThreadID: "b"})

	req := httptest.NewRequest(http.MethodDelete, "/admin/dead-letters", nil)
	w := httptest.NewRecorder()
	srv.handleDeadLetters(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["cleared"] != float64(2) {
		t.Errorf("Expected 2 cleared, got %v", resp["cleared"])
	}
	if srv.pipeline.DeadLetters().Len() != 0 {
		t.Error("Expected queue empty after clear")
	}
}

func TestHandleDeadLetterRetry(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))
	srv.pipeline.DeadLetters().Add(webhook.DeadLetterEntry{
		ThreadID: "webhook-retry1",
		Payload: map[string]interface{}{
			"alerts": []interface{}{
				map[string]interface{}{
					"status": "firing",
					"labels": map[string]interface{}{"alertname": "HighCPU"},
				},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/admin/dead-letters/0/retry", nil)
	w := httptest.NewRecorder()
	srv.handleDeadLetterRetry(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["thread_id"] != "webhook-retry1" {
		t.Errorf("Expected original thread id in response, got %v", resp)
	}

	// Entry removed and re-enqueued
	if srv.pipeline.DeadLetters().Len() != 0 {
		t.Error("Expected entry removed from queue")
	}
	if !srv.pipeline.Drain(2 * time.Second) {
		t.Fatal("Expected replay to finish")
	}
	if srv.pipeline.Stats().TotalSuccess != 1 {
		t.Errorf("Expected replay to succeed, got %+v", srv.pipeline.Stats())
	}
}

func TestHandleDeadLetterRetryNotFound(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	req := httptest.NewRequest(http.MethodPost, "/admin/dead-letters/5/retry", nil)
	w := httptest.NewRecorder()
	srv.handleDeadLetterRetry(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for out-of-range index, got %d", w.Code)
	}
}

func TestParseRetryPath(t *testing.T) {
	tests := []struct {
		path  string
		index int
		ok    bool
	}{
		{"/admin/dead-letters/0/retry", 0, true},
		{"/admin/dead-letters/42/retry", 42, true},
		{"/admin/dead-letters//retry", 0, false},
		{"/admin/dead-letters/x/retry", 0, false},
		{"/admin/dead-letters/1", 0, false},
		{"/other/1/retry", 0, false},
	}

	for _, tt := range tests {
		index, ok := parseRetryPath(tt.path)
		if ok != tt.ok || (ok && index != tt.index) {
			t.Errorf("parseRetryPath(%q) = (%d, %v), want (%d, %v)", tt.path, index, ok, tt.index, tt.ok)
		}
	}
}
