package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "github.com/kubemedic/kubemedic/internal/config"
	"github.com/kubemedic/kubemedic/internal/memory"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
	"github.com/kubemedic/kubemedic/internal/reasoning/guard"
	"github.com/kubemedic/kubemedic/internal/reasoning/supervisor"
	"github.com/kubemedic/kubemedic/internal/webhook"
)

// echoEngine answers every request immediately, echoing the question.
type echoEngine struct {
	cfg engine.Config
}

func (e *echoEngine) Invoke(ctx context.Context, request, threadID string) ([]engine.TraceMessage, error) {
	var trace []engine.TraceMessage
	err := e.Stream(ctx, request, threadID, 0, func(u engine.StepUpdate) {
		trace = append(trace, u.Messages...)
	})
	return trace, err
}

func (e *echoEngine) Stream(ctx context.Context, request, threadID string, recursionLimit int, fn func(engine.StepUpdate)) error {
	if e.cfg.Checkpointer != nil {
		e.cfg.Checkpointer.Put(threadID, []byte(request), nil)
	}
	fn(engine.StepUpdate{Messages: []engine.TraceMessage{
		engine.Assistant{Content: "answer: " + request},
	}})
	return nil
}

func echoFactory(cfg engine.Config) (engine.Engine, error) {
	return &echoEngine{cfg: cfg}, nil
}

func createTestConfig() *appconfig.Config {
	cfg := appconfig.DefaultConfig()
	cfg.RateLimit.WebhookPerMinute = 100
	cfg.RateLimit.QueryPerMinute = 100
	return cfg
}

func testSupervisor(t *testing.T) *supervisor.Supervisor {
	t.Helper()
	store := memory.NewBoundedStore(10, time.Hour)
	g := guard.New(50, nil)
	sup, err := supervisor.New(echoFactory, store, g, nil)
	if err != nil {
		t.Fatalf("supervisor.New() error: %v", err)
	}
	return sup
}

func testPipeline(sup *supervisor.Supervisor) *webhook.Pipeline {
	var invoker webhook.Invoker
	if sup != nil {
		invoker = sup
	}
	return webhook.NewPipeline(invoker, webhook.Config{
		MaxRetries:   1,
		RetryMinWait: time.Millisecond,
		RetryMaxWait: time.Millisecond,
	}, nil)
}

func newTestServer(t *testing.T, sup *supervisor.Supervisor) *Server {
	t.Helper()
	srv, err := NewServer(createTestConfig(), sup, testPipeline(sup), nil)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", resp["status"])
	}
	if resp["agent_ready"] != true {
		t.Errorf("Expected agent_ready=true, got %v", resp["agent_ready"])
	}
}

func TestHandleHealthDegraded(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 even when degraded, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["agent_ready"] != false {
		t.Errorf("Expected agent_ready=false, got %v", resp["agent_ready"])
	}
}

func TestHandleWebhookAgentNotInitialized(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postJSON(t, srv.handleWebhook, "/webhook", map[string]interface{}{"event": "x"})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Agent not initialized")) {
		t.Errorf("Expected detail message, got %s", w.Body.String())
	}
}

func TestHandleWebhookAccepts(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleWebhook, "/webhook", map[string]interface{}{
		"alerts": []interface{}{
			map[string]interface{}{
				"status": "firing",
				"labels": map[string]interface{}{"alertname": "HighCPU"},
			},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected ok status, got %v", resp)
	}

	if !srv.pipeline.Drain(2 * time.Second) {
		t.Fatal("Expected background investigation to finish")
	}
	stats := srv.pipeline.Stats()
	if stats.TotalReceived != 1 || stats.TotalSuccess != 1 {
		t.Errorf("Expected received=1 success=1, got %+v", stats)
	}
}

func TestHandleWebhookInvalidJSON(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.handleWebhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleWebhookInvalidMethod(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	srv.handleWebhook(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleWebhookSync(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleWebhookSync, "/webhook/sync", map[string]interface{}{
		"event": "disk_full",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QueryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Response == "" {
		t.Error("Expected investigation response")
	}
	if resp.ThreadID == "" || resp.ThreadID[:8] != "webhook-" {
		t.Errorf("Expected webhook thread id, got %q", resp.ThreadID)
	}
}

func TestHandleWebhookSyncNonActionable(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleWebhookSync, "/webhook/sync", map[string]interface{}{
		"alerts": []interface{}{
			map[string]interface{}{"status": "resolved"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp QueryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Response != "No actionable content in payload" {
		t.Errorf("Expected non-actionable response, got %q", resp.Response)
	}
}

func TestHandleQuery(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleQuery, "/query", QueryRequest{
		Question: "why is the api slow?",
		ThreadID: "thread-42",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp QueryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ThreadID != "thread-42" {
		t.Errorf("Expected thread id echoed, got %q", resp.ThreadID)
	}
	if resp.Response == "" {
		t.Error("Expected answer in response")
	}
}

func TestHandleQueryDefaultThread(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleQuery, "/query", QueryRequest{Question: "hello"})

	var resp QueryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ThreadID != "default" {
		t.Errorf("Expected default thread id, got %q", resp.ThreadID)
	}
}

func TestHandleQueryEmptyQuestion(t *testing.T) {
	srv := newTestServer(t, testSupervisor(t))

	w := postJSON(t, srv.handleQuery, "/query", QueryRequest{Question: ""})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty question, got %d", w.Code)
	}
}

func TestHandleQueryAgentNotInitialized(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postJSON(t, srv.handleQuery, "/query", QueryRequest{Question: "hello"})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := createTestConfig()
	cfg.RateLimit.QueryPerMinute = 2
	sup := testSupervisor(t)
	srv, err := NewServer(cfg, sup, testPipeline(sup), nil)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	handler := srv.queryLimiter.Middleware(srv.handleQuery)
	body, _ := json.Marshal(QueryRequest{Question: "q"})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()
		handler(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 on third request, got %d", last)
	}
}
