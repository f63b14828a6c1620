package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/metrics"
	"github.com/kubemedic/kubemedic/internal/webhook"
)

// QueryRequest is a direct question for the supervisor agent.
type QueryRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id"`
}

// QueryResponse carries the agent's answer and the thread it belongs to.
type QueryResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"agent_ready": s.supervisor != nil,
	})
}

// handleWebhook receives any webhook payload and triggers a background
// investigation. It acknowledges immediately; results land in logs, counters,
// and (on repeated failure) the dead-letter queue.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.supervisor == nil {
		s.logger.Warn("webhook received but agent not initialized")
		s.writeDetail(w, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	s.pipeline.RecordReceived()

	threadID := webhook.GenerateThreadID(payload)

	if total, firing, isAlert := webhook.AlertCounts(payload); isAlert {
		s.logger.Info("received Alertmanager webhook",
			zap.String("thread_id", threadID),
			zap.Int("alerts", total),
			zap.Int("firing", firing),
		)
	} else {
		s.logger.Info("received generic webhook",
			zap.String("thread_id", threadID),
			zap.Int("payload_keys", len(payload)),
		)
	}

	s.pipeline.Enqueue(payload, threadID)
	s.logger.Debug("queued for background processing", zap.String("thread_id", threadID))

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhookSync is the blocking variant of /webhook: the response carries
// the investigation result. Intended for testing; production alert routes
// should use /webhook.
func (s *Server) handleWebhookSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.supervisor == nil {
		s.logger.Warn("sync webhook received but agent not initialized")
		s.writeDetail(w, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	payload, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	threadID := webhook.GenerateThreadID(payload)
	s.logger.Info("received sync webhook request", zap.String("thread_id", threadID))

	query := webhook.FormatPayloadAsQuery(payload)
	if query == "" {
		s.logger.Info("no actionable content in payload", zap.String("thread_id", threadID))
		s.writeJSON(w, http.StatusOK, QueryResponse{
			Response: "No actionable content in payload",
			ThreadID: threadID,
		})
		return
	}

	start := time.Now()
	response, err := s.supervisor.Ask(r.Context(), query, threadID)
	elapsed := time.Since(start)
	metrics.InvestigationDuration.WithLabelValues("webhook_sync").Observe(elapsed.Seconds())
	if err != nil {
		s.logger.Error("sync investigation failed",
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
		s.writeDetail(w, http.StatusInternalServerError, "Investigation failed")
		return
	}

	s.logger.Info("sync processing complete",
		zap.String("thread_id", threadID),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_chars", len(response)),
	)

	s.writeJSON(w, http.StatusOK, QueryResponse{Response: response, ThreadID: threadID})
}

// handleQuery sends a direct question to the supervisor agent, outside of any
// webhook. Useful for ad-hoc investigations.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.supervisor == nil {
		s.logger.Warn("query received but agent not initialized")
		s.writeDetail(w, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Question == "" {
		s.writeDetail(w, http.StatusBadRequest, "question must not be empty")
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = "default"
	}

	s.logger.Info("received query",
		zap.String("thread_id", req.ThreadID),
		zap.String("question_preview", preview(req.Question, 80)),
	)

	start := time.Now()
	response, err := s.supervisor.Ask(r.Context(), req.Question, req.ThreadID)
	elapsed := time.Since(start)
	metrics.InvestigationDuration.WithLabelValues("query").Observe(elapsed.Seconds())
	if err != nil {
		s.logger.Error("query failed",
			zap.String("thread_id", req.ThreadID),
			zap.Error(err),
		)
		s.writeDetail(w, http.StatusInternalServerError, "Investigation failed")
		return
	}

	s.logger.Info("query complete",
		zap.String("thread_id", req.ThreadID),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_chars", len(response)),
	)

	s.writeJSON(w, http.StatusOK, QueryResponse{Response: response, ThreadID: req.ThreadID})
}

// decodePayload reads an arbitrary JSON object from the request body, writing
// the error response itself when the body is not an object.
func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "Invalid JSON payload")
		return nil, false
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return payload, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeDetail writes an error body in the {"detail": ...} shape.
func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
