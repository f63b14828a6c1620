package server

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/webhook"
)

// AdminStatsResponse aggregates the operational counters exposed on
// /admin/stats. MemoryStats is null when the agent (and therefore its
// conversation store) is not initialized.
type AdminStatsResponse struct {
	WebhookStats    webhook.Stats `json:"webhook_stats"`
	DeadLetterCount int           `json:"dead_letter_count"`
	MemoryStats     interface{}   `json:"memory_stats"`
	RecursionStats  interface{}   `json:"recursion_stats"`
}

// DeadLettersResponse lists the dead-letter queue contents.
type DeadLettersResponse struct {
	Count    int                       `json:"count"`
	Failures []webhook.DeadLetterEntry `json:"failures"`
}

// handleAdminStats returns webhook processing stats, conversation memory
// stats, and recursion guard counters.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := AdminStatsResponse{
		WebhookStats:    s.pipeline.Stats(),
		DeadLetterCount: s.pipeline.DeadLetters().Len(),
	}
	if s.supervisor != nil {
		resp.MemoryStats = s.supervisor.Store().Stats()
		resp.RecursionStats = s.supervisor.Guard().Stats()
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleDeadLetters lists (GET) or clears (DELETE) the dead-letter queue.
func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := s.pipeline.DeadLetters().Entries()
		s.writeJSON(w, http.StatusOK, DeadLettersResponse{
			Count:    len(entries),
			Failures: entries,
		})

	case http.MethodDelete:
		count := s.pipeline.DeadLetters().Clear()
		s.logger.Info("cleared dead letter queue", zap.Int("cleared", count))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"cleared": count,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDeadLetterRetry replays one dead-letter entry by index:
// POST /admin/dead-letters/{index}/retry removes the entry and re-enqueues
// its payload under the original thread id.
func (s *Server) handleDeadLetterRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	index, ok := parseRetryPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	entry, ok := s.pipeline.DeadLetters().Remove(index)
	if !ok {
		s.writeDetail(w, http.StatusNotFound, "Failed webhook not found")
		return
	}

	s.pipeline.Enqueue(entry.Payload, entry.ThreadID)
	s.logger.Info("retrying failed webhook",
		zap.String("thread_id", entry.ThreadID),
		zap.Int("index", index),
	)

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"thread_id": entry.ThreadID,
	})
}

// parseRetryPath extracts the index from /admin/dead-letters/{index}/retry.
func parseRetryPath(path string) (int, bool) {
	rest, ok := strings.CutPrefix(path, "/admin/dead-letters/")
	if !ok {
		return 0, false
	}
	indexStr, ok := strings.CutSuffix(rest, "/retry")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return 0, false
	}
	return index, true
}
