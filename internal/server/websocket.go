package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/metrics"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
)

// WebSocket message types
const (
	MessageTypeThinking   = "thinking"
	MessageTypeTool       = "tool"
	MessageTypeToolResult = "tool_result"
	MessageTypeAnswer     = "answer"
	MessageTypeError      = "error"
	MessageTypeComplete   = "complete"
	MessageTypeHeartbeat  = "heartbeat"
)

// WSMessage represents an outgoing WebSocket message
type WSMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Error     string    `json:"error,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WSRequest represents an incoming investigation request
type WSRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id"`
}

// handleWebSocket upgrades the connection and streams investigation steps as
// the supervisor produces them.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.supervisor == nil {
		s.writeDetail(w, http.StatusServiceUnavailable, "Agent not initialized")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsConn := &wsConnection{
		conn:      conn,
		server:    s,
		sessionID: fmt.Sprintf("ws-%d", time.Now().UnixNano()),
	}

	metrics.WebSocketConnections.Inc()
	s.logger.Info("websocket connection established", zap.String("session_id", wsConn.sessionID))

	wsConn.handle()
}

// checkOrigin enforces the configured origin allowlist. Requests without an
// Origin header (non-browser clients) are always allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// wsConnection represents an active WebSocket connection
type wsConnection struct {
	conn      *websocket.Conn
	server    *Server
	mu        sync.Mutex
	sessionID string
}

// handle manages the connection lifecycle: each incoming request runs one
// investigation, streaming steps back as they happen.
func (wsc *wsConnection) handle() {
	defer func() {
		wsc.conn.Close()
		metrics.WebSocketConnections.Dec()
		wsc.server.logger.Info("websocket connection closed", zap.String("session_id", wsc.sessionID))
	}()

	for {
		var req WSRequest
		err := wsc.conn.ReadJSON(&req)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				wsc.server.logger.Warn("websocket read error",
					zap.String("session_id", wsc.sessionID),
					zap.Error(err),
				)
			}
			return
		}

		wsc.handleInvestigation(&req)
	}
}

// handleInvestigation runs one streamed investigation request.
func (wsc *wsConnection) handleInvestigation(req *WSRequest) {
	if req.Question == "" {
		wsc.sendError("question must not be empty")
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = "default"
	}

	wsc.server.logger.Info("websocket investigation started",
		zap.String("session_id", wsc.sessionID),
		zap.String("thread_id", req.ThreadID),
	)

	start := time.Now()
	answer, err := wsc.server.supervisor.AskStream(
		wsc.server.ctx, req.Question, req.ThreadID,
		func(update engine.StepUpdate) {
			for _, msg := range update.Messages {
				switch m := msg.(type) {
				case engine.Assistant:
					if m.ToolCall != nil {
						wsc.send(&WSMessage{
							Type:      MessageTypeTool,
							Content:   m.Content,
							Tool:      m.ToolCall.Name,
							ThreadID:  req.ThreadID,
							Timestamp: time.Now(),
						})
					} else if m.Content != "" {
						wsc.send(&WSMessage{
							Type:      MessageTypeThinking,
							Content:   m.Content,
							ThreadID:  req.ThreadID,
							Timestamp: time.Now(),
						})
					}
				case engine.ToolResult:
					wsc.send(&WSMessage{
						Type:      MessageTypeToolResult,
						Content:   m.Content,
						Tool:      m.Name,
						ThreadID:  req.ThreadID,
						Timestamp: time.Now(),
					})
				}
			}
		},
	)
	metrics.InvestigationDuration.WithLabelValues("websocket").Observe(time.Since(start).Seconds())

	if err != nil {
		wsc.server.logger.Error("websocket investigation failed",
			zap.String("session_id", wsc.sessionID),
			zap.String("thread_id", req.ThreadID),
			zap.Error(err),
		)
		wsc.sendError(fmt.Sprintf("Investigation failed: %v", err))
		return
	}

	wsc.send(&WSMessage{
		Type:      MessageTypeAnswer,
		Content:   answer,
		ThreadID:  req.ThreadID,
		Timestamp: time.Now(),
	})
	wsc.send(&WSMessage{
		Type:      MessageTypeComplete,
		ThreadID:  req.ThreadID,
		Timestamp: time.Now(),
	})
}

// send sends a message to the client
func (wsc *wsConnection) send(msg *WSMessage) error {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()

	wsc.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return wsc.conn.WriteJSON(msg)
}

// sendError sends an error message to the client
func (wsc *wsConnection) sendError(errMsg string) {
	wsc.send(&WSMessage{
		Type:      MessageTypeError,
		Error:     errMsg,
		Timestamp: time.Now(),
	})
}
