package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/config"
	"github.com/kubemedic/kubemedic/internal/middleware"
	"github.com/kubemedic/kubemedic/internal/reasoning/supervisor"
	"github.com/kubemedic/kubemedic/internal/webhook"
)

// Server represents the KubeMedic API server
type Server struct {
	config *config.Config
	logger *zap.Logger

	// Core components
	supervisor *supervisor.Supervisor
	pipeline   *webhook.Pipeline

	// Rate limiters (one budget per public endpoint)
	webhookLimiter *middleware.RateLimiter
	queryLimiter   *middleware.RateLimiter

	// HTTP server
	httpServer *http.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.RWMutex
	running bool
}

// NewServer creates a new KubeMedic API server. The supervisor may be nil
// when the reasoning engine could not be initialized; the server then comes
// up degraded and reports agent_ready=false.
func NewServer(cfg *config.Config, sup *supervisor.Supervisor, pipeline *webhook.Pipeline, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:         cfg,
		logger:         logger,
		supervisor:     sup,
		pipeline:       pipeline,
		webhookLimiter: middleware.NewRateLimiter("webhook", cfg.RateLimit.WebhookPerMinute),
		queryLimiter:   middleware.NewRateLimiter("query", cfg.RateLimit.QueryPerMinute),
		ctx:            ctx,
		cancel:         cancel,
		running:        false,
	}

	return srv, nil
}

// Start starts the server
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	s.registerHandlers(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // sync investigations can be slow
		IdleTimeout:  120 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("starting HTTP server", zap.Int("port", s.config.Server.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("KubeMedic API server started",
		zap.Bool("agent_ready", s.supervisor != nil),
		zap.Int("webhook_rate_per_minute", s.config.RateLimit.WebhookPerMinute),
		zap.Int("query_rate_per_minute", s.config.RateLimit.QueryPerMinute),
	)

	return nil
}

// Stop gracefully stops the server: new requests are refused, then in-flight
// background investigations get a bounded drain window.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping KubeMedic API server")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down HTTP server", zap.Error(err))
		}
	}

	if s.pipeline != nil {
		if !s.pipeline.Drain(30 * time.Second) {
			s.logger.Warn("background investigations still running at shutdown deadline")
		}
	}

	s.webhookLimiter.Stop()
	s.queryLimiter.Stop()

	s.cancel()
	s.wg.Wait()

	s.logger.Info("KubeMedic API server stopped")
	return nil
}

// Wait blocks until the server is stopped
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// registerHandlers registers HTTP handlers
func (s *Server) registerHandlers(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Webhook ingestion
	mux.HandleFunc("/webhook", s.webhookLimiter.Middleware(s.handleWebhook))
	mux.HandleFunc("/webhook/sync", s.webhookLimiter.Middleware(s.handleWebhookSync))

	// Direct queries
	mux.HandleFunc("/query", s.queryLimiter.Middleware(s.handleQuery))

	// Streaming investigations
	mux.HandleFunc("/ws/investigate", s.handleWebSocket)

	// Admin surface
	mux.HandleFunc("/admin/stats", s.handleAdminStats)
	mux.HandleFunc("/admin/dead-letters", s.handleDeadLetters)
	mux.HandleFunc("/admin/dead-letters/", s.handleDeadLetterRetry)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())
}
