package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/metrics"
)

// Invoker is the supervisor as the pipeline sees it: one question in, one
// answer out, correlated by thread id.
type Invoker interface {
	Ask(ctx context.Context, question, threadID string) (string, error)
}

// Config tunes the pipeline's retry policy and dead-letter capacity.
type Config struct {
	// MaxRetries is the total attempt count per webhook (minimum 1).
	MaxRetries int

	// RetryMinWait and RetryMaxWait bound the exponential backoff between
	// attempts.
	RetryMinWait time.Duration
	RetryMaxWait time.Duration

	// DeadLetterCapacity bounds the dead-letter queue (0 = default 100).
	DeadLetterCapacity int
}

// Stats are the pipeline's lifetime counters. They only reset on restart.
type Stats struct {
	TotalReceived int `json:"total_received"`
	TotalSuccess  int `json:"total_success"`
	TotalFailed   int `json:"total_failed"`
}

// Pipeline drives webhook investigations through background execution,
// retry with exponential backoff, and a dead-letter queue for webhooks that
// exhaust their retry budget. Retries are deliberately broad — transient
// engine, tool, and upstream failures are indistinguishable here, so every
// error is retried identically.
type Pipeline struct {
	invoker Invoker
	logger  *zap.Logger
	cfg     Config

	mu       sync.Mutex
	received int
	success  int
	failed   int

	dlq *DeadLetterQueue
	wg  sync.WaitGroup
}

// NewPipeline creates a pipeline invoking the given supervisor.
func NewPipeline(invoker Invoker, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Pipeline{
		invoker: invoker,
		logger:  logger,
		cfg:     cfg,
		dlq:     NewDeadLetterQueue(cfg.DeadLetterCapacity),
	}
}

// RecordReceived counts an accepted webhook. Called by the HTTP handler
// before the payload is enqueued.
func (p *Pipeline) RecordReceived() {
	p.mu.Lock()
	p.received++
	p.mu.Unlock()
	metrics.WebhooksReceivedTotal.Inc()
}

// Enqueue hands a payload to background processing so the HTTP handler can
// acknowledge immediately. Upstream alert sources expect a fast ack and will
// retry or alarm on slow responses.
func (p *Pipeline) Enqueue(payload map[string]interface{}, threadID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Process(context.Background(), payload, threadID)
	}()
}

// Process normalizes a payload and runs the investigation under the retry
// policy, recording the outcome. Payloads with no actionable content are
// skipped without touching the success/failure counters.
func (p *Pipeline) Process(ctx context.Context, payload map[string]interface{}, threadID string) {
	log := p.logger.With(zap.String("thread_id", threadID))
	log.Debug("starting background processing")
	start := time.Now()

	query := FormatPayloadAsQuery(payload)
	if query == "" {
		log.Info("no actionable content in webhook payload, skipping")
		metrics.WebhooksProcessedTotal.WithLabelValues("skipped").Inc()
		return
	}

	// A nil invoker means the server started degraded. The HTTP handlers
	// refuse webhooks before enqueueing in that state, but replays from the
	// dead-letter queue reach here directly, so fail fast instead of
	// retrying a call that can never succeed.
	if p.invoker == nil {
		p.mu.Lock()
		p.failed++
		p.mu.Unlock()
		metrics.WebhooksProcessedTotal.WithLabelValues("failed").Inc()
		log.Error("cannot investigate: agent not initialized")
		p.dlq.Add(DeadLetterEntry{
			ThreadID:   threadID,
			Payload:    payload,
			Error:      "agent not initialized",
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			RetryCount: 0,
		})
		return
	}

	log.Info("invoking agent for investigation", zap.Int("query_chars", len(query)))

	var response string
	operation := func() error {
		var err error
		response, err = p.invoker.Ask(ctx, query, threadID)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.RetryMinWait
	bo.MaxInterval = p.cfg.RetryMaxWait
	bo.MaxElapsedTime = 0 // attempts are bounded by count, not wall clock

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries-1)), ctx),
		func(err error, wait time.Duration) {
			metrics.WebhookRetriesTotal.Inc()
			log.Warn("investigation attempt failed, retrying",
				zap.Error(err),
				zap.Duration("next_attempt_in", wait),
			)
		},
	)

	elapsed := time.Since(start)
	metrics.InvestigationDuration.WithLabelValues("webhook").Observe(elapsed.Seconds())

	if err == nil {
		p.mu.Lock()
		p.success++
		p.mu.Unlock()
		metrics.WebhooksProcessedTotal.WithLabelValues("success").Inc()
		log.Info("investigation complete",
			zap.Duration("elapsed", elapsed),
			zap.Int("response_chars", len(response)),
		)
		return
	}

	p.mu.Lock()
	p.failed++
	p.mu.Unlock()
	metrics.WebhooksProcessedTotal.WithLabelValues("failed").Inc()

	log.Error("investigation failed after all retries",
		zap.Error(err),
		zap.Duration("elapsed", elapsed),
		zap.Int("max_retries", p.cfg.MaxRetries),
	)

	p.dlq.Add(DeadLetterEntry{
		ThreadID:   threadID,
		Payload:    payload,
		Error:      err.Error(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RetryCount: p.cfg.MaxRetries,
	})
	log.Warn("added to dead letter queue", zap.Int("queue_size", p.dlq.Len()))
}

// Stats returns the lifetime counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		TotalReceived: p.received,
		TotalSuccess:  p.success,
		TotalFailed:   p.failed,
	}
}

// DeadLetters exposes the dead-letter queue for the admin surface.
func (p *Pipeline) DeadLetters() *DeadLetterQueue {
	return p.dlq
}

// Drain waits for in-flight background investigations, up to the timeout.
// Used during graceful shutdown.
func (p *Pipeline) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
