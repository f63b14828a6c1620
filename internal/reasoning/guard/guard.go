package guard

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/metrics"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
)

// Package guard converts runaway reasoning loops into degraded but usable
// answers. A supervisor invocation that exhausts its step budget has usually
// still done useful investigation, so instead of failing the webhook (and
// burning its retry budget on an error that will recur), the guard returns a
// fixed response naming the budget and records the hit for the admin surface.

const (
	// maxTrackedThreads bounds the per-thread hit counters.
	maxTrackedThreads = 100

	// topOffenders is how many threads Stats reports.
	topOffenders = 20

	// escalateEvery controls the severity escalation cadence: every Nth
	// cumulative hit additionally emits an error-level log.
	escalateEvery = 10
)

// Stats reports guard counters for the admin surface.
type Stats struct {
	TotalHits        int            `json:"total_hits"`
	TotalInvocations int            `json:"total_invocations"`
	HitRatePercent   float64        `json:"hit_rate_percent"`
	ByThread         map[string]int `json:"by_thread"`
}

// threadHits is one thread's entry in the bounded per-thread counter list.
type threadHits struct {
	id   string
	hits int
}

// Guard wraps top-level reasoning invocations with an iteration budget.
type Guard struct {
	limit  int
	logger *zap.Logger

	mu          sync.Mutex
	invocations int
	hits        int
	byThread    map[string]*list.Element
	// order holds *threadHits, least recently hit at the front. Eviction
	// takes the front, so it is deterministic regardless of map iteration.
	order *list.List
}

// New creates a guard for the given step budget.
func New(limit int, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		limit:    limit,
		logger:   logger,
		byThread: make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Limit returns the configured step budget.
func (g *Guard) Limit() int {
	return g.limit
}

// Run executes fn, counting the invocation. A recursion-limit failure is
// absorbed: the hit is recorded and a degraded answer is returned with a nil
// error. Any other failure propagates unchanged.
func (g *Guard) Run(ctx context.Context, threadID string, fn func(ctx context.Context) (string, error)) (string, error) {
	g.mu.Lock()
	g.invocations++
	g.mu.Unlock()
	metrics.AgentInvocationsTotal.Inc()

	answer, err := fn(ctx)
	if err == nil {
		return answer, nil
	}
	if !engine.IsRecursionLimit(err) {
		return "", err
	}

	total := g.recordHit(threadID)
	metrics.RecursionLimitHitsTotal.Inc()

	g.logger.Warn("recursion limit hit",
		zap.String("thread_id", threadID),
		zap.Int("limit", g.limit),
		zap.Int("total_hits", total),
	)
	if total%escalateEvery == 0 {
		g.logger.Error("recursion limit hit repeatedly",
			zap.String("thread_id", threadID),
			zap.Int("limit", g.limit),
			zap.Int("total_hits", total),
		)
	}

	return g.degradedResponse(), nil
}

// degradedResponse is the fixed answer returned when the budget is exhausted.
func (g *Guard) degradedResponse() string {
	return fmt.Sprintf(
		"The investigation was cut short after reaching the configured step limit (%d steps). "+
			"Findings gathered before the limit may still be useful, but the analysis is incomplete. "+
			"Consider narrowing the question or raising the agent recursion limit.",
		g.limit,
	)
}

// recordHit bumps the global and per-thread hit counters and returns the new
// global total. The per-thread counters are bounded: a hit refreshes the
// thread's recency, and when the bound is reached the least recently hit
// thread is evicted to make room.
func (g *Guard) recordHit(threadID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.hits++
	if el, ok := g.byThread[threadID]; ok {
		el.Value.(*threadHits).hits++
		g.order.MoveToBack(el)
		return g.hits
	}

	if len(g.byThread) >= maxTrackedThreads {
		oldest := g.order.Front()
		g.order.Remove(oldest)
		delete(g.byThread, oldest.Value.(*threadHits).id)
	}
	g.byThread[threadID] = g.order.PushBack(&threadHits{id: threadID, hits: 1})
	return g.hits
}

// Stats returns guard counters. Hit rate is 0 when nothing has been invoked.
func (g *Guard) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	rate := 0.0
	if g.invocations > 0 {
		rate = 100 * float64(g.hits) / float64(g.invocations)
	}

	offenders := make([]threadHits, 0, g.order.Len())
	for el := g.order.Front(); el != nil; el = el.Next() {
		th := el.Value.(*threadHits)
		offenders = append(offenders, threadHits{id: th.id, hits: th.hits})
	}
	sort.Slice(offenders, func(i, j int) bool {
		if offenders[i].hits != offenders[j].hits {
			return offenders[i].hits > offenders[j].hits
		}
		return offenders[i].id < offenders[j].id
	})
	if len(offenders) > topOffenders {
		offenders = offenders[:topOffenders]
	}

	byThread := make(map[string]int, len(offenders))
	for _, o := range offenders {
		byThread[o.id] = o.hits
	}

	return Stats{
		TotalHits:        g.hits,
		TotalInvocations: g.invocations,
		HitRatePercent:   rate,
		ByThread:         byThread,
	}
}
