package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/memory"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
	"github.com/kubemedic/kubemedic/internal/reasoning/guard"
	"github.com/kubemedic/kubemedic/internal/reasoning/prompt"
)

// Supervisor is the top-level reasoning process. It routes questions to
// specialist agents through the delegation gateway, keeps multi-turn context
// in the bounded conversation store, and runs every invocation through the
// recursion guard.
type Supervisor struct {
	engine engine.Engine
	guard  *guard.Guard
	store  *memory.BoundedStore
	logger *zap.Logger
}

// New wires the supervisor: four specialists built from the factory, the
// gateway that exposes them as tools, and the supervisor engine itself with
// the conversation store as its checkpointer.
func New(factory engine.Factory, store *memory.BoundedStore, g *guard.Guard, logger *zap.Logger) (*Supervisor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := g.Limit()

	specialists := []struct {
		tool        string
		description string
		prompt      string
	}{
		{"ask_kubernetes_expert", "Query Kubernetes resources: pods, logs, events, deployments, services, ingresses.", prompt.Kubernetes},
		{"ask_prometheus_expert", "Query Prometheus metrics: CPU, memory, error rates, resource trends.", prompt.Prometheus},
		{"ask_network_expert", "Check HTTP/HTTPS endpoint connectivity and response times.", prompt.Network},
		{"ask_email_expert", "Send investigation report via email. Recipient is pre-configured.", prompt.Email},
	}

	gateway := NewGateway(logger)
	for _, sp := range specialists {
		eng, err := factory(engine.Config{
			SystemPrompt:   sp.prompt,
			RecursionLimit: limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create specialist %s: %w", sp.tool, err)
		}
		gateway.Register(sp.tool, sp.description, eng)
	}

	supEngine, err := factory(engine.Config{
		SystemPrompt:   prompt.Supervisor,
		Tools:          gateway.Tools(),
		Handler:        gateway.Handle,
		Checkpointer:   store,
		RecursionLimit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supervisor agent: %w", err)
	}

	logger.Info("supervisor agent created",
		zap.Int("specialists", len(specialists)),
		zap.Int("recursion_limit", limit),
	)

	return &Supervisor{
		engine: supEngine,
		guard:  g,
		store:  store,
		logger: logger,
	}, nil
}

// Ask runs one conversation turn and returns the final answer. Recursion
// budget exhaustion yields a degraded answer instead of an error.
func (s *Supervisor) Ask(ctx context.Context, question, threadID string) (string, error) {
	return s.guard.Run(ctx, threadID, func(ctx context.Context) (string, error) {
		return s.ask(ctx, question, threadID, nil)
	})
}

// AskStream is Ask with a step observer, used by the WebSocket surface to
// show the investigation as it happens.
func (s *Supervisor) AskStream(ctx context.Context, question, threadID string, observer func(engine.StepUpdate)) (string, error) {
	return s.guard.Run(ctx, threadID, func(ctx context.Context) (string, error) {
		return s.ask(ctx, question, threadID, observer)
	})
}

// Guard exposes the recursion guard for the admin surface.
func (s *Supervisor) Guard() *guard.Guard {
	return s.guard
}

// Store exposes the conversation store for the admin surface.
func (s *Supervisor) Store() *memory.BoundedStore {
	return s.store
}
