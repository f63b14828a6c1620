package supervisor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/llm/types"
	"github.com/kubemedic/kubemedic/internal/metrics"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
)

// Gateway exposes specialist reasoning processes to the supervisor as
// callable tools. Each tool takes a single {request: string} argument; a
// call runs the specialist to completion under a fresh correlation context
// and returns its extracted final answer. The gateway never retries —
// failures propagate to the caller, and retries (if any) belong to the
// calling engine or to the webhook pipeline.
type Gateway struct {
	logger      *zap.Logger
	specialists []specialistEntry
}

type specialistEntry struct {
	name        string
	description string
	engine      engine.Engine
}

// NewGateway creates an empty gateway.
func NewGateway(logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{logger: logger}
}

// Register adds a specialist under a tool name. Registration order is the
// order tools are presented to the supervisor.
func (g *Gateway) Register(name, description string, eng engine.Engine) {
	g.specialists = append(g.specialists, specialistEntry{
		name:        name,
		description: description,
		engine:      eng,
	})
}

// Tools returns the tool definitions for every registered specialist.
func (g *Gateway) Tools() []types.Tool {
	tools := make([]types.Tool, 0, len(g.specialists))
	for _, sp := range g.specialists {
		tools = append(tools, types.Tool{
			Name:        sp.name,
			Description: sp.description,
			Parameters:  types.RequestSchema("The question or task to delegate to this agent"),
		})
	}
	return tools
}

// Handle dispatches one tool call to the matching specialist. It satisfies
// engine.ToolHandler.
func (g *Gateway) Handle(ctx context.Context, call types.ToolCall) (string, error) {
	sp, ok := g.lookup(call.Name)
	if !ok {
		return "", fmt.Errorf("unknown specialist tool: %s", call.Name)
	}

	request, _ := call.Arguments["request"].(string)
	if request == "" {
		return "", fmt.Errorf("specialist %s called without a request", call.Name)
	}

	// Fresh thread id per delegation: specialist runs never share state
	// with each other or with the supervisor's conversation.
	threadID := "delegate-" + uuid.NewString()

	g.logger.Debug("delegating to specialist",
		zap.String("specialist", sp.name),
		zap.String("thread_id", threadID),
		zap.String("request_preview", truncate(request, 50)),
	)

	trace, err := sp.engine.Invoke(ctx, request, threadID)
	if err != nil {
		metrics.DelegationCallsTotal.WithLabelValues(sp.name, "error").Inc()
		return "", fmt.Errorf("specialist %s failed: %w", sp.name, err)
	}

	answer := engine.FinalAnswer(trace)
	metrics.DelegationCallsTotal.WithLabelValues(sp.name, "success").Inc()
	g.logger.Debug("specialist response obtained",
		zap.String("specialist", sp.name),
		zap.Int("chars", len(answer)),
	)
	return answer, nil
}

func (g *Gateway) lookup(name string) (specialistEntry, bool) {
	for _, sp := range g.specialists {
		if sp.name == name {
			return sp, true
		}
	}
	return specialistEntry{}, false
}
