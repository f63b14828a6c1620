package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
)

// ask streams one supervisor invocation, logging each step at debug level so
// server deployments get visibility into the agent's reasoning without
// printing to stdout. The final answer follows the extraction rule: the last
// assistant message with content and no pending tool call.
func (s *Supervisor) ask(ctx context.Context, query, threadID string, observer func(engine.StepUpdate)) (string, error) {
	log := s.logger.With(zap.String("thread_id", threadID))
	log.Debug("starting agent invocation", zap.Int("query_chars", len(query)))

	finalResponse := ""
	toolCallCount := 0

	err := s.engine.Stream(ctx, query, threadID, s.guard.Limit(), func(step engine.StepUpdate) {
		if observer != nil {
			observer(step)
		}
		for _, msg := range step.Messages {
			switch m := msg.(type) {
			case engine.Assistant:
				if m.ToolCall != nil {
					toolCallCount++
					log.Debug("tool call",
						zap.Int("n", toolCallCount),
						zap.String("tool", m.ToolCall.Name),
						zap.String("args", truncate(fmt.Sprintf("%v", m.ToolCall.Arguments), 200)),
					)
					if m.Content != "" {
						log.Debug("agent thinking", zap.String("thought", truncate(m.Content, 300)))
					}
				} else if m.Content != "" {
					finalResponse = m.Content
					log.Debug("agent final response", zap.String("preview", truncate(m.Content, 300)))
				}
			case engine.ToolResult:
				log.Debug("tool result",
					zap.String("tool", m.Name),
					zap.String("preview", truncate(m.Content, 500)),
				)
			}
		}
	})
	if err != nil {
		return "", err
	}

	log.Debug("agent invocation complete", zap.Int("tool_calls", toolCallCount))
	if finalResponse == "" {
		log.Warn("no response from agent")
		return engine.NoResponseFallback, nil
	}
	return finalResponse, nil
}

// truncate shortens text for log previews.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
