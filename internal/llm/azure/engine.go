package azure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kubemedic/kubemedic/internal/llm/types"
	"github.com/kubemedic/kubemedic/internal/reasoning/engine"
)

// NewFactory returns an engine factory backed by one Azure OpenAI client.
// Every reasoning process built by the factory shares the client but carries
// its own prompt, tools, and conversation state.
func NewFactory(client *Client) engine.Factory {
	return func(cfg engine.Config) (engine.Engine, error) {
		if len(cfg.Tools) > 0 && cfg.Handler == nil {
			return nil, fmt.Errorf("engine config declares tools but no handler")
		}
		if cfg.RecursionLimit < 1 {
			return nil, fmt.Errorf("recursion limit must be at least 1, got %d", cfg.RecursionLimit)
		}
		return &azureEngine{client: client, cfg: cfg}, nil
	}
}

// azureEngine runs the think/act loop against Azure OpenAI chat completions.
// The checkpoint blob is the serialized message history, so a restored thread
// resumes with full context.
type azureEngine struct {
	client *Client
	cfg    engine.Config
}

func (e *azureEngine) Invoke(ctx context.Context, request, threadID string) ([]engine.TraceMessage, error) {
	var trace []engine.TraceMessage
	err := e.run(ctx, request, threadID, e.cfg.RecursionLimit, func(u engine.StepUpdate) {
		trace = append(trace, u.Messages...)
	})
	return trace, err
}

func (e *azureEngine) Stream(ctx context.Context, request, threadID string, recursionLimit int, fn func(engine.StepUpdate)) error {
	if recursionLimit < 1 {
		recursionLimit = e.cfg.RecursionLimit
	}
	return e.run(ctx, request, threadID, recursionLimit, fn)
}

func (e *azureEngine) run(ctx context.Context, request, threadID string, limit int, emit func(engine.StepUpdate)) error {
	history := e.loadHistory(threadID)
	history = append(history, chatMessage{Role: "user", Content: request})

	for step := 0; step < limit; step++ {
		reply, err := e.client.complete(ctx, history, e.cfg.Tools)
		if err != nil {
			e.saveHistory(threadID, history)
			return err
		}
		history = append(history, reply)

		if len(reply.ToolCalls) == 0 {
			emit(engine.StepUpdate{Messages: []engine.TraceMessage{
				engine.Assistant{Content: reply.Content},
			}})
			e.saveHistory(threadID, history)
			return nil
		}

		var stepMessages []engine.TraceMessage
		for _, tc := range reply.ToolCalls {
			call, err := parseToolCall(tc)
			if err != nil {
				e.saveHistory(threadID, history)
				return err
			}
			stepMessages = append(stepMessages, engine.Assistant{
				Content:  reply.Content,
				ToolCall: &call,
			})

			result, err := e.cfg.Handler(ctx, call)
			if err != nil {
				// Surface tool failures to the model instead of aborting:
				// it can often recover by trying a different approach.
				result = fmt.Sprintf("Error: %v", err)
			}
			history = append(history, chatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
			stepMessages = append(stepMessages, engine.ToolResult{
				Name:    call.Name,
				Content: result,
			})
		}
		emit(engine.StepUpdate{Messages: stepMessages})
	}

	e.saveHistory(threadID, history)
	return fmt.Errorf("%w after %d steps", engine.ErrRecursionLimit, limit)
}

// loadHistory restores the thread's message history from the checkpointer, or
// starts a fresh conversation seeded with the system prompt.
func (e *azureEngine) loadHistory(threadID string) []chatMessage {
	if e.cfg.Checkpointer != nil {
		if blob, ok := e.cfg.Checkpointer.Get(threadID); ok {
			var history []chatMessage
			if err := json.Unmarshal(blob, &history); err == nil && len(history) > 0 {
				return history
			}
		}
	}
	return []chatMessage{{Role: "system", Content: e.cfg.SystemPrompt}}
}

func (e *azureEngine) saveHistory(threadID string, history []chatMessage) {
	if e.cfg.Checkpointer == nil {
		return
	}
	blob, err := json.Marshal(history)
	if err != nil {
		return
	}
	e.cfg.Checkpointer.Put(threadID, blob, map[string]string{
		"message_count": fmt.Sprint(len(history)),
	})
}

func parseToolCall(tc toolCall) (types.ToolCall, error) {
	args := map[string]interface{}{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return types.ToolCall{}, fmt.Errorf("failed to parse tool call arguments: %w", err)
		}
	}
	return types.ToolCall{
		ID:        tc.ID,
		Name:      tc.Function.Name,
		Arguments: args,
	}, nil
}
