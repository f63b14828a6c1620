package engine

import "github.com/kubemedic/kubemedic/internal/llm/types"

// NoResponseFallback is returned by FinalAnswer when a trace contains no
// final assistant message.
const NoResponseFallback = "No response from agent."

// TraceMessage is one role-tagged message in an engine trace. The two
// variants are Assistant and ToolResult; matching on them is exhaustive.
type TraceMessage interface {
	isTraceMessage()
}

// Assistant is a message produced by the reasoning process itself. When
// ToolCall is non-nil the message is "thinking out loud" before acting and
// is not a final answer, even if Content is non-empty.
type Assistant struct {
	Content  string
	ToolCall *types.ToolCall
}

func (Assistant) isTraceMessage() {}

// ToolResult is the output of one tool invocation.
type ToolResult struct {
	Name    string
	Content string
}

func (ToolResult) isTraceMessage() {}

// StepUpdate is one unit of streamed progress: zero or more trace messages
// emitted by a single engine step.
type StepUpdate struct {
	Messages []TraceMessage
}

// FinalAnswer extracts the answer from a trace: the last Assistant message
// with non-empty content and no pending tool call. Traces with no such
// message yield NoResponseFallback.
func FinalAnswer(trace []TraceMessage) string {
	for i := len(trace) - 1; i >= 0; i-- {
		if msg, ok := trace[i].(Assistant); ok {
			if msg.Content != "" && msg.ToolCall == nil {
				return msg.Content
			}
		}
	}
	return NoResponseFallback
}
