package engine

import (
	"context"

	"github.com/kubemedic/kubemedic/internal/llm/types"
)

// Package engine defines the contract between KubeMedic's orchestration core
// and the reasoning engine that runs the actual think/act loop.
//
// The core never looks inside the engine: it hands it a request and a thread
// id, consumes the trace of role-tagged messages it emits, and extracts a
// final answer with FinalAnswer. Conversation state is an opaque checkpoint
// blob that the engine reads and writes through a Checkpointer keyed by
// thread id.
//
// Responsibilities of an implementation:
//   - Run a bounded iterative think/act loop (the recursion limit caps the
//     number of steps; exceeding it must surface ErrRecursionLimit)
//   - Emit every assistant thought, pending tool call, and tool result in
//     order via the stream callback
//   - Persist and restore per-thread state through the configured
//     Checkpointer, treating the blob as its own serialization format

// Engine is one reasoning process: a supervisor or a specialist.
type Engine interface {
	// Invoke runs the engine to completion and returns the full ordered
	// trace. Callers apply FinalAnswer to obtain the answer text.
	Invoke(ctx context.Context, request, threadID string) ([]TraceMessage, error)

	// Stream runs the engine with an explicit step budget, delivering each
	// StepUpdate to fn as it is produced. fn is called from the invoking
	// goroutine; the trace order is the engine's execution order.
	Stream(ctx context.Context, request, threadID string, recursionLimit int, fn func(StepUpdate)) error
}

// Checkpointer stores opaque per-thread engine state. Implementations must
// not parse or version the blob; it is owned by the engine that wrote it.
type Checkpointer interface {
	// Get returns the checkpoint for a thread, or false if the thread is
	// unknown or its state has expired.
	Get(threadID string) ([]byte, bool)

	// Put stores the checkpoint for a thread along with side-channel
	// metadata. It never fails: bounded implementations evict instead.
	Put(threadID string, checkpoint []byte, metadata map[string]string)
}

// ToolHandler executes one tool call on behalf of the engine and returns the
// tool's textual output.
type ToolHandler func(ctx context.Context, call types.ToolCall) (string, error)

// Config describes one reasoning process to a Factory.
type Config struct {
	// SystemPrompt steers the process.
	SystemPrompt string

	// Tools are the capabilities the process may call, executed by Handler.
	Tools []types.Tool

	// Handler executes tool calls. Required when Tools is non-empty.
	Handler ToolHandler

	// Checkpointer stores conversation state. Nil means stateless: every
	// invocation starts fresh.
	Checkpointer Checkpointer

	// RecursionLimit caps think/act steps per invocation.
	RecursionLimit int
}

// Factory builds a reasoning process from a Config. The concrete engine is
// injected at process start; the core only depends on this signature.
type Factory func(cfg Config) (Engine, error)
