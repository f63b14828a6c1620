package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeInvoker scripts the supervisor's behavior for pipeline tests.
type fakeInvoker struct {
	mu       sync.Mutex
	calls    int
	failures int // fail the first N calls
	err      error
}

func (f *fakeInvoker) Ask(ctx context.Context, question, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return "", f.err
		}
		return "", errors.New("transient failure")
	}
	return "investigation complete", nil
}

func testPipelineConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryMinWait: time.Millisecond,
		RetryMaxWait: 2 * time.Millisecond,
	}
}

func firingPayload() map[string]interface{} {
	return map[string]interface{}{
		"alerts": []interface{}{
			map[string]interface{}{
				"status": "firing",
				"labels": map[string]interface{}{"alertname": "HighCPU"},
			},
		},
	}
}

func TestProcessSuccess(t *testing.T) {
	invoker := &fakeInvoker{}
	p := NewPipeline(invoker, testPipelineConfig(), nil)

	p.Process(context.Background(), firingPayload(), "webhook-test1")

	stats := p.Stats()
	if stats.TotalSuccess != 1 || stats.TotalFailed != 0 {
		t.Errorf("Expected 1 success / 0 failed, got %+v", stats)
	}
	if p.DeadLetters().Len() != 0 {
		t.Errorf("Expected empty dead letter queue, got %d entries", p.DeadLetters().Len())
	}
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	invoker := &fakeInvoker{failures: 2}
	p := NewPipeline(invoker, testPipelineConfig(), nil)

	p.Process(context.Background(), firingPayload(), "webhook-test2")

	if invoker.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", invoker.calls)
	}
	stats := p.Stats()
	if stats.TotalSuccess != 1 || stats.TotalFailed != 0 {
		t.Errorf("Expected success after retries, got %+v", stats)
	}
}

func TestProcessExhaustsRetriesAndDeadLetters(t *testing.T) {
	invoker := &fakeInvoker{failures: 100, err: errors.New("engine unavailable")}
	p := NewPipeline(invoker, testPipelineConfig(), nil)

	payload := firingPayload()
	p.Process(context.Background(), payload, "webhook-test3")

	if invoker.calls != 3 {
		t.Errorf("Expected exactly MaxRetries=3 attempts, got %d", invoker.calls)
	}

	stats := p.Stats()
	if stats.TotalFailed != 1 || stats.TotalSuccess != 0 {
		t.Errorf("Expected 1 failure, got %+v", stats)
	}

	entries := p.DeadLetters().Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 dead letter entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.ThreadID != "webhook-test3" {
		t.Errorf("Expected thread id preserved, got %s", entry.ThreadID)
	}
	if entry.RetryCount != 3 {
		t.Errorf("Expected retry_count=3 (configured maximum), got %d", entry.RetryCount)
	}
	if entry.Error == "" {
		t.Error("Expected error text recorded")
	}
	if entry.Timestamp == "" {
		t.Error("Expected timestamp recorded")
	}
}

func TestProcessSkipsNonActionablePayload(t *testing.T) {
	invoker := &fakeInvoker{}
	p := NewPipeline(invoker, testPipelineConfig(), nil)

	// Resolved-only: nothing to investigate
	p.Process(context.Background(), map[string]interface{}{
		"alerts": []interface{}{
			map[string]interface{}{"status": "resolved"},
		},
	}, "webhook-skip")

	if invoker.calls != 0 {
		t.Errorf("Expected agent not invoked for skipped payload, got %d calls", invoker.calls)
	}
	stats := p.Stats()
	if stats.TotalSuccess != 0 || stats.TotalFailed != 0 {
		t.Errorf("Skipped payloads must not touch outcome counters, got %+v", stats)
	}
}

func TestProcessWithoutInvokerDeadLettersImmediately(t *testing.T) {
	p := NewPipeline(nil, testPipelineConfig(), nil)

	p.Process(context.Background(), firingPayload(), "webhook-degraded")

	stats := p.Stats()
	if stats.TotalFailed != 1 || stats.TotalSuccess != 0 {
		t.Errorf("Expected 1 failure without agent, got %+v", stats)
	}

	entries := p.DeadLetters().Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected dead letter entry for replay, got %d", len(entries))
	}
	if entries[0].Error != "agent not initialized" {
		t.Errorf("Expected degraded-start error recorded, got %q", entries[0].Error)
	}
	if entries[0].RetryCount != 0 {
		t.Errorf("Expected no attempts recorded, got %d", entries[0].RetryCount)
	}
}

func TestEnqueueProcessesInBackground(t *testing.T) {
	invoker := &fakeInvoker{}
	p := NewPipeline(invoker, testPipelineConfig(), nil)

	p.RecordReceived()
	p.Enqueue(firingPayload(), "webhook-bg")

	if !p.Drain(2 * time.Second) {
		t.Fatal("Expected background processing to finish")
	}

	stats := p.Stats()
	if stats.TotalReceived != 1 || stats.TotalSuccess != 1 {
		t.Errorf("Expected received=1 success=1, got %+v", stats)
	}
}

func TestDeadLetterQueueCapacity(t *testing.T) {
	q := NewDeadLetterQueue(100)

	for i := 0; i < 150; i++ {
		q.Add(DeadLetterEntry{ThreadID: fmt.Sprintf("webhook-%03d", i)})
	}

	if q.Len() != 100 {
		t.Errorf("Expected queue capped at 100, got %d", q.Len())
	}

	entries := q.Entries()
	if entries[0].ThreadID != "webhook-050" {
		t.Errorf("Expected oldest entries dropped, first is %s", entries[0].ThreadID)
	}
	if entries[99].ThreadID != "webhook-149" {
		t.Errorf("Expected newest entry retained, last is %s", entries[99].ThreadID)
	}
}

func TestDeadLetterQueueClear(t *testing.T) {
	q := NewDeadLetterQueue(10)
	q.Add(DeadLetterEntry{ThreadID: "a"})
	q.Add(DeadLetterEntry{ThreadID: "b"})

	if cleared := q.Clear(); cleared != 2 {
		t.Errorf("Expected 2 cleared, got %d", cleared)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue after clear, got %d", q.Len())
	}
}

func TestDeadLetterQueueRemove(t *testing.T) {
	q := NewDeadLetterQueue(10)
	q.Add(DeadLetterEntry{ThreadID: "a"})
	q.Add(DeadLetterEntry{ThreadID: "b"})
	q.Add(DeadLetterEntry{ThreadID: "c"})

	entry, ok := q.Remove(1)
	if !ok {
		t.Fatal("Expected removal to succeed")
	}
	if entry.ThreadID != "b" {
		t.Errorf("Expected entry b removed, got %s", entry.ThreadID)
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 remaining, got %d", q.Len())
	}

	if _, ok := q.Remove(5); ok {
		t.Error("Expected out-of-range removal to fail")
	}
	if _, ok := q.Remove(-1); ok {
		t.Error("Expected negative index removal to fail")
	}
}
