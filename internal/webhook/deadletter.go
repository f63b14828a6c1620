package webhook

import (
	"sync"

	"github.com/kubemedic/kubemedic/internal/metrics"
)

// defaultDeadLetterCapacity bounds the dead-letter queue so repeated
// failures cannot grow memory without limit.
const defaultDeadLetterCapacity = 100

// DeadLetterEntry records one webhook that failed all retry attempts. It
// carries everything needed for manual triage and replay.
type DeadLetterEntry struct {
	ThreadID   string                 `json:"thread_id"`
	Payload    map[string]interface{} `json:"payload"`
	Error      string                 `json:"error"`
	Timestamp  string                 `json:"timestamp"`
	RetryCount int                    `json:"retry_count"`
}

// DeadLetterQueue is a bounded in-memory holding area for failed webhooks.
// When full, the oldest entry is silently dropped to admit a new one.
type DeadLetterQueue struct {
	mu       sync.Mutex
	entries  []DeadLetterEntry
	capacity int
}

// NewDeadLetterQueue creates a queue with the given capacity (values below 1
// fall back to the default of 100).
func NewDeadLetterQueue(capacity int) *DeadLetterQueue {
	if capacity < 1 {
		capacity = defaultDeadLetterCapacity
	}
	return &DeadLetterQueue{capacity: capacity}
}

// Add appends an entry, dropping the oldest when over capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, entry)
	if len(q.entries) > q.capacity {
		q.entries = q.entries[len(q.entries)-q.capacity:]
	}
	metrics.DeadLetterQueueSize.Set(float64(len(q.entries)))
}

// Len returns the number of queued entries.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the queue contents in insertion order.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadLetterEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Clear empties the queue and returns how many entries were removed.
func (q *DeadLetterQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := len(q.entries)
	q.entries = nil
	metrics.DeadLetterQueueSize.Set(0)
	return count
}

// Remove takes the entry at index out of the queue, returning false when the
// index is out of range.
func (q *DeadLetterQueue) Remove(index int) (DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.entries) {
		return DeadLetterEntry{}, false
	}
	entry := q.entries[index]
	q.entries = append(q.entries[:index], q.entries[index+1:]...)
	metrics.DeadLetterQueueSize.Set(float64(len(q.entries)))
	return entry, true
}
