package memory

import (
	"container/list"
	"sync"
	"time"
)

// Package memory provides the bounded conversation store: a capacity- and
// TTL-bounded map from thread id to the reasoning engine's opaque checkpoint
// blob. It is a cache, not a durable store — everything is lost on restart.

// samplePreviewLimit caps how many thread ids Stats exposes, so the admin
// surface cannot leak an unbounded id list.
const samplePreviewLimit = 20

// Stats describes the store for the admin surface.
type Stats struct {
	CurrentSize     int      `json:"current_size"`
	MaxSize         int      `json:"max_size"`
	TTLSeconds      int      `json:"ttl_seconds"`
	SampleThreadIDs []string `json:"sample_thread_ids"`
}

// Snapshot is one thread's state as returned by List.
type Snapshot struct {
	ThreadID   string
	Checkpoint []byte
}

type entry struct {
	threadID   string
	checkpoint []byte
	metadata   map[string]string
	writtenAt  time.Time
}

// BoundedStore is an LRU conversation store with lazy TTL expiry. Eviction is
// deterministic (least recently used first) and never surfaces an error.
type BoundedStore struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List               // front = most recently used
	index   map[string]*list.Element // thread id -> order element
	now     func() time.Time
}

// NewBoundedStore creates a store holding at most maxSize threads, each
// expiring ttl after its last write.
func NewBoundedStore(maxSize int, ttl time.Duration) *BoundedStore {
	if maxSize < 1 {
		maxSize = 1
	}
	return &BoundedStore{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		index:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the checkpoint for a thread. Expired entries are treated as
// absent and removed on the spot.
func (s *BoundedStore) Get(threadID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[threadID]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if s.expired(e) {
		s.removeLocked(el)
		return nil, false
	}
	s.order.MoveToFront(el)
	return e.checkpoint, true
}

// Put stores a checkpoint, evicting the least-recently-used thread when the
// insert would exceed capacity.
func (s *BoundedStore) Put(threadID string, checkpoint []byte, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[threadID]; ok {
		e := el.Value.(*entry)
		e.checkpoint = checkpoint
		e.metadata = metadata
		e.writtenAt = s.now()
		s.order.MoveToFront(el)
		return
	}

	if s.order.Len() >= s.maxSize {
		if oldest := s.order.Back(); oldest != nil {
			s.removeLocked(oldest)
		}
	}

	el := s.order.PushFront(&entry{
		threadID:   threadID,
		checkpoint: checkpoint,
		metadata:   metadata,
		writtenAt:  s.now(),
	})
	s.index[threadID] = el
}

// List returns the live threads, most recently used first. Intended for
// introspection only.
func (s *BoundedStore) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Snapshot, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if s.expired(e) {
			continue
		}
		out = append(out, Snapshot{ThreadID: e.threadID, Checkpoint: e.checkpoint})
	}
	return out
}

// Stats reports the store's size, limits, and a bounded sample of thread ids.
func (s *BoundedStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := make([]string, 0, samplePreviewLimit)
	live := 0
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if s.expired(e) {
			continue
		}
		live++
		if len(sample) < samplePreviewLimit {
			sample = append(sample, e.threadID)
		}
	}

	return Stats{
		CurrentSize:     live,
		MaxSize:         s.maxSize,
		TTLSeconds:      int(s.ttl / time.Second),
		SampleThreadIDs: sample,
	}
}

func (s *BoundedStore) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.writtenAt) > s.ttl
}

func (s *BoundedStore) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.index, e.threadID)
}
