// Package dedupe tracks already-seen ingest ids so that retried
// deliveries from external detector adapters cannot append the same
// event twice.
package dedupe

import (
	"context"
	"sync"
)

// Tracker records seen ids to keep event ingestion at-most-once.
type Tracker interface {
	// SeenAndRecord atomically checks whether id was seen and records
	// it if not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes an id, allowing it to be retried after a failed
	// append.
	Forget(ctx context.Context, id string)

	// Size returns the number of tracked ids.
	Size() int
}

// defaultMaxEntries bounds the in-memory tracker.
const defaultMaxEntries = 50000

// Option applies a configuration option to the in-memory tracker.
type Option func(*memoryTracker)

// WithMaxEntries caps how many ids are remembered. Oldest ids are
// evicted first once the cap is reached; zero or negative means
// unbounded.
func WithMaxEntries(n int) Option {
	return func(t *memoryTracker) {
		t.maxEntries = n
	}
}

// memoryTracker implements Tracker with a map plus a FIFO eviction ring.
type memoryTracker struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	order      []string // insertion order for FIFO eviction
	head       int      // index of the oldest live entry in order
	maxEntries int
}

// NewMemoryTracker creates a bounded in-memory tracker.
func NewMemoryTracker(opts ...Option) Tracker {
	t := &memoryTracker{
		seen:       make(map[string]struct{}),
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *memoryTracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}
	if t.maxEntries > 0 {
		for len(t.seen) >= t.maxEntries {
			t.evictOldest()
		}
	}
	t.seen[id] = struct{}{}
	t.order = append(t.order, id)
	return false
}

func (t *memoryTracker) Forget(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, id)
	// The order slice keeps a stale entry; evictOldest skips ids that
	// are no longer in the map.
}

func (t *memoryTracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// evictOldest drops the oldest live id. Must be called with t.mu held.
func (t *memoryTracker) evictOldest() {
	for t.head < len(t.order) {
		id := t.order[t.head]
		t.head++
		if _, ok := t.seen[id]; ok {
			delete(t.seen, id)
			break
		}
	}
	// Compact once the dead prefix dominates the slice.
	if t.head > 0 && t.head*2 >= len(t.order) {
		t.order = append([]string(nil), t.order[t.head:]...)
		t.head = 0
	}
}
