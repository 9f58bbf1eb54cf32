// Package queue buffers raw detection signals between the detector
// adapters and the processing workers.
//
// Detectors are parallel producers with no shared ordering guarantee;
// the queue decouples their cadence from the pipeline. Enqueue never
// blocks: when the queue is full the signal is dropped, because a
// stale detector sample is worthless by the time capacity frees up.
package queue

import (
	"context"
	"sync"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Default queue configuration constants.
const defaultCapacity = 4096

// Signal is the payload type flowing through the queue.
type Signal = model.DetectionSignal

// Queue provides non-blocking enqueue and channel-based dequeue
// semantics.
type Queue interface {
	// Enqueue adds a signal. Returns false if the queue is full or
	// closed and the signal was dropped.
	Enqueue(ctx context.Context, s Signal) bool

	// Dequeue returns a channel that receives signals as they become
	// available. The channel closes when the queue is closed and
	// drained.
	Dequeue(ctx context.Context) <-chan Signal

	// Len returns the current number of queued signals.
	Len(ctx context.Context) int

	// Close stops the queue. No new signals can be enqueued.
	Close() error
}

// MemoryQueue implements Queue with a buffered channel.
type MemoryQueue struct {
	signals  chan Signal
	capacity int

	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the MemoryQueue.
type Option func(*MemoryQueue)

// WithCapacity bounds the queue.
func WithCapacity(n int) Option {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// NewMemoryQueue creates a bounded in-memory signal queue.
func NewMemoryQueue(opts ...Option) *MemoryQueue {
	q := &MemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.signals = make(chan Signal, q.capacity)
	metrics.UpdateQueueCapacity(q.capacity)
	return q
}

// Enqueue adds a signal without blocking.
func (q *MemoryQueue) Enqueue(ctx context.Context, s Signal) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordSignalDropped("queue_closed")
		return false
	}
	select {
	case q.signals <- s:
		metrics.UpdateQueueSize(len(q.signals))
		return true
	case <-ctx.Done():
		metrics.RecordSignalDropped("context_cancelled")
		return false
	default:
		metrics.RecordSignalDropped("queue_full")
		return false
	}
}

// Dequeue returns the consumer channel.
func (q *MemoryQueue) Dequeue(ctx context.Context) <-chan Signal {
	out := make(chan Signal)
	go func() {
		defer close(out)
		for s := range q.signals {
			select {
			case out <- s:
				metrics.UpdateQueueSize(len(q.signals))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued signals.
func (q *MemoryQueue) Len(_ context.Context) int {
	return len(q.signals)
}

// Close stops the queue. Idempotent.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.signals)
	q.closed = true
	return nil
}
