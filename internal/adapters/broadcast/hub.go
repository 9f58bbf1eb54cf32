// Package broadcast fans classified events out to session observers.
//
// The hub is a topic abstraction over any real-time transport: one
// topic per session id, a set of observer handles per topic. Delivery
// is best-effort and at-most-once; a full observer channel drops the
// message rather than blocking, so a slow observer can never stall the
// classifier or other observers. There is no replay buffer: observers
// only see messages published after they subscribed.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Message is the wire shape of a published event.
type Message struct {
	SessionID   string         `json:"session_id"`
	Kind        model.Kind     `json:"event_kind"`
	Description string         `json:"description"`
	Severity    model.Severity `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	Confidence  float64        `json:"confidence"`
}

// FocusStatus is the lightweight companion channel payload, independent
// of the persisted event stream.
type FocusStatus struct {
	SessionID string    `json:"session_id"`
	Focused   bool      `json:"focused"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer is one subscribed connection's receive handle for a single
// session topic.
type Observer struct {
	id     string
	events chan Message
	focus  chan FocusStatus

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// ID returns the observer's connection identifier.
func (o *Observer) ID() string { return o.id }

// Events returns the classified-event stream.
func (o *Observer) Events() <-chan Message { return o.events }

// Focus returns the focus-status stream.
func (o *Observer) Focus() <-chan FocusStatus { return o.focus }

// Default hub configuration.
const defaultBufferSize = 16

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets the per-observer channel buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithOriginatorExclusion controls whether a publish skips the
// originating connection. Enabled by default, matching the room
// semantics of the real-time transport.
func WithOriginatorExclusion(enabled bool) Option {
	return func(h *Hub) {
		h.excludeOriginator = enabled
	}
}

// Hub maps session ids to subscribed observers.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Observer // session id -> observer id -> handle
	closed bool

	bufferSize        int
	excludeOriginator bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics:            make(map[string]map[string]*Observer),
		bufferSize:        defaultBufferSize,
		excludeOriginator: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe joins an observer to a session topic and returns its
// receive handle. Subscribing the same observer id to the same session
// twice replaces the previous handle.
func (h *Hub) Subscribe(sessionID, observerID string) *Observer {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	obs := &Observer{
		id:     observerID,
		events: make(chan Message, h.bufferSize),
		focus:  make(chan FocusStatus, h.bufferSize),
	}
	topic, ok := h.topics[sessionID]
	if !ok {
		topic = make(map[string]*Observer)
		h.topics[sessionID] = topic
	}
	topic[observerID] = obs
	return obs
}

// Unsubscribe removes an observer from a session topic.
func (h *Hub) Unsubscribe(sessionID, observerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic, ok := h.topics[sessionID]
	if !ok {
		return
	}
	delete(topic, observerID)
	if len(topic) == 0 {
		delete(h.topics, sessionID)
	}
}

// Disconnect removes an observer from every topic. Transports call
// this on connection close so the subscriber set cannot grow without
// bound.
func (h *Hub) Disconnect(observerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, topic := range h.topics {
		delete(topic, observerID)
		if len(topic) == 0 {
			delete(h.topics, sessionID)
		}
	}
}

// Publish delivers a message to every current subscriber of the
// session's topic, except the originator when exclusion is enabled.
// Never blocks: full observer channels drop the message.
func (h *Hub) Publish(originID string, msg Message) {
	h.published.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, obs := range h.topics[msg.SessionID] {
		if h.excludeOriginator && id == originID {
			continue
		}
		select {
		case obs.events <- msg:
			obs.sent.Add(1)
			h.sent.Add(1)
		default:
			obs.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// PublishFocus delivers a focus-status update on the companion channel.
func (h *Hub) PublishFocus(originID string, status FocusStatus) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, obs := range h.topics[status.SessionID] {
		if h.excludeOriginator && id == originID {
			continue
		}
		select {
		case obs.focus <- status:
			obs.sent.Add(1)
			h.sent.Add(1)
		default:
			obs.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of observers on a session's topic.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[sessionID])
}

// Stats is a snapshot of hub delivery counters.
type Stats struct {
	Published uint64
	Sent      uint64
	Dropped   uint64
	Topics    int
}

// Stats returns a snapshot of delivery counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{
		Published: h.published.Load(),
		Sent:      h.sent.Load(),
		Dropped:   h.dropped.Load(),
		Topics:    len(h.topics),
	}
}

// Close drops all topics. Publishes after Close deliver to nobody;
// observer channels are left open for their owners to drain.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.topics = make(map[string]map[string]*Observer)
}
