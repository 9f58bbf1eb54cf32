// Package debounce stabilizes noisy detector signals before they become
// durable events.
//
// Detectors sample at their own cadence and flap freely; the filter owns
// one state cell per (session, kind) pair and guarantees at most one
// stabilized transition per continuous active interval. Timer-based
// kinds (focus loss, face missing) arm a cancellable timer and emit only
// if the condition survives the full window; every other kind is
// edge-triggered and re-arms only on a false-to-true edge.
package debounce

import (
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Default hysteresis policy, matching the nominal detector cadences.
const (
	defaultFocusLossWindow    = 5 * time.Second
	defaultFaceMissingWindow  = 10 * time.Second
	defaultFaceMissingSamples = 30 // consecutive absent samples before arming
)

// EmitFunc receives stabilized transitions. It is invoked with the
// filter lock held, so implementations must not call back into the
// filter; in exchange, CancelSession is a hard barrier: once it
// returns, no further transition for that session can be emitted.
type EmitFunc func(model.Transition)

// key addresses one independent debounce cell.
type key struct {
	session string
	kind    model.Kind
}

// cell tracks the hysteresis state for one (session, kind) pair.
type cell struct {
	active    bool        // last raw boolean state
	emitted   bool        // transition already emitted for this interval
	absentRun int         // consecutive absent samples (face missing only)
	timer     *time.Timer // pending stabilization timer, nil when idle
	gen       uint64      // invalidates stale timer callbacks

	// Latest sample detail, carried into the emitted transition.
	confidence float64
	metadata   map[string]string
}

// Filter converts raw detection signals into stabilized transitions.
type Filter struct {
	mu    sync.Mutex
	cells map[key]*cell
	emit  EmitFunc

	focusWindow time.Duration
	faceWindow  time.Duration
	faceSamples int
}

// Option applies a configuration option to the Filter.
type Option func(*Filter)

// WithFocusLossWindow sets how long gaze must stay lost before a
// focus_lost transition fires.
func WithFocusLossWindow(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.focusWindow = d
		}
	}
}

// WithFaceMissingWindow sets how long the face must stay absent, after
// the sample threshold is reached, before a face_missing transition
// fires.
func WithFaceMissingWindow(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.faceWindow = d
		}
	}
}

// WithFaceMissingSamples sets how many consecutive absent samples arm
// the face_missing timer.
func WithFaceMissingSamples(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.faceSamples = n
		}
	}
}

// New creates a Filter that forwards stabilized transitions to emit.
func New(emit EmitFunc, opts ...Option) *Filter {
	f := &Filter{
		cells:       make(map[key]*cell),
		emit:        emit,
		focusWindow: defaultFocusLossWindow,
		faceWindow:  defaultFaceMissingWindow,
		faceSamples: defaultFaceMissingSamples,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Observe feeds one raw detector sample through the filter.
func (f *Filter) Observe(sig model.DetectionSignal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := key{session: sig.SessionID, kind: sig.Kind}
	c, ok := f.cells[k]
	if !ok {
		c = &cell{}
		f.cells[k] = c
	}
	if sig.Active {
		c.confidence = sig.Confidence
		c.metadata = sig.Metadata
	}

	switch sig.Kind {
	case model.KindFocusLost:
		f.observeFocus(k, c, sig)
	case model.KindFaceMissing:
		f.observeFaceMissing(k, c, sig)
	default:
		f.observeEdge(c, sig)
	}
}

// observeFocus arms the focus-loss timer on the first non-focused
// sample; any focused sample cancels the pending timer and re-arms the
// cell for the next loss interval.
func (f *Filter) observeFocus(k key, c *cell, sig model.DetectionSignal) {
	if sig.Active {
		if !c.active {
			c.active = true
			f.arm(k, c, f.focusWindow)
		}
		return
	}
	c.active = false
	c.emitted = false
	f.disarm(c)
}

// observeFaceMissing counts consecutive absent samples; once the run
// exceeds the threshold a timer starts, and only sustained absence for
// the full window emits. Any presence resets the run and cancels the
// timer.
func (f *Filter) observeFaceMissing(k key, c *cell, sig model.DetectionSignal) {
	if sig.Active {
		c.absentRun++
		c.active = true
		if c.timer == nil && !c.emitted && c.absentRun > f.faceSamples {
			f.arm(k, c, f.faceWindow)
		}
		return
	}
	c.absentRun = 0
	c.active = false
	c.emitted = false
	f.disarm(c)
}

// observeEdge emits immediately on a false-to-true edge and suppresses
// repeats while the condition stays true.
func (f *Filter) observeEdge(c *cell, sig model.DetectionSignal) {
	if !sig.Active {
		c.active = false
		return
	}
	if c.active {
		return // still-active repeat, suppressed
	}
	c.active = true
	f.emit(model.Transition{
		SessionID:  sig.SessionID,
		Kind:       sig.Kind,
		Confidence: sig.Confidence,
		Timestamp:  sig.Timestamp,
		Metadata:   sig.Metadata,
	})
}

// arm starts the stabilization timer for a cell. Must be called with
// f.mu held.
func (f *Filter) arm(k key, c *cell, window time.Duration) {
	f.disarm(c)
	gen := c.gen
	c.timer = time.AfterFunc(window, func() {
		f.fire(k, gen)
	})
}

// disarm cancels any pending timer and invalidates in-flight callbacks.
// Must be called with f.mu held.
func (f *Filter) disarm(c *cell) {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fire runs when a stabilization window elapses. A stale generation
// means the cell was reset or the session cancelled after the timer was
// armed; such callbacks do nothing.
func (f *Filter) fire(k key, gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.cells[k]
	if !ok || c.gen != gen || c.emitted {
		return
	}
	c.timer = nil
	c.emitted = true
	f.emit(model.Transition{
		SessionID:  k.session,
		Kind:       k.kind,
		Confidence: c.confidence,
		Timestamp:  time.Now(),
		Metadata:   c.metadata,
	})
}

// CancelSession synchronously cancels all pending timers for a session
// and drops its cells. When it returns, no further transition for the
// session will be emitted.
func (f *Filter) CancelSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for k, c := range f.cells {
		if k.session != sessionID {
			continue
		}
		f.disarm(c)
		delete(f.cells, k)
	}
}

// Stop cancels every pending timer across all sessions.
func (f *Filter) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for k, c := range f.cells {
		f.disarm(c)
		delete(f.cells, k)
	}
}

// PendingTimers returns the number of armed stabilization timers.
func (f *Filter) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.cells {
		if c.timer != nil {
			n++
		}
	}
	return n
}
