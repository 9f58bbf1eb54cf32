// Package app wires the proctoring pipeline together: detector signals
// in, debounced and classified events out to the store, the session
// state machine, and the real-time hub.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vigil/internal/adapters/broadcast"
	signalqueue "github.com/okian/vigil/internal/adapters/mq/queue"
	workerpool "github.com/okian/vigil/internal/adapters/mq/worker"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/classify"
	"github.com/okian/vigil/internal/domain/debounce"
	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/report"
	"github.com/okian/vigil/internal/domain/scoring"
	"github.com/okian/vigil/pkg/logger"
	"github.com/okian/vigil/pkg/metrics"
)

// Monitor is the core proctoring service. It owns session lifecycle,
// the per-session single-writer discipline over counters, and the
// fan-out of classified events.
type Monitor struct {
	mu sync.RWMutex

	// Core components.
	events     repository.EventStore
	sessions   repository.SessionStore
	hub        *broadcast.Hub
	filter     *debounce.Filter
	tracker    dedupe.Tracker
	queue      signalqueue.Queue
	workerPool *workerpool.Pool
	aggregator *report.Aggregator

	// Per-session write locks. Two classified events for the same
	// session serialize here; different sessions never contend.
	sessionMu sync.Map // session id -> *sync.Mutex

	// Configuration.
	workerCount        int
	queueSize          int
	dedupeSize         int
	broadcastBuffer    int
	focusLossWindow    time.Duration
	faceMissingWindow  time.Duration
	faceMissingSamples int

	// State.
	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithEventStore sets the event store backend.
func WithEventStore(s repository.EventStore) Option {
	return func(m *Monitor) {
		if s != nil {
			m.events = s
		}
	}
}

// WithSessionStore sets the session store backend.
func WithSessionStore(s repository.SessionStore) Option {
	return func(m *Monitor) {
		if s != nil {
			m.sessions = s
		}
	}
}

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(m *Monitor) {
		if count > 0 {
			m.workerCount = count
		}
	}
}

// WithQueueSize bounds the raw signal queue.
func WithQueueSize(size int) Option {
	return func(m *Monitor) {
		if size > 0 {
			m.queueSize = size
		}
	}
}

// WithDedupeSize caps the ingest idempotency cache.
func WithDedupeSize(size int) Option {
	return func(m *Monitor) {
		if size > 0 {
			m.dedupeSize = size
		}
	}
}

// WithBroadcastBuffer sets the per-observer channel buffer.
func WithBroadcastBuffer(size int) Option {
	return func(m *Monitor) {
		if size > 0 {
			m.broadcastBuffer = size
		}
	}
}

// WithFocusLossWindow sets the focus-loss stabilization window.
func WithFocusLossWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.focusLossWindow = d
		}
	}
}

// WithFaceMissingWindow sets the face-missing stabilization window.
func WithFaceMissingWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.faceMissingWindow = d
		}
	}
}

// WithFaceMissingSamples sets the absent-sample threshold that arms
// the face-missing timer.
func WithFaceMissingSamples(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.faceMissingSamples = n
		}
	}
}

// WithLogger sets a custom logger for the monitor.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// New constructs a Monitor with default configuration.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		workerCount:     runtime.NumCPU(),
		queueSize:       4096,
		dedupeSize:      50000,
		broadcastBuffer: 16,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start initializes and starts the pipeline components.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("monitor")
	}

	if m.events == nil || m.sessions == nil {
		store := repository.NewMemoryStore()
		if m.events == nil {
			m.events = store
		}
		if m.sessions == nil {
			m.sessions = store
		}
	}

	m.tracker = dedupe.NewMemoryTracker(dedupe.WithMaxEntries(m.dedupeSize))
	m.hub = broadcast.NewHub(broadcast.WithBufferSize(m.broadcastBuffer))
	m.aggregator = report.New(m.events, m.sessions)

	filterOpts := []debounce.Option{}
	if m.focusLossWindow > 0 {
		filterOpts = append(filterOpts, debounce.WithFocusLossWindow(m.focusLossWindow))
	}
	if m.faceMissingWindow > 0 {
		filterOpts = append(filterOpts, debounce.WithFaceMissingWindow(m.faceMissingWindow))
	}
	if m.faceMissingSamples > 0 {
		filterOpts = append(filterOpts, debounce.WithFaceMissingSamples(m.faceMissingSamples))
	}
	m.filter = debounce.New(m.onTransition, filterOpts...)

	m.queue = signalqueue.NewMemoryQueue(signalqueue.WithCapacity(m.queueSize))
	m.workerPool = workerpool.NewPool(m.workerCount, m.queue,
		workerpool.ProcessorFunc(m.process))
	m.workerPool.Start(ctx)

	m.started = true
	m.logger.Info(ctx, "monitor started",
		logger.Int("workers", m.workerCount),
		logger.Int("queueSize", m.queueSize),
	)
	return nil
}

// Stop gracefully shuts down the pipeline. Pending debounce timers are
// cancelled before the hub closes, so no stabilized transition can be
// emitted after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}
	ctx := context.Background()
	m.logger.Info(ctx, "stopping monitor...")

	m.filter.Stop()
	_ = m.queue.Close()
	m.workerPool.Stop()
	m.hub.Close()

	m.started = false
	m.logger.Info(ctx, "monitor stopped")
}

// Hub exposes the broadcaster for transport adapters.
func (m *Monitor) Hub() *broadcast.Hub { return m.hub }

// Reports exposes the report aggregator.
func (m *Monitor) Reports() *report.Aggregator { return m.aggregator }

// lockSession returns the per-session write lock, creating it on first
// use.
func (m *Monitor) lockSession(id string) *sync.Mutex {
	v, _ := m.sessionMu.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// StartSession creates and stores a new active session.
func (m *Monitor) StartSession(ctx context.Context, candidateName, candidateEmail, interviewer, notes string) (model.Session, error) {
	if n := len(candidateName); n < 2 || n > 100 {
		return model.Session{}, ErrInvalidCandidate
	}

	sess := model.Session{
		ID:             uuid.NewString(),
		CandidateName:  candidateName,
		CandidateEmail: candidateEmail,
		Interviewer:    interviewer,
		Notes:          notes,
		StartTime:      time.Now().UTC(),
		Status:         model.StatusActive,
	}
	if err := m.sessions.Put(ctx, sess); err != nil {
		return model.Session{}, err
	}

	m.updateSessionGauge(ctx)
	m.logger.Info(ctx, "session started",
		logger.String("session", sess.ID),
		logger.String("candidate", candidateName),
	)
	return sess, nil
}

// GetSession returns a session by id.
func (m *Monitor) GetSession(ctx context.Context, id string) (model.Session, error) {
	return m.sessions.Get(ctx, id)
}

// ListSessions returns sessions, optionally filtered by status.
func (m *Monitor) ListSessions(ctx context.Context, status model.SessionStatus) ([]model.Session, error) {
	return m.sessions.List(ctx, status)
}

// EndSession finalizes a session normally.
func (m *Monitor) EndSession(ctx context.Context, id, notes string) (model.Session, error) {
	return m.endWith(ctx, id, notes, model.StatusCompleted)
}

// TerminateSession finalizes a session abnormally.
func (m *Monitor) TerminateSession(ctx context.Context, id, notes string) (model.Session, error) {
	return m.endWith(ctx, id, notes, model.StatusTerminated)
}

// endWith runs the terminal transition. Pending debounce timers are
// cancelled synchronously before the session record goes terminal, so
// a late stabilized transition cannot mutate a finalized session. A
// second end request is rejected, not re-applied.
func (m *Monitor) endWith(ctx context.Context, id, notes string, status model.SessionStatus) (model.Session, error) {
	// Cancel timers before taking the session lock: the filter emits
	// under its own lock and emission takes the session lock, so the
	// reverse order here would deadlock.
	m.filter.CancelSession(id)

	lock := m.lockSession(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.sessions.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if sess.Status.Terminal() {
		m.sessionMu.Delete(id)
		return sess, ErrAlreadyEnded
	}

	endTime := time.Now().UTC()
	skewed := endTime.Before(sess.StartTime)
	duration := int(endTime.Sub(sess.StartTime).Seconds())
	if skewed {
		// Clock skew is surfaced, not silently fixed: the session is
		// terminated with zero duration and the caller sees the error.
		duration = 0
		status = model.StatusTerminated
	}

	events, err := m.events.ListBySession(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	score := scoring.Score(events)

	focusLost, suspicious := 0, 0
	for i := range events {
		if events[i].Kind == model.KindFocusLost {
			focusLost++
		}
		if events[i].Kind.Suspicious() {
			suspicious++
		}
	}

	sess.EndTime = &endTime
	sess.Duration = duration
	sess.Status = status
	sess.TotalEvents = len(events)
	sess.FocusLostCount = focusLost
	sess.SuspiciousCount = suspicious
	sess.IntegrityScore = &score
	if notes != "" {
		sess.Notes = notes
	}

	if err := m.sessions.Update(ctx, sess); err != nil {
		return model.Session{}, err
	}

	// A terminal session takes no more writes; its lock entry can go.
	m.sessionMu.Delete(id)

	metrics.RecordSessionEnded(string(status))
	metrics.ObserveIntegrityScore(score)
	m.updateSessionGauge(ctx)
	m.logger.Info(ctx, "session ended",
		logger.String("session", id),
		logger.String("status", string(status)),
		logger.Int("score", score),
		logger.Int("events", len(events)),
	)

	if skewed {
		return sess, ErrClockSkew
	}
	return sess, nil
}

// Observe feeds a raw detector signal into the pipeline. Non-blocking;
// returns false if the signal was dropped.
func (m *Monitor) Observe(ctx context.Context, sig model.DetectionSignal) bool {
	metrics.RecordSignalObserved()
	return m.queue.Enqueue(ctx, sig)
}

// Enqueue adapts Observe to the detector runner's sink interface.
func (m *Monitor) Enqueue(ctx context.Context, sig model.DetectionSignal) bool {
	return m.Observe(ctx, sig)
}

// process runs one dequeued signal through the debounce filter. Called
// from pipeline workers.
func (m *Monitor) process(ctx context.Context, sig model.DetectionSignal) error {
	sess, err := m.sessions.Get(ctx, sig.SessionID)
	if err != nil || sess.Status != model.StatusActive {
		// Unknown or finished session: drop, never queue.
		return nil
	}

	// Focus samples also drive the lightweight focus-status channel,
	// independent of the persisted event stream.
	if sig.Kind == model.KindFocusLost {
		m.hub.PublishFocus("", broadcast.FocusStatus{
			SessionID: sig.SessionID,
			Focused:   !sig.Active,
			Timestamp: sig.Timestamp,
		})
	}

	m.filter.Observe(sig)
	metrics.UpdatePendingTimers(m.filter.PendingTimers())
	return nil
}

// onTransition classifies a stabilized transition and records it.
// Append failures are logged inside record; internally debounced
// transitions have no caller to retry them.
func (m *Monitor) onTransition(t model.Transition) {
	rec := classify.Classify(t)
	_ = m.record(context.Background(), rec)
}

// record applies a classified event. The append is the commit point:
// if it fails nothing else happens and the error surfaces to the
// caller. Counter updates and the live broadcast follow the append;
// failures there are logged and never suppress each other.
func (m *Monitor) record(ctx context.Context, rec model.EventRecord) error {
	lock := m.lockSession(rec.SessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.sessions.Get(ctx, rec.SessionID)
	if err != nil || sess.Status.Terminal() {
		if err == nil {
			m.sessionMu.Delete(rec.SessionID)
		}
		// Late event after session end: dropped, not queued.
		m.logger.Debug(ctx, "dropping event for inactive session",
			logger.String("session", rec.SessionID),
			logger.String("kind", string(rec.Kind)),
		)
		return nil
	}

	if err := m.events.Append(ctx, rec); err != nil {
		metrics.RecordStoreAppendError()
		m.logger.Error(ctx, "event append failed",
			logger.String("session", rec.SessionID),
			logger.String("kind", string(rec.Kind)),
			logger.Error(err),
		)
		return fmt.Errorf("append event: %w", err)
	}

	sess.TotalEvents++
	if rec.Kind == model.KindFocusLost {
		sess.FocusLostCount++
	}
	if rec.Kind.Suspicious() {
		sess.SuspiciousCount++
	}
	if err := m.sessions.Update(ctx, sess); err != nil {
		m.logger.Error(ctx, "session counter update failed",
			logger.String("session", rec.SessionID),
			logger.Error(err),
		)
	}

	m.hub.Publish("", broadcast.Message{
		SessionID:   rec.SessionID,
		Kind:        rec.Kind,
		Description: rec.Description,
		Severity:    rec.Severity,
		Timestamp:   rec.Timestamp,
		Confidence:  rec.Confidence,
	})

	metrics.RecordEventClassified(string(rec.Kind), string(rec.Severity))
	return nil
}

// updateSessionGauge refreshes the active-session metric.
func (m *Monitor) updateSessionGauge(ctx context.Context) {
	active, err := m.sessions.List(ctx, model.StatusActive)
	if err != nil {
		return
	}
	metrics.UpdateSessionsActive(len(active))
}

// Stats returns service statistics for monitoring.
func (m *Monitor) Stats(ctx context.Context) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     m.started,
		"workerCount": m.workerCount,
		"queueSize":   m.queueSize,
	}
	if !m.started {
		return stats
	}

	sessionLocks := 0
	m.sessionMu.Range(func(_, _ any) bool {
		sessionLocks++
		return true
	})

	hubStats := m.hub.Stats()
	stats["queueLength"] = m.queue.Len(ctx)
	stats["pendingTimers"] = m.filter.PendingTimers()
	stats["dedupeEntries"] = m.tracker.Size()
	stats["sessionLocks"] = sessionLocks
	stats["broadcastTopics"] = hubStats.Topics
	stats["broadcastSent"] = hubStats.Sent
	stats["broadcastDropped"] = hubStats.Dropped

	metrics.UpdateBroadcastStats(hubStats.Topics, hubStats.Sent, hubStats.Dropped)
	metrics.UpdatePendingTimers(m.filter.PendingTimers())
	return stats
}
