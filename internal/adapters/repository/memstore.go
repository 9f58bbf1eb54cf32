package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// seqRecord pairs a record with its insertion sequence so timestamp
// ties keep arrival order.
type seqRecord struct {
	rec model.EventRecord
	seq uint64
}

// MemoryStore implements EventStore and SessionStore in memory. It is
// the default backend and the one integration tests run against.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string][]seqRecord // session id -> ordered records
	sessions map[string]model.Session
	nextSeq  uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:   make(map[string][]seqRecord),
		sessions: make(map[string]model.Session),
	}
}

// Append persists a record, keeping the per-session slice ordered by
// timestamp with insertion order breaking ties.
func (m *MemoryStore) Append(_ context.Context, rec model.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	list := append(m.events[rec.SessionID], seqRecord{rec: rec, seq: m.nextSeq})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].rec.Timestamp.Equal(list[j].rec.Timestamp) {
			return list[i].seq < list[j].seq
		}
		return list[i].rec.Timestamp.Before(list[j].rec.Timestamp)
	})
	m.events[rec.SessionID] = list
	return nil
}

// ListBySession returns a copy of the session's ordered records.
func (m *MemoryStore) ListBySession(_ context.Context, sessionID string) ([]model.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.events[sessionID]
	out := make([]model.EventRecord, len(list))
	for i := range list {
		out[i] = list[i].rec
	}
	return out, nil
}

// ListRecent returns up to limit records at or after since, newest
// first.
func (m *MemoryStore) ListRecent(_ context.Context, sessionID string, since time.Time, limit int) ([]model.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.events[sessionID]
	out := make([]model.EventRecord, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		if list[i].rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, list[i].rec)
	}
	return out, nil
}

// CountBySession returns the number of records for a session.
func (m *MemoryStore) CountBySession(_ context.Context, sessionID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events[sessionID]), nil
}

// Put stores a new session record.
func (m *MemoryStore) Put(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return ErrAlreadyExists
	}
	m.sessions[s.ID] = s
	return nil
}

// Get returns a session by id.
func (m *MemoryStore) Get(_ context.Context, id string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

// Update overwrites an existing session.
func (m *MemoryStore) Update(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

// List returns sessions filtered by status (empty status matches all),
// newest start time first.
func (m *MemoryStore) List(_ context.Context, status model.SessionStatus) ([]model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}
