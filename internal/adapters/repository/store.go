// Package repository defines the narrow persistence interfaces the core
// depends on: an append-only event store and a session record store.
// The core never assumes a specific storage engine.
package repository

import (
	"context"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// EventStore is the append-only log of classified event records.
type EventStore interface {
	// Append persists a record exactly once. Records are immutable
	// after this call.
	Append(ctx context.Context, rec model.EventRecord) error

	// ListBySession returns a session's records ordered by timestamp,
	// ties broken by insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]model.EventRecord, error)

	// ListRecent returns up to limit records for a session with
	// timestamps at or after the since bound, newest first.
	ListRecent(ctx context.Context, sessionID string, since time.Time, limit int) ([]model.EventRecord, error)

	// CountBySession returns the number of records for a session.
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// SessionStore holds session records.
type SessionStore interface {
	// Put stores a new session. Returns ErrAlreadyExists if the id is
	// taken.
	Put(ctx context.Context, s model.Session) error

	// Get returns a session by id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Session, error)

	// Update overwrites an existing session or returns ErrNotFound.
	Update(ctx context.Context, s model.Session) error

	// List returns sessions, optionally filtered by status, newest
	// start time first.
	List(ctx context.Context, status model.SessionStatus) ([]model.Session, error)
}
