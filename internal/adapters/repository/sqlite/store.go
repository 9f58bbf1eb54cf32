// Package sqlite implements the repository interfaces over a SQLite
// file so event logs and session records survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY,
	candidate_name   TEXT NOT NULL,
	candidate_email  TEXT NOT NULL,
	interviewer      TEXT NOT NULL,
	notes            TEXT NOT NULL DEFAULT '',
	start_time       INTEGER NOT NULL,
	end_time         INTEGER,
	duration         INTEGER NOT NULL DEFAULT 0,
	status           TEXT NOT NULL,
	total_events     INTEGER NOT NULL DEFAULT 0,
	focus_lost_count INTEGER NOT NULL DEFAULT 0,
	suspicious_count INTEGER NOT NULL DEFAULT 0,
	integrity_score  INTEGER
);

CREATE TABLE IF NOT EXISTS event_logs (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL,
	severity    TEXT NOT NULL,
	confidence  REAL NOT NULL,
	timestamp   INTEGER NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_event_logs_session
	ON event_logs (session_id, timestamp, seq);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements repository.EventStore and repository.SessionStore
// over a single SQLite file.
type Store struct {
	db *sql.DB
}

// Interface guards.
var (
	_ repository.EventStore   = (*Store)(nil)
	_ repository.SessionStore = (*Store)(nil)
)

// Open opens the store and bootstraps the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite db: %w", err)
	}
	return nil
}

// Append persists one event record.
func (s *Store) Append(ctx context.Context, rec model.EventRecord) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_logs (id, session_id, kind, description, severity, confidence, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, string(rec.Kind), rec.Description,
		string(rec.Severity), rec.Confidence, toMillis(rec.Timestamp), string(meta),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListBySession returns a session's records ordered by timestamp, ties
// broken by insertion order.
func (s *Store) ListBySession(ctx context.Context, sessionID string) ([]model.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, kind, description, severity, confidence, timestamp, metadata
		FROM event_logs
		WHERE session_id = ?
		ORDER BY timestamp ASC, seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns up to limit records at or after since, newest
// first.
func (s *Store) ListRecent(ctx context.Context, sessionID string, since time.Time, limit int) ([]model.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, kind, description, severity, confidence, timestamp, metadata
		FROM event_logs
		WHERE session_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?`, sessionID, toMillis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// CountBySession returns the number of records for a session.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_logs WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func scanEvents(rows *sql.Rows) ([]model.EventRecord, error) {
	var out []model.EventRecord
	for rows.Next() {
		var (
			rec      model.EventRecord
			kind     string
			severity string
			ts       int64
			meta     string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &kind, &rec.Description,
			&severity, &rec.Confidence, &ts, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Kind = model.Kind(kind)
		rec.Severity = model.Severity(severity)
		rec.Timestamp = fromMillis(ts)
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Put stores a new session record.
func (s *Store) Put(ctx context.Context, sess model.Session) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, candidate_name, candidate_email, interviewer, notes,
			start_time, end_time, duration, status,
			total_events, focus_lost_count, suspicious_count, integrity_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		sess.ID, sess.CandidateName, sess.CandidateEmail, sess.Interviewer, sess.Notes,
		toMillis(sess.StartTime), nullableMillis(sess.EndTime), sess.Duration, string(sess.Status),
		sess.TotalEvents, sess.FocusLostCount, sess.SuspiciousCount, nullableInt(sess.IntegrityScore),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrAlreadyExists
	}
	return nil
}

// Get returns a session by id.
func (s *Store) Get(ctx context.Context, id string) (model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_name, candidate_email, interviewer, notes,
			start_time, end_time, duration, status,
			total_events, focus_lost_count, suspicious_count, integrity_score
		FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Update overwrites an existing session.
func (s *Store) Update(ctx context.Context, sess model.Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET candidate_name = ?, candidate_email = ?, interviewer = ?, notes = ?,
			start_time = ?, end_time = ?, duration = ?, status = ?,
			total_events = ?, focus_lost_count = ?, suspicious_count = ?, integrity_score = ?
		WHERE id = ?`,
		sess.CandidateName, sess.CandidateEmail, sess.Interviewer, sess.Notes,
		toMillis(sess.StartTime), nullableMillis(sess.EndTime), sess.Duration, string(sess.Status),
		sess.TotalEvents, sess.FocusLostCount, sess.SuspiciousCount, nullableInt(sess.IntegrityScore),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns sessions filtered by status (empty matches all), newest
// start time first.
func (s *Store) List(ctx context.Context, status model.SessionStatus) ([]model.Session, error) {
	query := `
		SELECT id, candidate_name, candidate_email, interviewer, notes,
			start_time, end_time, duration, status,
			total_events, focus_lost_count, suspicious_count, integrity_score
		FROM sessions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY start_time DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (model.Session, error) {
	var (
		sess   model.Session
		start  int64
		end    sql.NullInt64
		status string
		score  sql.NullInt64
	)
	err := row.Scan(&sess.ID, &sess.CandidateName, &sess.CandidateEmail,
		&sess.Interviewer, &sess.Notes, &start, &end, &sess.Duration, &status,
		&sess.TotalEvents, &sess.FocusLostCount, &sess.SuspiciousCount, &score)
	if err != nil {
		return model.Session{}, err
	}
	sess.StartTime = fromMillis(start)
	sess.Status = model.SessionStatus(status)
	if end.Valid {
		t := fromMillis(end.Int64)
		sess.EndTime = &t
	}
	if score.Valid {
		v := int(score.Int64)
		sess.IntegrityScore = &v
	}
	return sess, nil
}

func nullableMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
