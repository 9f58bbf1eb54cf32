package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vigil/internal/domain/classify"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// IngestRequest is a stabilized event submitted by an external
// adapter, bypassing the debounce filter.
type IngestRequest struct {
	// EventID is optional. When set, re-submissions with the same id
	// are absorbed instead of recorded twice.
	EventID     string
	SessionID   string
	Kind        model.Kind
	Description string
	Confidence  float64
	Timestamp   time.Time
	Metadata    map[string]string
}

// Description length bounds for ingested events.
const (
	minDescriptionLen = 5
	maxDescriptionLen = 500
)

// Ingest validates and records an externally stabilized event. The
// returned bool reports whether the event was recorded; a duplicate
// submission returns (record, false, nil).
func (m *Monitor) Ingest(ctx context.Context, req IngestRequest) (model.EventRecord, bool, error) {
	if !req.Kind.Valid() {
		metrics.RecordIngestRejected("invalid_kind")
		return model.EventRecord{}, false, ErrInvalidKind
	}
	if n := len(req.Description); n < minDescriptionLen || n > maxDescriptionLen {
		metrics.RecordIngestRejected("invalid_description")
		return model.EventRecord{}, false, ErrInvalidDescription
	}
	if req.Timestamp.IsZero() {
		metrics.RecordIngestRejected("invalid_timestamp")
		return model.EventRecord{}, false, ErrInvalidTimestamp
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		metrics.RecordIngestRejected("invalid_confidence")
		return model.EventRecord{}, false, ErrInvalidConfidence
	}

	sess, err := m.sessions.Get(ctx, req.SessionID)
	if err != nil {
		metrics.RecordIngestRejected("unknown_session")
		return model.EventRecord{}, false, err
	}
	if sess.Status.Terminal() {
		metrics.RecordIngestRejected("session_closed")
		return model.EventRecord{}, false, ErrSessionClosed
	}

	rec := model.EventRecord{
		ID:          req.EventID,
		SessionID:   req.SessionID,
		Kind:        req.Kind,
		Description: req.Description,
		Severity:    classify.SeverityFor(req.Kind),
		Confidence:  req.Confidence,
		Timestamp:   req.Timestamp.UTC(),
		Metadata:    req.Metadata,
	}
	dedupeKey := ""
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else {
		dedupeKey = req.SessionID + "/" + rec.ID
		if m.tracker.SeenAndRecord(ctx, dedupeKey) {
			metrics.RecordEventDuplicate()
			return rec, false, nil
		}
	}
	if rec.Confidence == 0 {
		rec.Confidence = model.DefaultConfidence
	}

	if err := m.record(ctx, rec); err != nil {
		// Nothing was persisted, so the id must stay retryable.
		if dedupeKey != "" {
			m.tracker.Forget(ctx, dedupeKey)
		}
		return model.EventRecord{}, false, err
	}
	return rec, true, nil
}
