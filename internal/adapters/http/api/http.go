// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/report"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the monitor service.
type Dependencies interface {
	// Session lifecycle.
	StartSession(ctx context.Context, candidateName, candidateEmail, interviewer, notes string) (model.Session, error)
	EndSession(ctx context.Context, id, notes string) (model.Session, error)
	TerminateSession(ctx context.Context, id, notes string) (model.Session, error)
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListSessions(ctx context.Context, status model.SessionStatus) ([]model.Session, error)

	// Event ingestion from external detector adapters.
	Ingest(ctx context.Context, req app.IngestRequest) (model.EventRecord, bool, error)
}

// EventReader exposes the persisted event log for queries.
type EventReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]model.EventRecord, error)
	ListRecent(ctx context.Context, sessionID string, since time.Time, limit int) ([]model.EventRecord, error)
}

// Reporter builds session reports on demand.
type Reporter interface {
	Summary(ctx context.Context, sessionID string) (report.Summary, error)
	Rows(ctx context.Context, sessionID string) ([]report.Row, error)
	Narrative(ctx context.Context, sessionID string) (string, error)
	KindStats(ctx context.Context, sessionID string) (map[model.Kind]report.KindStat, error)
}

// Server wires HTTP routes for the proctoring API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	eventsHandler   *EventsHandler
	reportsHandler  *ReportsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, events EventReader, reports Reporter, statsProvider StatsProvider) *Server {
	reportsHandler := NewReportsHandler(reports)
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionsHandler: NewSessionsHandler(deps, events, reportsHandler),
		eventsHandler:   NewEventsHandler(deps),
		reportsHandler:  reportsHandler,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleSession, "session"))
}

// sessionResponse is the wire shape of a session record.
type sessionResponse struct {
	ID              string     `json:"id"`
	CandidateName   string     `json:"candidate_name"`
	CandidateEmail  string     `json:"candidate_email,omitempty"`
	Interviewer     string     `json:"interviewer,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Status          string     `json:"status"`
	TotalEvents     int        `json:"total_events"`
	FocusLostCount  int        `json:"focus_lost_count"`
	SuspiciousCount int        `json:"suspicious_count"`
	IntegrityScore  *int       `json:"integrity_score,omitempty"`
}

func toSessionResponse(s model.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		CandidateName:   s.CandidateName,
		CandidateEmail:  s.CandidateEmail,
		Interviewer:     s.Interviewer,
		Notes:           s.Notes,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationSeconds: s.Duration,
		Status:          string(s.Status),
		TotalEvents:     s.TotalEvents,
		FocusLostCount:  s.FocusLostCount,
		SuspiciousCount: s.SuspiciousCount,
		IntegrityScore:  s.IntegrityScore,
	}
}

// eventResponse is the wire shape of a recorded event.
type eventResponse struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	Kind        string            `json:"event_kind"`
	Description string            `json:"description"`
	Severity    string            `json:"severity"`
	Confidence  float64           `json:"confidence"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func toEventResponse(e model.EventRecord) eventResponse {
	return eventResponse{
		ID:          e.ID,
		SessionID:   e.SessionID,
		Kind:        string(e.Kind),
		Description: e.Description,
		Severity:    string(e.Severity),
		Confidence:  e.Confidence,
		Timestamp:   e.Timestamp,
		Metadata:    e.Metadata,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates monitor sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrAlreadyEnded), errors.Is(err, app.ErrSessionClosed):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, app.ErrInvalidKind),
		errors.Is(err, app.ErrInvalidDescription),
		errors.Is(err, app.ErrInvalidTimestamp),
		errors.Is(err, app.ErrInvalidConfidence),
		errors.Is(err, app.ErrInvalidCandidate):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, app.ErrClockSkew):
		writeError(w, http.StatusUnprocessableEntity, "clock_skew", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
