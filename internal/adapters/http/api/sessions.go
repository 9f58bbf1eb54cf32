// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// defaultEventLimit caps a since-only event query.
const defaultEventLimit = 100

// SessionsHandler handles session lifecycle and per-session queries.
type SessionsHandler struct {
	deps    Dependencies
	events  EventReader
	reports *ReportsHandler
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies, events EventReader, reports *ReportsHandler) *SessionsHandler {
	return &SessionsHandler{
		deps:    deps,
		events:  events,
		reports: reports,
	}
}

// startSessionRequest mirrors the wire schema for POST /sessions.
type startSessionRequest struct {
	CandidateName  string `json:"candidate_name"`
	CandidateEmail string `json:"candidate_email"`
	Interviewer    string `json:"interviewer"`
	Notes          string `json:"notes"`
}

// endSessionRequest mirrors the wire schema for session end requests.
type endSessionRequest struct {
	Notes string `json:"notes"`
}

// HandleSessions handles /sessions: POST starts a session, GET lists
// sessions with an optional ?status= filter.
func (h *SessionsHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, err := h.deps.StartSession(r.Context(),
		req.CandidateName, req.CandidateEmail, req.Interviewer, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *SessionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status := model.SessionStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.StatusActive &&
		status != model.StatusCompleted && status != model.StatusTerminated {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("unknown status filter"))
		return
	}
	sessions, err := h.deps.ListSessions(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]sessionResponse, len(sessions))
	for i := range sessions {
		out[i] = toSessionResponse(sessions[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSession routes /sessions/{id} and its sub-resources:
//
//	GET  /sessions/{id}               session record
//	POST /sessions/{id}/end           normal finalization
//	POST /sessions/{id}/terminate     abnormal finalization
//	GET  /sessions/{id}/events        persisted event log
//	GET  /sessions/{id}/events/stats  per-kind counts and mean confidence
//	GET  /sessions/{id}/report        report in ?format=summary|rows|narrative
func (h *SessionsHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	sub, tail, _ := strings.Cut(rest, "/")

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case sub == "end" && tail == "" && r.Method == http.MethodPost:
		h.handleEnd(w, r, id, false)
	case sub == "terminate" && tail == "" && r.Method == http.MethodPost:
		h.handleEnd(w, r, id, true)
	case sub == "events" && tail == "" && r.Method == http.MethodGet:
		h.handleEvents(w, r, id)
	case sub == "events" && tail == "stats" && r.Method == http.MethodGet:
		h.reports.HandleEventStats(w, r, id)
	case sub == "report" && tail == "" && r.Method == http.MethodGet:
		h.reports.HandleGetReport(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.deps.GetSession(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionsHandler) handleEnd(w http.ResponseWriter, r *http.Request, id string, terminate bool) {
	var req endSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}
	end := h.deps.EndSession
	if terminate {
		end = h.deps.TerminateSession
	}
	sess, err := end(r.Context(), id, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}

func (h *SessionsHandler) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	q := r.URL.Query()

	var since time.Time
	if raw := q.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid since; must be RFC3339"))
			return
		}
		since = parsed
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid limit"))
			return
		}
		limit = parsed
	}

	var (
		events []model.EventRecord
		err    error
	)
	if since.IsZero() && limit == 0 {
		events, err = h.events.ListBySession(r.Context(), id)
	} else {
		if limit == 0 {
			limit = defaultEventLimit
		}
		events, err = h.events.ListRecent(r.Context(), id, since, limit)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]eventResponse, len(events))
	for i := range events {
		out[i] = toEventResponse(events[i])
	}
	writeJSON(w, http.StatusOK, out)
}
