// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/internal/domain/model"
)

// EventsHandler handles event ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the wire schema for POST /events.
type eventRequest struct {
	EventID     string            `json:"event_id"`
	SessionID   string            `json:"session_id"`
	Kind        string            `json:"event_kind"`
	Description string            `json:"description"`
	Confidence  float64           `json:"confidence"`
	TS          string            `json:"ts"`
	Metadata    map[string]string `json:"metadata"`
}

func (e eventRequest) validate() error {
	switch {
	case e.SessionID == "":
		return errors.New("missing session_id")
	case e.Kind == "":
		return errors.New("missing event_kind")
	case e.TS == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests: a stabilized event
// from an external detector adapter, validated and recorded.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ts, _ := time.Parse(time.RFC3339, req.TS)

	rec, recorded, err := h.deps.Ingest(r.Context(), app.IngestRequest{
		EventID:     req.EventID,
		SessionID:   req.SessionID,
		Kind:        model.Kind(req.Kind),
		Description: req.Description,
		Confidence:  req.Confidence,
		Timestamp:   ts,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !recorded {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: rec.ID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: rec.ID, Duplicate: false})
}
