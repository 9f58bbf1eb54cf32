// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"sort"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/report"
)

// ReportsHandler serves session reports.
type ReportsHandler struct {
	reports Reporter
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(reports Reporter) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// rowsResponse pairs the fixed column order with the row data so
// export collaborators never have to guess the layout.
type rowsResponse struct {
	Columns []string     `json:"columns"`
	Rows    []report.Row `json:"rows"`
}

// HandleGetReport serves GET /sessions/{id}/report. The format query
// parameter selects the shape: summary (default), rows, or narrative.
func (h *ReportsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "summary":
		summary, err := h.reports.Summary(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case "rows":
		rows, err := h.reports.Rows(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rowsResponse{Columns: report.Columns(), Rows: rows})
	case "narrative":
		text, err := h.reports.Narrative(r.Context(), sessionID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(text))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadFormat)
	}
}

// kindStatResponse is one per-kind aggregation line.
type kindStatResponse struct {
	Kind              model.Kind `json:"event_kind"`
	Count             int        `json:"count"`
	AverageConfidence float64    `json:"average_confidence"`
}

// HandleEventStats serves GET /sessions/{id}/events/stats: per-kind
// event counts with mean confidence, ordered by kind.
func (h *ReportsHandler) HandleEventStats(w http.ResponseWriter, r *http.Request, sessionID string) {
	stats, err := h.reports.KindStats(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]kindStatResponse, 0, len(stats))
	for kind, st := range stats {
		out = append(out, kindStatResponse{
			Kind:              kind,
			Count:             st.Count,
			AverageConfidence: st.AverageConfidence,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	writeJSON(w, http.StatusOK, out)
}
