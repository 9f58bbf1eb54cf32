// Package report reduces a session's event log into observer-facing
// summaries.
//
// The aggregator never trusts the cached score on the session record:
// it recomputes from the event list through the scoring fold, so a
// report can never drift from the log it claims to describe.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/scoring"
)

// RiskLevel buckets a session's overall exposure.
type RiskLevel string

// Risk levels.
const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// focusPattern thresholds.
const (
	moderateFocusLoss  = 5
	excessiveFocusLoss = 10
	lowScoreThreshold  = 70
)

// FocusPattern describes the session's attention profile.
type FocusPattern struct {
	TotalFocusLoss    int     `json:"total_focus_loss"`
	AverageConfidence float64 `json:"average_confidence"`
	Pattern           string  `json:"pattern"` // MINIMAL, MODERATE, FREQUENT
}

// SuspiciousActivity rolls up object and presence violations.
type SuspiciousActivity struct {
	TotalSuspicious int `json:"total_suspicious"`
	CriticalEvents  int `json:"critical_events"`
}

// KindStat aggregates one event kind: how often it fired and the mean
// detection confidence across those firings.
type KindStat struct {
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// Summary is the structured report for one session.
type Summary struct {
	SessionID       string                  `json:"session_id"`
	CandidateName   string                  `json:"candidate_name"`
	Status          model.SessionStatus     `json:"status"`
	DurationSeconds int                     `json:"duration_seconds"`
	TotalEvents     int                     `json:"total_events"`
	IntegrityScore  int                     `json:"integrity_score"`
	TotalDeductions int                     `json:"total_deductions"`
	Breakdown       map[model.Kind]int      `json:"event_breakdown"`
	Stats           map[model.Kind]KindStat `json:"event_stats"`
	RiskLevel       RiskLevel               `json:"risk_level"`
	Recommendations []string                `json:"recommendations"`
	Focus           FocusPattern            `json:"focus_pattern"`
	Suspicious      SuspiciousActivity      `json:"suspicious_activity"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Row is one exportable line of the tabular form. Column order is
// fixed: timestamp, event kind, description, severity, confidence.
type Row struct {
	Timestamp   time.Time      `json:"timestamp"`
	Kind        model.Kind     `json:"event_kind"`
	Description string         `json:"description"`
	Severity    model.Severity `json:"severity"`
	Confidence  float64        `json:"confidence"`
}

// Columns names the tabular columns in export order.
func Columns() []string {
	return []string{"timestamp", "event_kind", "description", "severity", "confidence"}
}

// Aggregator builds reports from the stores on demand.
type Aggregator struct {
	events   repository.EventStore
	sessions repository.SessionStore
}

// New creates an aggregator over the given stores.
func New(events repository.EventStore, sessions repository.SessionStore) *Aggregator {
	return &Aggregator{events: events, sessions: sessions}
}

// Summary reduces the session's event log into a structured summary.
// A session with zero events yields a well-formed summary: score 100,
// risk LOW.
func (a *Aggregator) Summary(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("load session: %w", err)
	}
	events, err := a.events.ListBySession(ctx, sessionID)
	if err != nil {
		return Summary{}, fmt.Errorf("load events: %w", err)
	}

	stats := kindStats(events)
	breakdown := make(map[model.Kind]int, len(stats))
	for kind, st := range stats {
		breakdown[kind] = st.Count
	}

	s := Summary{
		SessionID:       sess.ID,
		CandidateName:   sess.CandidateName,
		Status:          sess.Status,
		DurationSeconds: sess.Duration,
		TotalEvents:     len(events),
		IntegrityScore:  scoring.Score(events),
		TotalDeductions: scoring.TotalDeductions(events),
		Breakdown:       breakdown,
		Stats:           stats,
		Focus:           focusPattern(events),
		Suspicious:      suspiciousActivity(events),
		GeneratedAt:     time.Now().UTC(),
	}
	s.RiskLevel = riskLevel(breakdown)
	s.Recommendations = recommendations(breakdown, s.IntegrityScore)
	return s, nil
}

// Rows returns the flattened tabular form, one row per event record in
// session order.
func (a *Aggregator) Rows(ctx context.Context, sessionID string) ([]Row, error) {
	if _, err := a.sessions.Get(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	events, err := a.events.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	rows := make([]Row, len(events))
	for i := range events {
		rows[i] = Row{
			Timestamp:   events[i].Timestamp,
			Kind:        events[i].Kind,
			Description: events[i].Description,
			Severity:    events[i].Severity,
			Confidence:  events[i].Confidence,
		}
	}
	return rows, nil
}

// KindStats groups the session's event log by kind, pairing each kind
// with its occurrence count and mean confidence.
func (a *Aggregator) KindStats(ctx context.Context, sessionID string) (map[model.Kind]KindStat, error) {
	if _, err := a.sessions.Get(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	events, err := a.events.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return kindStats(events), nil
}

// kindStats folds the event list into per-kind count and mean
// confidence.
func kindStats(events []model.EventRecord) map[model.Kind]KindStat {
	stats := make(map[model.Kind]KindStat)
	sums := make(map[model.Kind]float64)
	for i := range events {
		k := events[i].Kind
		st := stats[k]
		st.Count++
		stats[k] = st
		sums[k] += events[i].Confidence
	}
	for k, st := range stats {
		st.AverageConfidence = sums[k] / float64(st.Count)
		stats[k] = st
	}
	return stats
}

// riskLevel applies the consistent risk table: any phone, device, or
// multiple-faces event is HIGH; more than five focus losses is MEDIUM;
// everything else is LOW.
func riskLevel(breakdown map[model.Kind]int) RiskLevel {
	critical := breakdown[model.KindPhoneDetected] +
		breakdown[model.KindDeviceDetected] +
		breakdown[model.KindMultipleFaces]
	switch {
	case critical > 0:
		return RiskHigh
	case breakdown[model.KindFocusLost] > moderateFocusLoss:
		return RiskMedium
	default:
		return RiskLow
	}
}

// recommendations generates the ordered advice list from fixed rules.
func recommendations(breakdown map[model.Kind]int, score int) []string {
	var recs []string
	if riskLevel(breakdown) == RiskHigh {
		recs = append(recs, "Critical violations detected - manual review required")
	}
	if breakdown[model.KindPhoneDetected] > 0 {
		recs = append(recs, "Mobile phone usage detected - violation of exam rules")
	}
	if breakdown[model.KindMultipleFaces] > 0 {
		recs = append(recs, "Multiple faces detected - unauthorized person present")
	}
	if n := breakdown[model.KindFocusLost]; n > excessiveFocusLoss {
		recs = append(recs, "Excessive focus loss - candidate attention issues")
	} else if n > moderateFocusLoss {
		recs = append(recs, "Multiple focus loss incidents - candidate may need additional monitoring")
	}
	if score < lowScoreThreshold {
		recs = append(recs, "Low integrity score - consider additional verification")
	}
	if len(recs) == 0 {
		recs = append(recs, "No significant violations detected - interview appears legitimate")
	}
	return recs
}

// focusPattern classifies the attention profile.
func focusPattern(events []model.EventRecord) FocusPattern {
	total := 0
	sum := 0.0
	for i := range events {
		if events[i].Kind == model.KindFocusLost {
			total++
			sum += events[i].Confidence
		}
	}
	fp := FocusPattern{TotalFocusLoss: total, Pattern: "MINIMAL"}
	if total > 0 {
		fp.AverageConfidence = sum / float64(total)
	}
	switch {
	case total > excessiveFocusLoss:
		fp.Pattern = "FREQUENT"
	case total > moderateFocusLoss:
		fp.Pattern = "MODERATE"
	}
	return fp
}

// suspiciousActivity counts object and presence violations.
func suspiciousActivity(events []model.EventRecord) SuspiciousActivity {
	var sa SuspiciousActivity
	for i := range events {
		if events[i].Kind.Suspicious() {
			sa.TotalSuspicious++
		}
		if events[i].Severity == model.SeverityCritical {
			sa.CriticalEvents++
		}
	}
	return sa
}
