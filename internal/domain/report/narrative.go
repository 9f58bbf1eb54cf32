package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/vigil/internal/domain/model"
)

// Narrative renders the summary as formatted text sections for human
// review. The byte format of richer exports (PDF, spreadsheets) is an
// external collaborator's concern; this is the data laid out in prose.
func (a *Aggregator) Narrative(ctx context.Context, sessionID string) (string, error) {
	s, err := a.Summary(ctx, sessionID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PROCTORING REPORT\n=================\n\n")
	fmt.Fprintf(&b, "Session:   %s\n", s.SessionID)
	fmt.Fprintf(&b, "Candidate: %s\n", s.CandidateName)
	fmt.Fprintf(&b, "Status:    %s\n", s.Status)
	fmt.Fprintf(&b, "Duration:  %d minutes\n\n", s.DurationSeconds/60)

	fmt.Fprintf(&b, "Statistics\n----------\n")
	fmt.Fprintf(&b, "Integrity score: %d/100\n", s.IntegrityScore)
	fmt.Fprintf(&b, "Total events:    %d\n", s.TotalEvents)
	fmt.Fprintf(&b, "Risk level:      %s\n\n", s.RiskLevel)

	if len(s.Breakdown) > 0 {
		fmt.Fprintf(&b, "Event breakdown\n---------------\n")
		for _, kind := range model.Kinds() {
			if n, ok := s.Breakdown[kind]; ok {
				fmt.Fprintf(&b, "%-20s %d\n", prettyKind(string(kind)), n)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "Analysis\n--------\n")
	fmt.Fprintf(&b, "Focus pattern:       %s (%d incidents)\n", s.Focus.Pattern, s.Focus.TotalFocusLoss)
	fmt.Fprintf(&b, "Suspicious activity: %d events, %d critical\n\n", s.Suspicious.TotalSuspicious, s.Suspicious.CriticalEvents)

	fmt.Fprintf(&b, "Recommendations\n---------------\n")
	for _, rec := range s.Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return b.String(), nil
}

// prettyKind upper-cases an event kind for display.
func prettyKind(kind string) string {
	return strings.ToUpper(strings.ReplaceAll(kind, "_", " "))
}
