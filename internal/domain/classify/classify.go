// Package classify maps stabilized detector transitions to typed,
// severity-graded event records.
package classify

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/okian/vigil/internal/domain/model"
)

// SeverityFor returns the fixed severity for an event kind. Kinds
// outside the explicit table default to medium.
func SeverityFor(kind model.Kind) model.Severity {
	switch kind {
	case model.KindMultipleFaces, model.KindFaceMissing:
		return model.SeverityHigh
	case model.KindFocusLost, model.KindDrowsiness:
		return model.SeverityLow
	case model.KindPhoneDetected, model.KindBookDetected, model.KindDeviceDetected:
		return model.SeverityCritical
	default:
		return model.SeverityMedium
	}
}

// descriptions holds the deterministic human-readable text per kind.
var descriptions = map[model.Kind]string{
	model.KindFocusLost:      "Candidate looked away from the screen for an extended period",
	model.KindFaceMissing:    "No face detected in the video frame for over 10 seconds",
	model.KindMultipleFaces:  "Multiple faces detected in the video frame",
	model.KindPhoneDetected:  "Mobile phone detected in the video frame",
	model.KindBookDetected:   "Book or printed notes detected in the video frame",
	model.KindDeviceDetected: "Unauthorized electronic device detected in the video frame",
	model.KindDrowsiness:     "Candidate appears drowsy or inattentive",
	model.KindAudioAnomaly:   "Background voice or unexpected audio detected",
	model.KindScreenShare:    "Screen sharing activity detected",
	model.KindTabSwitch:      "Candidate switched away from the exam tab",
}

// Description returns the fixed template text for a kind.
func Description(kind model.Kind) string {
	if d, ok := descriptions[kind]; ok {
		return d
	}
	return fmt.Sprintf("Anomaly of kind %s detected", kind)
}

// Classify builds the event record for a stabilized transition. The
// record id is assigned here; confidence falls back to the default when
// the detector supplied none.
func Classify(t model.Transition) model.EventRecord {
	confidence := t.Confidence
	if confidence <= 0 {
		confidence = model.DefaultConfidence
	}
	return model.EventRecord{
		ID:          uuid.NewString(),
		SessionID:   t.SessionID,
		Kind:        t.Kind,
		Description: Description(t.Kind),
		Severity:    SeverityFor(t.Kind),
		Confidence:  confidence,
		Timestamp:   t.Timestamp,
		Metadata:    t.Metadata,
	}
}
