// Package model contains domain models passed between layers.
package model

import "time"

// Kind identifies the category of a detection event. The set is closed;
// unknown kinds are rejected at the ingestion boundary.
type Kind string

// Detection event kinds.
const (
	KindFocusLost      Kind = "focus_lost"
	KindFaceMissing    Kind = "face_missing"
	KindMultipleFaces  Kind = "multiple_faces"
	KindPhoneDetected  Kind = "phone_detected"
	KindBookDetected   Kind = "book_detected"
	KindDeviceDetected Kind = "device_detected"
	KindDrowsiness     Kind = "drowsiness_detected"
	KindAudioAnomaly   Kind = "audio_anomaly"
	KindScreenShare    Kind = "screen_share"
	KindTabSwitch      Kind = "tab_switch"
)

// Kinds lists every valid event kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindFocusLost,
		KindFaceMissing,
		KindMultipleFaces,
		KindPhoneDetected,
		KindBookDetected,
		KindDeviceDetected,
		KindDrowsiness,
		KindAudioAnomaly,
		KindScreenShare,
		KindTabSwitch,
	}
}

// Valid reports whether k is a member of the closed kind enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindFocusLost, KindFaceMissing, KindMultipleFaces,
		KindPhoneDetected, KindBookDetected, KindDeviceDetected,
		KindDrowsiness, KindAudioAnomaly, KindScreenShare, KindTabSwitch:
		return true
	}
	return false
}

// Suspicious reports whether k counts toward the session's
// suspicious-event counter.
func (k Kind) Suspicious() bool {
	switch k {
	case KindPhoneDetected, KindBookDetected, KindDeviceDetected, KindMultipleFaces:
		return true
	}
	return false
}

// Severity grades how serious a classified event is.
type Severity string

// Severity levels, lowest to highest.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultConfidence is assumed when a detector supplies no confidence.
const DefaultConfidence = 0.8

// EventRecord is the persisted, append-only record of a stabilized
// detection. Records are created exactly once per stabilized transition
// and never mutated afterwards. Ordering within a session is by
// Timestamp with insertion order breaking ties.
type EventRecord struct {
	ID          string            // unique record id
	SessionID   string            // owning session
	Kind        Kind              // event kind
	Description string            // human-readable description
	Severity    Severity          // classified severity
	Confidence  float64           // detector confidence in [0,1]
	Timestamp   time.Time         // when the condition stabilized
	Metadata    map[string]string // free-form detector metadata
}
