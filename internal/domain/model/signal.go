package model

import "time"

// DetectionSignal is a raw, ephemeral detector sample. Signals are
// consumed by the debounce filter and discarded; they are never
// persisted.
type DetectionSignal struct {
	SessionID  string            // session the detector is watching
	Kind       Kind              // what the detector looks for
	Active     bool              // raw boolean state of the condition
	Confidence float64           // detector confidence in [0,1]
	Timestamp  time.Time         // sample time
	Metadata   map[string]string // optional detector metadata
}

// Transition is a stabilized state change emitted by the debounce
// filter: one per continuous active interval per kind.
type Transition struct {
	SessionID  string
	Kind       Kind
	Confidence float64
	Timestamp  time.Time
	Metadata   map[string]string
}
