// Package detector defines the capability interface detection models
// implement, plus simulated detectors for development and load testing.
//
// The core only ever sees opaque confidence-scored signals; a real
// vision or audio model swaps in behind Detector without touching the
// pipeline.
package detector

import (
	"context"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Detector produces raw detection signals at its own cadence.
type Detector interface {
	// Kind identifies what this detector looks for.
	Kind() model.Kind

	// Interval is the detector's nominal sampling cadence.
	Interval() time.Duration

	// Poll takes one sample. Implementations honor ctx for
	// cancellation.
	Poll(ctx context.Context) (model.DetectionSignal, error)
}

// Nominal cadences of the detector families.
const (
	AttentionInterval = 100 * time.Millisecond // ~10 Hz gaze/face sampling
	ObjectInterval    = 500 * time.Millisecond // ~2 Hz object detection
	AudioInterval     = time.Second            // ~1 Hz audio analysis
)
