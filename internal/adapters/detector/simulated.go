package detector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
)

// Default simulation parameters.
const (
	defaultActiveProbability = 0.05
	defaultRandomSeed        = 42
	minConfidence            = 0.6
)

// Simulated is a stand-in detector that flags its condition active with
// a fixed probability per sample. Deterministic under a fixed seed.
type Simulated struct {
	sessionID string
	kind      model.Kind
	interval  time.Duration
	prob      float64

	mu  sync.Mutex
	rng *rand.Rand
}

// SimOption applies a configuration option to a Simulated detector.
type SimOption func(*Simulated)

// WithInterval overrides the sampling cadence.
func WithInterval(d time.Duration) SimOption {
	return func(s *Simulated) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithActiveProbability sets the chance a sample reports the condition
// active.
func WithActiveProbability(p float64) SimOption {
	return func(s *Simulated) {
		if p >= 0 && p <= 1 {
			s.prob = p
		}
	}
}

// WithSeed fixes the random seed for reproducible runs.
func WithSeed(seed int64) SimOption {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed for reproducible simulation
	}
}

// NewSimulated creates a simulated detector for one session and kind.
func NewSimulated(sessionID string, kind model.Kind, opts ...SimOption) *Simulated {
	s := &Simulated{
		sessionID: sessionID,
		kind:      kind,
		interval:  intervalFor(kind),
		prob:      defaultActiveProbability,
		rng:       rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind identifies what this detector looks for.
func (s *Simulated) Kind() model.Kind { return s.kind }

// Interval is the detector's sampling cadence.
func (s *Simulated) Interval() time.Duration { return s.interval }

// Poll takes one simulated sample.
func (s *Simulated) Poll(ctx context.Context) (model.DetectionSignal, error) {
	if err := ctx.Err(); err != nil {
		return model.DetectionSignal{}, err
	}

	s.mu.Lock()
	active := s.rng.Float64() < s.prob
	confidence := minConfidence + (1-minConfidence)*s.rng.Float64()
	s.mu.Unlock()

	return model.DetectionSignal{
		SessionID:  s.sessionID,
		Kind:       s.kind,
		Active:     active,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}, nil
}

// intervalFor maps a kind to its detector family's cadence.
func intervalFor(kind model.Kind) time.Duration {
	switch kind {
	case model.KindFocusLost, model.KindFaceMissing, model.KindMultipleFaces, model.KindDrowsiness:
		return AttentionInterval
	case model.KindPhoneDetected, model.KindBookDetected, model.KindDeviceDetected:
		return ObjectInterval
	default:
		return AudioInterval
	}
}
