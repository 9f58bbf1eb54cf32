package detector

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/logger"
)

// Sink accepts raw signals; the monitor's signal queue satisfies it.
type Sink interface {
	Enqueue(ctx context.Context, s model.DetectionSignal) bool
}

// Runner polls a set of detectors at their own cadences and feeds the
// sink. Each detector gets its own goroutine so a slow poll on one
// cannot delay the others.
type Runner struct {
	detectors []Detector
	sink      Sink
	logger    logger.Logger

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// NewRunner creates a runner over the given detectors.
func NewRunner(sink Sink, detectors ...Detector) *Runner {
	return &Runner{
		detectors: detectors,
		sink:      sink,
		logger:    logger.Get().Named("detector-runner"),
	}
}

// Start launches one polling loop per detector.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.stop = context.WithCancel(ctx)
	for _, d := range r.detectors {
		r.wg.Add(1)
		go r.poll(ctx, d)
	}
}

// Stop cancels all polling loops and waits for them to exit.
func (r *Runner) Stop() {
	if r.stop != nil {
		r.stop()
	}
	r.wg.Wait()
}

func (r *Runner) poll(ctx context.Context, d Detector) {
	defer r.wg.Done()

	ticker := time.NewTicker(d.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sig, err := d.Poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Warn(ctx, "detector poll failed",
					logger.String("kind", string(d.Kind())),
					logger.Error(err),
				)
				continue
			}
			r.sink.Enqueue(ctx, sig)
		}
	}
}
