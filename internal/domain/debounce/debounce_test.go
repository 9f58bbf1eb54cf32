package debounce_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/vigil/internal/domain/debounce"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// recorder collects emitted transitions behind a mutex.
type recorder struct {
	mu          sync.Mutex
	transitions []model.Transition
}

func (r *recorder) emit(t model.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transitions)
}

func (r *recorder) last() model.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[len(r.transitions)-1]
}

func signal(session string, kind model.Kind, active bool) model.DetectionSignal {
	return model.DetectionSignal{
		SessionID:  session,
		Kind:       kind,
		Active:     active,
		Confidence: 0.9,
		Timestamp:  time.Now().UTC(),
	}
}

func TestFocusLossHysteresis(t *testing.T) {
	Convey("Given a filter with a short focus-loss window", t, func() {
		rec := &recorder{}
		f := debounce.New(rec.emit, debounce.WithFocusLossWindow(50*time.Millisecond))
		defer f.Stop()

		Convey("When focus stays lost past the full window", func() {
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(120 * time.Millisecond)

			Convey("Then exactly one transition is emitted", func() {
				So(rec.count(), ShouldEqual, 1)
				So(rec.last().Kind, ShouldEqual, model.KindFocusLost)
				So(rec.last().SessionID, ShouldEqual, "s1")
			})
		})

		Convey("When focus returns just before the window elapses", func() {
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(20 * time.Millisecond)
			f.Observe(signal("s1", model.KindFocusLost, false))
			time.Sleep(120 * time.Millisecond)

			Convey("Then nothing is emitted", func() {
				So(rec.count(), ShouldEqual, 0)
			})
		})

		Convey("When focus is lost, recovered, and lost again", func() {
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(120 * time.Millisecond)
			f.Observe(signal("s1", model.KindFocusLost, false))
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(120 * time.Millisecond)

			Convey("Then each sustained interval emits once", func() {
				So(rec.count(), ShouldEqual, 2)
			})
		})

		Convey("When repeated lost samples arrive within one interval", func() {
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(120 * time.Millisecond)
			f.Observe(signal("s1", model.KindFocusLost, true))
			f.Observe(signal("s1", model.KindFocusLost, true))
			time.Sleep(120 * time.Millisecond)

			Convey("Then the interval still emits only once", func() {
				So(rec.count(), ShouldEqual, 1)
			})
		})
	})
}

func TestFaceMissingHysteresis(t *testing.T) {
	Convey("Given a filter with a short face-missing policy", t, func() {
		rec := &recorder{}
		f := debounce.New(rec.emit,
			debounce.WithFaceMissingWindow(50*time.Millisecond),
			debounce.WithFaceMissingSamples(3),
		)
		defer f.Stop()

		Convey("When absence persists past the sample threshold and window", func() {
			for i := 0; i < 5; i++ {
				f.Observe(signal("s1", model.KindFaceMissing, true))
			}
			time.Sleep(120 * time.Millisecond)

			Convey("Then one face-missing transition is emitted", func() {
				So(rec.count(), ShouldEqual, 1)
				So(rec.last().Kind, ShouldEqual, model.KindFaceMissing)
			})
		})

		Convey("When absence never reaches the sample threshold", func() {
			f.Observe(signal("s1", model.KindFaceMissing, true))
			f.Observe(signal("s1", model.KindFaceMissing, true))
			time.Sleep(120 * time.Millisecond)

			Convey("Then no timer is armed and nothing is emitted", func() {
				So(rec.count(), ShouldEqual, 0)
			})
		})

		Convey("When a presence sample interrupts the absent run", func() {
			for i := 0; i < 5; i++ {
				f.Observe(signal("s1", model.KindFaceMissing, true))
			}
			f.Observe(signal("s1", model.KindFaceMissing, false))
			time.Sleep(120 * time.Millisecond)

			Convey("Then the armed timer is cancelled", func() {
				So(rec.count(), ShouldEqual, 0)
				So(f.PendingTimers(), ShouldEqual, 0)
			})
		})
	})
}

func TestEdgeTriggeredKinds(t *testing.T) {
	Convey("Given a filter observing an edge-triggered kind", t, func() {
		rec := &recorder{}
		f := debounce.New(rec.emit)
		defer f.Stop()

		Convey("When the condition turns active", func() {
			f.Observe(signal("s1", model.KindPhoneDetected, true))

			Convey("Then the transition is emitted immediately", func() {
				So(rec.count(), ShouldEqual, 1)
			})
		})

		Convey("When the condition stays active across samples", func() {
			f.Observe(signal("s1", model.KindPhoneDetected, true))
			f.Observe(signal("s1", model.KindPhoneDetected, true))
			f.Observe(signal("s1", model.KindPhoneDetected, true))

			Convey("Then repeats are suppressed", func() {
				So(rec.count(), ShouldEqual, 1)
			})
		})

		Convey("When the condition clears and re-fires", func() {
			f.Observe(signal("s1", model.KindPhoneDetected, true))
			f.Observe(signal("s1", model.KindPhoneDetected, false))
			f.Observe(signal("s1", model.KindPhoneDetected, true))

			Convey("Then the new edge emits again", func() {
				So(rec.count(), ShouldEqual, 2)
			})
		})

		Convey("When different kinds are active for the same session", func() {
			f.Observe(signal("s1", model.KindPhoneDetected, true))
			f.Observe(signal("s1", model.KindBookDetected, true))

			Convey("Then each kind debounces independently", func() {
				So(rec.count(), ShouldEqual, 2)
			})
		})
	})
}

func TestCancelSession(t *testing.T) {
	Convey("Given a filter with armed timers", t, func() {
		rec := &recorder{}
		f := debounce.New(rec.emit, debounce.WithFocusLossWindow(50*time.Millisecond))
		defer f.Stop()

		f.Observe(signal("s1", model.KindFocusLost, true))
		f.Observe(signal("s2", model.KindFocusLost, true))
		So(f.PendingTimers(), ShouldEqual, 2)

		Convey("When one session is cancelled", func() {
			f.CancelSession("s1")
			time.Sleep(120 * time.Millisecond)

			Convey("Then only the other session emits", func() {
				So(rec.count(), ShouldEqual, 1)
				So(rec.last().SessionID, ShouldEqual, "s2")
			})
		})

		Convey("When the filter is stopped", func() {
			f.Stop()
			time.Sleep(120 * time.Millisecond)

			Convey("Then nothing emits at all", func() {
				So(rec.count(), ShouldEqual, 0)
				So(f.PendingTimers(), ShouldEqual, 0)
			})
		})
	})
}

func TestSessionIsolation(t *testing.T) {
	Convey("Given samples from two sessions for the same kind", t, func() {
		rec := &recorder{}
		f := debounce.New(rec.emit, debounce.WithFocusLossWindow(30*time.Millisecond))
		defer f.Stop()

		f.Observe(signal("s1", model.KindFocusLost, true))
		f.Observe(signal("s2", model.KindFocusLost, true))
		// s1 recovers in time, s2 does not.
		f.Observe(signal("s1", model.KindFocusLost, false))
		time.Sleep(100 * time.Millisecond)

		Convey("Then only the unrecovered session emits", func() {
			So(rec.count(), ShouldEqual, 1)
			So(rec.last().SessionID, ShouldEqual, "s2")
		})
	})
}
