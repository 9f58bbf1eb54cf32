package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/vigil/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryTracker(t *testing.T) {
	Convey("Given a new memory tracker", t, func() {
		ctx := context.Background()

		Convey("When recording a fresh id", func() {
			tr := dedupe.NewMemoryTracker()
			seen := tr.SeenAndRecord(ctx, "event-1")

			Convey("Then it is not seen and gets recorded", func() {
				So(seen, ShouldBeFalse)
				So(tr.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording the same id twice", func() {
			tr := dedupe.NewMemoryTracker()
			tr.SeenAndRecord(ctx, "event-1")
			seen := tr.SeenAndRecord(ctx, "event-1")

			Convey("Then the second submission is a duplicate", func() {
				So(seen, ShouldBeTrue)
				So(tr.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is forgotten", func() {
			tr := dedupe.NewMemoryTracker()
			tr.SeenAndRecord(ctx, "event-1")
			tr.Forget(ctx, "event-1")

			Convey("Then it can be recorded again", func() {
				So(tr.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			})
		})

		Convey("When the entry cap is exceeded", func() {
			tr := dedupe.NewMemoryTracker(dedupe.WithMaxEntries(3))
			for i := 0; i < 5; i++ {
				tr.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
			}

			Convey("Then the oldest ids are evicted first", func() {
				So(tr.Size(), ShouldEqual, 3)
				So(tr.SeenAndRecord(ctx, "event-4"), ShouldBeTrue)
				So(tr.SeenAndRecord(ctx, "event-0"), ShouldBeFalse) // evicted, re-recorded
			})
		})

		Convey("When many goroutines record concurrently", func() {
			tr := dedupe.NewMemoryTracker()
			var wg sync.WaitGroup
			duplicates := make([]int, 8)
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if tr.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)) {
							duplicates[g]++
						}
					}
				}(g)
			}
			wg.Wait()

			Convey("Then each id is recorded exactly once", func() {
				So(tr.Size(), ShouldEqual, 100)
				total := 0
				for _, d := range duplicates {
					total += d
				}
				So(total, ShouldEqual, 700)
			})
		})
	})
}
