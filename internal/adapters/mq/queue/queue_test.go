package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/mq/queue"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sig(session string) model.DetectionSignal {
	return model.DetectionSignal{
		SessionID:  session,
		Kind:       model.KindFocusLost,
		Active:     true,
		Confidence: 0.9,
		Timestamp:  time.Now().UTC(),
	}
}

func TestMemoryQueue(t *testing.T) {
	Convey("Given a bounded memory queue", t, func() {
		ctx := context.Background()

		Convey("When signals are enqueued within capacity", func() {
			q := queue.NewMemoryQueue(queue.WithCapacity(4))
			defer q.Close()

			So(q.Enqueue(ctx, sig("s1")), ShouldBeTrue)
			So(q.Enqueue(ctx, sig("s1")), ShouldBeTrue)

			Convey("Then the length reflects the backlog", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is full", func() {
			q := queue.NewMemoryQueue(queue.WithCapacity(1))
			defer q.Close()

			So(q.Enqueue(ctx, sig("s1")), ShouldBeTrue)

			Convey("Then the next enqueue is dropped, not blocked", func() {
				So(q.Enqueue(ctx, sig("s1")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})

		Convey("When signals are dequeued", func() {
			q := queue.NewMemoryQueue(queue.WithCapacity(4))
			q.Enqueue(ctx, sig("s1"))
			q.Enqueue(ctx, sig("s2"))

			out := q.Dequeue(ctx)
			first := <-out
			second := <-out

			Convey("Then arrival order is preserved", func() {
				So(first.SessionID, ShouldEqual, "s1")
				So(second.SessionID, ShouldEqual, "s2")
			})

			Convey("Then closing drains and closes the channel", func() {
				So(q.Close(), ShouldBeNil)
				_, open := <-out
				So(open, ShouldBeFalse)
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewMemoryQueue(queue.WithCapacity(4))
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue refuses new signals", func() {
				So(q.Enqueue(ctx, sig("s1")), ShouldBeFalse)
			})

			Convey("Then closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})
	})
}
