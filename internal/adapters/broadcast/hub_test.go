package broadcast_test

import (
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/broadcast"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func message(session string) broadcast.Message {
	return broadcast.Message{
		SessionID:   session,
		Kind:        model.KindPhoneDetected,
		Description: "Mobile phone detected in the video frame",
		Severity:    model.SeverityCritical,
		Timestamp:   time.Now().UTC(),
		Confidence:  0.9,
	}
}

func TestHubFanOut(t *testing.T) {
	Convey("Given a hub with subscribers on one session", t, func() {
		hub := broadcast.NewHub()
		defer hub.Close()

		a := hub.Subscribe("s1", "conn-a")
		b := hub.Subscribe("s1", "conn-b")
		other := hub.Subscribe("s2", "conn-c")

		Convey("When a message is published for the session", func() {
			hub.Publish("", message("s1"))

			Convey("Then every subscriber of that session receives it", func() {
				So(len(a.Events()), ShouldEqual, 1)
				So(len(b.Events()), ShouldEqual, 1)
			})

			Convey("Then other sessions see nothing", func() {
				So(len(other.Events()), ShouldEqual, 0)
			})
		})

		Convey("When the originator publishes", func() {
			hub.Publish("conn-a", message("s1"))

			Convey("Then the originating connection is excluded", func() {
				So(len(a.Events()), ShouldEqual, 0)
				So(len(b.Events()), ShouldEqual, 1)
			})
		})

		Convey("When a subscriber unsubscribes", func() {
			hub.Unsubscribe("s1", "conn-b")
			hub.Publish("", message("s1"))

			Convey("Then it no longer receives messages", func() {
				So(len(a.Events()), ShouldEqual, 1)
				So(len(b.Events()), ShouldEqual, 0)
			})
		})
	})
}

func TestHubSlowObserver(t *testing.T) {
	Convey("Given a hub with a tiny observer buffer", t, func() {
		hub := broadcast.NewHub(broadcast.WithBufferSize(2))
		defer hub.Close()

		slow := hub.Subscribe("s1", "conn-slow")

		Convey("When more messages are published than the buffer holds", func() {
			for i := 0; i < 5; i++ {
				hub.Publish("", message("s1"))
			}

			Convey("Then the overflow is dropped, never blocking", func() {
				So(len(slow.Events()), ShouldEqual, 2)
				stats := hub.Stats()
				So(stats.Sent, ShouldEqual, 2)
				So(stats.Dropped, ShouldEqual, 3)
			})
		})
	})
}

func TestHubDisconnect(t *testing.T) {
	Convey("Given an observer subscribed to several sessions", t, func() {
		hub := broadcast.NewHub()
		defer hub.Close()

		hub.Subscribe("s1", "conn-a")
		hub.Subscribe("s2", "conn-a")
		hub.Subscribe("s1", "conn-b")

		Convey("When the connection disconnects", func() {
			hub.Disconnect("conn-a")

			Convey("Then it is removed from every topic", func() {
				So(hub.Subscribers("s1"), ShouldEqual, 1)
				So(hub.Subscribers("s2"), ShouldEqual, 0)
			})
		})
	})
}

func TestHubFocusChannel(t *testing.T) {
	Convey("Given a subscribed observer", t, func() {
		hub := broadcast.NewHub()
		defer hub.Close()

		obs := hub.Subscribe("s1", "conn-a")

		Convey("When a focus status is published", func() {
			hub.PublishFocus("", broadcast.FocusStatus{
				SessionID: "s1", Focused: false, Timestamp: time.Now().UTC(),
			})

			Convey("Then it arrives on the focus channel, not the event channel", func() {
				So(len(obs.Focus()), ShouldEqual, 1)
				So(len(obs.Events()), ShouldEqual, 0)
			})
		})
	})
}

func TestHubClose(t *testing.T) {
	Convey("Given a closed hub", t, func() {
		hub := broadcast.NewHub()
		hub.Subscribe("s1", "conn-a")
		hub.Close()

		Convey("When subscribing after close", func() {
			So(hub.Subscribe("s1", "conn-b"), ShouldBeNil)
		})

		Convey("When publishing after close", func() {
			hub.Publish("", message("s1"))

			Convey("Then nothing is delivered", func() {
				So(hub.Stats().Sent, ShouldEqual, 0)
			})
		})
	})
}
