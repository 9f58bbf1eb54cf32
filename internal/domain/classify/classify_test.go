package classify_test

import (
	"testing"
	"time"

	"github.com/okian/vigil/internal/domain/classify"
	"github.com/okian/vigil/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeverityFor(t *testing.T) {
	Convey("Given the severity table", t, func() {
		Convey("Then presence violations are high", func() {
			So(classify.SeverityFor(model.KindMultipleFaces), ShouldEqual, model.SeverityHigh)
			So(classify.SeverityFor(model.KindFaceMissing), ShouldEqual, model.SeverityHigh)
		})

		Convey("Then attention drift is low", func() {
			So(classify.SeverityFor(model.KindFocusLost), ShouldEqual, model.SeverityLow)
			So(classify.SeverityFor(model.KindDrowsiness), ShouldEqual, model.SeverityLow)
		})

		Convey("Then prohibited objects are critical", func() {
			So(classify.SeverityFor(model.KindPhoneDetected), ShouldEqual, model.SeverityCritical)
			So(classify.SeverityFor(model.KindBookDetected), ShouldEqual, model.SeverityCritical)
			So(classify.SeverityFor(model.KindDeviceDetected), ShouldEqual, model.SeverityCritical)
		})

		Convey("Then everything else defaults to medium", func() {
			So(classify.SeverityFor(model.KindAudioAnomaly), ShouldEqual, model.SeverityMedium)
			So(classify.SeverityFor(model.KindScreenShare), ShouldEqual, model.SeverityMedium)
			So(classify.SeverityFor(model.KindTabSwitch), ShouldEqual, model.SeverityMedium)
		})
	})
}

func TestDescription(t *testing.T) {
	Convey("Given the description templates", t, func() {
		Convey("Then every kind has deterministic text", func() {
			for _, kind := range model.Kinds() {
				So(classify.Description(kind), ShouldNotBeEmpty)
				So(classify.Description(kind), ShouldEqual, classify.Description(kind))
			}
		})

		Convey("Then the phone description matches the template", func() {
			So(classify.Description(model.KindPhoneDetected),
				ShouldEqual, "Mobile phone detected in the video frame")
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a stabilized transition", t, func() {
		ts := time.Now().UTC()
		tr := model.Transition{
			SessionID:  "sess-1",
			Kind:       model.KindPhoneDetected,
			Confidence: 0.93,
			Timestamp:  ts,
			Metadata:   map[string]string{"camera": "front"},
		}

		Convey("When it is classified", func() {
			rec := classify.Classify(tr)

			Convey("Then the record carries the transition detail", func() {
				So(rec.ID, ShouldNotBeEmpty)
				So(rec.SessionID, ShouldEqual, "sess-1")
				So(rec.Kind, ShouldEqual, model.KindPhoneDetected)
				So(rec.Severity, ShouldEqual, model.SeverityCritical)
				So(rec.Confidence, ShouldEqual, 0.93)
				So(rec.Timestamp.Equal(ts), ShouldBeTrue)
				So(rec.Metadata["camera"], ShouldEqual, "front")
			})
		})

		Convey("When the transition has no confidence", func() {
			tr.Confidence = 0
			rec := classify.Classify(tr)

			Convey("Then the default confidence applies", func() {
				So(rec.Confidence, ShouldEqual, model.DefaultConfidence)
			})
		})

		Convey("When two transitions are classified", func() {
			a := classify.Classify(tr)
			b := classify.Classify(tr)

			Convey("Then each record gets its own id", func() {
				So(a.ID, ShouldNotEqual, b.ID)
			})
		})
	})
}
