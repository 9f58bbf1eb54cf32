package scoring_test

import (
	"testing"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func events(kinds ...model.Kind) []model.EventRecord {
	out := make([]model.EventRecord, len(kinds))
	for i, k := range kinds {
		out[i] = model.EventRecord{Kind: k}
	}
	return out
}

func TestDeduction(t *testing.T) {
	Convey("Given the deduction table", t, func() {
		Convey("Then focus loss deducts 2", func() {
			So(scoring.Deduction(model.KindFocusLost), ShouldEqual, 2)
		})

		Convey("Then suspicious kinds deduct 5", func() {
			So(scoring.Deduction(model.KindPhoneDetected), ShouldEqual, 5)
			So(scoring.Deduction(model.KindBookDetected), ShouldEqual, 5)
			So(scoring.Deduction(model.KindDeviceDetected), ShouldEqual, 5)
			So(scoring.Deduction(model.KindMultipleFaces), ShouldEqual, 5)
		})

		Convey("Then face missing deducts 15", func() {
			So(scoring.Deduction(model.KindFaceMissing), ShouldEqual, 15)
		})

		Convey("Then untabled kinds deduct nothing", func() {
			So(scoring.Deduction(model.KindDrowsiness), ShouldEqual, 0)
			So(scoring.Deduction(model.KindAudioAnomaly), ShouldEqual, 0)
			So(scoring.Deduction(model.KindTabSwitch), ShouldEqual, 0)
		})
	})
}

func TestScore(t *testing.T) {
	Convey("Given the scoring fold", t, func() {
		Convey("When there are no events", func() {
			So(scoring.Score(nil), ShouldEqual, scoring.MaxScore)
		})

		Convey("When a mixed set of events is scored", func() {
			// 2 + 5 + 15 = 22 in deductions.
			set := events(model.KindFocusLost, model.KindPhoneDetected, model.KindFaceMissing)

			So(scoring.Score(set), ShouldEqual, 78)
			So(scoring.TotalDeductions(set), ShouldEqual, 22)
		})

		Convey("When six focus losses and one face missing are scored", func() {
			set := events(
				model.KindFocusLost, model.KindFocusLost, model.KindFocusLost,
				model.KindFocusLost, model.KindFocusLost, model.KindFocusLost,
				model.KindFaceMissing,
			)

			So(scoring.Score(set), ShouldEqual, 73)
		})

		Convey("When deductions exceed the maximum", func() {
			set := make([]model.EventRecord, 10)
			for i := range set {
				set[i] = model.EventRecord{Kind: model.KindFaceMissing}
			}

			Convey("Then the score clamps at zero", func() {
				So(scoring.Score(set), ShouldEqual, scoring.MinScore)
			})
		})

		Convey("When the same events are scored in a different order", func() {
			a := events(model.KindFocusLost, model.KindFaceMissing, model.KindPhoneDetected)
			b := events(model.KindPhoneDetected, model.KindFocusLost, model.KindFaceMissing)

			Convey("Then the scores agree", func() {
				So(scoring.Score(a), ShouldEqual, scoring.Score(b))
			})
		})
	})
}
