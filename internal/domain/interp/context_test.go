package interp_test

import (
	"testing"
	"time"

	"github.com/okian/bodymetrics/internal/domain/interp"
	"github.com/okian/bodymetrics/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weight(t time.Time, kg float64) model.MetricSample {
	return model.MetricSample{Date: t, WeightKg: model.Float(kg), Source: model.Source{Kind: model.SourceManual}}
}

func TestContextEstimate(t *testing.T) {
	Convey("Given weights of 80 on Jan 1 and 78 on Jan 15", t, func() {
		c := interp.Build(model.KindWeight, []model.MetricSample{
			weight(day(2024, 1, 1), 80),
			weight(day(2024, 1, 15), 78),
		})

		Convey("When querying a sampled day", func() {
			m, ok := c.Estimate(day(2024, 1, 15).Add(13 * time.Hour))

			Convey("Then the measurement is returned with high confidence", func() {
				So(ok, ShouldBeTrue)
				So(m.Value, ShouldEqual, 78.0)
				So(m.IsInterpolated, ShouldBeFalse)
				So(m.IsLastKnown, ShouldBeFalse)
				So(m.Confidence, ShouldEqual, model.ConfidenceHigh)
			})
		})

		Convey("When querying halfway between the samples", func() {
			m, ok := c.Estimate(day(2024, 1, 8))

			Convey("Then the value is linear and confidence follows the 14 day gap", func() {
				So(ok, ShouldBeTrue)
				So(m.Value, ShouldAlmostEqual, 79.0, 1e-9)
				So(m.IsInterpolated, ShouldBeTrue)
				So(m.IsLastKnown, ShouldBeFalse)
				So(m.Confidence, ShouldEqual, model.ConfidenceMedium)
			})
		})

		Convey("When querying after the last sample", func() {
			m, ok := c.Estimate(day(2024, 2, 1))

			Convey("Then the last value is held flat", func() {
				So(ok, ShouldBeTrue)
				So(m.Value, ShouldEqual, 78.0)
				So(m.IsInterpolated, ShouldBeTrue)
				So(m.IsLastKnown, ShouldBeTrue)
				So(m.Confidence, ShouldEqual, model.ConfidenceMedium)
			})
		})

		Convey("When querying long before the first sample", func() {
			m, ok := c.Estimate(day(2023, 11, 1))

			Convey("Then the first value is held flat with low confidence", func() {
				So(ok, ShouldBeTrue)
				So(m.Value, ShouldEqual, 80.0)
				So(m.IsLastKnown, ShouldBeTrue)
				So(m.Confidence, ShouldEqual, model.ConfidenceLow)
			})
		})

		Convey("When walking every day between the samples", func() {
			points := c.Range(day(2024, 1, 1), day(2024, 1, 15))

			Convey("Then values never leave the bracketing interval and never increase", func() {
				So(points, ShouldHaveLength, 15)
				prev := 81.0
				for _, p := range points {
					So(p.Known(), ShouldBeTrue)
					So(p.Metric.Value, ShouldBeBetweenOrEqual, 78.0, 80.0)
					So(p.Metric.Value, ShouldBeLessThanOrEqualTo, prev)
					prev = p.Metric.Value
				}
				So(points[0].Resolution, ShouldEqual, model.ResolutionMeasured)
				So(points[7].Resolution, ShouldEqual, model.ResolutionInterpolated)
			})
		})

		Convey("When the range is inverted", func() {
			So(c.Range(day(2024, 1, 15), day(2024, 1, 1)), ShouldBeNil)
		})
	})

	Convey("Given an empty series", t, func() {
		c := interp.Build(model.KindWeight, nil)

		Convey("Then no estimate exists and the result resolves to unknown", func() {
			_, ok := c.Estimate(day(2024, 1, 1))
			So(ok, ShouldBeFalse)

			r := c.Resolve(day(2024, 1, 1))
			So(r.Resolution, ShouldEqual, model.ResolutionUnknown)
			So(r.Metric, ShouldBeNil)
		})
	})

	Convey("Given samples that carry only the other metric", t, func() {
		c := interp.Build(model.KindBodyFat, []model.MetricSample{weight(day(2024, 1, 1), 80)})

		Convey("Then they are skipped", func() {
			_, ok := c.Estimate(day(2024, 1, 1))
			So(ok, ShouldBeFalse)
			So(c.Kind(), ShouldEqual, model.KindBodyFat)
		})
	})
}

func TestConfidenceBoundaries(t *testing.T) {
	Convey("Given gaps on either side of each threshold", t, func() {
		cases := []struct {
			gap  int
			want model.Confidence
		}{
			{gap: 7, want: model.ConfidenceHigh},
			{gap: 8, want: model.ConfidenceMedium},
			{gap: 30, want: model.ConfidenceMedium},
			{gap: 31, want: model.ConfidenceLow},
		}

		for _, tc := range cases {
			start := day(2024, 3, 1)
			c := interp.Build(model.KindWeight, []model.MetricSample{
				weight(start, 70),
				weight(start.AddDate(0, 0, tc.gap), 72),
			})
			m, ok := c.Estimate(start.AddDate(0, 0, 1))
			So(ok, ShouldBeTrue)
			So(m.Confidence, ShouldEqual, tc.want)
			So(interp.ConfidenceForGap(float64(tc.gap)), ShouldEqual, tc.want)
		}
	})
}
