package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/bodymetrics/internal/app"
	"github.com/okian/bodymetrics/internal/adapters/repository"
	"github.com/okian/bodymetrics/internal/domain/cache"
	"github.com/okian/bodymetrics/internal/domain/engine"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
	"github.com/okian/bodymetrics/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(16))
		defer svc.Stop()

		Convey("Then it is not started", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And starting twice is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Samples(t *testing.T) {
	Convey("Given a service with a memory cache", t, func() {
		ctx := context.Background()
		mem := cache.NewMemory()
		svc := service.New(service.WithCache(mem))

		So(svc.RecordSample(ctx, "u1", model.MetricSample{Date: day(1, 1), WeightKg: model.Float(80)}), ShouldBeNil)
		So(svc.RecordSample(ctx, "u1", model.MetricSample{Date: day(1, 15), WeightKg: model.Float(78)}), ShouldBeNil)

		Convey("When estimating between samples", func() {
			r, err := svc.Estimate(ctx, "u1", model.KindWeight, day(1, 8), model.ModeRaw)

			Convey("Then the value is interpolated", func() {
				So(err, ShouldBeNil)
				So(r.Resolution, ShouldEqual, model.ResolutionInterpolated)
				So(r.Metric.Value, ShouldAlmostEqual, 79.0, 1e-9)
				So(mem.Len(), ShouldEqual, int64(1))
			})

			Convey("And recording a sample on that day replaces the estimate", func() {
				So(svc.RecordSample(ctx, "u1", model.MetricSample{Date: day(1, 8), WeightKg: model.Float(85)}), ShouldBeNil)
				So(mem.Len(), ShouldEqual, int64(0))

				r, err := svc.Estimate(ctx, "u1", model.KindWeight, day(1, 8), model.ModeRaw)
				So(err, ShouldBeNil)
				So(r.Resolution, ShouldEqual, model.ResolutionMeasured)
				So(r.Metric.Value, ShouldEqual, 85.0)
			})
		})

		Convey("When deleting a sample", func() {
			So(svc.DeleteSample(ctx, "u1", day(1, 15)), ShouldBeNil)

			r, err := svc.Estimate(ctx, "u1", model.KindWeight, day(1, 8), model.ModeRaw)
			So(err, ShouldBeNil)
			So(r.Resolution, ShouldEqual, model.ResolutionLastKnown)
			So(r.Metric.Value, ShouldEqual, 80.0)
		})

		Convey("When deleting a day without a sample", func() {
			err := svc.DeleteSample(ctx, "u1", day(2, 1))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When charting a range", func() {
			points, err := svc.Chart(ctx, "u1", model.KindWeight, day(1, 1), day(1, 15), model.ModeRaw)
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 15)
			So(points[14].Metric.Value, ShouldEqual, 78.0)
		})
	})
}

func TestService_Score(t *testing.T) {
	Convey("Given a user with weight and body fat on one day", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.RecordSample(ctx, "u1", model.MetricSample{
			Date:           day(6, 1),
			WeightKg:       model.Float(90),
			BodyFatPercent: model.Float(12),
		}), ShouldBeNil)

		Convey("When no profile is stored", func() {
			res, err := svc.Score(ctx, "u1", day(6, 1), model.ModeRaw)

			Convey("Then the input is incomplete and names the profile fields", func() {
				So(errors.Is(err, scoring.ErrIncompleteInput), ShouldBeTrue)
				var incomplete *scoring.IncompleteInputError
				So(errors.As(err, &incomplete), ShouldBeTrue)
				So(incomplete.Fields, ShouldResemble, []string{"sex", "birth_year", "height_cm"})
				So(res.Weight.Metric.Value, ShouldEqual, 90.0)
			})
		})

		Convey("When a profile is stored", func() {
			So(svc.SetProfile(ctx, model.Profile{UserID: "u1", Sex: model.SexMale, BirthYear: 1990, HeightCm: 180}), ShouldBeNil)
			res, err := svc.Score(ctx, "u1", day(6, 1), model.ModeRaw)

			Convey("Then the score is calculated", func() {
				So(err, ShouldBeNil)
				So(res.Result.Score, ShouldEqual, 86)
				So(res.Result.FFMIStatus, ShouldEqual, scoring.StatusAdvanced)
				So(res.Result.Age, ShouldEqual, 34)
			})

			Convey("And the profile is readable", func() {
				p, err := svc.Profile(ctx, "u1")
				So(err, ShouldBeNil)
				So(p.HeightCm, ShouldEqual, 180.0)
			})
		})
	})
}

func TestService_Prewarm(t *testing.T) {
	Convey("Given a service with a small range limit", t, func() {
		ctx := context.Background()
		mem := cache.NewMemory()
		svc := service.New(
			service.WithWorkerCount(1),
			service.WithEngine(engine.New(engine.WithCache(mem), engine.WithMaxRangeDays(60))),
		)
		defer svc.Stop()
		So(svc.RecordSample(ctx, "u1", model.MetricSample{Date: day(1, 1), WeightKg: model.Float(80), BodyFatPercent: model.Float(20)}), ShouldBeNil)

		Convey("When it is not started", func() {
			_, err := svc.Prewarm(ctx, "u1", day(1, 1), day(1, 10))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When the range is invalid", func() {
			So(svc.Start(ctx), ShouldBeNil)
			_, err := svc.Prewarm(ctx, "u1", day(1, 10), day(1, 1))
			So(errors.Is(err, service.ErrInvalidRange), ShouldBeTrue)

			_, err = svc.Prewarm(ctx, "u1", day(1, 1), day(6, 1))
			So(errors.Is(err, engine.ErrRangeTooLarge), ShouldBeTrue)
		})

		Convey("When started and a job is enqueued", func() {
			So(svc.Start(ctx), ShouldBeNil)
			id, err := svc.Prewarm(ctx, "u1", day(1, 1), day(1, 10))
			So(err, ShouldBeNil)
			So(id, ShouldNotBeEmpty)

			Convey("Then the workers fill the cache for every target", func() {
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) && svc.GetStats()["jobsProcessed"] != int64(1) {
					time.Sleep(10 * time.Millisecond)
				}
				stats := svc.GetStats()
				So(stats["jobsProcessed"], ShouldEqual, int64(1))
				So(stats["estimatesWarmed"], ShouldEqual, int64(30))
				So(mem.Len(), ShouldEqual, int64(30))
			})
		})

		Convey("When stopped with jobs still queued", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.RecordSample(ctx, "u2", model.MetricSample{Date: day(1, 1), WeightKg: model.Float(70), BodyFatPercent: model.Float(25)}), ShouldBeNil)
			_, err := svc.Prewarm(ctx, "u1", day(1, 1), day(1, 10))
			So(err, ShouldBeNil)
			_, err = svc.Prewarm(ctx, "u2", day(1, 1), day(1, 10))
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then every job was finished before Stop returned", func() {
				So(mem.Len(), ShouldEqual, int64(60))
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}
