package scoring_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func input(sex model.Sex, birthYear int, height, weight, bodyFat float64) model.BodyScoreInput {
	return model.BodyScoreInput{
		Sex:            &sex,
		BirthYear:      &birthYear,
		HeightCm:       model.Float(height),
		WeightKg:       model.Float(weight),
		BodyFatPercent: model.Float(bodyFat),
	}
}

func TestFFMI(t *testing.T) {
	Convey("Given 90 kg at 12% body fat and 180 cm", t, func() {
		Convey("Then FFMI is lean mass over height squared with no correction", func() {
			So(scoring.FFMI(90, 12, 180), ShouldAlmostEqual, 79.2/3.24, 1e-9)
		})
	})

	Convey("Given a subject taller than the reference height", t, func() {
		Convey("Then the correction is negative and not clamped", func() {
			raw := 80.0 / (2.1 * 2.1)
			So(scoring.FFMI(80, 0, 210), ShouldAlmostEqual, raw+6.1*(1.8-2.1), 1e-9)
			So(scoring.FFMI(80, 0, 210), ShouldBeLessThan, raw)
		})
	})

	Convey("Given identical inputs", t, func() {
		Convey("Then results are bit-identical", func() {
			So(scoring.FFMI(77.3, 18.4, 171), ShouldEqual, scoring.FFMI(77.3, 18.4, 171))
		})
	})
}

func TestFFMIStatus(t *testing.T) {
	Convey("Given male bands", t, func() {
		So(scoring.FFMIStatus(model.SexMale, 17.99), ShouldEqual, scoring.StatusDeveloping)
		So(scoring.FFMIStatus(model.SexMale, 18), ShouldEqual, scoring.StatusSolidBase)
		So(scoring.FFMIStatus(model.SexMale, 20), ShouldEqual, scoring.StatusAthletic)
		So(scoring.FFMIStatus(model.SexMale, 22.5), ShouldEqual, scoring.StatusAdvanced)
		So(scoring.FFMIStatus(model.SexMale, 24.44), ShouldEqual, scoring.StatusAdvanced)
		So(scoring.FFMIStatus(model.SexMale, 25), ShouldEqual, scoring.StatusElite)
	})

	Convey("Given female bands", t, func() {
		So(scoring.FFMIStatus(model.SexFemale, 14.9), ShouldEqual, scoring.StatusDeveloping)
		So(scoring.FFMIStatus(model.SexFemale, 15), ShouldEqual, scoring.StatusSolidBase)
		So(scoring.FFMIStatus(model.SexFemale, 17), ShouldEqual, scoring.StatusAthletic)
		So(scoring.FFMIStatus(model.SexFemale, 19), ShouldEqual, scoring.StatusAdvanced)
		So(scoring.FFMIStatus(model.SexFemale, 21.5), ShouldEqual, scoring.StatusElite)
	})

	Convey("Given values off the ends of the real line", t, func() {
		for _, sex := range []model.Sex{model.SexMale, model.SexFemale} {
			So(scoring.FFMIStatus(sex, math.Inf(-1)), ShouldEqual, scoring.StatusDeveloping)
			So(scoring.FFMIStatus(sex, math.Inf(1)), ShouldEqual, scoring.StatusElite)
			So(scoring.FFMIStatus(sex, math.NaN()), ShouldEqual, scoring.StatusDeveloping)
		}
	})
}

func TestBand(t *testing.T) {
	Convey("Given the default male body fat band", t, func() {
		b := scoring.DefaultMaleBodyFat

		Convey("Then the midpoint scores 100 and the edges score the edge score", func() {
			So(b.Score(14), ShouldEqual, 100.0)
			So(b.Score(10), ShouldEqual, 80.0)
			So(b.Score(18), ShouldEqual, 80.0)
		})

		Convey("Then scores fall to zero at the falloff distance and stay there", func() {
			So(b.Score(3), ShouldEqual, 0.0)
			So(b.Score(35), ShouldEqual, 0.0)
			So(b.Score(60), ShouldEqual, 0.0)
			So(b.Score(26.5), ShouldAlmostEqual, 40.0, 1e-9)
		})

		Convey("Then shifting moves both edges", func() {
			s := b.Shift(2)
			So(s.Low, ShouldEqual, 12.0)
			So(s.High, ShouldEqual, 20.0)
			So(s.Score(16), ShouldEqual, 100.0)
		})
	})
}

func TestCalculate(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given the default calculator", t, func() {
		calc := scoring.NewCalculator()

		Convey("When scoring a 34 year old male at 90 kg, 12% and 180 cm", func() {
			res, err := calc.Calculate(input(model.SexMale, 1990, 180, 90, 12), date)

			Convey("Then every field is derived from the documented curve", func() {
				So(err, ShouldBeNil)
				So(res.Age, ShouldEqual, 34)
				So(res.FFMI, ShouldAlmostEqual, 24.4444, 1e-4)
				So(res.FFMIStatus, ShouldEqual, scoring.StatusAdvanced)
				So(res.FFMISubScore, ShouldAlmostEqual, 84.4444, 1e-4)
				So(res.BodyFatSubScore, ShouldAlmostEqual, 88.0, 1e-9)
				So(res.Score, ShouldEqual, 86)
				So(res.StatusTagline, ShouldEqual, scoring.TaglineStrongProgress)
			})

			Convey("And repeating the call gives the identical result", func() {
				again, err := calc.Calculate(input(model.SexMale, 1990, 180, 90, 12), date)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
			})
		})

		Convey("When the input is incomplete", func() {
			in := input(model.SexFemale, 1990, 165, 60, 25)
			in.BodyFatPercent = nil
			in.HeightCm = model.Float(-1)
			_, err := calc.Calculate(in, date)

			Convey("Then ErrIncompleteInput names the missing fields", func() {
				So(errors.Is(err, scoring.ErrIncompleteInput), ShouldBeTrue)
				var ie *scoring.IncompleteInputError
				So(errors.As(err, &ie), ShouldBeTrue)
				So(ie.Fields, ShouldResemble, []string{"height_cm", "body_fat_percent"})
			})
		})

		Convey("When scoring extreme inputs", func() {
			cases := []model.BodyScoreInput{
				input(model.SexMale, 1950, 150, 200, 60),
				input(model.SexFemale, 2010, 210, 35, 2),
				input(model.SexMale, 2030, 180, 90, 0),
				input(model.SexFemale, 1900, 120, 400, 99),
			}

			Convey("Then the score stays within 0 and 100", func() {
				for _, in := range cases {
					res, err := calc.Calculate(in, date)
					So(err, ShouldBeNil)
					So(res.Score, ShouldBeBetweenOrEqual, 0, 100)
					So(res.Age, ShouldBeGreaterThanOrEqualTo, 0)
				}
			})
		})
	})

	Convey("Given a calculator without an age effect and fat-only weighting", t, func() {
		calc := scoring.NewCalculator(scoring.WithAgeEffect(30, 0), scoring.WithWeights(0, 3))

		Convey("Then the score is the unshifted body fat sub-score", func() {
			res, err := calc.Calculate(input(model.SexMale, 1950, 180, 90, 14), date)
			So(err, ShouldBeNil)
			So(res.BodyFatSubScore, ShouldEqual, 100.0)
			So(res.Score, ShouldEqual, 100)
			So(res.StatusTagline, ShouldEqual, scoring.TaglineEliteCondition)
		})
	})

	Convey("Given custom bands for one sex", t, func() {
		wide := scoring.Band{Low: 0, High: 100, EdgeScore: 100, FalloffBelow: 1, FalloffAbove: 1}
		calc := scoring.NewCalculator(scoring.WithBands(model.SexFemale, wide, wide))

		Convey("Then only that sex is affected", func() {
			res, err := calc.Calculate(input(model.SexFemale, 1990, 165, 60, 25), date)
			So(err, ShouldBeNil)
			So(res.Score, ShouldEqual, 100)
		})
	})
}

func TestTagline(t *testing.T) {
	Convey("Given the tagline thresholds", t, func() {
		So(scoring.Tagline(0), ShouldEqual, scoring.TaglineNeedsFocus)
		So(scoring.Tagline(39), ShouldEqual, scoring.TaglineNeedsFocus)
		So(scoring.Tagline(40), ShouldEqual, scoring.TaglineBuildingMomentum)
		So(scoring.Tagline(69), ShouldEqual, scoring.TaglineBuildingMomentum)
		So(scoring.Tagline(70), ShouldEqual, scoring.TaglineStrongProgress)
		So(scoring.Tagline(89), ShouldEqual, scoring.TaglineStrongProgress)
		So(scoring.Tagline(90), ShouldEqual, scoring.TaglineEliteCondition)
		So(scoring.Tagline(100), ShouldEqual, scoring.TaglineEliteCondition)
	})
}

func TestCalculatorParams(t *testing.T) {
	Convey("Given the default calculator", t, func() {
		params := scoring.NewCalculator().Params()

		Convey("Then bands, weights and the age effect are listed", func() {
			So(params, ShouldHaveLength, 24)
			So(params[:5], ShouldResemble, []float64{20, 25, 80, 6, 6})
			So(params[20:], ShouldResemble, []float64{0.5, 0.5, 30, 1})
		})

		Convey("Then any changed setting changes the list", func() {
			So(scoring.NewCalculator(scoring.WithWeights(1, 3)).Params(), ShouldNotResemble, params)
			So(scoring.NewCalculator(scoring.WithAgeEffect(40, 1)).Params(), ShouldNotResemble, params)
			So(scoring.NewCalculator(scoring.WithBands(model.SexFemale, scoring.DefaultMaleFFMI, scoring.DefaultMaleBodyFat)).Params(), ShouldNotResemble, params)
		})
	})
}
