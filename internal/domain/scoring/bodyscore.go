package scoring

import (
	"math"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

const (
	minScore       = 0
	maxScore       = 100
	yearsPerDecade = 10
)

// Status taglines derived from the final score.
const (
	TaglineNeedsFocus       = "Needs focus"
	TaglineBuildingMomentum = "Building momentum"
	TaglineStrongProgress   = "Strong progress"
	TaglineEliteCondition   = "Elite condition"
)

type bands struct {
	ffmi    Band
	bodyFat Band
}

// Calculator turns a complete BodyScoreInput into a BodyScoreResult. It holds
// configuration only; Calculate reads no clock and keeps no state.
type Calculator struct {
	bands             map[model.Sex]bands
	ffmiWeight        float64
	bodyFatWeight     float64
	ageReference      int
	ageShiftPerDecade float64
}

// NewCalculator creates a calculator with configuration options.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		bands: map[model.Sex]bands{
			model.SexMale:   {ffmi: DefaultMaleFFMI, bodyFat: DefaultMaleBodyFat},
			model.SexFemale: {ffmi: DefaultFemaleFFMI, bodyFat: DefaultFemaleBodyFat},
		},
		ffmiWeight:        defaultFFMIWeight,
		bodyFatWeight:     defaultBodyFatWeight,
		ageReference:      defaultAgeReference,
		ageShiftPerDecade: defaultAgeBodyFatShiftPerDecade,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate scores in as of calculationDate. Only the year of the date is used.
func (c *Calculator) Calculate(in model.BodyScoreInput, calculationDate time.Time) (model.BodyScoreResult, error) {
	if missing := in.MissingFields(); len(missing) > 0 {
		return model.BodyScoreResult{}, &IncompleteInputError{Fields: missing}
	}

	sex := *in.Sex
	b := c.bands[sex]
	age := Age(*in.BirthYear, calculationDate)

	ffmi := FFMI(*in.WeightKg, *in.BodyFatPercent, *in.HeightCm)
	ffmiSub := b.ffmi.Score(ffmi)
	fatSub := b.bodyFat.Shift(c.ageShift(age)).Score(*in.BodyFatPercent)

	score := int(math.Round(c.ffmiWeight*ffmiSub + c.bodyFatWeight*fatSub))
	score = max(minScore, min(maxScore, score))

	return model.BodyScoreResult{
		Score:           score,
		FFMI:            ffmi,
		FFMIStatus:      FFMIStatus(sex, ffmi),
		StatusTagline:   Tagline(score),
		FFMISubScore:    ffmiSub,
		BodyFatSubScore: fatSub,
		Age:             age,
	}, nil
}

// Params lists every setting that affects Calculate, in a fixed order.
func (c *Calculator) Params() []float64 {
	out := make([]float64, 0, 24)
	for _, sex := range []model.Sex{model.SexMale, model.SexFemale} {
		b := c.bands[sex]
		for _, band := range []Band{b.ffmi, b.bodyFat} {
			out = append(out, band.Low, band.High, band.EdgeScore, band.FalloffBelow, band.FalloffAbove)
		}
	}
	return append(out, c.ffmiWeight, c.bodyFatWeight, float64(c.ageReference), c.ageShiftPerDecade)
}

func (c *Calculator) ageShift(age int) float64 {
	over := age - c.ageReference
	if over <= 0 {
		return 0
	}
	return float64(over) / yearsPerDecade * c.ageShiftPerDecade
}

// Age returns the age in whole years on date, by year only. Birth years in the
// future give 0.
func Age(birthYear int, date time.Time) int {
	return max(0, date.Year()-birthYear)
}

// Tagline maps a final score to its status text.
func Tagline(score int) string {
	switch {
	case score >= 90:
		return TaglineEliteCondition
	case score >= 70:
		return TaglineStrongProgress
	case score >= 40:
		return TaglineBuildingMomentum
	default:
		return TaglineNeedsFocus
	}
}
