package scoring

import "github.com/okian/bodymetrics/internal/domain/model"

// Default calculator configuration constants.
const (
	defaultFFMIWeight               = 0.5
	defaultBodyFatWeight            = 0.5
	defaultAgeReference             = 30
	defaultAgeBodyFatShiftPerDecade = 1.0
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithBands replaces the reference bands used for sex.
func WithBands(sex model.Sex, ffmi, bodyFat Band) Option {
	return func(c *Calculator) {
		if sex.Valid() {
			c.bands[sex] = bands{ffmi: ffmi, bodyFat: bodyFat}
		}
	}
}

// WithWeights sets the relative weight of the two sub-scores. They are
// normalized to sum to one.
func WithWeights(ffmi, bodyFat float64) Option {
	return func(c *Calculator) {
		if ffmi >= 0 && bodyFat >= 0 && ffmi+bodyFat > 0 {
			c.ffmiWeight = ffmi / (ffmi + bodyFat)
			c.bodyFatWeight = bodyFat / (ffmi + bodyFat)
		}
	}
}

// WithAgeEffect moves the body-fat band up by shiftPerDecade percentage points
// for every decade of age past reference. A zero shift disables the effect.
func WithAgeEffect(reference int, shiftPerDecade float64) Option {
	return func(c *Calculator) {
		if reference >= 0 && shiftPerDecade >= 0 {
			c.ageReference = reference
			c.ageShiftPerDecade = shiftPerDecade
		}
	}
}
