// Package scoring computes the fat-free mass index and the composite body
// score from a complete input snapshot. Every function is pure.
package scoring

import (
	"math"

	"github.com/okian/bodymetrics/internal/domain/model"
)

const (
	cmPerMeter = 100
	percent    = 100

	// Height, in meters, FFMI is normalized to, and the slope of the correction.
	referenceHeightM   = 1.8
	heightCorrectionKg = 6.1
)

// FFMI status labels, lowest to highest.
const (
	StatusDeveloping = "Developing"
	StatusSolidBase  = "Solid base"
	StatusAthletic   = "Athletic"
	StatusAdvanced   = "Advanced"
	StatusElite      = "Elite"
)

// FFMI returns the height-normalized fat-free mass index. The correction term
// goes negative for subjects taller than 1.8 m and is not clamped.
func FFMI(weightKg, bodyFatPercent, heightCm float64) float64 {
	leanMassKg := weightKg * (1 - bodyFatPercent/percent)
	heightM := heightCm / cmPerMeter
	raw := leanMassKg / (heightM * heightM)
	return raw + heightCorrectionKg*(referenceHeightM-heightM)
}

type statusStep struct {
	min   float64
	label string
}

// Lower bounds are inclusive. Anything below the first step is Developing.
var statusSteps = map[model.Sex][]statusStep{
	model.SexMale: {
		{min: 25, label: StatusElite},
		{min: 22.5, label: StatusAdvanced},
		{min: 20, label: StatusAthletic},
		{min: 18, label: StatusSolidBase},
	},
	model.SexFemale: {
		{min: 21.5, label: StatusElite},
		{min: 19, label: StatusAdvanced},
		{min: 17, label: StatusAthletic},
		{min: 15, label: StatusSolidBase},
	},
}

// FFMIStatus buckets ffmi into one of five labels for sex. Unknown sexes use
// the male bands. NaN maps to Developing.
func FFMIStatus(sex model.Sex, ffmi float64) string {
	steps, ok := statusSteps[sex]
	if !ok {
		steps = statusSteps[model.SexMale]
	}
	if math.IsNaN(ffmi) {
		return StatusDeveloping
	}
	for _, s := range steps {
		if ffmi >= s.min {
			return s.label
		}
	}
	return StatusDeveloping
}
