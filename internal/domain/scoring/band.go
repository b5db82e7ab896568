package scoring

import "math"

const maxSubScore = 100

// Band is an ideal range for one measure. A value at the midpoint scores 100,
// the score falls linearly to EdgeScore at Low and High, and from there
// linearly to 0 at FalloffBelow under Low or FalloffAbove over High.
type Band struct {
	Low          float64
	High         float64
	EdgeScore    float64
	FalloffBelow float64
	FalloffAbove float64
}

// Score maps v onto [0, 100].
func (b Band) Score(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	switch {
	case v < b.Low:
		return falloff(b.EdgeScore, b.Low-v, b.FalloffBelow)
	case v > b.High:
		return falloff(b.EdgeScore, v-b.High, b.FalloffAbove)
	}
	half := (b.High - b.Low) / 2
	if half <= 0 {
		return maxSubScore
	}
	mid := b.Low + half
	return maxSubScore - (maxSubScore-b.EdgeScore)*math.Abs(v-mid)/half
}

// Shift returns b moved up by delta.
func (b Band) Shift(delta float64) Band {
	b.Low += delta
	b.High += delta
	return b
}

func falloff(edge, distance, span float64) float64 {
	if span <= 0 {
		return 0
	}
	return math.Max(0, edge*(1-distance/span))
}

// Default reference bands.
var (
	DefaultMaleFFMI      = Band{Low: 20, High: 25, EdgeScore: 80, FalloffBelow: 6, FalloffAbove: 6}
	DefaultFemaleFFMI    = Band{Low: 16, High: 20, EdgeScore: 80, FalloffBelow: 5, FalloffAbove: 6}
	DefaultMaleBodyFat   = Band{Low: 10, High: 18, EdgeScore: 80, FalloffBelow: 7, FalloffAbove: 17}
	DefaultFemaleBodyFat = Band{Low: 18, High: 26, EdgeScore: 80, FalloffBelow: 8, FalloffAbove: 17}
)
