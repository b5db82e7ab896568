package model

import (
	"fmt"
	"math"
	"time"
)

// Sex selects the reference bands used for scoring.
type Sex string

// Supported sexes.
const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid reports whether s is a supported value.
func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

// ParseSex converts a string into a Sex.
func ParseSex(v string) (Sex, error) {
	s := Sex(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sex %q", v)
	}
	return s, nil
}

// Profile holds the slow-changing user attributes needed for scoring.
type Profile struct {
	UserID    string  `json:"user_id"`
	Sex       Sex     `json:"sex"`
	BirthYear int     `json:"birth_year"`
	HeightCm  float64 `json:"height_cm"`
}

// BodyScoreInput is a snapshot of everything needed to score one date.
// Nil fields are unknown.
type BodyScoreInput struct {
	Sex            *Sex     `json:"sex,omitempty"`
	BirthYear      *int     `json:"birth_year,omitempty"`
	HeightCm       *float64 `json:"height_cm,omitempty"`
	WeightKg       *float64 `json:"weight_kg,omitempty"`
	BodyFatPercent *float64 `json:"body_fat_percent,omitempty"`
}

// MissingFields lists the fields that keep the input from being scored.
func (in BodyScoreInput) MissingFields() []string {
	var missing []string
	if in.Sex == nil || !in.Sex.Valid() {
		missing = append(missing, "sex")
	}
	if in.BirthYear == nil {
		missing = append(missing, "birth_year")
	}
	if !positive(in.HeightCm) {
		missing = append(missing, "height_cm")
	}
	if !positive(in.WeightKg) {
		missing = append(missing, "weight_kg")
	}
	if in.BodyFatPercent == nil || math.IsNaN(*in.BodyFatPercent) {
		missing = append(missing, "body_fat_percent")
	}
	return missing
}

// IsReadyForCalculation is true only if every field is present and weight
// and height are positive.
func (in BodyScoreInput) IsReadyForCalculation() bool {
	return len(in.MissingFields()) == 0
}

func positive(v *float64) bool {
	return v != nil && *v > 0 && !math.IsInf(*v, 1)
}

// BodyScoreResult is the immutable output of scoring one input on one date.
type BodyScoreResult struct {
	Score         int     `json:"score"`
	FFMI          float64 `json:"ffmi"`
	FFMIStatus    string  `json:"ffmi_status"`
	StatusTagline string  `json:"status_tagline"`

	FFMISubScore    float64 `json:"ffmi_sub_score"`
	BodyFatSubScore float64 `json:"body_fat_sub_score"`
	Age             int     `json:"age"`
}

// ScoredDay bundles a score with the resolved inputs it was built from, so
// callers can tell measured values from estimates.
type ScoredDay struct {
	Date    time.Time       `json:"date"`
	Result  BodyScoreResult `json:"result"`
	Weight  Resolved        `json:"weight"`
	BodyFat Resolved        `json:"body_fat"`
}

// PrewarmJob asks the background workers to fill the estimation cache for a
// user's series over [From, To].
type PrewarmJob struct {
	ID         string
	UserID     string
	From       time.Time
	To         time.Time
	EnqueuedAt time.Time
}
