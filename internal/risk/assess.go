package risk

import "math"

// Level buckets a collision probability.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels lists every level from least to most severe.
var Levels = []Level{LevelLow, LevelModerate, LevelHigh, LevelCritical}

// Classify maps a probability onto a Level.
func Classify(p float64) Level {
	switch {
	case p > 0.1:
		return LevelCritical
	case p > 0.01:
		return LevelHigh
	case p > 0.001:
		return LevelModerate
	default:
		return LevelLow
	}
}

const daysPerYear = 365.0

// Params describes one assessment.
type Params struct {
	InclinationDeg float64 `json:"inclination_deg"`
	AltitudeKm     float64 `json:"altitude_km"`
	SizeMinCm      float64 `json:"size_min_cm"`
	SizeMaxCm      float64 `json:"size_max_cm"`
	AreaM2         float64 `json:"area_m2"`
	DurationDays   float64 `json:"duration_days"`
}

// DefaultParams returns a 10 m² cross-section exposed for one year to
// 1-10 cm debris. Callers fill in the orbit.
func DefaultParams() Params {
	return Params{
		SizeMinCm:    1,
		SizeMaxCm:    10,
		AreaM2:       10,
		DurationDays: daysPerYear,
	}
}

// Result is the outcome of Assess.
type Result struct {
	Params
	DurationYears float64 `json:"duration_years"`
	Flux          float64 `json:"flux_per_m2_per_year"`
	Probability   float64 `json:"probability"`
	Level         Level   `json:"risk_level"`
}

// Assess computes flux, the probability over the duration and its level.
func Assess(p Params) (Result, error) {
	if math.IsNaN(p.AreaM2) || p.AreaM2 <= 0 {
		return Result{}, &RiskInputError{Field: "area_m2", Value: p.AreaM2, Reason: "must be positive"}
	}
	if math.IsNaN(p.DurationDays) || p.DurationDays <= 0 {
		return Result{}, &RiskInputError{Field: "duration_days", Value: p.DurationDays, Reason: "must be positive"}
	}

	flux, err := Flux(p.AltitudeKm, p.InclinationDeg, p.SizeMinCm, p.SizeMaxCm)
	if err != nil {
		return Result{}, err
	}

	years := p.DurationDays / daysPerYear
	prob, err := Probability(p.AreaM2, years, flux)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Params:        p,
		DurationYears: years,
		Flux:          flux,
		Probability:   prob,
		Level:         Classify(prob),
	}, nil
}
