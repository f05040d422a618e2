package risk

import "math"

// Probability returns the Poisson collision probability
// 1 - exp(-flux·area·years), evaluated as -expm1(-x) so small exposures
// keep full precision. The result is always within [0, 1].
func Probability(areaM2, durationYears, flux float64) (float64, error) {
	for _, in := range []struct {
		field string
		v     float64
	}{
		{"area_m2", areaM2},
		{"duration_years", durationYears},
		{"flux", flux},
	} {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) {
			return 0, &RiskInputError{Field: in.field, Value: in.v, Reason: "must be finite"}
		}
		if in.v < 0 {
			return 0, &RiskInputError{Field: in.field, Value: in.v, Reason: "must not be negative"}
		}
	}

	p := -math.Expm1(-flux * areaM2 * durationYears)
	return math.Min(math.Max(p, 0), 1), nil
}
