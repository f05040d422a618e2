package risk

import (
	"fmt"
	"math"
	"sort"
)

// altitudeProfile is the cumulative flux of objects larger than 1 cm
// (#/m²/yr) at reference altitudes. It peaks in the 800 km band and again
// near 1400 km where fragmentation debris concentrates.
var altitudeProfile = []struct {
	altKm float64
	flux  float64
}{
	{200, 2.0e-7},
	{400, 1.5e-6},
	{600, 6.0e-6},
	{800, 1.2e-5},
	{1000, 8.0e-6},
	{1200, 5.0e-6},
	{1400, 6.0e-6},
	{1600, 3.0e-6},
	{2000, 1.0e-6},
}

// Size distribution break points (cm) and power-law exponents. Each segment
// is scaled so the cumulative curve is continuous and equals 1 at 1 cm.
const (
	smallBreakCm = 0.1
	largeBreakCm = 1.0

	// MinSizeCm is the smallest debris size the model covers (1 µm).
	MinSizeCm = 1e-4

	smallExponent  = 2.0 // below 1 mm
	middleExponent = 3.0 // 1 mm to 1 cm
	largeExponent  = 1.6 // above 1 cm
)

// altitudeFlux interpolates log10(flux) linearly between reference points.
// Altitudes outside the table clamp to its end points.
func altitudeFlux(altKm float64) float64 {
	n := len(altitudeProfile)
	if altKm <= altitudeProfile[0].altKm {
		return altitudeProfile[0].flux
	}
	if altKm >= altitudeProfile[n-1].altKm {
		return altitudeProfile[n-1].flux
	}

	i := sort.Search(n, func(i int) bool { return altitudeProfile[i].altKm >= altKm })
	lo, hi := altitudeProfile[i-1], altitudeProfile[i]
	frac := (altKm - lo.altKm) / (hi.altKm - lo.altKm)
	logFlux := math.Log10(lo.flux) + frac*(math.Log10(hi.flux)-math.Log10(lo.flux))
	return math.Pow(10, logFlux)
}

// sizeFraction is the cumulative population of objects larger than d cm
// relative to the population larger than 1 cm. Strictly decreasing in d.
func sizeFraction(d float64) float64 {
	switch {
	case d >= largeBreakCm:
		return math.Pow(d/largeBreakCm, -largeExponent)
	case d >= smallBreakCm:
		return math.Pow(d/largeBreakCm, -middleExponent)
	default:
		atBreak := math.Pow(smallBreakCm/largeBreakCm, -middleExponent)
		return atBreak * math.Pow(d/smallBreakCm, -smallExponent)
	}
}

// inclinationFactor scales flux by how often an orbit crosses the dense
// high-inclination debris bands.
func inclinationFactor(incDeg float64) float64 {
	return 0.85 + 0.3*math.Abs(math.Sin(incDeg*math.Pi/180))
}

// Flux returns the expected impact flux (#/m²/yr) of debris with sizes
// between sizeMinCm and sizeMaxCm for an orbit at altitudeKm and
// inclinationDeg. A degenerate bin (sizeMinCm == sizeMaxCm) yields 0.
func Flux(altitudeKm, inclinationDeg, sizeMinCm, sizeMaxCm float64) (float64, error) {
	if err := validateFluxInputs(altitudeKm, inclinationDeg, sizeMinCm, sizeMaxCm); err != nil {
		return 0, err
	}
	if sizeMinCm == sizeMaxCm {
		return 0, nil
	}

	band := sizeFraction(sizeMinCm) - sizeFraction(sizeMaxCm)
	flux := altitudeFlux(altitudeKm) * inclinationFactor(inclinationDeg) * band
	if math.IsNaN(flux) || math.IsInf(flux, 0) {
		return 0, &RiskInputError{Field: "size_min_cm", Value: sizeMinCm, Reason: "size bin outside the model range"}
	}
	return math.Max(flux, 0), nil
}

func validateFluxInputs(altitudeKm, inclinationDeg, sizeMinCm, sizeMaxCm float64) error {
	for _, in := range []struct {
		field string
		v     float64
	}{
		{"altitude_km", altitudeKm},
		{"inclination_deg", inclinationDeg},
		{"size_min_cm", sizeMinCm},
		{"size_max_cm", sizeMaxCm},
	} {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) {
			return &RiskInputError{Field: in.field, Value: in.v, Reason: "must be finite"}
		}
	}

	switch {
	case altitudeKm < 0:
		return &RiskInputError{Field: "altitude_km", Value: altitudeKm, Reason: "must not be negative"}
	case inclinationDeg < 0 || inclinationDeg > 180:
		return &RiskInputError{Field: "inclination_deg", Value: inclinationDeg, Reason: "must be within [0, 180]"}
	case sizeMinCm <= 0:
		return &RiskInputError{Field: "size_min_cm", Value: sizeMinCm, Reason: "must be positive"}
	case sizeMinCm < MinSizeCm:
		return &RiskInputError{Field: "size_min_cm", Value: sizeMinCm, Reason: fmt.Sprintf("must be at least %g", MinSizeCm)}
	case sizeMinCm > sizeMaxCm:
		return &RiskInputError{Field: "size_min_cm", Value: sizeMinCm, Reason: "exceeds size_max_cm"}
	}
	return nil
}
