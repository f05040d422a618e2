package propagation

import (
	"time"

	"github.com/star/orbitrisk/internal/tle"
)

// Sample is one geodetic sub-satellite position.
type Sample struct {
	Timestamp    time.Time `json:"timestamp"`
	LatitudeDeg  float64   `json:"latitude_deg"`
	LongitudeDeg float64   `json:"longitude_deg"`
	AltitudeKm   float64   `json:"altitude_km"`
}

// SampleCount returns how many samples Propagate produces for a window:
// floor(duration·60/step) + 1.
func SampleCount(durationMinutes, stepSeconds int) int {
	if durationMinutes < 0 || stepSeconds <= 0 {
		return 0
	}
	return durationMinutes*60/stepSeconds + 1
}

// Propagate computes the ground track of rec from start over durationMinutes,
// one sample every stepSeconds, including the final sample when it lands on
// the window edge. A zero start means now. start is truncated to whole
// seconds.
//
// Either every sample is returned or none: any failure yields a
// *PropagationError for rec.
func Propagate(rec tle.Record, start time.Time, durationMinutes, stepSeconds int) ([]Sample, error) {
	if durationMinutes < 0 || stepSeconds <= 0 {
		return nil, ErrInvalidWindow
	}
	if start.IsZero() {
		start = time.Now()
	}
	start = start.UTC().Truncate(time.Second)

	prop, err := NewSGP4Propagator(rec)
	if err != nil {
		return nil, err
	}

	n := SampleCount(durationMinutes, stepSeconds)
	step := time.Duration(stepSeconds) * time.Second
	samples := make([]Sample, 0, n)
	for k := 0; k < n; k++ {
		t := start.Add(time.Duration(k) * step)
		g, err := prop.SubPointAt(t)
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{
			Timestamp:    t,
			LatitudeDeg:  g.LatDeg,
			LongitudeDeg: g.LonDeg,
			AltitudeKm:   g.AltKm,
		})
	}
	return samples, nil
}

// Inclination returns the inclination of rec in degrees, read straight from
// line 2 columns 9-16.
func Inclination(rec tle.Record) (float64, error) {
	return rec.Inclination()
}
