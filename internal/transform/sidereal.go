package transform

import (
	"math"
	"time"
)

const (
	// jdUnixEpoch is the Julian Date of 1970-01-01T00:00:00Z.
	jdUnixEpoch = 2440587.5
	// j2000 is the Julian Date of the J2000.0 epoch (2000-01-01 12:00 TT).
	j2000 = 2451545.0
)

// JulianDate converts t to a Julian Date in UTC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	days := float64(t.Unix()) / 86400.0
	days += float64(t.Nanosecond()) / 86400e9
	return jdUnixEpoch + days
}

// GMST returns Greenwich Mean Sidereal Time in radians, [0, 2π), using the
// IAU-82 polynomial (Vallado eq. 3-47):
//
//	θ = 67310.54841 + (876600h + 8640184.812866)·T + 0.093104·T² − 6.2e-6·T³  [s]
//
// with T in Julian centuries of UT1 from J2000.0. UT1 is taken as UTC.
func GMST(t time.Time) float64 {
	tUT1 := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2 * math.Pi
}
