// Package transform converts SGP4 output into Earth-fixed and geodetic
// coordinates.
//
// TEME (True Equator Mean Equinox) is rotated into ECEF about the Z axis by
// GMST only. Polar motion and the equation of the equinoxes are ignored; the
// resulting sub-point error is tens of meters, well below what a ground
// track needs.
//
// All distances in this package are kilometers.
package transform

import "math"

// PositionTEME is a position in the TEME frame (km).
type PositionTEME struct {
	X, Y, Z float64
}

// PositionECEF is a position in the Earth-fixed frame (km).
type PositionECEF struct {
	X, Y, Z float64
}

// Radius returns the geocentric distance in km.
func (p PositionTEME) Radius() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Radius returns the geocentric distance in km.
func (p PositionECEF) Radius() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// TEMEToECEF rotates p by the sidereal angle gmst (radians): r_ECEF = R3(θ)·r_TEME.
func TEMEToECEF(p PositionTEME, gmst float64) PositionECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)
	return PositionECEF{
		X: p.X*cosG + p.Y*sinG,
		Y: -p.X*sinG + p.Y*cosG,
		Z: p.Z,
	}
}

// Finite reports whether every component of p is a finite number.
func (p PositionTEME) Finite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
