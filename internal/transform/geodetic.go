package transform

import (
	"math"
	"time"
)

// WGS-84 ellipsoid.
const (
	EarthRadiusKm = 6378.137
	wgs84F        = 1.0 / 298.257223563
	wgs84E2       = wgs84F * (2 - wgs84F)
)

// Geodetic is a sub-satellite point on the WGS-84 ellipsoid.
// LonDeg is in (-180, 180].
type Geodetic struct {
	LatDeg, LonDeg, AltKm float64
}

// ECEFToGeodetic converts an Earth-fixed position with Bowring's iteration.
// Five iterations converge to well under a millimeter for orbital radii.
func ECEFToGeodetic(p PositionECEF) Geodetic {
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := EarthRadiusKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*n*sinLat, rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := EarthRadiusKm / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - n
	} else {
		alt = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg: lat * 180 / math.Pi,
		LonDeg: NormalizeLongitude(lon * 180 / math.Pi),
		AltKm:  alt,
	}
}

// NormalizeLongitude maps any angle in degrees into (-180, 180].
func NormalizeLongitude(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// SubPoint rotates a TEME position at instant t into its geodetic sub-point.
func SubPoint(p PositionTEME, t time.Time) Geodetic {
	return ECEFToGeodetic(TEMEToECEF(p, GMST(t)))
}
