package propagation

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/star/orbitrisk/internal/tle"
	"github.com/star/orbitrisk/internal/transform"
)

// SGP4 library: github.com/joshuaferrara/go-satellite.
//
// Propagate() takes Satellite by value, so run-time SGP4 error codes are not
// visible to the caller. Failures are detected from the output instead: NaN,
// Inf, or a geocentric radius outside [minRadiusKm, maxRadiusKm].
//
// TLEToSat calls log.Fatal on unparsable input, so lines are always
// re-validated through tle.ParseLines before they reach the library.

const (
	minRadiusKm = 6200.0
	maxRadiusKm = 50000.0

	subOrbitalCode = 5
)

// SGP4Propagator wraps an initialized go-satellite model for one record.
type SGP4Propagator struct {
	sat       satellite.Satellite
	catalogID int
}

// NewSGP4Propagator validates rec and initializes the SGP4 model.
func NewSGP4Propagator(rec tle.Record) (*SGP4Propagator, error) {
	parsed, err := tle.ParseLines(rec.Name, rec.Line1, rec.Line2)
	if err != nil {
		return nil, &PropagationError{CatalogID: rec.CatalogID, Reason: "element set failed re-validation", Err: err}
	}
	// Perigee inside the Earth: go-satellite would flag this as code 5.
	if el := parsed.Elements(); el.PerigeeKm < 0 {
		return nil, &PropagationError{
			CatalogID: rec.CatalogID,
			Reason:    "sub-orbital element set, perigee " + formatKm(el.PerigeeKm),
			Code:      subOrbitalCode,
		}
	}

	sat := satellite.TLEToSat(rec.Line1, rec.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, &PropagationError{
			CatalogID: rec.CatalogID,
			Reason:    "sgp4 init failed: " + sat.ErrorStr,
			Code:      int(sat.Error),
		}
	}
	return &SGP4Propagator{sat: sat, catalogID: rec.CatalogID}, nil
}

// CatalogID returns the identifier of the wrapped record.
func (p *SGP4Propagator) CatalogID() int {
	return p.catalogID
}

// PositionAt returns the TEME position (km) at t, evaluated at whole-second
// resolution.
func (p *SGP4Propagator) PositionAt(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	pos, _ := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	teme := transform.PositionTEME{X: pos.X, Y: pos.Y, Z: pos.Z}
	if !teme.Finite() {
		return transform.PositionTEME{}, &PropagationError{CatalogID: p.catalogID, At: t, Reason: "sgp4 output is NaN/Inf"}
	}
	if r := teme.Radius(); r < minRadiusKm || r > maxRadiusKm {
		return transform.PositionTEME{}, &PropagationError{
			CatalogID: p.catalogID,
			At:        t,
			Reason:    "unreasonable geocentric radius " + formatKm(r),
		}
	}
	return teme, nil
}

// SubPointAt propagates to t and converts the result to a geodetic sub-point.
func (p *SGP4Propagator) SubPointAt(t time.Time) (transform.Geodetic, error) {
	teme, err := p.PositionAt(t)
	if err != nil {
		return transform.Geodetic{}, err
	}
	g := transform.SubPoint(teme, t.UTC().Truncate(time.Second))
	if g.AltKm <= 0 || math.IsNaN(g.AltKm) {
		return transform.Geodetic{}, &PropagationError{CatalogID: p.catalogID, At: t, Reason: "sub-point altitude below the ellipsoid"}
	}
	return g, nil
}
