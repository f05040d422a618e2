package tle

import "time"

// LineLength is the fixed width of both element lines, checksum included.
const LineLength = 69

// Record is one validated two-line element set.
// Records are only built by ParseLines and are never modified afterwards.
type Record struct {
	CatalogID int
	Name      string
	Epoch     time.Time
	Line1     string
	Line2     string
}

// Summary is the listing view of a Record.
type Summary struct {
	CatalogID      int       `json:"norad_id"`
	Name           string    `json:"name"`
	Epoch          time.Time `json:"epoch"`
	InclinationDeg float64   `json:"inclination_deg"`
	MeanMotion     float64   `json:"mean_motion_rev_per_day"`
}

// Elements holds the mean orbital elements decoded from a Record's lines.
type Elements struct {
	InclinationDeg  float64 `json:"inclination_deg"`
	RAANDeg         float64 `json:"raan_deg"`
	Eccentricity    float64 `json:"eccentricity"`
	ArgPerigeeDeg   float64 `json:"argument_of_perigee_deg"`
	MeanAnomalyDeg  float64 `json:"mean_anomaly_deg"`
	MeanMotion      float64 `json:"mean_motion_rev_per_day"`
	MeanMotionDot   float64 `json:"mean_motion_dot"`
	BStar           float64 `json:"bstar"`
	PeriodMinutes   float64 `json:"orbital_period_min"`
	SemiMajorAxisKm float64 `json:"semi_major_axis_km"`
	MeanAltitudeKm  float64 `json:"mean_altitude_km"`
	PerigeeKm       float64 `json:"perigee_altitude_km"`
	ApogeeKm        float64 `json:"apogee_altitude_km"`
}

// LoadMode selects how a parsed batch is merged into the Store.
type LoadMode int

const (
	// Merge inserts parsed records over the current catalog, overwriting
	// existing identifiers.
	Merge LoadMode = iota
	// Replace publishes the parsed records as the whole catalog.
	Replace
)

func (m LoadMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "merge"
}

// LoadResult reports the outcome of one Store.Apply call.
type LoadResult struct {
	Mode     LoadMode
	Loaded   int
	Rejected int
	Errors   []error
	Total    int // catalog size after publish
}
