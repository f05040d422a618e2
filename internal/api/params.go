package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// catalogID parses the {norad_id} path value.
func catalogID(r *http.Request) (int, error) {
	raw := r.PathValue("norad_id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 || id > 99999 {
		return 0, fmt.Errorf("invalid norad_id %q: must be an integer in [1, 99999]", raw)
	}
	return id, nil
}

// intParam reads an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", name, raw)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be within [%d, %d], got %d", name, lo, hi, v)
	}
	return v, nil
}

// floatParam reads an optional finite float query parameter. Range checks
// belong to the risk model.
func floatParam(r *http.Request, name string, def float64) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("invalid %s %q: must be a finite number", name, raw)
	}
	return v, true, nil
}

// timeParam reads an optional RFC 3339 instant. Missing means zero time.
func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: use RFC 3339, e.g. 2024-04-09T12:00:00Z", name, raw)
	}
	return t.UTC(), nil
}
