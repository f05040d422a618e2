package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/cache"
	"github.com/star/orbitrisk/internal/ingest"
	"github.com/star/orbitrisk/internal/metrics"
	"github.com/star/orbitrisk/internal/propagation"
	"github.com/star/orbitrisk/internal/risk"
	"github.com/star/orbitrisk/internal/tle"
)

// Request bounds.
const (
	defaultMinutes = 120
	maxMinutes     = 1440
	defaultStep    = 60
	minStep        = 5
	maxStep        = 3600

	defaultListLimit = 100
	maxListLimit     = 100000

	defaultPositionsLimit = 100
	maxPositionsLimit     = 20000

	// maxReportedErrors caps parse errors echoed in a load response.
	maxReportedErrors = 20
)

type loadRequest struct {
	Source string `json:"source"` // celestrak | url | sample | text
	Group  string `json:"group,omitempty"`
	URL    string `json:"url,omitempty"`
	Text   string `json:"text,omitempty"`
	Mode   string `json:"mode,omitempty"` // merge | replace, default per source
}

type loadResponse struct {
	Source   string   `json:"source"`
	Group    string   `json:"group,omitempty"`
	Mode     string   `json:"mode"`
	Loaded   int      `json:"loaded"`
	Rejected int      `json:"rejected"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}

func parseMode(raw string, def tle.LoadMode) (tle.LoadMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return def, nil
	case "merge":
		return tle.Merge, nil
	case "replace":
		return tle.Replace, nil
	default:
		return def, errors.New("invalid mode: use 'merge' or 'replace'")
	}
}

func loadHandler(logger *zap.Logger, loader *ingest.Loader, sampleFile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxBodyBytes)

		var req loadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		source := strings.ToLower(strings.TrimSpace(req.Source))
		if source == "" {
			source = ingest.KindCelesTrak
		}

		var src ingest.Source
		switch source {
		case ingest.KindCelesTrak:
			src = ingest.Source{Kind: ingest.KindCelesTrak, Group: strings.TrimSpace(req.Group)}
			if src.Group == "" {
				src.Group = "active"
			}
		case ingest.KindURL:
			if strings.TrimSpace(req.URL) == "" {
				writeError(w, http.StatusBadRequest, "missing 'url' for source=url")
				return
			}
			src = ingest.Source{Kind: ingest.KindURL, URL: strings.TrimSpace(req.URL)}
		case "sample":
			if sampleFile == "" {
				writeError(w, http.StatusBadRequest, "sample source is not configured")
				return
			}
			src = ingest.Source{Kind: ingest.KindFile, Path: sampleFile}
		case "text":
		default:
			writeError(w, http.StatusBadRequest, "invalid source: use 'celestrak' | 'url' | 'sample' | 'text'")
			return
		}

		mode, err := parseMode(req.Mode, ingest.ModeFor(src.Kind))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var res tle.LoadResult
		if source == "text" {
			res, err = loader.Apply(req.Text, mode)
		} else {
			res, err = loader.LoadMode(r.Context(), src, mode)
		}
		if err != nil {
			logger.Warn("TLE load failed",
				zap.String("source", source),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
			writeDomainError(w, err)
			return
		}

		resp := loadResponse{
			Source:   source,
			Group:    src.Group,
			Mode:     res.Mode.String(),
			Loaded:   res.Loaded,
			Rejected: res.Rejected,
			Total:    res.Total,
		}
		for i, e := range res.Errors {
			if i == maxReportedErrors {
				break
			}
			resp.Errors = append(resp.Errors, e.Error())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listObjectsHandler(store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", defaultListLimit, 0, maxListLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items := store.List(limit)
		if items == nil {
			items = []tle.Summary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":   len(items),
			"total":   store.Len(),
			"objects": items,
		})
	}
}

type objectResponse struct {
	tle.Summary
	Elements      tle.Elements        `json:"elements"`
	Line1         string              `json:"line1"`
	Line2         string              `json:"line2"`
	Position      *propagation.Sample `json:"position,omitempty"`
	PositionError string              `json:"position_error,omitempty"`
}

func objectHandler(store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := catalogID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := store.Lookup(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := objectResponse{
			Summary:  rec.Summary(),
			Elements: rec.Elements(),
			Line1:    rec.Line1,
			Line2:    rec.Line2,
		}
		// The current sub-point is informational; a failure does not fail the request.
		if samples, err := propagation.Propagate(rec, time.Time{}, 0, defaultStep); err != nil {
			resp.PositionError = err.Error()
		} else {
			resp.Position = &samples[0]
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type trackResponse struct {
	CatalogID   int                  `json:"norad_id"`
	Name        string               `json:"name"`
	Start       time.Time            `json:"start"`
	Minutes     int                  `json:"minutes"`
	StepSeconds int                  `json:"step_seconds"`
	Count       int                  `json:"count"`
	Cached      bool                 `json:"cached"`
	Samples     []propagation.Sample `json:"samples"`
}

func propagateHandler(logger *zap.Logger, store *tle.Store, tracks *cache.TrackCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := catalogID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		minutes, err := intParam(r, "minutes", defaultMinutes, 1, maxMinutes)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		step, err := intParam(r, "step", defaultStep, minStep, maxStep)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start, err := timeParam(r, "start")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if start.IsZero() {
			start = time.Now().UTC()
		}
		start = start.Truncate(time.Second)

		// Read the version before the record so a concurrent reload can only
		// file this track under an older version.
		version := store.Version()
		rec, err := store.Lookup(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		span := trace.SpanFromContext(r.Context())
		span.SetAttributes(
			attribute.Int("orbitrisk.norad_id", id),
			attribute.Int("orbitrisk.minutes", minutes),
			attribute.Int("orbitrisk.step_seconds", step),
		)

		began := time.Now()
		key := cache.NewKey(id, start, minutes, step, version)
		samples, hit, err := tracks.GetOrCompute(key, func() ([]propagation.Sample, error) {
			return propagation.Propagate(rec, start, minutes, step)
		})
		if err != nil {
			metrics.IncPropagationErrors()
			span.RecordError(err)
			logger.Warn("propagation failed",
				zap.Int("norad_id", id),
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.Error(err),
			)
			writeDomainError(w, err)
			return
		}
		if !hit {
			metrics.ObservePropagation(time.Since(began))
		}
		span.SetAttributes(attribute.Bool("orbitrisk.cache_hit", hit))

		writeJSON(w, http.StatusOK, trackResponse{
			CatalogID:   id,
			Name:        rec.Name,
			Start:       start,
			Minutes:     minutes,
			StepSeconds: step,
			Count:       len(samples),
			Cached:      hit,
			Samples:     samples,
		})
	}
}

type positionsResponse struct {
	Timestamp time.Time              `json:"timestamp"`
	Count     int                    `json:"count"`
	Errors    int                    `json:"errors"`
	Positions []propagation.Position `json:"positions"`
}

func positionsHandler(prop *propagation.Propagator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, err := timeParam(r, "at")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if at.IsZero() {
			at = time.Now().UTC()
		}
		at = at.Truncate(time.Second)

		limit, err := intParam(r, "limit", defaultPositionsLimit, 1, maxPositionsLimit)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		positions, _, failed := prop.PositionsAt(r.Context(), at, limit)
		if err := r.Context().Err(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "request cancelled")
			return
		}
		if positions == nil {
			positions = []propagation.Position{}
		}
		writeJSON(w, http.StatusOK, positionsResponse{
			Timestamp: at,
			Count:     len(positions),
			Errors:    failed,
			Positions: positions,
		})
	}
}

type riskResponse struct {
	CatalogID      int    `json:"norad_id"`
	Name           string `json:"name"`
	AltitudeSource string `json:"altitude_source"` // query | elements
	risk.Result
}

func riskHandler(logger *zap.Logger, store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := catalogID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := store.Lookup(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		p := risk.DefaultParams()
		var altGiven bool
		for _, f := range []struct {
			name string
			dst  *float64
			set  *bool
		}{
			{"alt_km", &p.AltitudeKm, &altGiven},
			{"area_m2", &p.AreaM2, nil},
			{"size_min_cm", &p.SizeMinCm, nil},
			{"size_max_cm", &p.SizeMaxCm, nil},
			{"duration_days", &p.DurationDays, nil},
		} {
			v, given, err := floatParam(r, f.name, *f.dst)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			*f.dst = v
			if f.set != nil {
				*f.set = given
			}
		}

		altSource := "query"
		if !altGiven {
			p.AltitudeKm = rec.Elements().MeanAltitudeKm
			altSource = "elements"
		}

		p.InclinationDeg, err = propagation.Inclination(rec)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		res, err := risk.Assess(p)
		if err != nil {
			logger.Debug("risk input rejected", zap.Int("norad_id", id), zap.Error(err))
			writeDomainError(w, err)
			return
		}
		metrics.IncRiskAssessment(string(res.Level))

		writeJSON(w, http.StatusOK, riskResponse{
			CatalogID:      id,
			Name:           rec.Name,
			AltitudeSource: altSource,
			Result:         res,
		})
	}
}
