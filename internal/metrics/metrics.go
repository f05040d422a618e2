package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitrisk_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitrisk_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitrisk_tle_records",
		Help: "Number of element sets in the published catalog.",
	})

	tleLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitrisk_tle_loads_total",
			Help: "Catalog load operations by mode.",
		},
		[]string{"mode"},
	)

	tleRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitrisk_tle_rejected_total",
		Help: "Element sets skipped during load because they failed to parse.",
	})

	ingestFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitrisk_ingest_fetches_total",
			Help: "TLE source fetches by source kind and result.",
		},
		[]string{"source", "result"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitrisk_propagation_duration_seconds",
		Help:    "Time to compute one ground track.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	propagationErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitrisk_propagation_errors_total",
		Help: "Ground tracks that failed with a propagation error.",
	})

	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitrisk_cache_hits_total",
		Help: "Ground track cache hits.",
	})

	cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitrisk_cache_misses_total",
		Help: "Ground track cache misses.",
	})

	cacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitrisk_cache_evictions_total",
		Help: "Ground track cache entries evicted by expiry or capacity.",
	})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitrisk_cache_entries",
		Help: "Ground tracks currently cached.",
	})

	riskAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitrisk_risk_assessments_total",
			Help: "Risk assessments by resulting level.",
		},
		[]string{"level"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleRecords,
		tleLoadsTotal,
		tleRejectedTotal,
		ingestFetchesTotal,
		propagationDurationSeconds,
		propagationErrorsTotal,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		riskAssessmentsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLoad tracks one catalog load and the resulting catalog size.
func RecordLoad(mode string, rejected, total int) {
	tleLoadsTotal.WithLabelValues(mode).Inc()
	tleRejectedTotal.Add(float64(rejected))
	tleRecords.Set(float64(total))
}

// SetRecords publishes the catalog size.
func SetRecords(n int) { tleRecords.Set(float64(n)) }

// IncFetch counts a source fetch. result is "ok" or "error".
func IncFetch(source, result string) {
	ingestFetchesTotal.WithLabelValues(source, result).Inc()
}

// ObservePropagation records the duration of one ground track.
func ObservePropagation(d time.Duration) { propagationDurationSeconds.Observe(d.Seconds()) }

// IncPropagationErrors counts a failed ground track.
func IncPropagationErrors() { propagationErrorsTotal.Inc() }

func IncCacheHits()   { cacheHitsTotal.Inc() }
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions adds n evicted entries.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries publishes the current cache size.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// InitRiskLevels creates the assessment series for every level so they are
// exported at zero before the first assessment.
func InitRiskLevels(levels ...string) {
	for _, l := range levels {
		riskAssessmentsTotal.WithLabelValues(l)
	}
}

// IncRiskAssessment counts an assessment at level.
func IncRiskAssessment(level string) {
	riskAssessmentsTotal.WithLabelValues(level).Inc()
}

// knownRoutes are exact paths reported under their own label.
var knownRoutes = map[string]bool{
	"/":                 true,
	"/healthz":          true,
	"/readyz":           true,
	"/metrics":          true,
	"/api/v1/tle/load":  true,
	"/api/v1/objects":   true,
	"/api/v1/positions": true,
}

// paramRoutes collapse /prefix/<digits> into /prefix/{norad_id}.
var paramRoutes = []string{
	"/api/v1/objects/",
	"/api/v1/propagate/",
	"/api/v1/risk/",
}

// normalizeRoute maps a request path onto a bounded label set so catalog
// ids and scanner noise do not explode metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	for _, prefix := range paramRoutes {
		id, ok := strings.CutPrefix(path, prefix)
		if ok && id != "" && isDigits(id) {
			return prefix + "{norad_id}"
		}
	}
	return "other"
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
