package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/tle/load", "/api/v1/tle/load"},
		{"/api/v1/objects", "/api/v1/objects"},
		{"/api/v1/positions", "/api/v1/positions"},

		// Parameterized routes collapse to one label each.
		{"/api/v1/objects/25544", "/api/v1/objects/{norad_id}"},
		{"/api/v1/propagate/25544", "/api/v1/propagate/{norad_id}"},
		{"/api/v1/propagate/1", "/api/v1/propagate/{norad_id}"},
		{"/api/v1/risk/44713", "/api/v1/risk/{norad_id}"},

		// Non-numeric ids and unknown paths collapse to "other".
		{"/api/v1/propagate/", "other"},
		{"/api/v1/propagate/iss", "other"},
		{"/api/v1/risk/1/2", "other"},
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/v2/objects", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeRoute(tt.path))
		})
	}
}

// TestMetricsCardinality verifies that 100 unique catalog ids produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute("/api/v1/propagate/"+strconv.Itoa(25000+i))] = true
	}
	assert.Len(t, seen, 1)
}

func TestMiddlewareCountsNormalizedRoute(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	counter := httpRequestsTotal.WithLabelValues("/api/v1/objects/{norad_id}", http.MethodGet, "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/objects/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestDomainCounters(t *testing.T) {
	loads := tleLoadsTotal.WithLabelValues("replace")
	beforeLoads := testutil.ToFloat64(loads)
	beforeRejected := testutil.ToFloat64(tleRejectedTotal)

	RecordLoad("replace", 2, 40)
	assert.Equal(t, beforeLoads+1, testutil.ToFloat64(loads))
	assert.Equal(t, beforeRejected+2, testutil.ToFloat64(tleRejectedTotal))
	assert.Equal(t, 40.0, testutil.ToFloat64(tleRecords))

	level := riskAssessmentsTotal.WithLabelValues("high")
	before := testutil.ToFloat64(level)
	IncRiskAssessment("high")
	assert.Equal(t, before+1, testutil.ToFloat64(level))

	beforeEvictions := testutil.ToFloat64(cacheEvictionsTotal)
	AddCacheEvictions(5)
	assert.Equal(t, beforeEvictions+5, testutil.ToFloat64(cacheEvictionsTotal))

	SetCacheEntries(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(cacheEntries))
}

func TestInitRiskLevels(t *testing.T) {
	InitRiskLevels("low", "moderate", "high", "critical")
	assert.GreaterOrEqual(t, testutil.CollectAndCount(riskAssessmentsTotal), 4)

	SetRecords(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(tleRecords))
}
