package propagation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/tle"
)

// Sun-synchronous LEO at ~700-800 km, 98.18 deg inclination.
const (
	sunSyncLine1 = "1 39634U 14016A   24100.50000000  .00000050  00000-0  20000-4 0  9998"
	sunSyncLine2 = "2 39634  98.1820 110.0000 0001300  85.0000 275.0000 14.30000000 52913"
)

// ISS-like orbit.
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9007"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"
)

// Starlink-like shell.
const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9996"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    07"
)

// Eccentricity 0.5 at 15.5 rev/day puts perigee well inside the Earth.
const (
	decayedLine1 = "1 90001U 24001A   24100.50000000  .00000000  00000-0  00000-0 0  9997"
	decayedLine2 = "2 90001  45.0000  10.0000 5000000   0.0000   0.0000 15.50000000    08"
)

// Epoch of every fixture: 2024 day 100.5.
var epoch = time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)

func mustRecord(t testing.TB, name, l1, l2 string) tle.Record {
	t.Helper()
	rec, err := tle.ParseLines(name, l1, l2)
	require.NoError(t, err)
	return rec
}

func TestPropagateSunSyncTrack(t *testing.T) {
	rec := mustRecord(t, "SUNSYNC-1", sunSyncLine1, sunSyncLine2)

	samples, err := Propagate(rec, epoch, 120, 60)
	require.NoError(t, err)
	require.Len(t, samples, 121)

	var maxAbsLat float64
	for i, s := range samples {
		assert.True(t, s.Timestamp.Equal(epoch.Add(time.Duration(i)*time.Minute)), "sample %d timestamp", i)
		assert.GreaterOrEqual(t, s.LatitudeDeg, -90.0)
		assert.LessOrEqual(t, s.LatitudeDeg, 90.0)
		assert.Greater(t, s.LongitudeDeg, -180.0)
		assert.LessOrEqual(t, s.LongitudeDeg, 180.0)
		assert.Greater(t, s.AltitudeKm, 700.0, "sample %d altitude", i)
		assert.Less(t, s.AltitudeKm, 900.0, "sample %d altitude", i)
		maxAbsLat = math.Max(maxAbsLat, math.Abs(s.LatitudeDeg))
	}

	// A 98.18 deg orbit reaches 180-98.18 = 81.8 deg of latitude, and two
	// hours cover more than one revolution.
	assert.Greater(t, maxAbsLat, 75.0)
	assert.Less(t, maxAbsLat, 84.0)
}

func TestPropagateSampleCount(t *testing.T) {
	rec := mustRecord(t, "ISS", issLine1, issLine2)

	tests := []struct {
		minutes, step, want int
	}{
		{0, 60, 1},
		{1, 60, 2},
		{10, 60, 11},
		{10, 7, 86},
		{5, 600, 1},
		{90, 30, 181},
	}
	for _, tt := range tests {
		samples, err := Propagate(rec, epoch, tt.minutes, tt.step)
		require.NoError(t, err)
		require.Len(t, samples, tt.want, "minutes=%d step=%d", tt.minutes, tt.step)
		assert.Equal(t, tt.want, SampleCount(tt.minutes, tt.step))

		for i := 1; i < len(samples); i++ {
			assert.Equal(t, time.Duration(tt.step)*time.Second, samples[i].Timestamp.Sub(samples[i-1].Timestamp))
		}
	}
}

func TestPropagateInvalidWindow(t *testing.T) {
	rec := mustRecord(t, "ISS", issLine1, issLine2)

	for _, w := range [][2]int{{-1, 60}, {10, 0}, {10, -5}} {
		samples, err := Propagate(rec, epoch, w[0], w[1])
		assert.ErrorIs(t, err, ErrInvalidWindow)
		assert.Nil(t, samples)
	}
	assert.Equal(t, 0, SampleCount(-1, 60))
}

func TestPropagateDecayedElementSet(t *testing.T) {
	rec := mustRecord(t, "DECAYED", decayedLine1, decayedLine2)

	samples, err := Propagate(rec, epoch, 30, 60)
	require.Error(t, err)
	assert.Nil(t, samples)

	var pe *PropagationError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 90001, pe.CatalogID)
	assert.Equal(t, subOrbitalCode, pe.Code)
}

func TestPropagateCorruptRecord(t *testing.T) {
	rec := mustRecord(t, "ISS", issLine1, issLine2)
	rec.Line2 = rec.Line2[:20] + "x" + rec.Line2[21:]

	_, err := Propagate(rec, epoch, 10, 60)
	var pe *PropagationError
	require.True(t, errors.As(err, &pe))

	var parseErr *tle.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestPropagateDeterministic(t *testing.T) {
	rec := mustRecord(t, "STARLINK-1007", starlinkLine1, starlinkLine2)

	a, err := Propagate(rec, epoch, 30, 30)
	require.NoError(t, err)
	b, err := Propagate(rec, epoch, 30, 30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPropagateTruncatesStart(t *testing.T) {
	rec := mustRecord(t, "ISS", issLine1, issLine2)

	samples, err := Propagate(rec, epoch.Add(750*time.Millisecond), 1, 30)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.True(t, samples[0].Timestamp.Equal(epoch))
}

func TestPropagateZeroStartUsesNow(t *testing.T) {
	rec := mustRecord(t, "SUNSYNC-1", sunSyncLine1, sunSyncLine2)

	before := time.Now().UTC().Truncate(time.Second)
	samples, err := Propagate(rec, time.Time{}, 0, 60)
	if err != nil {
		// Far from epoch the synthetic elements may have decayed.
		var pe *PropagationError
		require.True(t, errors.As(err, &pe))
		return
	}
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Timestamp.Before(before))
	assert.Equal(t, time.UTC, samples[0].Timestamp.Location())
}

func TestInclination(t *testing.T) {
	tests := []struct {
		name   string
		l1, l2 string
		want   float64
	}{
		{"sun-synchronous", sunSyncLine1, sunSyncLine2, 98.182},
		{"iss", issLine1, issLine2, 51.64},
		{"starlink", starlinkLine1, starlinkLine2, 53.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc, err := Inclination(mustRecord(t, tt.name, tt.l1, tt.l2))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, inc, 1e-9)
		})
	}
}

func TestSGP4PropagatorRadius(t *testing.T) {
	prop, err := NewSGP4Propagator(mustRecord(t, "ISS", issLine1, issLine2))
	require.NoError(t, err)
	assert.Equal(t, 25544, prop.CatalogID())

	teme, err := prop.PositionAt(epoch.Add(time.Hour))
	require.NoError(t, err)
	// ~15.5 rev/day puts the radius near 6790 km.
	assert.InDelta(t, 6790, teme.Radius(), 150)
}

func TestWorkerPoolPositionsAt(t *testing.T) {
	pool := NewWorkerPool(4, zap.NewNop())
	recs := []tle.Record{
		mustRecord(t, "STARLINK-1007", starlinkLine1, starlinkLine2),
		mustRecord(t, "ISS", issLine1, issLine2),
		mustRecord(t, "DECAYED", decayedLine1, decayedLine2),
		mustRecord(t, "SUNSYNC-1", sunSyncLine1, sunSyncLine2),
	}

	positions, ok, failed := pool.PositionsAt(context.Background(), recs, epoch, nil)
	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, failed)
	require.Len(t, positions, 3)

	assert.Equal(t, 25544, positions[0].CatalogID)
	assert.Equal(t, 39634, positions[1].CatalogID)
	assert.Equal(t, 44713, positions[2].CatalogID)
	assert.Equal(t, "ISS", positions[0].Name)

	// Batch results match the single-record track at the same instant.
	for _, p := range positions {
		rec := recs[0]
		for _, r := range recs {
			if r.CatalogID == p.CatalogID {
				rec = r
			}
		}
		track, err := Propagate(rec, epoch, 0, 60)
		require.NoError(t, err)
		assert.Equal(t, track[0], p.Sample)
	}
}

func TestWorkerPoolCancellation(t *testing.T) {
	pool := NewWorkerPool(2, zap.NewNop())

	recs := make([]tle.Record, 100)
	base := mustRecord(t, "ISS", issLine1, issLine2)
	for i := range recs {
		recs[i] = base
		recs[i].CatalogID = 25544 + i
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	positions, _, _ := pool.PositionsAt(ctx, recs, epoch, nil)
	assert.Less(t, len(positions), len(recs))
}

func TestWorkerPoolDefaultsWorkers(t *testing.T) {
	pool := NewWorkerPool(0, zap.NewNop())
	assert.Positive(t, pool.workers)
}

func TestPropagatorUsesStoreVersion(t *testing.T) {
	store := tle.NewStore(zap.NewNop())
	store.Load("ISS\n" + issLine1 + "\n" + issLine2 + "\n")

	prop := NewPropagator(store, Config{Workers: 2}, zap.NewNop())
	positions, ok, failed := prop.PositionsAt(context.Background(), epoch, 10)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)
	require.Len(t, positions, 1)

	first := prop.sgp4.Load()
	require.NotNil(t, first)

	// Same version reuses the cached models.
	prop.PositionsAt(context.Background(), epoch, 10)
	assert.Same(t, first, prop.sgp4.Load())

	store.Load("SUNSYNC-1\n" + sunSyncLine1 + "\n" + sunSyncLine2 + "\n")
	positions, ok, _ = prop.PositionsAt(context.Background(), epoch, 10)
	assert.Equal(t, 2, ok)
	assert.Len(t, positions, 2)
	assert.NotSame(t, first, prop.sgp4.Load())
	assert.Len(t, prop.sgp4.Load().props, 2)
}

func TestPropagatorEmptyStore(t *testing.T) {
	prop := NewPropagator(tle.NewStore(zap.NewNop()), Config{Workers: 2}, zap.NewNop())
	positions, ok, failed := prop.PositionsAt(context.Background(), epoch, 10)
	assert.Nil(t, positions)
	assert.Zero(t, ok)
	assert.Zero(t, failed)
}

func BenchmarkPositionsAt1000(b *testing.B) {
	base := mustRecord(b, "ISS", issLine1, issLine2)
	recs := make([]tle.Record, 1000)
	for i := range recs {
		recs[i] = base
		recs[i].CatalogID = 25544 + i
	}

	pool := NewWorkerPool(4, zap.NewNop())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.PositionsAt(ctx, recs, epoch, nil)
	}
}
