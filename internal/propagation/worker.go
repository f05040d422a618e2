package propagation

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/tle"
)

// Position is one catalog object's sub-point at a shared instant.
type Position struct {
	CatalogID int    `json:"norad_id"`
	Name      string `json:"name,omitempty"`
	Sample
}

// positionJob is a unit of work for the worker pool.
type positionJob struct {
	rec  tle.Record
	prop *SGP4Propagator // nil when no cached model exists
	at   time.Time
}

// positionResult is the output of a single sub-point computation.
type positionResult struct {
	position Position
	err      error
	id       int
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 propagation.
type WorkerPool struct {
	workers int
	logger  *zap.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// Non-positive values fall back to GOMAXPROCS.
func NewWorkerPool(workers int, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PositionsAt computes every record's sub-point at t. props may carry
// pre-initialized models keyed by catalog ID; records without one are
// initialized on the fly. Failed records are logged and skipped. Results come
// back in ascending catalog order along with success and error counts.
func (wp *WorkerPool) PositionsAt(ctx context.Context, recs []tle.Record, t time.Time, props map[int]*SGP4Propagator) ([]Position, int, int) {
	if len(recs) == 0 {
		return nil, 0, 0
	}
	t = t.UTC().Truncate(time.Second)

	jobs := make(chan positionJob, wp.workers*2)
	results := make(chan positionResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := positionSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rec := range recs {
			job := positionJob{rec: rec, prop: props[rec.CatalogID], at: t}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]Position, 0, len(recs))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				zap.Int("norad_id", result.id),
				zap.Error(result.err),
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].CatalogID < positions[j].CatalogID })
	return positions, successCount, errorCount
}

// positionSingle runs SGP4 and the geodetic conversion for one record.
func positionSingle(job positionJob) positionResult {
	prop := job.prop
	if prop == nil {
		var err error
		prop, err = NewSGP4Propagator(job.rec)
		if err != nil {
			return positionResult{id: job.rec.CatalogID, err: err}
		}
	}

	g, err := prop.SubPointAt(job.at)
	if err != nil {
		return positionResult{id: job.rec.CatalogID, err: err}
	}

	return positionResult{
		id: job.rec.CatalogID,
		position: Position{
			CatalogID: job.rec.CatalogID,
			Name:      job.rec.Name,
			Sample: Sample{
				Timestamp:    job.at,
				LatitudeDeg:  g.LatDeg,
				LongitudeDeg: g.LonDeg,
				AltitudeKm:   g.AltKm,
			},
		},
	}
}
