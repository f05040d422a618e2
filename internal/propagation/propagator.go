package propagation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/tle"
)

// Config holds propagation settings.
type Config struct {
	Workers int // worker pool size for batch positions
}

// sgp4Cache holds initialized SGP4 models for one published catalog version.
// Immutable after construction; safe for concurrent reads.
type sgp4Cache struct {
	props   map[int]*SGP4Propagator
	version uint64
}

// Propagator computes positions for many catalog records at once.
type Propagator struct {
	store  *tle.Store
	pool   *WorkerPool
	logger *zap.Logger
	sgp4   atomic.Pointer[sgp4Cache]
	sgp4Mu sync.Mutex // serializes cache rebuilds
}

// NewPropagator creates a batch propagator reading from store.
func NewPropagator(store *tle.Store, cfg Config, logger *zap.Logger) *Propagator {
	return &Propagator{
		store:  store,
		pool:   NewWorkerPool(cfg.Workers, logger),
		logger: logger,
	}
}

// cachedProps returns initialized models for the current catalog version,
// rebuilding them when the store has published a new catalog.
func (p *Propagator) cachedProps() map[int]*SGP4Propagator {
	version := p.store.Version()
	if c := p.sgp4.Load(); c != nil && c.version == version {
		return c.props
	}

	p.sgp4Mu.Lock()
	defer p.sgp4Mu.Unlock()

	if c := p.sgp4.Load(); c != nil && c.version == version {
		return c.props
	}

	recs := p.store.Records(p.store.Len())
	props := make(map[int]*SGP4Propagator, len(recs))
	var skipped int
	for _, rec := range recs {
		sp, err := NewSGP4Propagator(rec)
		if err != nil {
			p.logger.Warn("sgp4 init failed", zap.Int("norad_id", rec.CatalogID), zap.Error(err))
			skipped++
			continue
		}
		props[rec.CatalogID] = sp
	}

	p.logger.Info("sgp4 model cache rebuilt",
		zap.Int("cached", len(props)),
		zap.Int("skipped", skipped),
		zap.Uint64("catalog_version", version),
	)
	p.sgp4.Store(&sgp4Cache{props: props, version: version})
	return props
}

// PositionsAt computes the sub-point of up to limit catalog records (in
// ascending catalog order) at instant t. Records that fail to propagate are
// logged and counted, never returned.
func (p *Propagator) PositionsAt(ctx context.Context, t time.Time, limit int) ([]Position, int, int) {
	recs := p.store.Records(limit)
	if len(recs) == 0 {
		return nil, 0, 0
	}

	props := p.cachedProps()
	start := time.Now()
	positions, ok, failed := p.pool.PositionsAt(ctx, recs, t, props)

	p.logger.Debug("batch positions computed",
		zap.Int("success", ok),
		zap.Int("errors", failed),
		zap.Time("target_time", t),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return positions, ok, failed
}
