package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/metrics"
	"github.com/star/orbitrisk/internal/tle"
)

// ErrNoRecords is returned when a replacing load parses to zero records. The
// published catalog is left untouched.
var ErrNoRecords = errors.New("source contains no valid element sets")

// Loader fetches sources and publishes them into a store.
type Loader struct {
	fetcher *Fetcher
	store   *tle.Store
	logger  *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(fetcher *Fetcher, store *tle.Store, logger *zap.Logger) *Loader {
	return &Loader{fetcher: fetcher, store: store, logger: logger}
}

// ModeFor returns how a source kind is applied: CelesTrak groups replace the
// catalog, URLs and files merge into it.
func ModeFor(kind string) tle.LoadMode {
	if kind == KindCelesTrak {
		return tle.Replace
	}
	return tle.Merge
}

// Load fetches src and applies it with the source's default mode.
func (l *Loader) Load(ctx context.Context, src Source) (tle.LoadResult, error) {
	return l.LoadMode(ctx, src, ModeFor(src.Kind))
}

// LoadMode fetches src and applies it with mode.
func (l *Loader) LoadMode(ctx context.Context, src Source, mode tle.LoadMode) (tle.LoadResult, error) {
	start := time.Now()
	text, err := l.fetcher.Fetch(ctx, src)
	if err != nil {
		metrics.IncFetch(src.Kind, "error")
		return tle.LoadResult{Mode: mode}, err
	}
	metrics.IncFetch(src.Kind, "ok")

	res, err := l.Apply(text, mode)
	if err != nil {
		return res, err
	}

	l.logger.Info("TLE source loaded",
		zap.Stringer("source", src),
		zap.Stringer("mode", mode),
		zap.Int("loaded", res.Loaded),
		zap.Int("rejected", res.Rejected),
		zap.Int("total", res.Total),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res, nil
}

// Apply parses text and publishes it. A replacing load with no valid records
// fails with ErrNoRecords instead of emptying the catalog.
func (l *Loader) Apply(text string, mode tle.LoadMode) (tle.LoadResult, error) {
	batch := tle.ParseText(text)
	if mode == tle.Replace && len(batch.Records) == 0 {
		return tle.LoadResult{Mode: mode, Rejected: len(batch.Errors), Errors: batch.Errors, Total: l.store.Len()}, ErrNoRecords
	}

	res := l.store.ApplyBatch(batch, mode)
	metrics.RecordLoad(mode.String(), res.Rejected, res.Total)
	return res, nil
}

// Refresh reloads src every interval until ctx is cancelled. Failures are
// logged and the previous catalog stays published.
func (l *Loader) Refresh(ctx context.Context, src Source, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("TLE refresh stopped", zap.Stringer("source", src))
			return nil
		case <-ticker.C:
			if _, err := l.Load(ctx, src); err != nil && ctx.Err() == nil {
				l.logger.Warn("TLE refresh failed", zap.Stringer("source", src), zap.Error(err))
			}
		}
	}
}
