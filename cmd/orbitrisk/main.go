// Command orbitrisk serves a TLE catalog, SGP4 ground tracks and debris
// collision risk estimates over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/star/orbitrisk/internal/api"
	"github.com/star/orbitrisk/internal/cache"
	"github.com/star/orbitrisk/internal/config"
	"github.com/star/orbitrisk/internal/ingest"
	"github.com/star/orbitrisk/internal/logging"
	"github.com/star/orbitrisk/internal/propagation"
	"github.com/star/orbitrisk/internal/tle"
	"github.com/star/orbitrisk/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "orbitrisk:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings {
		logger.Warn("invalid configuration value, using default", zap.String("detail", w))
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer tracing.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	store := tle.NewStore(logger)
	fetcher := ingest.NewFetcher(ingest.FetcherConfig{
		Timeout: cfg.Source.Timeout,
		Retries: cfg.Source.Retries,
	}, logger)
	loader := ingest.NewLoader(fetcher, store, logger)

	src, hasSource := sourceFromConfig(cfg.Source)
	if hasSource {
		// A failed initial load is not fatal: /readyz stays 503 until a
		// later refresh or a POST /api/v1/tle/load succeeds.
		if _, err := loader.Load(ctx, src); err != nil {
			logger.Warn("initial TLE load failed", zap.Stringer("source", src), zap.Error(err))
		}
	} else {
		logger.Info("no TLE source configured, starting with an empty catalog")
	}

	prop := propagation.NewPropagator(store, propagation.Config{Workers: cfg.Propagation.Workers}, logger)
	tracks := cache.NewTrackCache(cache.Config{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	}, logger)

	srv := api.NewServer(api.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		TrustProxy:   cfg.HTTP.TrustProxy,
		SampleFile:   cfg.Source.File,
	}, api.Deps{
		Store:      store,
		Loader:     loader,
		Propagator: prop,
		Tracks:     tracks,
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	g.Go(func() error { return tracks.Start(gctx) })

	switch {
	case hasSource && src.Kind == ingest.KindFile && cfg.Source.Watch:
		watcher := ingest.NewWatcher(loader, src.Path, logger)
		g.Go(func() error { return watcher.Run(gctx) })
	case hasSource && src.Kind != ingest.KindFile && cfg.Source.RefreshInterval > 0:
		g.Go(func() error { return loader.Refresh(gctx, src, cfg.Source.RefreshInterval) })
	}

	return g.Wait()
}

// sourceFromConfig maps the configured source onto an ingest.Source.
func sourceFromConfig(sc config.SourceConfig) (ingest.Source, bool) {
	switch sc.Kind {
	case config.SourceCelesTrak:
		return ingest.Source{Kind: ingest.KindCelesTrak, Group: sc.Group}, true
	case config.SourceURL:
		return ingest.Source{Kind: ingest.KindURL, URL: sc.URL}, true
	case config.SourceFile:
		return ingest.Source{Kind: ingest.KindFile, Path: sc.File}, true
	default:
		return ingest.Source{}, false
	}
}
