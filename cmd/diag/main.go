// Command diag propagates one object from a local TLE file and prints its
// ground track and debris risk without starting the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/star/orbitrisk/internal/logging"
	"github.com/star/orbitrisk/internal/propagation"
	"github.com/star/orbitrisk/internal/risk"
	"github.com/star/orbitrisk/internal/tle"
)

func main() {
	var (
		file     = flag.String("file", "", "TLE file to load (required)")
		id       = flag.Int("id", 0, "NORAD catalog id (default: first record)")
		minutes  = flag.Int("minutes", 90, "track duration in minutes")
		step     = flag.Int("step", 60, "sample step in seconds")
		startStr = flag.String("start", "", "track start, RFC 3339 (default: now)")
		area     = flag.Float64("area", 10, "cross-section area in m²")
		days     = flag.Float64("days", 365, "exposure duration in days")
	)
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR building logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("reading TLE file", zap.String("file", *file), zap.Error(err))
	}

	store := tle.NewStore(logger)
	res := store.Apply(string(data), tle.Replace)
	fmt.Printf("Loaded %d TLE records (%d rejected)\n", res.Loaded, res.Rejected)
	for _, e := range res.Errors {
		fmt.Printf("  rejected: %v\n", e)
	}
	if res.Total == 0 {
		os.Exit(1)
	}

	var rec tle.Record
	if *id == 0 {
		rec = store.Records(1)[0]
	} else if rec, err = store.Lookup(*id); err != nil {
		logger.Fatal("lookup", zap.Error(err))
	}

	var start time.Time
	if *startStr != "" {
		if start, err = time.Parse(time.RFC3339, *startStr); err != nil {
			logger.Fatal("parsing -start", zap.Error(err))
		}
	}

	el := rec.Elements()
	fmt.Printf("%s (NORAD %d) epoch %s\n", rec.Name, rec.CatalogID, rec.Epoch.Format(time.RFC3339))
	fmt.Printf("  inc=%.4f° ecc=%.7f period=%.2f min perigee=%.1f km apogee=%.1f km\n",
		el.InclinationDeg, el.Eccentricity, el.PeriodMinutes, el.PerigeeKm, el.ApogeeKm)

	samples, err := propagation.Propagate(rec, start, *minutes, *step)
	if err != nil {
		fmt.Printf("  propagation ERROR: %v\n", err)
	} else {
		fmt.Printf("\nGround track (%d samples):\n", len(samples))
		for _, s := range samples {
			fmt.Printf("  %s  lat=%8.3f  lon=%9.3f  alt=%8.2f km\n",
				s.Timestamp.Format(time.RFC3339), s.LatitudeDeg, s.LongitudeDeg, s.AltitudeKm)
		}
	}

	p := risk.DefaultParams()
	p.AltitudeKm = el.MeanAltitudeKm
	p.InclinationDeg = el.InclinationDeg
	p.AreaM2 = *area
	p.DurationDays = *days

	r, err := risk.Assess(p)
	if err != nil {
		fmt.Printf("\nrisk ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDebris risk at %.1f km over %.0f days, %.1f m², %g-%g cm:\n",
		p.AltitudeKm, p.DurationDays, p.AreaM2, p.SizeMinCm, p.SizeMaxCm)
	fmt.Printf("  flux=%.3e /m²/yr  probability=%.3e  level=%s\n", r.Flux, r.Probability, r.Level)
}
