// Command battlesim runs a standalone scenario against the
// simulation core and exposes a /metrics endpoint. It plays the role
// the teacher's cmd/simulator/main.go plays for the network
// simulation: a flag-driven entry point that wires up the domain,
// starts a tick loop, and prints progress — except this one drives
// the fixed-timestep battle core instead of a wall-clock-ticker
// network model.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/constellation-simulator/internal/config"
	"github.com/signalsfoundry/constellation-simulator/internal/logging"
	"github.com/signalsfoundry/constellation-simulator/internal/model"
	"github.com/signalsfoundry/constellation-simulator/internal/observability"
	"github.com/signalsfoundry/constellation-simulator/internal/persist"
	"github.com/signalsfoundry/constellation-simulator/internal/sim"
	"github.com/signalsfoundry/constellation-simulator/internal/terrain"
)

func main() {
	duration := flag.Duration("duration", 5*time.Second, "total simulated duration to run (S5: 5s)")
	rate := flag.String("rate", "performance20hz", "tick rate: normal30hz or performance20hz")
	metricsAddr := flag.String("metrics-addr", ":9095", "address to serve /metrics on")
	historyPath := flag.String("history", "", "path to a sqlite history archive; empty disables it")
	squadsPerSide := flag.Int("squads-per-side", 500, "squads to mass-spawn per faction (S5 default: 500)")
	spread := flag.Float64("spread", 200.0, "spawn formation spread, world units (S5 default: 200)")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracingCfg := observability.TracingConfigFromEnv()
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
	} else {
		defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	}

	metrics, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics collector init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	tickMetrics, err := observability.NewTickCollector(nil)
	if err != nil {
		log.Error(ctx, "tick collector init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	var history *persist.History
	if *historyPath != "" {
		history, err = persist.OpenHistory(*historyPath)
		if err != nil {
			log.Error(ctx, "history open failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer history.Close()
	}

	cfg := config.DefaultSimConfig()
	if *rate == "normal30hz" {
		cfg.Rate = config.Normal30Hz
	} else {
		cfg.Rate = config.Performance20Hz
	}
	cfg.HistoryEnabled = history != nil

	grid := terrain.NewGrid(200, 200, -500, -500, 5.0)

	s := sim.New(cfg, grid, sim.Options{
		Logger:      log,
		Metrics:     metrics,
		TickMetrics: tickMetrics,
		History:     history,
	})

	if _, err := s.SpawnMass(ctx, model.FactionBlue, -150, 0, *squadsPerSide, *spread, 1); err != nil {
		log.Error(ctx, "spawn mass blue failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if _, err := s.SpawnMass(ctx, model.FactionRed, 150, 0, *squadsPerSide, *spread, 10000); err != nil {
		log.Error(ctx, "spawn mass red failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	httpServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "metrics server failed", logging.String("error", err.Error()))
		}
	}()
	defer httpServer.Shutdown(context.Background())

	fixedTimestep := cfg.Rate.FixedTimestep()
	ticker := time.NewTicker(fixedTimestep)
	defer ticker.Stop()

	snapshotEvery := 30 // ticks between progress logs
	tickCount := 0

	log.Info(ctx, "starting scenario",
		logging.Int("squads_per_side", *squadsPerSide),
		logging.String("rate", *rate),
		logging.String("duration", duration.String()),
	)

	for s.CurrentTime() < duration.Seconds() {
		select {
		case <-ctx.Done():
			log.Info(ctx, "interrupted, stopping")
			return
		case <-ticker.C:
			ran, err := s.Step(ctx, fixedTimestep.Seconds())
			if err != nil {
				log.Error(ctx, "step failed", logging.String("error", err.Error()))
				return
			}
			tickCount += ran
			if tickCount%snapshotEvery == 0 {
				snap := s.StructuredSnapshot()
				log.Info(ctx, "tick snapshot",
					logging.Int("tick", int(snap.Tick)),
					logging.Any("time", snap.Time),
					logging.Int("squads", len(snap.Squads)),
				)
			}
		}
	}

	final := s.StructuredSnapshot()
	fmt.Printf("scenario complete: tick=%d time=%.2fs squads=%d\n", final.Tick, final.Time, len(final.Squads))
}
