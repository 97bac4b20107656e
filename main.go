package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config, -1 = time-based)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	journal := flag.String("journal", "", "SQLite event journal path")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI flags override the file and environment
	switch {
	case *seed == -1:
		cfg.Simulation.Seed = time.Now().UnixNano()
	case *seed != 0:
		cfg.Simulation.Seed = *seed
	}
	if *maxTicks >= 0 {
		cfg.Simulation.MaxTicks = *maxTicks
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *journal != "" {
		cfg.Journal.Path = *journal
	}
	if *logStats {
		cfg.Telemetry.LogStats = true
	}

	g, err := game.NewGame(game.Options{Config: cfg})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting headless simulation",
		"seed", cfg.Simulation.Seed,
		"dt", cfg.Simulation.DT,
		"max_ticks", cfg.Simulation.MaxTicks,
	)

	runErr := g.Run(ctx, cfg.Simulation.MaxTicks)
	if errors.Is(runErr, context.Canceled) {
		slog.Info("interrupted", "tick", g.Tick())
		runErr = nil
	}
	if err := g.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "error", runErr)
		os.Exit(1)
	}
}
