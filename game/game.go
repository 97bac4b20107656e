// Package game runs the disease engine inside a headless demonstration
// world: an ECS host population that wanders, catches, suffers, treats
// and dies of the diseases in the catalog.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/persistence"
	"github.com/pthm-cable/contagion/systems"
	"github.com/pthm-cable/contagion/telemetry"
)

// Options configures a Game.
type Options struct {
	Config *config.Config

	// Catalog overrides Config.Disease.CatalogPath when set.
	Catalog *disease.Catalog

	// StatsCallback is called with every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete headless run state.
type Game struct {
	cfg *config.Config
	rng *rand.Rand

	world    *World
	sim      *Simulation
	outbreak *Outbreak
	policy   *TreatmentPolicy // nil when treatment is disabled

	// Telemetry
	collector     *telemetry.Collector
	bookmarks     *telemetry.BookmarkDetector
	perf          *telemetry.PerfCollector
	registry      *systems.SystemRegistry
	output        *telemetry.OutputManager
	journal       *persistence.Journal
	pending       []telemetry.Event // events awaiting the next journal batch
	statsCallback func(telemetry.WindowStats)
	logStats      bool
}

// NewGame builds the world, seeds the outbreak, and opens output sinks.
func NewGame(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("game: config is required")
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		catalog, err = disease.LoadCatalog(cfg.Disease.CatalogPath, disease.Defaults{
			DetectionChance:  cfg.Disease.DetectionChance,
			MortalityPerHour: cfg.Disease.MortalityPerHour,
		})
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
	}
	seeds, err := ResolveDiseases(catalog, cfg.Outbreak.Seeds)
	if err != nil {
		return nil, fmt.Errorf("outbreak seeds: %w", err)
	}

	seed := cfg.Simulation.Seed
	world := NewWorld(WorldOptions{
		Width:        cfg.Derived.WorldW32,
		Height:       cfg.Derived.WorldH32,
		CellSize:     cfg.Derived.CellSize32,
		WanderSpeed:  float32(cfg.World.WanderSpeed),
		MaxNeighbors: cfg.World.MaxNeighbors,
		Seed:         seed + 1,
	})
	sim, err := NewSimulation(catalog, world.Collaborators(), seed)
	if err != nil {
		return nil, err
	}

	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed + 2)),
		world:         world,
		sim:           sim,
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindowSec, cfg.Simulation.DT),
		bookmarks:     telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		registry:      systems.NewSystemRegistry(),
		statsCallback: opts.StatsCallback,
		logStats:      cfg.Telemetry.LogStats,
	}
	sim.Perf = g.perf
	g.outbreak = NewOutbreak(sim, world, cfg.Outbreak.SpontaneousRate, g.rng)
	if cfg.Treatment.Enabled {
		g.policy = NewTreatmentPolicy(sim, world)
	}

	if err := g.openOutputs(); err != nil {
		g.Close()
		return nil, err
	}

	g.spawnInitialPopulation()
	infected := g.outbreak.Seed(seeds, cfg.Outbreak.InitialInfected)

	slog.Info("world ready",
		"seed", seed,
		"hosts", world.Population(),
		"diseases", catalog.Len(),
		"seeded", infected,
	)
	return g, nil
}

// openOutputs creates the CSV output directory and the journal, if
// configured.
func (g *Game) openOutputs() error {
	var err error
	g.output, err = telemetry.NewOutputManager(g.cfg.Telemetry.OutputDir)
	if err != nil {
		return fmt.Errorf("creating output manager: %w", err)
	}
	if err := g.output.WriteConfig(g.cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}
	if g.output != nil {
		slog.Info("output enabled", "dir", g.output.Dir())
	}

	if g.cfg.Journal.Path != "" {
		g.journal, err = persistence.Open(g.cfg.Journal.Path, g.cfg.Simulation.Seed, g.cfg)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
	}
	return nil
}

// Step runs one full tick: movement, spatial index, spontaneous cases,
// the disease engine, the treatment policy, cleanup and telemetry.
func (g *Game) Step() {
	dt := g.cfg.Simulation.DT
	g.perf.StartTick()

	g.perf.StartPhase(telemetry.PhaseMovement)
	g.world.Move(g.cfg.Derived.DT32)

	g.perf.StartPhase(telemetry.PhaseSpatialGrid)
	g.world.RebuildIndex()

	g.perf.StartPhase(telemetry.PhaseOutbreak)
	g.outbreak.Update(dt)

	// Progression and transmission phases are timed inside Step
	g.sim.Step(dt)

	if g.policy != nil && g.sim.Tick()%g.cfg.Derived.TreatmentTicks == 0 {
		g.perf.StartPhase(telemetry.PhaseTreatment)
		g.policy.Run()
	}

	g.perf.StartPhase(telemetry.PhaseCleanup)
	g.cleanupDead()

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.recordEvents()
	g.flushTelemetry()

	g.perf.EndTick()
}

// Run steps until maxTicks is reached (0 means no limit) or ctx is done.
func (g *Game) Run(ctx context.Context, maxTicks int) error {
	for maxTicks <= 0 || int(g.sim.Tick()) < maxTicks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		g.Step()
	}
	slog.Info("max ticks reached", "tick", g.sim.Tick())
	return nil
}

// Close flushes pending output and releases files.
func (g *Game) Close() error {
	var errs []error
	if g.journal != nil {
		if err := g.flushJournal(); err != nil {
			errs = append(errs, err)
		}
		g.logJournalSummary()
		errs = append(errs, g.journal.Close())
		g.journal = nil
	}
	if g.logStats {
		g.logPerfStats()
	}
	errs = append(errs, g.output.Close())
	g.output = nil
	return errors.Join(errs...)
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 {
	return g.sim.Tick()
}

// Simulation returns the disease engine.
func (g *Game) Simulation() *Simulation {
	return g.sim
}

// World returns the host population.
func (g *Game) World() *World {
	return g.world
}
