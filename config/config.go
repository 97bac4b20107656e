// Package config provides configuration loading for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	World      WorldConfig      `yaml:"world"`
	Population PopulationConfig `yaml:"population"`
	Disease    DiseaseConfig    `yaml:"disease"`
	Outbreak   OutbreakConfig   `yaml:"outbreak"`
	Treatment  TreatmentConfig  `yaml:"treatment"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Journal    JournalConfig    `yaml:"journal"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds tick settings.
type SimulationConfig struct {
	DT       float64 `yaml:"dt"        env:"CONTAGION_DT"`        // seconds per tick
	Seed     int64   `yaml:"seed"      env:"CONTAGION_SEED"`      // RNG seed for the tick systems
	MaxTicks int     `yaml:"max_ticks" env:"CONTAGION_MAX_TICKS"` // 0 runs until interrupted
}

// WorldConfig holds the toroidal world the demo hosts wander in.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial grid cell, should be >= largest transmission radius
	WanderSpeed  float64 `yaml:"wander_speed"`   // world units per second
	MaxNeighbors int     `yaml:"max_neighbors"`  // cap per spatial query, 0 = unlimited
}

// PopulationConfig holds the starting population.
type PopulationConfig struct {
	NPCs          int            `yaml:"npcs"    env:"CONTAGION_NPCS"`
	Animals       int            `yaml:"animals" env:"CONTAGION_ANIMALS"`
	Players       int            `yaml:"players"`
	StartingCoins int            `yaml:"starting_coins"`
	StartingItems map[string]int `yaml:"starting_items"`
}

// DiseaseConfig locates the catalog and fills in parameters it omits.
type DiseaseConfig struct {
	CatalogPath      string  `yaml:"catalog_path"       env:"CONTAGION_CATALOG"` // empty uses the embedded catalog
	DetectionChance  float64 `yaml:"detection_chance"`                           // per tick, when a disease leaves it unset
	MortalityPerHour float64 `yaml:"mortality_per_hour"`                         // when a fatal disease leaves it unset
}

// OutbreakConfig seeds infections.
type OutbreakConfig struct {
	Seeds           []string `yaml:"seeds"`            // disease names infected at start
	InitialInfected int      `yaml:"initial_infected"` // hosts per seed disease
	SpontaneousRate float64  `yaml:"spontaneous_rate"` // per host per second
}

// TreatmentConfig controls the host treatment policy.
type TreatmentConfig struct {
	Enabled  bool    `yaml:"enabled"  env:"CONTAGION_TREATMENT"`
	Interval float64 `yaml:"interval"` // seconds between policy passes
}

// TelemetryConfig holds stats and perf settings.
type TelemetryConfig struct {
	StatsWindowSec  float64 `yaml:"stats_window_sec"`
	PerfWindow      int     `yaml:"perf_window"` // ticks averaged per perf sample
	BookmarkHistory int     `yaml:"bookmark_history"`
	OutputDir       string  `yaml:"output_dir" env:"CONTAGION_OUTPUT_DIR"`
	LogStats        bool    `yaml:"log_stats"  env:"CONTAGION_LOG_STATS"`
}

// JournalConfig holds the SQLite event journal settings.
type JournalConfig struct {
	Path      string `yaml:"path"       env:"CONTAGION_JOURNAL"` // empty disables the journal
	BatchSize int    `yaml:"batch_size"`                         // events per transaction
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32           float32 // Simulation.DT as float32
	WorldW32       float32 // World.Width as float32
	WorldH32       float32 // World.Height as float32
	CellSize32     float32 // World.GridCellSize as float32
	WindowTicks    int32   // ticks per stats window
	TreatmentTicks int32   // ticks between treatment passes
}

// Load loads configuration from a YAML file, merging with embedded defaults,
// then applies CONTAGION_* environment overrides.
// If path is empty, only embedded defaults and the environment are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.Derive()

	return cfg, nil
}

// ParseEnv overlays environment variables onto target. Unset variables
// leave fields untouched.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Simulation.DT > 0, "simulation.dt must be positive, got %v", c.Simulation.DT)
	check(c.Simulation.MaxTicks >= 0, "simulation.max_ticks must not be negative")
	check(c.World.Width > 0 && c.World.Height > 0, "world size must be positive, got %vx%v", c.World.Width, c.World.Height)
	check(c.World.GridCellSize > 0, "world.grid_cell_size must be positive")
	check(c.World.WanderSpeed >= 0, "world.wander_speed must not be negative")
	check(c.World.MaxNeighbors >= 0, "world.max_neighbors must not be negative")
	check(c.Population.NPCs >= 0 && c.Population.Animals >= 0 && c.Population.Players >= 0,
		"population counts must not be negative")
	check(c.Population.StartingCoins >= 0, "population.starting_coins must not be negative")
	check(inUnit(c.Disease.DetectionChance), "disease.detection_chance must be in [0,1], got %v", c.Disease.DetectionChance)
	check(inUnit(c.Disease.MortalityPerHour), "disease.mortality_per_hour must be in [0,1], got %v", c.Disease.MortalityPerHour)
	check(c.Outbreak.InitialInfected >= 0, "outbreak.initial_infected must not be negative")
	check(inUnit(c.Outbreak.SpontaneousRate), "outbreak.spontaneous_rate must be in [0,1], got %v", c.Outbreak.SpontaneousRate)
	check(c.Treatment.Interval >= 0, "treatment.interval must not be negative")
	check(c.Telemetry.StatsWindowSec > 0, "telemetry.stats_window_sec must be positive")
	check(c.Journal.BatchSize >= 0, "journal.batch_size must not be negative")

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func inUnit(p float64) bool {
	return p >= 0 && p <= 1
}

// Derive recomputes the derived values. Call it after changing a loaded
// config in place.
func (c *Config) Derive() {
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.CellSize32 = float32(c.World.GridCellSize)
	c.Derived.WindowTicks = max(1, int32(c.Telemetry.StatsWindowSec/c.Simulation.DT))
	c.Derived.TreatmentTicks = max(1, int32(c.Treatment.Interval/c.Simulation.DT))

	if c.Telemetry.PerfWindow < 1 {
		c.Telemetry.PerfWindow = 60
	}
	if c.Telemetry.BookmarkHistory < 5 {
		c.Telemetry.BookmarkHistory = 5
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = 256
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
