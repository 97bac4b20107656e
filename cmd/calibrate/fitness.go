package main

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/game"
	"github.com/pthm-cable/contagion/telemetry"
)

// failedFitness is returned when a parameter vector cannot be evaluated.
const failedFitness = 1e9

// Fitness component weights.
const (
	weightStability = 0.25

	warmupWindows = 2 // skip first N windows while the outbreak takes hold
)

// FitnessEvaluator runs headless simulations and scores how close they
// come to a target endemic prevalence.
type FitnessEvaluator struct {
	params      *ParamVector
	maxTicks    int32
	seeds       []int64
	baseConfig  *config.Config
	target      float64 // desired mean prevalence after warmup
	deathWeight float64 // penalty per death, as a fraction of the population

	mu   sync.Mutex
	last Summary
}

// Summary describes the outcome of one evaluation, averaged over seeds.
type Summary struct {
	Fitness        float64 `json:"fitness"`
	MeanPrevalence float64 `json:"mean_prevalence"`
	DeathsPerHost  float64 `json:"deaths_per_host"`
	Eradicated     int     `json:"eradicated"` // seeds whose outbreak died out
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, target, deathWeight float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		target:      target,
		deathWeight: deathWeight,
	}
}

// Last returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) Last() Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windows    []telemetry.WindowStats // collected via StatsCallback each window
	hosts      int                     // population at start
	eradicated bool
	err        error
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.configFor(x)

	// All seeds share one catalog; it is read-only once loaded.
	catalog, err := disease.LoadCatalog(cfg.Disease.CatalogPath, disease.Defaults{
		DetectionChance:  cfg.Disease.DetectionChance,
		MortalityPerHour: cfg.Disease.MortalityPerHour,
	})
	if err != nil {
		fe.record(Summary{Fitness: failedFitness})
		return failedFitness
	}

	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(cfg, catalog, s)
		}(i, seed)
	}
	wg.Wait()

	expected := int(fe.maxTicks / cfg.Derived.WindowTicks)
	var sum Summary
	for _, r := range results {
		if r.err != nil {
			fe.record(Summary{Fitness: failedFitness})
			return failedFitness
		}
		s := fe.score(r, expected)
		sum.Fitness += s.Fitness
		sum.MeanPrevalence += s.MeanPrevalence
		sum.DeathsPerHost += s.DeathsPerHost
		sum.Eradicated += s.Eradicated
	}
	n := float64(len(results))
	sum.Fitness /= n
	sum.MeanPrevalence /= n
	sum.DeathsPerHost /= n

	fe.record(sum)
	return sum.Fitness
}

func (fe *FitnessEvaluator) record(s Summary) {
	fe.mu.Lock()
	fe.last = s
	fe.mu.Unlock()
}

// configFor returns a copy of the base config with x applied. Maps and
// slices stay shared with the base; nothing downstream writes to them.
func (fe *FitnessEvaluator) configFor(x []float64) *config.Config {
	cfg := *fe.baseConfig
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.LogStats = false
	cfg.Journal.Path = ""
	fe.params.ApplyToConfig(&cfg, x)
	return &cfg
}

// runSimulation executes a single headless run. It stops early once no
// active infection is left and nothing can start a new one.
func (fe *FitnessEvaluator) runSimulation(base *config.Config, catalog *disease.Catalog, seed int64) runResult {
	cfg := *base
	cfg.Simulation.Seed = seed

	var result runResult
	g, err := game.NewGame(game.Options{
		Config:  &cfg,
		Catalog: catalog,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windows = append(result.windows, stats)
		},
	})
	if err != nil {
		result.err = err
		return result
	}
	defer g.Close()

	result.hosts = g.World().Population()
	window := cfg.Derived.WindowTicks
	canReseed := cfg.Outbreak.SpontaneousRate > 0

	for g.Tick() < fe.maxTicks {
		g.Step()
		if canReseed || g.Tick()%window != 0 {
			continue
		}
		if len(g.Simulation().Ledger().Census()) == 0 {
			result.eradicated = true
			break
		}
	}
	return result
}

// score turns one run into a fitness. Windows a run never reached
// because the outbreak died out count as zero prevalence.
func (fe *FitnessEvaluator) score(r runResult, expected int) Summary {
	prevalence := make([]float64, 0, max(expected, len(r.windows)))
	deaths := 0
	for i, w := range r.windows {
		deaths += w.Deaths
		if i >= warmupWindows {
			prevalence = append(prevalence, w.Prevalence)
		}
	}
	for i := len(r.windows); i < expected; i++ {
		if i >= warmupWindows {
			prevalence = append(prevalence, 0)
		}
	}

	s := Summary{}
	if r.eradicated {
		s.Eradicated = 1
	}
	if r.hosts > 0 {
		s.DeathsPerHost = float64(deaths) / float64(r.hosts)
	}
	if len(prevalence) == 0 {
		s.Fitness = failedFitness
		return s
	}

	s.MeanPrevalence = stat.Mean(prevalence, nil)
	relErr := (s.MeanPrevalence - fe.target) / fe.target
	spread := cv(prevalence)

	s.Fitness = relErr*relErr +
		weightStability*spread*spread +
		fe.deathWeight*s.DeathsPerHost
	return s
}

// cv is the population coefficient of variation (std/mean), 0 for an
// empty or zero-mean slice.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, std := stat.PopMeanStdDev(values, nil)
	if m == 0 {
		return 0
	}
	return std / m
}
