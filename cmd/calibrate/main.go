// Package main provides CMA-ES calibration of outbreak parameters: it
// searches for settings that hold a target endemic prevalence with as
// few deaths as possible.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/contagion/config"
)

type options struct {
	configPath  string
	outputDir   string
	maxTicks    int
	seeds       int
	maxEvals    int
	population  int
	target      float64
	deathWeight float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.IntVar(&opts.maxTicks, "max-ticks", 7200, "Simulation length per run in ticks")
	flag.IntVar(&opts.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.Float64Var(&opts.target, "target", 0.15, "Target mean prevalence after warmup")
	flag.Float64Var(&opts.deathWeight, "death-weight", 1.0, "Penalty per death as a fraction of the population")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	// Each run logs its own setup; keep only warnings.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	if opts.outputDir == "" {
		return errors.New("--output is required")
	}
	if opts.target <= 0 || opts.target > 1 {
		return fmt.Errorf("--target must be in (0,1], got %v", opts.target)
	}
	if opts.seeds < 1 {
		return fmt.Errorf("--seeds must be at least 1, got %d", opts.seeds)
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := NewParamVector()
	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, int32(opts.maxTicks), seeds, baseCfg, opts.target, opts.deathWeight)

	tr, err := newTracker(filepath.Join(opts.outputDir, "calibrate_log.csv"), params, opts.maxEvals, len(seeds))
	if err != nil {
		return err
	}
	defer tr.Close()

	dim := params.Dim()
	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Denormalize(x)
			fitness := evaluator.Evaluate(raw)
			tr.Record(params.Clamp(raw), fitness, evaluator.Last())
			return fitness
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: opts.maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	// Start the search from the base config
	initX := params.Normalize(params.Clamp(params.ExtractFromConfig(baseCfg)))

	fmt.Printf("Starting CMA-ES calibration with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, opts.maxEvals)
	fmt.Printf("Target prevalence %.3f, seeds per evaluation: %d, ticks per run: %d\n",
		opts.target, opts.seeds, opts.maxTicks)

	if _, err := optimize.Minimize(problem, initX, settings, method); err != nil {
		log.Printf("calibration ended: %v", err)
	}

	best, ok := tr.Best()
	if !ok {
		return errors.New("no evaluation scored below the failure threshold")
	}
	tr.PrintSummary()
	return writeResults(opts, params, best)
}

// writeResults saves the best config and a JSON summary of its score.
func writeResults(opts options, params *ParamVector, best result) error {
	bestCfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(bestCfg, best.params)

	configOutPath := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return err
	}
	fmt.Printf("\nBest config saved to: %s\n", configOutPath)

	named := make(map[string]float64, params.Dim())
	for i, spec := range params.Specs {
		named[spec.Path] = best.params[i]
	}
	data, err := json.MarshalIndent(struct {
		Summary
		Target float64            `json:"target"`
		Params map[string]float64 `json:"params"`
	}{best.summary, opts.target, named}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	summaryPath := filepath.Join(opts.outputDir, "best_summary.json")
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	fmt.Printf("Summary saved to: %s\n", summaryPath)
	return nil
}
