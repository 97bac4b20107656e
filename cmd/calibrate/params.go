package main

import (
	"github.com/pthm-cable/contagion/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name string  // Human-readable name
	Path string  // Config path for logging
	Min  float64 // Lower bound
	Max  float64 // Upper bound

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibration parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Disease defaults, used where the catalog leaves a value unset
			{
				Name: "detection_chance", Path: "disease.detection_chance", Min: 0.01, Max: 1.0,
				get: func(c *config.Config) float64 { return c.Disease.DetectionChance },
				set: func(c *config.Config, v float64) { c.Disease.DetectionChance = v },
			},
			{
				Name: "mortality_per_hour", Path: "disease.mortality_per_hour", Min: 0, Max: 0.5,
				get: func(c *config.Config) float64 { return c.Disease.MortalityPerHour },
				set: func(c *config.Config, v float64) { c.Disease.MortalityPerHour = v },
			},
			// Outbreak
			{
				Name: "spontaneous_rate", Path: "outbreak.spontaneous_rate", Min: 0, Max: 0.0001,
				get: func(c *config.Config) float64 { return c.Outbreak.SpontaneousRate },
				set: func(c *config.Config, v float64) { c.Outbreak.SpontaneousRate = v },
			},
			// Treatment
			{
				Name: "treatment_interval", Path: "treatment.interval", Min: 1, Max: 120,
				get: func(c *config.Config) float64 { return c.Treatment.Interval },
				set: func(c *config.Config, v float64) { c.Treatment.Interval = v },
			},
			{
				Name: "starting_coins", Path: "population.starting_coins", Min: 0, Max: 200,
				get: func(c *config.Config) float64 { return float64(c.Population.StartingCoins) },
				set: func(c *config.Config, v float64) { c.Population.StartingCoins = int(v) },
			},
			// Contact rate
			{
				Name: "wander_speed", Path: "world.wander_speed", Min: 0.1, Max: 5.0,
				get: func(c *config.Config) float64 { return c.World.WanderSpeed },
				set: func(c *config.Config, v float64) { c.World.WanderSpeed = v },
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg and recomputes
// its derived values.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	cfg.Derive()
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		out[i] = spec.get(cfg)
	}
	return out
}
