package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the simulation step, in tick order.
const (
	PhaseMovement     = "movement"
	PhaseSpatialGrid  = "spatial_grid"
	PhaseOutbreak     = "outbreak"
	PhaseProgression  = "progression"
	PhaseTransmission = "transmission"
	PhaseTreatment    = "treatment"
	PhaseCleanup      = "cleanup"
	PhaseTelemetry    = "telemetry"

	// PhaseOther collects time under any name not listed above.
	PhaseOther = "other"
)

var phaseNames = [...]string{
	PhaseMovement, PhaseSpatialGrid, PhaseOutbreak, PhaseProgression,
	PhaseTransmission, PhaseTreatment, PhaseCleanup, PhaseTelemetry,
	PhaseOther,
}

const numPhases = len(phaseNames)

// Phases lists every timed phase in tick order.
var Phases = phaseNames[:]

var phaseIndex = func() map[string]int {
	m := make(map[string]int, len(Phases))
	for i, p := range Phases {
		m[p] = i
	}
	return m
}()

func indexOf(phase string) int {
	if i, ok := phaseIndex[phase]; ok {
		return i
	}
	return phaseIndex[PhaseOther]
}

// PerfSample is the wall time of one tick split by phase.
type PerfSample struct {
	Tick   time.Duration
	Phases [numPhases]time.Duration
	Ran    uint16 // bit i set when phase i started this tick
}

// PerfCollector keeps the last N tick samples in a ring.
// Phases are timed back to back: starting one ends the previous.
type PerfCollector struct {
	ring []PerfSample
	head int
	n    int

	cur   PerfSample
	phase int // index of the running phase, -1 when none
	start time.Time
	mark  time.Time
}

// NewPerfCollector creates a collector averaging over window ticks.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring:  make([]PerfSample, window),
		phase: -1,
	}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.start = time.Now()
	p.mark = p.start
	p.cur = PerfSample{}
	p.phase = -1
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.lap(now)
	p.phase = indexOf(phase)
	p.cur.Ran |= 1 << p.phase
}

func (p *PerfCollector) lap(now time.Time) {
	if p.phase >= 0 {
		p.cur.Phases[p.phase] += now.Sub(p.mark)
	}
	p.mark = now
}

// EndTick closes the running phase and stores the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.lap(now)
	p.phase = -1
	p.cur.Tick = now.Sub(p.start)

	p.ring[p.head] = p.cur
	p.head = (p.head + 1) % len(p.ring)
	if p.n < len(p.ring) {
		p.n++
	}
}

// PerfStats aggregates the samples in the ring.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64

	// Keyed by phase name; phases that never ran are absent.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // of the average tick

	Slowest string // phase with the largest average, "" if none ran
}

// Stats averages over the stored samples.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.n == 0 {
		return stats
	}

	var total time.Duration
	var sums [numPhases]time.Duration
	var ran uint16
	for i, s := range p.ring[:p.n] {
		ran |= s.Ran
		total += s.Tick
		if i == 0 || s.Tick < stats.MinTickDuration {
			stats.MinTickDuration = s.Tick
		}
		stats.MaxTickDuration = max(stats.MaxTickDuration, s.Tick)
		for j, d := range s.Phases {
			sums[j] += d
		}
	}

	count := time.Duration(p.n)
	stats.AvgTickDuration = total / count
	if stats.AvgTickDuration > 0 {
		stats.TicksPerSecond = float64(time.Second) / float64(stats.AvgTickDuration)
	}

	var slowest time.Duration
	for j, sum := range sums {
		if ran&(1<<j) == 0 {
			continue
		}
		name := Phases[j]
		avg := sum / count
		stats.PhaseAvg[name] = avg
		if stats.AvgTickDuration > 0 {
			stats.PhasePct[name] = float64(avg) / float64(stats.AvgTickDuration) * 100
		}
		if avg > slowest {
			slowest = avg
			stats.Slowest = name
		}
	}
	return stats
}

// LogStats logs the summary and any phase above 0.1% of the tick.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
		"slowest", s.Slowest,
	}
	for _, phase := range Phases {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.String("slowest", s.Slowest),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	Slowest         string  `csv:"slowest"`
	MovementPct     float64 `csv:"movement_pct"`
	SpatialGridPct  float64 `csv:"spatial_grid_pct"`
	OutbreakPct     float64 `csv:"outbreak_pct"`
	ProgressionPct  float64 `csv:"progression_pct"`
	TransmissionPct float64 `csv:"transmission_pct"`
	TreatmentPct    float64 `csv:"treatment_pct"`
	CleanupPct      float64 `csv:"cleanup_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTickDuration.Microseconds(),
		MinTickUS:       s.MinTickDuration.Microseconds(),
		MaxTickUS:       s.MaxTickDuration.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		Slowest:         s.Slowest,
		MovementPct:     s.PhasePct[PhaseMovement],
		SpatialGridPct:  s.PhasePct[PhaseSpatialGrid],
		OutbreakPct:     s.PhasePct[PhaseOutbreak],
		ProgressionPct:  s.PhasePct[PhaseProgression],
		TransmissionPct: s.PhasePct[PhaseTransmission],
		TreatmentPct:    s.PhasePct[PhaseTreatment],
		CleanupPct:      s.PhasePct[PhaseCleanup],
		TelemetryPct:    s.PhasePct[PhaseTelemetry],
	}
}
