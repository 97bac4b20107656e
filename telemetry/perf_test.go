package telemetry

import (
	"testing"
	"time"
)

// runTicks times n ticks whose phases sleep for the given durations.
func runTicks(pc *PerfCollector, n int, phases []string, sleeps []time.Duration) {
	for i := 0; i < n; i++ {
		pc.StartTick()
		for j, phase := range phases {
			pc.StartPhase(phase)
			time.Sleep(sleeps[j])
		}
		pc.EndTick()
	}
}

func TestPerfCollectorTracksPhases(t *testing.T) {
	pc := NewPerfCollector(10)
	runTicks(pc, 5,
		[]string{PhaseSpatialGrid, PhaseProgression},
		[]time.Duration{50 * time.Microsecond, 3 * time.Millisecond})

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	for _, phase := range []string{PhaseSpatialGrid, PhaseProgression} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("%s not tracked", phase)
		}
	}
	if _, ok := stats.PhaseAvg[PhaseMovement]; ok {
		t.Error("movement never ran but has an average")
	}
	if stats.Slowest != PhaseProgression {
		t.Errorf("slowest = %q, want %q", stats.Slowest, PhaseProgression)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)
	runTicks(pc, 3, []string{PhaseCleanup}, []time.Duration{2 * time.Millisecond})
	runTicks(pc, 5, []string{PhaseSpatialGrid}, []time.Duration{0})

	// The slow ticks have rotated out of the ring.
	stats := pc.Stats()
	if _, ok := stats.PhaseAvg[PhaseCleanup]; ok {
		t.Error("cleanup samples should have left the window")
	}
	if _, ok := stats.PhaseAvg[PhaseSpatialGrid]; !ok {
		t.Error("a phase that ran should be present even when it took no time")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollectorUnknownPhase(t *testing.T) {
	pc := NewPerfCollector(4)
	runTicks(pc, 2, []string{"reticulate"}, []time.Duration{50 * time.Microsecond})

	stats := pc.Stats()
	if _, ok := stats.PhaseAvg[PhaseOther]; !ok {
		t.Errorf("unknown phase not folded into %q: %v", PhaseOther, stats.PhaseAvg)
	}
}

func TestPerfCollectorPhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)
	runTicks(pc, 5,
		[]string{PhaseOutbreak, PhaseTransmission},
		[]time.Duration{10 * time.Microsecond, 3 * time.Millisecond})

	stats := pc.Stats()
	fast := stats.PhasePct[PhaseOutbreak]
	slow := stats.PhasePct[PhaseTransmission]
	if slow <= fast {
		t.Errorf("transmission (%v%%) should exceed outbreak (%v%%)", slow, fast)
	}
	if fast+slow > 100.0001 {
		t.Errorf("phase percentages exceed 100: %v + %v", fast, slow)
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgTickDuration != 0 || stats.Slowest != "" {
		t.Errorf("empty collector = %+v", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil maps")
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(4)
	runTicks(pc, 4,
		[]string{PhaseProgression, PhaseTransmission},
		[]time.Duration{50 * time.Microsecond, 50 * time.Microsecond})

	row := pc.Stats().ToCSV(120)
	if row.WindowEnd != 120 {
		t.Errorf("WindowEnd = %d, want 120", row.WindowEnd)
	}
	if row.ProgressionPct <= 0 || row.TransmissionPct <= 0 {
		t.Errorf("phase percentages not exported: %+v", row)
	}
	if row.MovementPct != 0 {
		t.Errorf("untimed phase has %v%%", row.MovementPct)
	}
	if row.Slowest == "" {
		t.Error("slowest phase not exported")
	}
}
