package game

import (
	"testing"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/telemetry"
)

func newTestWorld() *World {
	return NewWorld(WorldOptions{
		Width:    100,
		Height:   100,
		CellSize: 10,
		Seed:     1,
	})
}

func mustCatalog(t *testing.T, defs ...disease.Definition) *disease.Catalog {
	t.Helper()
	cat, err := disease.NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return cat
}

func newRig(t *testing.T, seed int64, defs ...disease.Definition) (*World, *Simulation) {
	t.Helper()
	w := newTestWorld()
	sim, err := NewSimulation(mustCatalog(t, defs...), w.Collaborators(), seed)
	if err != nil {
		t.Fatalf("NewSimulation failed: %v", err)
	}
	return w, sim
}

// stepUntil steps one second at a time until simulation time reaches t.
func stepUntil(w *World, sim *Simulation, t float64) {
	for sim.Now() < t {
		w.RebuildIndex()
		sim.Step(1)
		w.Cleanup()
	}
}

// d1 is 10s incubation, two 5s stages, 60s immunity.
func d1() disease.Definition {
	return disease.Definition{
		Name:               "d1",
		Transmission:       disease.TransmissionContact,
		TransmissionRate:   0.5,
		TransmissionRadius: 5,
		Incubation:         10,
		Stages: []disease.Stage{
			{Name: "early", Duration: 5, Severity: disease.SeverityMild, CanProgress: true, CanBeDetected: true, Effects: []string{"cough"}},
			{Name: "late", Duration: 5, Severity: disease.SeverityModerate, Contagious: true, CanProgress: true, CanBeDetected: true, Effects: []string{"fever"}},
		},
		Treatments: []disease.Treatment{
			{ID: "panacea", Cost: 5, Effectiveness: 1, CuresCompletely: true},
		},
		ImmunityDuration:   60,
		CanDevelopImmunity: true,
		AffectsNPCs:        true,
		DetectionChance:    1,
	}
}

// plague is contagious from the first tick and never ends on its own.
func plague(rate float64) disease.Definition {
	return disease.Definition{
		Name:               "plague",
		Transmission:       disease.TransmissionAirborne,
		TransmissionRate:   rate,
		TransmissionRadius: 10,
		Stages: []disease.Stage{
			{Name: "forever", Duration: 1e9, Severity: disease.SeverityMild, Contagious: true},
		},
		AffectsNPCs: true,
	}
}

func countEvents(events []telemetry.Event, typ telemetry.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
