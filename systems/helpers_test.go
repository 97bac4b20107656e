package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/components"
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

// constRoller always returns v.
type constRoller float64

func (r constRoller) Float64() float64 { return float64(r) }

// seqRoller cycles through vals.
type seqRoller struct {
	vals []float64
	i    int
}

func (r *seqRoller) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// recordingEffects tracks which effects are currently applied per entity.
type recordingEffects struct {
	active    map[ecs.Entity]map[string]int
	mitigated int
}

func newRecordingEffects() *recordingEffects {
	return &recordingEffects{active: make(map[ecs.Entity]map[string]int)}
}

func (r *recordingEffects) ApplyEffects(e ecs.Entity, effects []string) {
	if r.active[e] == nil {
		r.active[e] = make(map[string]int)
	}
	for _, fx := range effects {
		r.active[e][fx]++
	}
}

func (r *recordingEffects) RemoveEffects(e ecs.Entity, effects []string) {
	for _, fx := range effects {
		r.active[e][fx]--
		if r.active[e][fx] <= 0 {
			delete(r.active[e], fx)
		}
	}
}

func (r *recordingEffects) MitigateEffects(ecs.Entity, disease.ID, []string) {
	r.mitigated++
}

func (r *recordingEffects) has(e ecs.Entity, fx string) bool {
	return r.active[e][fx] > 0
}

// recordingLifecycle remembers fatal reports.
type recordingLifecycle struct {
	fatal []ecs.Entity
}

func (r *recordingLifecycle) ReportFatal(e ecs.Entity, _ disease.ID) {
	r.fatal = append(r.fatal, e)
}

// fakeInventory holds items and coins per entity.
type fakeInventory struct {
	items map[ecs.Entity]map[string]int
	coins map[ecs.Entity]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		items: make(map[ecs.Entity]map[string]int),
		coins: make(map[ecs.Entity]int),
	}
}

func (f *fakeInventory) give(e ecs.Entity, item string, n int) {
	if f.items[e] == nil {
		f.items[e] = make(map[string]int)
	}
	f.items[e][item] += n
}

func (f *fakeInventory) HasItems(e ecs.Entity, items []disease.ItemRequirement) bool {
	for _, it := range items {
		if f.items[e][it.Item] < it.Count {
			return false
		}
	}
	return true
}

func (f *fakeInventory) HasFunds(e ecs.Entity, cost int) bool {
	return f.coins[e] >= cost
}

func (f *fakeInventory) ConsumeItems(e ecs.Entity, items []disease.ItemRequirement) {
	for _, it := range items {
		f.items[e][it.Item] -= it.Count
	}
}

func (f *fakeInventory) ConsumeFunds(e ecs.Entity, cost int) {
	f.coins[e] -= cost
}

// testWorld is an ark world with positioned hosts.
type testWorld struct {
	world     *ecs.World
	positions *ecs.Map1[components.Position]
	kinds     map[ecs.Entity]components.HostKind
	dead      map[ecs.Entity]bool
}

func newTestWorld() *testWorld {
	world := ecs.NewWorld()
	return &testWorld{
		world:     world,
		positions: ecs.NewMap1[components.Position](world),
		kinds:     make(map[ecs.Entity]components.HostKind),
		dead:      make(map[ecs.Entity]bool),
	}
}

func (w *testWorld) spawn(x, y float32, kind components.HostKind) ecs.Entity {
	e := w.positions.NewEntity(&components.Position{X: x, Y: y})
	w.kinds[e] = kind
	return e
}

func (w *testWorld) HostKind(e ecs.Entity) components.HostKind { return w.kinds[e] }
func (w *testWorld) Alive(e ecs.Entity) bool                   { return !w.dead[e] }

// mustCatalog builds a catalog or fails the test.
func mustCatalog(t *testing.T, defs ...disease.Definition) *disease.Catalog {
	t.Helper()
	cat, err := disease.NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return cat
}

// scenarioDisease is 10s incubation, two 5s stages, 60s immunity.
func scenarioDisease() disease.Definition {
	return disease.Definition{
		Name:               "d1",
		Transmission:       disease.TransmissionAirborne,
		TransmissionRate:   0.5,
		TransmissionRadius: 10,
		Incubation:         10,
		Stages: []disease.Stage{
			{Name: "early", Duration: 5, Severity: disease.SeverityMild, CanProgress: true, Effects: []string{"cough"}},
			{Name: "late", Duration: 5, Severity: disease.SeverityModerate, Contagious: true, CanProgress: true, Effects: []string{"fever"}},
		},
		ImmunityDuration:   60,
		CanDevelopImmunity: true,
		AffectsNPCs:        true,
	}
}

// tickRunner drives the ledger clock and progression the way Simulation does.
type tickRunner struct {
	ledger *ledger.Ledger
	prog   *ProgressionSystem
	tick   int32
}

func (r *tickRunner) runUntil(t float64) {
	for r.ledger.Now() < t {
		r.tick++
		r.ledger.Advance(1)
		r.prog.Update(1, r.tick)
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
