package game

import (
	"errors"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/systems"
	"github.com/pthm-cable/contagion/telemetry"
)

// Collaborators are the host-side services the disease engine calls into.
// Spatial and Inventory are required; the rest may be nil.
type Collaborators struct {
	Spatial   systems.SpatialQuery
	Inventory systems.Inventory
	Effects   systems.EffectSink
	Lifecycle systems.LifecycleReporter
	Hosts     systems.HostClassifier
	Roster    systems.Roster
}

// Simulation owns the disease engine: the catalog, the infection ledger,
// the progression, transmission and treatment systems, and the outbox
// they report into.
//
// Step must be called from a single goroutine. Treat may be called from
// any goroutine between steps.
type Simulation struct {
	catalog *disease.Catalog
	ledger  *ledger.Ledger
	outbox  *telemetry.Outbox

	progression  *systems.ProgressionSystem
	transmission *systems.TransmissionSystem
	treatment    *systems.TreatmentResolver

	// Perf is optional; when set, Step times its phases into it.
	Perf *telemetry.PerfCollector

	tick int32
}

// NewSimulation wires the engine to its collaborators. seed drives both
// the tick systems and the treatment resolver, which draw from separate
// sources so treatment calls never perturb the tick sequence.
func NewSimulation(catalog *disease.Catalog, c Collaborators, seed int64) (*Simulation, error) {
	if catalog == nil {
		return nil, errors.New("simulation: catalog is required")
	}
	if c.Spatial == nil {
		return nil, errors.New("simulation: spatial query is required")
	}
	if c.Inventory == nil {
		return nil, errors.New("simulation: inventory is required")
	}

	l := ledger.New(catalog)
	outbox := telemetry.NewOutbox()
	tickRNG := rand.New(rand.NewSource(seed))
	treatRNG := rand.New(rand.NewSource(seed ^ 0x7472656174))

	s := &Simulation{
		catalog:      catalog,
		ledger:       l,
		outbox:       outbox,
		progression:  systems.NewProgressionSystem(l, c.Effects, c.Lifecycle, tickRNG, outbox),
		transmission: systems.NewTransmissionSystem(l, c.Spatial, tickRNG, outbox),
		treatment:    systems.NewTreatmentResolver(l, c.Inventory, c.Effects, treatRNG, outbox),
	}
	if c.Hosts != nil {
		s.transmission.Hosts = c.Hosts
	}
	if c.Roster != nil {
		s.transmission.Roster = c.Roster
	}
	return s, nil
}

// Step advances the simulation by dt seconds and returns the number of
// infections transmitted during the step.
func (s *Simulation) Step(dt float64) int {
	next := s.tick + 1
	s.ledger.Advance(dt)

	s.startPhase(telemetry.PhaseProgression)
	s.progression.Update(dt, next)

	// Spreaders are captured after progression so a host that turned
	// contagious this tick spreads this tick, while hosts infected below
	// wait for the next one.
	s.startPhase(telemetry.PhaseTransmission)
	spreaders := s.transmission.Snapshot()
	infected := s.transmission.Update(spreaders, next)

	s.tick = next
	s.treatment.SetTick(next)
	return infected
}

func (s *Simulation) startPhase(phase string) {
	if s.Perf != nil {
		s.Perf.StartPhase(phase)
	}
}

// Treat attempts a treatment on one of the entity's infections.
func (s *Simulation) Treat(e ecs.Entity, id disease.ID, treatmentID string) (systems.Outcome, error) {
	return s.treatment.Treat(e, id, treatmentID)
}

// Infect starts a new infection outside of transmission, for outbreak
// seeding and scripted exposure. The event has no source.
func (s *Simulation) Infect(e ecs.Entity, id disease.ID) error {
	if err := s.ledger.AddInfection(e, id); err != nil {
		return err
	}
	s.outbox.Append(telemetry.NewInfectedEvent(s.tick, s.ledger.Now(), e, id, ecs.Entity{}))
	return nil
}

// Purge drops every ledger record for an entity that has left the world.
func (s *Simulation) Purge(e ecs.Entity) {
	s.ledger.Purge(e)
	s.outbox.Append(telemetry.NewPurgedEvent(s.tick, s.ledger.Now(), e))
}

// DrainEvents returns the events emitted since the last drain.
func (s *Simulation) DrainEvents() []telemetry.Event {
	return s.outbox.Drain()
}

// Catalog returns the disease catalog.
func (s *Simulation) Catalog() *disease.Catalog {
	return s.catalog
}

// Ledger returns the infection ledger.
func (s *Simulation) Ledger() *ledger.Ledger {
	return s.ledger
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int32 {
	return s.tick
}

// Now returns simulation time in seconds.
func (s *Simulation) Now() float64 {
	return s.ledger.Now()
}
