package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/components"
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

// Spreader is one contagious infection captured before transmission runs.
type Spreader struct {
	Entity  ecs.Entity
	Disease disease.ID
}

// TransmissionSystem spreads contagious infections to nearby hosts.
type TransmissionSystem struct {
	catalog *disease.Catalog
	ledger  *ledger.Ledger
	spatial SpatialQuery
	rng     Roller
	outbox  *telemetry.Outbox

	// Optional collaborators.
	Hosts  HostClassifier
	Roster Roster

	// Reusable buffer to avoid allocations
	spreaders []Spreader
}

// NewTransmissionSystem creates a transmission system.
func NewTransmissionSystem(l *ledger.Ledger, spatial SpatialQuery, rng Roller, outbox *telemetry.Outbox) *TransmissionSystem {
	return &TransmissionSystem{
		catalog:   l.Catalog(),
		ledger:    l,
		spatial:   spatial,
		rng:       rng,
		outbox:    outbox,
		spreaders: make([]Spreader, 0, 64),
	}
}

// Snapshot captures every active contagious infection. The returned slice
// is reused by the next call.
func (s *TransmissionSystem) Snapshot() []Spreader {
	s.spreaders = s.spreaders[:0]
	for _, e := range s.ledger.Entities() {
		s.ledger.Mutate(e, func(rec *ledger.Record) {
			for i := 0; i < rec.Len(); i++ {
				inf := rec.At(i)
				if inf.Active && inf.Contagious {
					s.spreaders = append(s.spreaders, Spreader{Entity: e, Disease: inf.Disease})
				}
			}
		})
	}
	return s.spreaders
}

// Update exposes hosts near each spreader. Hosts infected during this call
// are not in the snapshot and cannot spread until the next tick.
// It returns the number of new infections.
func (s *TransmissionSystem) Update(spreaders []Spreader, tick int32) int {
	infected := 0
	now := s.ledger.Now()

	for _, sp := range spreaders {
		def, ok := s.catalog.Lookup(sp.Disease)
		if !ok || def.Transmission == disease.TransmissionNone || def.TransmissionRadius <= 0 {
			continue
		}
		if s.Roster != nil && !s.Roster.Alive(sp.Entity) {
			continue
		}

		for _, c := range s.spatial.EntitiesWithin(sp.Entity, def.TransmissionRadius) {
			if c == sp.Entity || !s.susceptible(c, def) {
				continue
			}
			if !roll(s.rng, def.TransmissionRate) {
				continue
			}
			// The candidate may have been removed since the query.
			if s.Roster != nil && !s.Roster.Alive(c) {
				continue
			}
			// A second spreader may already have infected c this tick.
			if err := s.ledger.AddInfection(c, sp.Disease); err != nil {
				continue
			}
			infected++
			s.outbox.Append(telemetry.NewInfectedEvent(tick, now, c, sp.Disease, sp.Entity))
		}
	}

	return infected
}

// susceptible reports whether c can catch def right now.
func (s *TransmissionSystem) susceptible(c ecs.Entity, def *disease.Definition) bool {
	if s.Hosts != nil && !Affects(def, s.Hosts.HostKind(c)) {
		return false
	}
	return !s.ledger.IsInfected(c, def.ID) && !s.ledger.HasImmunity(c, def.ID)
}

// Affects reports whether def can infect hosts of the given kind.
// Players are always susceptible.
func Affects(def *disease.Definition, kind components.HostKind) bool {
	switch kind {
	case components.KindNPC:
		return def.AffectsNPCs
	case components.KindAnimal:
		return def.AffectsAnimals
	default:
		return true
	}
}
