package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/components"
	"github.com/pthm-cable/contagion/disease"
)

// SpatialQuery finds entities near another entity.
type SpatialQuery interface {
	// EntitiesWithin returns entities within radius of origin, excluding origin.
	EntitiesWithin(origin ecs.Entity, radius float64) []ecs.Entity
}

// Inventory gates and pays for treatments.
type Inventory interface {
	HasItems(e ecs.Entity, items []disease.ItemRequirement) bool
	HasFunds(e ecs.Entity, cost int) bool
	ConsumeItems(e ecs.Entity, items []disease.ItemRequirement)
	ConsumeFunds(e ecs.Entity, cost int)
}

// EffectSink applies and removes symptom effects by identifier.
// The engine never interprets what an effect does.
type EffectSink interface {
	ApplyEffects(e ecs.Entity, effects []string)
	RemoveEffects(e ecs.Entity, effects []string)
}

// Mitigator is optionally implemented by an EffectSink that wants to know
// when a partial treatment took hold.
type Mitigator interface {
	MitigateEffects(e ecs.Entity, id disease.ID, effects []string)
}

// LifecycleReporter is told when a disease kills its host.
// The engine never removes entities itself.
type LifecycleReporter interface {
	ReportFatal(e ecs.Entity, id disease.ID)
}

// HostClassifier optionally narrows transmission by host kind.
type HostClassifier interface {
	HostKind(e ecs.Entity) components.HostKind
}

// Roster optionally reports whether an entity is still in the simulation.
// Transmission checks it immediately before applying an infection.
type Roster interface {
	Alive(e ecs.Entity) bool
}

// Roller produces uniform values in [0, 1). *rand.Rand satisfies it.
type Roller interface {
	Float64() float64
}

// roll returns true with probability p.
func roll(r Roller, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// nopEffects is used when no sink is configured.
type nopEffects struct{}

func (nopEffects) ApplyEffects(ecs.Entity, []string)  {}
func (nopEffects) RemoveEffects(ecs.Entity, []string) {}

// nopLifecycle is used when no reporter is configured.
type nopLifecycle struct{}

func (nopLifecycle) ReportFatal(ecs.Entity, disease.ID) {}
