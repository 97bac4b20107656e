// Package components defines ECS components for the demonstration world.
package components

// HostKind classifies an entity for disease eligibility.
type HostKind uint8

const (
	KindNPC HostKind = iota
	KindAnimal
	KindPlayer
)

// String returns the lower-case name used in logs and config.
func (k HostKind) String() string {
	switch k {
	case KindNPC:
		return "npc"
	case KindAnimal:
		return "animal"
	case KindPlayer:
		return "player"
	}
	return "unknown"
}

// Host bundles identity and liveness for a simulated creature.
type Host struct {
	ID    uint32
	Kind  HostKind
	Alive bool
	Age   float32 // seconds alive
}

// Purse holds currency.
type Purse struct {
	Coins int
}

// Satchel holds item stacks keyed by item identifier.
type Satchel struct {
	Items map[string]int
}

// Afflictions counts active symptom effects by identifier.
// Counts let overlapping diseases share an effect without one removal
// clearing the other.
type Afflictions struct {
	Effects   map[string]int
	Mitigated int // mitigation notifications received
}
