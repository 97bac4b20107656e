package ledger

import (
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
)

// Record is one entity's slice of the ledger.
// Its methods do not lock; they are only reachable through Ledger.Mutate
// (or Ledger's own locking wrappers), which hold the entity lock.
type Record struct {
	mu sync.Mutex

	entity     ecs.Entity
	now        float64
	infections []Infection
	immunities []Immunity
}

// Entity returns the entity this record belongs to.
func (r *Record) Entity() ecs.Entity {
	return r.entity
}

// Now returns the simulation time captured when the record was locked.
func (r *Record) Now() float64 {
	return r.now
}

// Len returns the number of active infections.
func (r *Record) Len() int {
	return len(r.infections)
}

// At returns a pointer to the i-th infection for in-place mutation.
// The pointer is invalidated by Add or Remove.
func (r *Record) At(i int) *Infection {
	return &r.infections[i]
}

// Find returns the active infection for id, or nil.
func (r *Record) Find(id disease.ID) *Infection {
	for i := range r.infections {
		if r.infections[i].Disease == id && r.infections[i].Active {
			return &r.infections[i]
		}
	}
	return nil
}

// Infected reports whether an active infection for id exists.
func (r *Record) Infected(id disease.ID) bool {
	return r.Find(id) != nil
}

// Immune reports whether an unexpired immunity for id exists.
func (r *Record) Immune(id disease.ID) bool {
	for _, im := range r.immunities {
		if im.Disease == id && im.ActiveAt(r.now) {
			return true
		}
	}
	return false
}

// Add appends a fresh incubating infection. Callers check guards first.
func (r *Record) Add(id disease.ID) {
	r.infections = append(r.infections, Infection{
		Disease:    id,
		Incubating: true,
		Active:     true,
	})
}

// Remove deletes the infection for id, preserving order of the rest.
// It never grants immunity.
func (r *Record) Remove(id disease.ID) bool {
	for i := range r.infections {
		if r.infections[i].Disease == id {
			r.infections = append(r.infections[:i], r.infections[i+1:]...)
			return true
		}
	}
	return false
}

// Compact drops infections whose Active flag has been cleared.
func (r *Record) Compact() {
	kept := r.infections[:0]
	for _, inf := range r.infections {
		if inf.Active {
			kept = append(kept, inf)
		}
	}
	for i := len(kept); i < len(r.infections); i++ {
		r.infections[i] = Infection{}
	}
	r.infections = kept
}

// GrantImmunity records immunity starting now, replacing any record for id.
func (r *Record) GrantImmunity(id disease.ID, duration float64, permanent bool) {
	kept := r.immunities[:0]
	for _, im := range r.immunities {
		if im.Disease != id {
			kept = append(kept, im)
		}
	}
	r.immunities = append(kept, Immunity{
		Disease:   id,
		Start:     r.now,
		Duration:  duration,
		Permanent: permanent,
	})
}

// Immunities returns a copy of the immunity records, expired ones included.
func (r *Record) Immunities() []Immunity {
	out := make([]Immunity, len(r.immunities))
	copy(out, r.immunities)
	return out
}

// Infections returns a copy of the active infections in insertion order.
func (r *Record) Infections() []Infection {
	out := make([]Infection, len(r.infections))
	copy(out, r.infections)
	return out
}
