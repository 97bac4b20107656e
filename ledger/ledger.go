// Package ledger is the authoritative store of active infections and
// immunity records, keyed by entity.
//
// Locking: a map-level RWMutex guards membership and the simulation clock;
// each entity's Record has its own mutex. No operation holds two entity
// locks at once, so cross-entity work (transmission) never needs a global
// lock.
package ledger

import (
	"errors"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
)

// ErrEntityRemoved is returned when an entity is purged while an operation
// against it is in flight. The operation is discarded.
var ErrEntityRemoved = errors.New("entity removed")

// Ledger stores per-entity infection state.
type Ledger struct {
	catalog *disease.Catalog

	mu      sync.RWMutex
	now     float64
	records map[ecs.Entity]*Record
	order   []ecs.Entity // insertion order of records
}

// New creates an empty ledger bound to a catalog.
func New(catalog *disease.Catalog) *Ledger {
	return &Ledger{
		catalog: catalog,
		records: make(map[ecs.Entity]*Record),
	}
}

// Catalog returns the catalog the ledger validates against.
func (l *Ledger) Catalog() *disease.Catalog {
	return l.catalog
}

// Now returns the current simulation time in seconds.
func (l *Ledger) Now() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.now
}

// Advance moves the simulation clock forward by dt seconds.
func (l *Ledger) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	l.mu.Lock()
	l.now += dt
	l.mu.Unlock()
}

// Len returns the number of entities with a record.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Entities returns tracked entities in the order they were first recorded.
func (l *Ledger) Entities() []ecs.Entity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ecs.Entity, len(l.order))
	copy(out, l.order)
	return out
}

// record returns the entity's record, creating it if create is set.
func (l *Ledger) record(e ecs.Entity, create bool) *Record {
	l.mu.RLock()
	rec := l.records[e]
	l.mu.RUnlock()
	if rec != nil || !create {
		return rec
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec = l.records[e]; rec == nil {
		rec = &Record{entity: e}
		l.records[e] = rec
		l.order = append(l.order, e)
	}
	return rec
}

// lock acquires the record's mutex and stamps the current time.
// It returns false if the record was purged while we waited.
func (l *Ledger) lock(rec *Record) bool {
	rec.mu.Lock()
	l.mu.RLock()
	current := l.records[rec.entity] == rec
	rec.now = l.now
	l.mu.RUnlock()
	if !current {
		rec.mu.Unlock()
		return false
	}
	return true
}

// Mutate runs fn with exclusive access to the entity's record.
// It returns false without calling fn if the entity has no record.
// fn must not call back into the Ledger for the same entity.
func (l *Ledger) Mutate(e ecs.Entity, fn func(*Record)) bool {
	rec := l.record(e, false)
	if rec == nil || !l.lock(rec) {
		return false
	}
	defer rec.mu.Unlock()
	fn(rec)
	return true
}

// Infections returns a copy of the entity's active infections in
// insertion order.
func (l *Ledger) Infections(e ecs.Entity) []Infection {
	var out []Infection
	l.Mutate(e, func(r *Record) {
		out = r.Infections()
	})
	return out
}

// Immunities returns a copy of the entity's immunity records.
func (l *Ledger) Immunities(e ecs.Entity) []Immunity {
	var out []Immunity
	l.Mutate(e, func(r *Record) {
		out = r.Immunities()
	})
	return out
}

// IsInfected reports whether the entity has an active infection of id.
func (l *Ledger) IsInfected(e ecs.Entity, id disease.ID) bool {
	var infected bool
	l.Mutate(e, func(r *Record) {
		infected = r.Infected(id)
	})
	return infected
}

// HasImmunity reports whether the entity holds permanent immunity to id,
// or temporary immunity that has not lapsed as of the current time.
func (l *Ledger) HasImmunity(e ecs.Entity, id disease.ID) bool {
	var immune bool
	l.Mutate(e, func(r *Record) {
		immune = r.Immune(id)
	})
	return immune
}

// AddInfection starts a new incubating infection.
// Guards run in order: unknown disease, immunity, existing infection.
func (l *Ledger) AddInfection(e ecs.Entity, id disease.ID) error {
	if _, ok := l.catalog.Lookup(id); !ok {
		return disease.ErrDiseaseNotFound
	}

	rec := l.record(e, true)
	if !l.lock(rec) {
		return ErrEntityRemoved
	}
	defer rec.mu.Unlock()

	return addLocked(rec, id)
}

// AddInfectionLocked is AddInfection for callers already inside Mutate.
func (l *Ledger) AddInfectionLocked(rec *Record, id disease.ID) error {
	if _, ok := l.catalog.Lookup(id); !ok {
		return disease.ErrDiseaseNotFound
	}
	return addLocked(rec, id)
}

func addLocked(rec *Record, id disease.ID) error {
	if rec.Immune(id) {
		return disease.ErrAlreadyImmune
	}
	if rec.Infected(id) {
		return disease.ErrAlreadyInfected
	}
	rec.Add(id)
	return nil
}

// RemoveInfection deletes the entity's infection of id.
// It never grants immunity; callers resolving an infection naturally must
// call GrantImmunity themselves.
func (l *Ledger) RemoveInfection(e ecs.Entity, id disease.ID) bool {
	var removed bool
	l.Mutate(e, func(r *Record) {
		removed = r.Remove(id)
	})
	return removed
}

// GrantImmunity records immunity to id for the entity, starting now.
func (l *Ledger) GrantImmunity(e ecs.Entity, id disease.ID, duration float64, permanent bool) {
	rec := l.record(e, true)
	if !l.lock(rec) {
		return
	}
	defer rec.mu.Unlock()
	rec.GrantImmunity(id, duration, permanent)
}

// Purge removes every record for an entity leaving the simulation.
// Operations already waiting on the entity's lock are discarded.
func (l *Ledger) Purge(e ecs.Entity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[e]; !ok {
		return
	}
	delete(l.records, e)
	for i, oe := range l.order {
		if oe == e {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Census counts active infections per disease across all entities.
func (l *Ledger) Census() map[disease.ID]int {
	counts := make(map[disease.ID]int)
	for _, e := range l.Entities() {
		l.Mutate(e, func(r *Record) {
			for i := 0; i < r.Len(); i++ {
				if inf := r.At(i); inf.Active {
					counts[inf.Disease]++
				}
			}
		})
	}
	return counts
}
