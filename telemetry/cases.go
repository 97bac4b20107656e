package telemetry

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
)

// CaseStats tracks one infection from onset to its end.
type CaseStats struct {
	InfectedTick int32
	InfectedAt   float64
	Source       ecs.Entity

	Detected   bool
	Treatments int
	Secondary  int // hosts this case infected
}

type caseKey struct {
	entity  ecs.Entity
	disease disease.ID
}

// CaseTracker follows open cases so durations and secondary infections
// can be measured when they close.
type CaseTracker struct {
	cases map[caseKey]*CaseStats
}

// NewCaseTracker creates an empty tracker.
func NewCaseTracker() *CaseTracker {
	return &CaseTracker{
		cases: make(map[caseKey]*CaseStats),
	}
}

// Open registers a case from an infected event and credits its source.
func (ct *CaseTracker) Open(ev Event) {
	ct.cases[caseKey{ev.Entity, ev.Disease}] = &CaseStats{
		InfectedTick: ev.Tick,
		InfectedAt:   ev.Time,
		Source:       ev.Source,
	}
	if ev.Source == (ecs.Entity{}) {
		return
	}
	if src := ct.cases[caseKey{ev.Source, ev.Disease}]; src != nil {
		src.Secondary++
	}
}

// Get returns an open case, or nil.
func (ct *CaseTracker) Get(e ecs.Entity, id disease.ID) *CaseStats {
	return ct.cases[caseKey{e, id}]
}

// Close removes a case and returns it, or nil if it was never opened.
func (ct *CaseTracker) Close(e ecs.Entity, id disease.ID) *CaseStats {
	key := caseKey{e, id}
	stats := ct.cases[key]
	delete(ct.cases, key)
	return stats
}

// RemoveEntity drops every open case for e without closing it.
// It returns how many were dropped.
func (ct *CaseTracker) RemoveEntity(e ecs.Entity) int {
	n := 0
	for key := range ct.cases {
		if key.entity == e {
			delete(ct.cases, key)
			n++
		}
	}
	return n
}

// Count returns the number of open cases.
func (ct *CaseTracker) Count() int {
	return len(ct.cases)
}
