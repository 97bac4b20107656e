// Package telemetry provides the engine's event outbox plus outbreak
// statistics, bookmarks, perf timing, and CSV output.
package telemetry

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventInfected EventType = iota
	EventSymptomatic
	EventStageAdvanced
	EventDetected
	EventChronicHold
	EventResolved
	EventImmunityGranted
	EventFatal
	EventCured
	EventMitigated
	EventTreatmentFailed
	EventPurged
)

var eventNames = [...]string{
	EventInfected:        "infected",
	EventSymptomatic:     "symptomatic",
	EventStageAdvanced:   "stage_advanced",
	EventDetected:        "detected",
	EventChronicHold:     "chronic_hold",
	EventResolved:        "resolved",
	EventImmunityGranted: "immunity_granted",
	EventFatal:           "fatal",
	EventCured:           "cured",
	EventMitigated:       "mitigated",
	EventTreatmentFailed: "treatment_failed",
	EventPurged:          "purged",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// EventTypes lists every event type in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventNames))
	for i := range out {
		out[i] = EventType(i)
	}
	return out
}

// Event represents a single state change in the disease engine.
type Event struct {
	Type    EventType
	Tick    int32
	Time    float64 // simulation seconds
	Entity  ecs.Entity
	Disease disease.ID

	// Optional fields depending on event type
	Stage     int        // stage entered, held, or at time of event
	Source    ecs.Entity // spreader for transmitted infections
	Treatment string     // treatment id for treatment events
	Duration  float64    // immunity duration, or infection age on resolution
}

// NewInfectedEvent creates an infection event. source is the zero entity
// for infections not caused by transmission.
func NewInfectedEvent(tick int32, now float64, e ecs.Entity, id disease.ID, source ecs.Entity) Event {
	return Event{
		Type:    EventInfected,
		Tick:    tick,
		Time:    now,
		Entity:  e,
		Disease: id,
		Source:  source,
	}
}

// NewStageEvent creates a symptomatic, stage-advanced, detected, or
// chronic-hold event.
func NewStageEvent(typ EventType, tick int32, now float64, e ecs.Entity, id disease.ID, stage int) Event {
	return Event{
		Type:    typ,
		Tick:    tick,
		Time:    now,
		Entity:  e,
		Disease: id,
		Stage:   stage,
	}
}

// NewResolvedEvent creates a natural resolution event.
func NewResolvedEvent(tick int32, now float64, e ecs.Entity, id disease.ID, age float64) Event {
	return Event{
		Type:     EventResolved,
		Tick:     tick,
		Time:     now,
		Entity:   e,
		Disease:  id,
		Duration: age,
	}
}

// NewImmunityEvent creates an immunity grant event. Permanent grants have
// a negative duration.
func NewImmunityEvent(tick int32, now float64, e ecs.Entity, id disease.ID, duration float64, permanent bool) Event {
	if permanent {
		duration = -1
	}
	return Event{
		Type:     EventImmunityGranted,
		Tick:     tick,
		Time:     now,
		Entity:   e,
		Disease:  id,
		Duration: duration,
	}
}

// NewFatalEvent creates a fatality event.
func NewFatalEvent(tick int32, now float64, e ecs.Entity, id disease.ID, stage int, age float64) Event {
	return Event{
		Type:     EventFatal,
		Tick:     tick,
		Time:     now,
		Entity:   e,
		Disease:  id,
		Stage:    stage,
		Duration: age,
	}
}

// NewTreatmentEvent creates a cured, mitigated, or treatment-failed event.
func NewTreatmentEvent(typ EventType, tick int32, now float64, e ecs.Entity, id disease.ID, treatment string, stage int) Event {
	return Event{
		Type:      typ,
		Tick:      tick,
		Time:      now,
		Entity:    e,
		Disease:   id,
		Stage:     stage,
		Treatment: treatment,
	}
}

// NewPurgedEvent records an entity leaving the simulation.
func NewPurgedEvent(tick int32, now float64, e ecs.Entity) Event {
	return Event{
		Type:   EventPurged,
		Tick:   tick,
		Time:   now,
		Entity: e,
	}
}
