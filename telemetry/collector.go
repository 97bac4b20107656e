package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/contagion/disease"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	cases *CaseTracker

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	counts    [len(eventNames)]int
	durations []float64
	secondary []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		cases:               NewCaseTracker(),
		durations:           make([]float64, 0, 64),
		secondary:           make([]float64, 0, 64),
	}
}

// Record folds one event into the current window.
func (c *Collector) Record(ev Event) {
	if int(ev.Type) < len(c.counts) {
		c.counts[ev.Type]++
	}

	switch ev.Type {
	case EventInfected:
		c.cases.Open(ev)
	case EventDetected:
		if cs := c.cases.Get(ev.Entity, ev.Disease); cs != nil {
			cs.Detected = true
		}
	case EventCured, EventMitigated, EventTreatmentFailed:
		if cs := c.cases.Get(ev.Entity, ev.Disease); cs != nil {
			cs.Treatments++
		}
		if ev.Type == EventCured {
			c.closeCase(ev)
		}
	case EventResolved, EventFatal:
		c.closeCase(ev)
	case EventPurged:
		c.cases.RemoveEntity(ev.Entity)
	}
}

func (c *Collector) closeCase(ev Event) {
	cs := c.cases.Close(ev.Entity, ev.Disease)
	if cs == nil {
		// Opened before tracking started; the event's age is the best we have.
		if ev.Type != EventCured {
			c.durations = append(c.durations, ev.Duration)
		}
		return
	}
	c.durations = append(c.durations, ev.Time-cs.InfectedAt)
	c.secondary = append(c.secondary, float64(cs.Secondary))
}

// Cases returns the open-case tracker.
func (c *Collector) Cases() *CaseTracker {
	return c.cases
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Population is a point-in-time census supplied by the caller at flush.
type Population struct {
	Hosts            int
	InfectedHosts    int
	ActiveInfections int
	Census           map[string]int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, pop Population) WindowStats {
	n := func(t EventType) int { return c.counts[t] }

	var prevalence float64
	if pop.Hosts > 0 {
		prevalence = float64(pop.InfectedHosts) / float64(pop.Hosts)
	}

	tried := n(EventCured) + n(EventMitigated) + n(EventTreatmentFailed)
	var success float64
	if tried > 0 {
		success = float64(n(EventCured)+n(EventMitigated)) / float64(tried)
	}

	mean, p10, p50, p90 := ComputeDurationStats(c.durations)
	var secondary float64
	if len(c.secondary) > 0 {
		secondary = stat.Mean(c.secondary, nil)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Hosts:            pop.Hosts,
		InfectedHosts:    pop.InfectedHosts,
		ActiveInfections: pop.ActiveInfections,
		Prevalence:       prevalence,

		NewInfections:   n(EventInfected),
		Symptomatic:     n(EventSymptomatic),
		StageAdvances:   n(EventStageAdvanced),
		Detections:      n(EventDetected),
		ChronicHolds:    n(EventChronicHold),
		Recoveries:      n(EventResolved),
		Deaths:          n(EventFatal),
		ImmunityGranted: n(EventImmunityGranted),
		Purged:          n(EventPurged),

		TreatmentsTried:  tried,
		Cures:            n(EventCured),
		Mitigations:      n(EventMitigated),
		TreatmentsFailed: n(EventTreatmentFailed),
		TreatmentSuccess: success,

		CaseDurationMean: mean,
		CaseDurationP10:  p10,
		CaseDurationP50:  p50,
		CaseDurationP90:  p90,
		SecondaryCases:   secondary,

		Census: pop.Census,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.counts = [len(eventNames)]int{}
	c.durations = c.durations[:0]
	c.secondary = c.secondary[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// CensusByName converts an id-keyed census to a name-keyed one.
func CensusByName(catalog *disease.Catalog, census map[disease.ID]int) map[string]int {
	out := make(map[string]int, len(census))
	for id, n := range census {
		out[catalog.Name(id)] = n
	}
	return out
}
