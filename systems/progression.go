package systems

import (
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

const secondsPerHour = 3600.0

// ProgressionSystem advances every active infection by one tick:
// incubation, stage advancement, chronic hold or resolution, detection,
// fatality, and the contagious flag.
type ProgressionSystem struct {
	catalog   *disease.Catalog
	ledger    *ledger.Ledger
	effects   EffectSink
	lifecycle LifecycleReporter
	rng       Roller
	outbox    *telemetry.Outbox

	// Diseases already reported as malformed, so the warning fires once.
	warned map[disease.ID]bool
}

// NewProgressionSystem creates a progression system.
// effects and lifecycle may be nil.
func NewProgressionSystem(l *ledger.Ledger, effects EffectSink, lifecycle LifecycleReporter, rng Roller, outbox *telemetry.Outbox) *ProgressionSystem {
	if effects == nil {
		effects = nopEffects{}
	}
	if lifecycle == nil {
		lifecycle = nopLifecycle{}
	}
	return &ProgressionSystem{
		catalog:   l.Catalog(),
		ledger:    l,
		effects:   effects,
		lifecycle: lifecycle,
		rng:       rng,
		outbox:    outbox,
		warned:    make(map[disease.ID]bool),
	}
}

// Update advances all infections by dt seconds.
// Must only be called from the tick owner.
func (s *ProgressionSystem) Update(dt float64, tick int32) {
	for _, e := range s.ledger.Entities() {
		s.ledger.Mutate(e, func(rec *ledger.Record) {
			s.updateRecord(rec, dt, tick)
		})
	}
}

func (s *ProgressionSystem) updateRecord(rec *ledger.Record, dt float64, tick int32) {
	dirty := false
	for i := 0; i < rec.Len(); i++ {
		inf := rec.At(i)
		if !inf.Active {
			dirty = true
			continue
		}

		def, ok := s.catalog.Lookup(inf.Disease)
		if !ok || def.Stage(inf.Stage) == nil {
			s.warnMalformed(rec.Entity(), inf, def)
			continue
		}

		fatal := s.advance(rec, inf, def, dt, tick)
		if !inf.Active {
			dirty = true
		}
		if fatal {
			// The host is gone as far as we are concerned; the lifecycle
			// collaborator will purge the rest.
			break
		}
	}
	if dirty {
		rec.Compact()
	}
}

// advance runs one tick of the state machine for inf.
// It returns true if the infection killed its host.
func (s *ProgressionSystem) advance(rec *ledger.Record, inf *ledger.Infection, def *disease.Definition, dt float64, tick int32) bool {
	e := rec.Entity()
	now := rec.Now()

	inf.TotalTime += dt

	if inf.Incubating {
		if inf.TotalTime < def.Incubation {
			inf.Contagious = false
			return false
		}
		inf.Incubating = false
		inf.TimeInStage = 0
		s.effects.ApplyEffects(e, def.Stages[inf.Stage].Effects)
		s.outbox.Append(telemetry.NewStageEvent(telemetry.EventSymptomatic, tick, now, e, inf.Disease, inf.Stage))
	} else {
		if inf.Paused > 0 {
			inf.Paused = math.Max(0, inf.Paused-dt)
		} else {
			inf.TimeInStage += dt
		}

		stage := &def.Stages[inf.Stage]
		if !inf.ChronicHold && stage.CanProgress && inf.TimeInStage >= stage.Duration {
			switch {
			case inf.Stage+1 < len(def.Stages):
				s.effects.RemoveEffects(e, stage.Effects)
				inf.Stage++
				inf.TimeInStage = 0
				s.effects.ApplyEffects(e, def.Stages[inf.Stage].Effects)
				s.outbox.Append(telemetry.NewStageEvent(telemetry.EventStageAdvanced, tick, now, e, inf.Disease, inf.Stage))
			case def.Chronic:
				inf.ChronicHold = true
				s.outbox.Append(telemetry.NewStageEvent(telemetry.EventChronicHold, tick, now, e, inf.Disease, inf.Stage))
			default:
				resolveInfection(rec, inf, def, s.effects, s.outbox, telemetry.EventResolved, "", tick)
				return false
			}
		}
	}

	stage := &def.Stages[inf.Stage]

	if !inf.Detected && stage.CanBeDetected && roll(s.rng, def.DetectionChance) {
		inf.Detected = true
		s.outbox.Append(telemetry.NewStageEvent(telemetry.EventDetected, tick, now, e, inf.Disease, inf.Stage))
	}

	if def.Fatal && stage.Severity == disease.SeverityCritical && roll(s.rng, tickMortality(def.MortalityPerHour, dt)) {
		s.effects.RemoveEffects(e, stage.Effects)
		inf.Active = false
		inf.Contagious = false
		s.outbox.Append(telemetry.NewFatalEvent(tick, now, e, inf.Disease, inf.Stage, inf.TotalTime))
		s.lifecycle.ReportFatal(e, inf.Disease)
		return true
	}

	inf.Contagious = stage.Contagious
	return false
}

// tickMortality converts an hourly death probability to a per-tick one.
func tickMortality(perHour, dt float64) float64 {
	if perHour <= 0 || dt <= 0 {
		return 0
	}
	if perHour >= 1 {
		return 1
	}
	return 1 - math.Pow(1-perHour, dt/secondsPerHour)
}

func (s *ProgressionSystem) warnMalformed(e ecs.Entity, inf *ledger.Infection, def *disease.Definition) {
	if s.warned[inf.Disease] {
		return
	}
	s.warned[inf.Disease] = true

	if def == nil {
		slog.Warn("skipping infection of unknown disease", "disease", inf.Disease, "entity", e.ID())
		return
	}
	slog.Warn("skipping infection with invalid stage",
		"disease", def.Name,
		"entity", e.ID(),
		"stage", inf.Stage,
		"stages", len(def.Stages),
	)
}
