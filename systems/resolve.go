package systems

import (
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

// resolveInfection ends an infection as having run its course: symptom
// effects come off, the instance is deactivated, and immunity is granted
// if the disease allows it. The caller compacts the record afterwards.
// typ is EventResolved for natural recovery or EventCured for treatment.
func resolveInfection(
	rec *ledger.Record,
	inf *ledger.Infection,
	def *disease.Definition,
	effects EffectSink,
	outbox *telemetry.Outbox,
	typ telemetry.EventType,
	treatment string,
	tick int32,
) {
	e := rec.Entity()
	now := rec.Now()

	if st := def.Stage(inf.Stage); st != nil && !inf.Incubating {
		effects.RemoveEffects(e, st.Effects)
	}
	inf.Active = false
	inf.Contagious = false

	if typ == telemetry.EventCured {
		outbox.Append(telemetry.NewTreatmentEvent(typ, tick, now, e, inf.Disease, treatment, inf.Stage))
	} else {
		outbox.Append(telemetry.NewResolvedEvent(tick, now, e, inf.Disease, inf.TotalTime))
	}

	if def.CanDevelopImmunity && !def.Chronic && !def.Fatal {
		rec.GrantImmunity(inf.Disease, def.ImmunityDuration, def.PermanentImmunity)
		outbox.Append(telemetry.NewImmunityEvent(tick, now, e, inf.Disease, def.ImmunityDuration, def.PermanentImmunity))
	}
}
