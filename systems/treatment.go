package systems

import (
	"sync"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/ledger"
	"github.com/pthm-cable/contagion/telemetry"
)

// Outcome is the result of a treatment attempt that got past its
// preconditions.
type Outcome uint8

const (
	OutcomeNoEffect Outcome = iota
	OutcomeCured
	OutcomeMitigated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCured:
		return "cured"
	case OutcomeMitigated:
		return "mitigated"
	default:
		return "no_effect"
	}
}

// TreatmentResolver applies treatments to infections. Treat may be called
// from any goroutine; it holds the entity's ledger lock for the whole
// attempt, so it is atomic with respect to progression.
type TreatmentResolver struct {
	catalog   *disease.Catalog
	ledger    *ledger.Ledger
	inventory Inventory
	effects   EffectSink
	outbox    *telemetry.Outbox

	rngMu sync.Mutex
	rng   Roller

	tick atomic.Int32
}

// NewTreatmentResolver creates a resolver. rng must not be shared with
// the tick systems; the resolver serializes its own draws.
func NewTreatmentResolver(l *ledger.Ledger, inventory Inventory, effects EffectSink, rng Roller, outbox *telemetry.Outbox) *TreatmentResolver {
	if effects == nil {
		effects = nopEffects{}
	}
	return &TreatmentResolver{
		catalog:   l.Catalog(),
		ledger:    l,
		inventory: inventory,
		effects:   effects,
		rng:       rng,
		outbox:    outbox,
	}
}

// SetTick records the tick number stamped on treatment events.
func (r *TreatmentResolver) SetTick(tick int32) {
	r.tick.Store(tick)
}

// Treat attempts treatment treatmentID against the entity's infection of
// id. Preconditions are checked before anything is consumed; once they
// pass, items and funds are spent regardless of the outcome.
func (r *TreatmentResolver) Treat(e ecs.Entity, id disease.ID, treatmentID string) (Outcome, error) {
	outcome := OutcomeNoEffect
	err := disease.ErrDiseaseNotFound

	r.ledger.Mutate(e, func(rec *ledger.Record) {
		outcome, err = r.treatLocked(rec, id, treatmentID)
	})
	return outcome, err
}

func (r *TreatmentResolver) treatLocked(rec *ledger.Record, id disease.ID, treatmentID string) (Outcome, error) {
	e := rec.Entity()
	tick := r.tick.Load()

	inf := rec.Find(id)
	if inf == nil {
		return OutcomeNoEffect, disease.ErrDiseaseNotFound
	}
	def, ok := r.catalog.Lookup(id)
	if !ok {
		return OutcomeNoEffect, disease.ErrDiseaseNotFound
	}
	tr, ok := def.Treatment(treatmentID)
	if !ok {
		return OutcomeNoEffect, disease.ErrTreatmentUnavailable
	}
	if len(tr.Items) > 0 && !r.inventory.HasItems(e, tr.Items) {
		return OutcomeNoEffect, disease.ErrInsufficientItems
	}
	if tr.Cost > 0 && !r.inventory.HasFunds(e, tr.Cost) {
		return OutcomeNoEffect, disease.ErrInsufficientFunds
	}

	if len(tr.Items) > 0 {
		r.inventory.ConsumeItems(e, tr.Items)
	}
	if tr.Cost > 0 {
		r.inventory.ConsumeFunds(e, tr.Cost)
	}

	if !r.roll(tr.Effectiveness) {
		r.outbox.Append(telemetry.NewTreatmentEvent(telemetry.EventTreatmentFailed, tick, rec.Now(), e, id, tr.ID, inf.Stage))
		return OutcomeNoEffect, nil
	}

	if tr.CuresCompletely {
		resolveInfection(rec, inf, def, r.effects, r.outbox, telemetry.EventCured, tr.ID, tick)
		rec.Compact()
		return OutcomeCured, nil
	}

	// Mitigation holds the stage timer; the infection keeps its stage.
	inf.Paused = max(inf.Paused, tr.Duration)
	if m, ok := r.effects.(Mitigator); ok && !inf.Incubating {
		if st := def.Stage(inf.Stage); st != nil {
			m.MitigateEffects(e, id, st.Effects)
		}
	}
	r.outbox.Append(telemetry.NewTreatmentEvent(telemetry.EventMitigated, tick, rec.Now(), e, id, tr.ID, inf.Stage))
	return OutcomeMitigated, nil
}

func (r *TreatmentResolver) roll(p float64) bool {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return roll(r.rng, p)
}
