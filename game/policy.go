package game

import (
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/systems"
)

// TreatmentPolicy makes sick hosts seek treatment. A host tries the
// cheapest treatment it can afford for each detected infection. Infections
// still paused by an earlier mitigation are left alone.
type TreatmentPolicy struct {
	sim   *Simulation
	world *World

	// Treatments per disease, cheapest first.
	byCost map[disease.ID][]*disease.Treatment
}

// PolicyResult tallies one policy pass.
type PolicyResult struct {
	Attempts  int
	Cured     int
	Mitigated int
}

// NewTreatmentPolicy creates a policy over the simulation's catalog.
func NewTreatmentPolicy(sim *Simulation, world *World) *TreatmentPolicy {
	p := &TreatmentPolicy{
		sim:    sim,
		world:  world,
		byCost: make(map[disease.ID][]*disease.Treatment),
	}
	for _, def := range sim.Catalog().All() {
		ts := make([]*disease.Treatment, len(def.Treatments))
		for i := range def.Treatments {
			ts[i] = &def.Treatments[i]
		}
		sort.SliceStable(ts, func(i, j int) bool {
			if ts[i].Cost != ts[j].Cost {
				return ts[i].Cost < ts[j].Cost
			}
			return itemCount(ts[i]) < itemCount(ts[j])
		})
		p.byCost[def.ID] = ts
	}
	return p
}

func itemCount(t *disease.Treatment) int {
	n := 0
	for _, req := range t.Items {
		n += req.Count
	}
	return n
}

// Run makes one pass over every infected host.
func (p *TreatmentPolicy) Run() PolicyResult {
	var res PolicyResult
	for _, e := range p.sim.Ledger().Entities() {
		if !p.world.Alive(e) {
			continue
		}
		for _, inf := range p.sim.Ledger().Infections(e) {
			if !inf.Active || !inf.Detected || inf.Paused > 0 {
				continue
			}
			t := p.choose(e, inf.Disease)
			if t == nil {
				continue
			}
			outcome, err := p.sim.Treat(e, inf.Disease, t.ID)
			if err != nil {
				slog.Debug("treatment rejected", "entity", e.ID(), "treatment", t.ID, "error", err)
				continue
			}
			res.Attempts++
			switch outcome {
			case systems.OutcomeCured:
				res.Cured++
			case systems.OutcomeMitigated:
				res.Mitigated++
			}
		}
	}
	return res
}

// choose returns the cheapest treatment e can pay for, or nil.
func (p *TreatmentPolicy) choose(e ecs.Entity, id disease.ID) *disease.Treatment {
	for _, t := range p.byCost[id] {
		if p.world.HasItems(e, t.Items) && p.world.HasFunds(e, t.Cost) {
			return t
		}
	}
	return nil
}
