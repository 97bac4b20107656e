package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/systems"
)

// ResolveDiseases maps configured disease names to catalog ids.
// Unknown names fail with the closest known names as a hint.
func ResolveDiseases(catalog *disease.Catalog, names []string) ([]disease.ID, error) {
	ids := make([]disease.ID, 0, len(names))
	for _, name := range names {
		id, ok := catalog.Resolve(name)
		if !ok {
			if hint := catalog.Suggest(name, 3); len(hint) > 0 {
				return nil, fmt.Errorf("unknown disease %q (did you mean %s?): %w",
					name, strings.Join(hint, ", "), disease.ErrDiseaseNotFound)
			}
			return nil, fmt.Errorf("unknown disease %q: %w", name, disease.ErrDiseaseNotFound)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Outbreak introduces infections that do not come from transmission:
// the initial seeding and rare spontaneous cases.
type Outbreak struct {
	sim   *Simulation
	world *World
	rng   *rand.Rand

	rate float64      // spontaneous infections per host per second
	pool []disease.ID // diseases that can appear spontaneously
}

// NewOutbreak creates an outbreak driver. Spontaneous cases are drawn from
// every disease in the catalog that has stages.
func NewOutbreak(sim *Simulation, world *World, rate float64, rng *rand.Rand) *Outbreak {
	o := &Outbreak{sim: sim, world: world, rng: rng, rate: rate}
	for _, def := range sim.Catalog().All() {
		if def.Valid() {
			o.pool = append(o.pool, def.ID)
		}
	}
	return o
}

// Seed infects up to perDisease random eligible hosts with each disease
// and returns how many infections were started.
func (o *Outbreak) Seed(ids []disease.ID, perDisease int) int {
	hosts := o.world.Hosts()
	seeded := 0
	for _, id := range ids {
		def, ok := o.sim.Catalog().Lookup(id)
		if !ok || !def.Valid() {
			continue
		}
		n := 0
		for _, i := range o.rng.Perm(len(hosts)) {
			if n >= perDisease {
				break
			}
			e := hosts[i]
			if !systems.Affects(def, o.world.HostKind(e)) {
				continue
			}
			if o.sim.Infect(e, id) == nil {
				n++
			}
		}
		seeded += n
	}
	return seeded
}

// Update rolls spontaneous infections for one tick of dt seconds and
// returns how many took hold.
func (o *Outbreak) Update(dt float64) int {
	p := o.rate * dt
	if p <= 0 || len(o.pool) == 0 {
		return 0
	}

	started := 0
	for _, e := range o.world.Hosts() {
		if o.rng.Float64() >= p {
			continue
		}
		id := o.pool[o.rng.Intn(len(o.pool))]
		def, _ := o.sim.Catalog().Lookup(id)
		if !systems.Affects(def, o.world.HostKind(e)) {
			continue
		}
		// Immune or already infected hosts simply shrug it off.
		if o.sim.Infect(e, id) == nil {
			started++
		}
	}
	return started
}
