package game

import (
	"math"
	"math/rand"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/components"
	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/systems"
)

// World is a headless ECS host population. It implements every
// collaborator the disease engine needs: spatial queries, inventory,
// symptom effects, lifecycle reports, host classification and liveness.
type World struct {
	world *ecs.World
	rng   *rand.Rand

	// Entity mapper for spawning hosts with all components
	hostMapper *ecs.Map6[
		components.Host,
		components.Position,
		components.Velocity,
		components.Purse,
		components.Satchel,
		components.Afflictions,
	]
	moveFilter *ecs.Filter3[components.Host, components.Position, components.Velocity]
	hostFilter *ecs.Filter1[components.Host]

	// Individual component mappers for lookups
	hostMap  *ecs.Map[components.Host]
	purseMap *ecs.Map[components.Purse]
	bagMap   *ecs.Map[components.Satchel]
	fxMap    *ecs.Map[components.Afflictions]

	grid  *systems.SpatialGrid
	index *systems.GridIndex

	// mu guards purses, satchels and afflictions, which treatment may
	// touch from outside the tick goroutine.
	mu sync.Mutex

	// Hosts killed by a disease this tick, removed by Cleanup.
	deaths []ecs.Entity

	width, height float32
	wanderSpeed   float32
	nextID        uint32
	counts        [3]int // live hosts by kind
}

// WorldOptions sizes a World.
type WorldOptions struct {
	Width, Height float32
	CellSize      float32
	WanderSpeed   float32
	MaxNeighbors  int
	Seed          int64
}

// NewWorld creates an empty world.
func NewWorld(opts WorldOptions) *World {
	world := ecs.NewWorld()
	grid := systems.NewSpatialGrid(opts.Width, opts.Height, opts.CellSize)
	grid.MaxResults = opts.MaxNeighbors

	return &World{
		world: world,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		hostMapper: ecs.NewMap6[
			components.Host,
			components.Position,
			components.Velocity,
			components.Purse,
			components.Satchel,
			components.Afflictions,
		](world),
		moveFilter:  ecs.NewFilter3[components.Host, components.Position, components.Velocity](world),
		hostFilter:  ecs.NewFilter1[components.Host](world),
		hostMap:     ecs.NewMap[components.Host](world),
		purseMap:    ecs.NewMap[components.Purse](world),
		bagMap:      ecs.NewMap[components.Satchel](world),
		fxMap:       ecs.NewMap[components.Afflictions](world),
		grid:        grid,
		index:       systems.NewGridIndex(world, grid),
		width:       opts.Width,
		height:      opts.Height,
		wanderSpeed: opts.WanderSpeed,
	}
}

// Spawn adds a host at (x, y) with a starting purse and satchel.
func (w *World) Spawn(kind components.HostKind, x, y float32, coins int, items map[string]int) ecs.Entity {
	id := w.nextID
	w.nextID++

	host := components.Host{ID: id, Kind: kind, Alive: true}
	pos := components.Position{X: mod(x, w.width), Y: mod(y, w.height)}
	heading := w.rng.Float64() * 2 * math.Pi
	vel := components.Velocity{
		X: float32(math.Cos(heading)) * w.wanderSpeed,
		Y: float32(math.Sin(heading)) * w.wanderSpeed,
	}
	purse := components.Purse{Coins: coins}
	bag := components.Satchel{Items: make(map[string]int, len(items))}
	for item, n := range items {
		bag.Items[item] = n
	}
	fx := components.Afflictions{Effects: make(map[string]int)}

	e := w.hostMapper.NewEntity(&host, &pos, &vel, &purse, &bag, &fx)
	w.counts[kind]++
	return e
}

// SpawnRandom adds a host at a uniformly random position.
func (w *World) SpawnRandom(kind components.HostKind, coins int, items map[string]int) ecs.Entity {
	return w.Spawn(kind, w.rng.Float32()*w.width, w.rng.Float32()*w.height, coins, items)
}

// Move wanders every live host. Headings drift a little each tick and
// positions wrap at the world edges.
func (w *World) Move(dt float32) {
	query := w.moveFilter.Query()
	for query.Next() {
		host, pos, vel := query.Get()
		if !host.Alive {
			continue
		}
		host.Age += dt

		// Rotate velocity by a small random angle
		turn := (w.rng.Float64() - 0.5) * 0.6
		sin, cos := math.Sincos(turn)
		vx, vy := float64(vel.X), float64(vel.Y)
		vel.X = float32(vx*cos - vy*sin)
		vel.Y = float32(vx*sin + vy*cos)

		pos.X = mod(pos.X+vel.X*dt, w.width)
		pos.Y = mod(pos.Y+vel.Y*dt, w.height)
	}
}

// RebuildIndex refreshes the spatial grid from current positions.
func (w *World) RebuildIndex() {
	w.index.Rebuild()
}

// EntitiesWithin implements systems.SpatialQuery.
func (w *World) EntitiesWithin(origin ecs.Entity, radius float64) []ecs.Entity {
	return w.index.EntitiesWithin(origin, radius)
}

// HostKind implements systems.HostClassifier.
func (w *World) HostKind(e ecs.Entity) components.HostKind {
	if !w.world.Alive(e) || !w.hostMap.Has(e) {
		return components.KindNPC
	}
	return w.hostMap.Get(e).Kind
}

// Alive implements systems.Roster. Hosts killed this tick are no longer
// alive even before Cleanup removes them.
func (w *World) Alive(e ecs.Entity) bool {
	if !w.world.Alive(e) || !w.hostMap.Has(e) {
		return false
	}
	return w.hostMap.Get(e).Alive
}

// ReportFatal implements systems.LifecycleReporter.
func (w *World) ReportFatal(e ecs.Entity, _ disease.ID) {
	if !w.Alive(e) {
		return
	}
	w.hostMap.Get(e).Alive = false
	w.deaths = append(w.deaths, e)
}

// Cleanup removes hosts that died since the last call and returns them.
// Callers purge the returned entities from the ledger.
func (w *World) Cleanup() []ecs.Entity {
	if len(w.deaths) == 0 {
		return nil
	}
	dead := w.deaths
	w.deaths = nil
	for _, e := range dead {
		if !w.world.Alive(e) {
			continue
		}
		w.counts[w.hostMap.Get(e).Kind]--
		w.world.RemoveEntity(e)
	}
	return dead
}

// Hosts returns every live host.
func (w *World) Hosts() []ecs.Entity {
	out := make([]ecs.Entity, 0, w.Population())
	query := w.hostFilter.Query()
	for query.Next() {
		if query.Get().Alive {
			out = append(out, query.Entity())
		}
	}
	return out
}

// Population returns the number of live hosts.
func (w *World) Population() int {
	return w.counts[components.KindNPC] + w.counts[components.KindAnimal] + w.counts[components.KindPlayer]
}

// Count returns the number of live hosts of one kind.
func (w *World) Count(kind components.HostKind) int {
	return w.counts[kind]
}

// HasItems implements systems.Inventory.
func (w *World) HasItems(e ecs.Entity, items []disease.ItemRequirement) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.bagMap.Has(e) {
		return len(items) == 0
	}
	bag := w.bagMap.Get(e)
	for _, req := range items {
		if bag.Items[req.Item] < req.Count {
			return false
		}
	}
	return true
}

// HasFunds implements systems.Inventory.
func (w *World) HasFunds(e ecs.Entity, cost int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.purseMap.Has(e) {
		return cost <= 0
	}
	return w.purseMap.Get(e).Coins >= cost
}

// ConsumeItems implements systems.Inventory.
func (w *World) ConsumeItems(e ecs.Entity, items []disease.ItemRequirement) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.bagMap.Has(e) {
		return
	}
	bag := w.bagMap.Get(e)
	for _, req := range items {
		bag.Items[req.Item] -= req.Count
		if bag.Items[req.Item] <= 0 {
			delete(bag.Items, req.Item)
		}
	}
}

// ConsumeFunds implements systems.Inventory.
func (w *World) ConsumeFunds(e ecs.Entity, cost int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.purseMap.Has(e) {
		return
	}
	w.purseMap.Get(e).Coins -= cost
}

// Coins returns a host's purse balance.
func (w *World) Coins(e ecs.Entity) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.purseMap.Has(e) {
		return 0
	}
	return w.purseMap.Get(e).Coins
}

// ItemCount returns how many of item a host carries.
func (w *World) ItemCount(e ecs.Entity, item string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.bagMap.Has(e) {
		return 0
	}
	return w.bagMap.Get(e).Items[item]
}

// ApplyEffects implements systems.EffectSink.
func (w *World) ApplyEffects(e ecs.Entity, effects []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.fxMap.Has(e) {
		return
	}
	fx := w.fxMap.Get(e)
	for _, name := range effects {
		fx.Effects[name]++
	}
}

// RemoveEffects implements systems.EffectSink.
func (w *World) RemoveEffects(e ecs.Entity, effects []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.fxMap.Has(e) {
		return
	}
	fx := w.fxMap.Get(e)
	for _, name := range effects {
		if fx.Effects[name] <= 1 {
			delete(fx.Effects, name)
			continue
		}
		fx.Effects[name]--
	}
}

// MitigateEffects implements systems.Mitigator.
func (w *World) MitigateEffects(e ecs.Entity, _ disease.ID, _ []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.fxMap.Has(e) {
		return
	}
	w.fxMap.Get(e).Mitigated++
}

// HasEffect reports whether any active infection applies effect to e.
func (w *World) HasEffect(e ecs.Entity, effect string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.fxMap.Has(e) {
		return false
	}
	return w.fxMap.Get(e).Effects[effect] > 0
}

// Mitigations returns how many mitigations e has received.
func (w *World) Mitigations(e ecs.Entity) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.world.Alive(e) || !w.fxMap.Has(e) {
		return 0
	}
	return w.fxMap.Get(e).Mitigated
}

// Collaborators returns w as every engine collaborator.
func (w *World) Collaborators() Collaborators {
	return Collaborators{
		Spatial:   w,
		Inventory: w,
		Effects:   w,
		Lifecycle: w,
		Hosts:     w,
		Roster:    w,
	}
}
