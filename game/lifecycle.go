package game

import (
	"log/slog"

	"github.com/pthm-cable/contagion/components"
)

// spawnInitialPopulation creates the starting hosts. Animals carry no
// purse or satchel, so they can never pay for treatment.
func (g *Game) spawnInitialPopulation() {
	pop := &g.cfg.Population

	for i := 0; i < pop.NPCs; i++ {
		g.world.SpawnRandom(components.KindNPC, pop.StartingCoins, pop.StartingItems)
	}
	for i := 0; i < pop.Animals; i++ {
		g.world.SpawnRandom(components.KindAnimal, 0, nil)
	}
	for i := 0; i < pop.Players; i++ {
		g.world.SpawnRandom(components.KindPlayer, pop.StartingCoins, pop.StartingItems)
	}
}

// cleanupDead removes hosts killed this tick and purges their ledger
// records in the same tick.
func (g *Game) cleanupDead() {
	dead := g.world.Cleanup()
	for _, e := range dead {
		g.sim.Purge(e)
	}
	if len(dead) > 0 {
		slog.Debug("hosts removed", "count", len(dead), "tick", g.sim.Tick())
	}
}
