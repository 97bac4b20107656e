package game

import "log/slog"

// logPerfStats logs the average cost of each tick phase in tick order.
func (g *Game) logPerfStats() {
	stats := g.perf.Stats()
	slog.Info("perf summary",
		"tick", g.sim.Tick(),
		"avg_tick_us", stats.AvgTickDuration.Microseconds(),
		"ticks_per_sec", int(stats.TicksPerSecond),
	)
	for _, id := range g.registry.IDs() {
		avg, ok := stats.PhaseAvg[id]
		if !ok {
			continue
		}
		info, _ := g.registry.Get(id)
		slog.Info("phase",
			"name", info.Name,
			"category", info.Category,
			"avg_us", avg.Microseconds(),
			"pct", stats.PhasePct[id],
		)
	}
}
