package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/pthm-cable/contagion/telemetry"
)

// recordEvents drains the engine outbox into the collector, the events
// CSV and the journal batch.
func (g *Game) recordEvents() {
	events := g.sim.DrainEvents()
	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		g.collector.Record(ev)
	}

	if err := g.output.WriteEvents(events, g.sim.Catalog()); err != nil {
		slog.Error("failed to write events", "error", err)
	}

	if g.journal != nil {
		g.pending = append(g.pending, events...)
		if len(g.pending) >= g.cfg.Journal.BatchSize {
			if err := g.flushJournal(); err != nil {
				slog.Error("failed to journal events", "error", err)
			}
		}
	}
}

// flushJournal writes pending events in one transaction.
func (g *Game) flushJournal() error {
	if g.journal == nil || len(g.pending) == 0 {
		return nil
	}
	err := g.journal.AppendEvents(g.pending, g.sim.Catalog())
	g.pending = g.pending[:0]
	return err
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.sim.Tick()) {
		return
	}

	stats := g.collector.Flush(g.sim.Tick(), g.population())
	perfStats := g.perf.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// population takes the census handed to the collector at flush time.
func (g *Game) population() telemetry.Population {
	l := g.sim.Ledger()
	pop := telemetry.Population{Hosts: g.world.Population()}

	for _, e := range l.Entities() {
		active := 0
		for _, inf := range l.Infections(e) {
			if inf.Active {
				active++
			}
		}
		if active > 0 {
			pop.InfectedHosts++
			pop.ActiveInfections += active
		}
	}
	pop.Census = telemetry.CensusByName(g.sim.Catalog(), l.Census())
	return pop
}

// logJournalSummary logs the journaled event counts for this run.
func (g *Game) logJournalSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := g.journal.CountByType(ctx)
	if err != nil {
		slog.Error("failed to summarize journal", "error", err)
		return
	}
	attrs := []any{"run_id", g.journal.RunID()}
	for _, typ := range telemetry.EventTypes() {
		if n := counts[typ.String()]; n > 0 {
			attrs = append(attrs, typ.String(), n)
		}
	}
	slog.Info("journal summary", attrs...)
}
