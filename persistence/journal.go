// Package persistence provides a SQLite event journal for simulation runs.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/contagion/disease"
	"github.com/pthm-cable/contagion/telemetry"
)

// Journal appends engine events for one run to a SQLite database.
// Several runs may share a database; each gets its own run id.
type Journal struct {
	conn  *sqlx.DB
	runID string
}

// Open opens or creates a journal at path and registers a new run.
// meta is stored as JSON alongside the run and may be nil.
func Open(path string, seed int64, meta any) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	j := &Journal{conn: conn, runID: uuid.NewString()}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode run meta: %w", err)
	}
	_, err = conn.Exec(
		"INSERT INTO runs (id, started_at, seed, meta) VALUES (?, ?, ?, ?)",
		j.runID, time.Now().UTC().Format(time.RFC3339), seed, string(metaJSON),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("insert run: %w", err)
	}

	slog.Info("journal opened", "path", path, "run_id", j.runID)
	return j, nil
}

// RunID returns the id of the run this journal writes to.
func (j *Journal) RunID() string {
	return j.runID
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		meta TEXT NOT NULL DEFAULT 'null'
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		type TEXT NOT NULL,
		entity INTEGER NOT NULL,
		disease TEXT NOT NULL DEFAULT '',
		stage INTEGER NOT NULL DEFAULT 0,
		source INTEGER NOT NULL DEFAULT 0,
		treatment TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_type ON events(run_id, type);
	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// AppendEvents writes events in a single transaction.
func (j *Journal) AppendEvents(events []telemetry.Event, catalog *disease.Catalog) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, tick, sim_time, type, entity, disease, stage, source, treatment, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		row := ev.ToRow(catalog)
		_, err := stmt.Exec(
			j.runID, row.Tick, row.Time, row.Type, row.Entity,
			row.Disease, row.Stage, row.Source, row.Treatment, row.Duration,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// CountByType returns how many events of each type this run has journaled.
func (j *Journal) CountByType(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"n"`
	}
	err := j.conn.SelectContext(ctx, &rows,
		"SELECT type, COUNT(*) AS n FROM events WHERE run_id = ? GROUP BY type",
		j.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Count
	}
	return out, nil
}

// Events returns this run's journaled events for one entity, oldest first.
func (j *Journal) Events(ctx context.Context, entity uint32) ([]telemetry.EventRow, error) {
	var rows []telemetry.EventRow
	err := j.conn.SelectContext(ctx, &rows,
		`SELECT tick, sim_time, type, entity, disease, stage, source, treatment, duration
		FROM events WHERE run_id = ? AND entity = ? ORDER BY id`,
		j.runID, entity,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return rows, nil
}
