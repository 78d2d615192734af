// Package export writes a SQLite snapshot of the ranked channel table so
// downstream tooling can query a run's result.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapetech/iptvmerge/internal/registry"
)

const schema = `
CREATE TABLE run (
	id           TEXT PRIMARY KEY,
	generated_at TEXT NOT NULL
);
CREATE TABLE channel (
	name     TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE candidate (
	channel    TEXT NOT NULL REFERENCES channel(name),
	rank       INTEGER NOT NULL,
	url        TEXT NOT NULL UNIQUE,
	latency_ms REAL,
	PRIMARY KEY (channel, rank)
);
`

// Channel is one categorized channel with its retained candidates.
type Channel struct {
	Name       string
	Category   string
	Candidates []registry.Candidate
}

// Snapshot is the exported result of one run.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time
	Channels    []Channel
}

// Write replaces the database at path with snap. Unknown latencies are
// stored as NULL.
func Write(ctx context.Context, path string, snap Snapshot) error {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := writeDB(ctx, tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export rename: %w", err)
	}
	return nil
}

func writeDB(ctx context.Context, path string, snap Snapshot) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open export DB: %w", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("export schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO run (id, generated_at) VALUES (?, ?)",
		snap.RunID, snap.GeneratedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	chStmt, err := tx.PrepareContext(ctx, "INSERT INTO channel (name, category, position) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer chStmt.Close()
	candStmt, err := tx.PrepareContext(ctx, "INSERT INTO candidate (channel, rank, url, latency_ms) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer candStmt.Close()

	for pos, ch := range snap.Channels {
		if _, err := chStmt.ExecContext(ctx, ch.Name, ch.Category, pos); err != nil {
			return fmt.Errorf("export channel %q: %w", ch.Name, err)
		}
		for rank, c := range ch.Candidates {
			var lat sql.NullFloat64
			if !c.Latency.IsUnknown() {
				lat = sql.NullFloat64{Float64: float64(c.Latency), Valid: true}
			}
			if _, err := candStmt.ExecContext(ctx, ch.Name, rank, c.URL, lat); err != nil {
				return fmt.Errorf("export candidate %q: %w", c.URL, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export commit: %w", err)
	}
	return nil
}
