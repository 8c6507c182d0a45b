package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openmined/sessionvault/internal/db"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL, -- RFC3339
    duration_ms INTEGER NOT NULL,
    archived INTEGER NOT NULL,
    copied INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    failed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);
`

// RunRecord is one completed sync appended to the run-history journal.
type RunRecord struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Archived  bool
	Copied    int
	Skipped   int
	Failed    int
}

// History is the append-only journal of sync runs, kept in SQLite next to
// the metadata record. It is bookkeeping only: failures here are logged by
// the caller and never fail a sync.
type History struct {
	db *sqlx.DB
}

func NewHistory(path string) (*History, error) {
	d, err := db.NewSqliteDB(db.WithPath(path), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := d.Exec(historySchema); err != nil {
		d.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &History{db: d}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Append records a completed run and fills in rec.ID.
func (h *History) Append(ctx context.Context, rec *RunRecord) error {
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO sync_runs (started_at, duration_ms, archived, copied, skipped, failed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.Duration.Milliseconds(),
		rec.Archived,
		rec.Copied,
		rec.Skipped,
		rec.Failed,
	)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}

	rec.ID, _ = res.LastInsertId()
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, archived, copied, skipped, failed
		 FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec     RunRecord
			started string
			durMS   int64
		)
		if err := rows.Scan(&rec.ID, &started, &durMS, &rec.Archived, &rec.Copied, &rec.Skipped, &rec.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		rec.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return out, nil
}
