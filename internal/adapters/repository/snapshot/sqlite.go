package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id       TEXT PRIMARY KEY,
	taken_at INTEGER NOT NULL,
	payload  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS heat_history (
	snapshot_id TEXT NOT NULL,
	taken_at    INTEGER NOT NULL,
	category    TEXT NOT NULL,
	news_count  INTEGER NOT NULL,
	news_z      REAL NOT NULL,
	sentiment   REAL NOT NULL,
	market_pct  REAL NOT NULL,
	trends      REAL NOT NULL,
	composite   REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_heat_history_cat ON heat_history (category, taken_at DESC);
CREATE TABLE IF NOT EXISTS alerts (
	id       TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	title    TEXT NOT NULL,
	detail   TEXT NOT NULL,
	link     TEXT,
	at       INTEGER NOT NULL,
	severity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_at ON alerts (at DESC);
`

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and migrates) a SQLite-backed repository
// at path. The driver is CGO-free, so the binary stays portable.
func NewSQLiteRepository(path string) (Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent refresh + reads.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, taken_at, payload) VALUES (?, ?, ?)`,
		snap.ID, snap.TakenAt.Unix(), string(payload),
	); err != nil {
		return err
	}

	for _, h := range snap.Heat {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO heat_history (snapshot_id, taken_at, category, news_count, news_z, sentiment, market_pct, trends, composite)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.ID, snap.TakenAt.Unix(), h.Category, h.NewsCount, h.NewsZ, h.Sentiment, h.MarketPct, h.Trends, h.Composite,
		); err != nil {
			return err
		}
	}

	// Keep a bounded history.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT ?)`,
		maxSnapshotsKept,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM heat_history WHERE snapshot_id NOT IN (SELECT id FROM snapshots)`,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *sqliteRepository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 1`,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, err
	}

	return &snap, nil
}

func (r *sqliteRepository) HeatHistory(ctx context.Context, category string, limit int) ([]domain.CategoryHeat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, news_count, news_z, sentiment, market_pct, trends, composite
		 FROM heat_history WHERE category = ? ORDER BY taken_at DESC LIMIT ?`,
		category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryHeat
	for rows.Next() {
		var h domain.CategoryHeat
		if err := rows.Scan(&h.Category, &h.NewsCount, &h.NewsZ, &h.Sentiment, &h.MarketPct, &h.Trends, &h.Composite); err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	return out, rows.Err()
}

func (r *sqliteRepository) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range alerts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO alerts (id, kind, title, detail, link, at, severity) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Kind, a.Title, a.Detail, a.Link, a.At.Unix(), a.Severity,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM alerts WHERE id NOT IN (SELECT id FROM alerts ORDER BY at DESC LIMIT ?)`,
		maxAlertsKept,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *sqliteRepository) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, title, detail, COALESCE(link, ''), at, severity FROM alerts ORDER BY at DESC, severity DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var at int64
		if err := rows.Scan(&a.ID, &a.Kind, &a.Title, &a.Detail, &a.Link, &at, &a.Severity); err != nil {
			return nil, err
		}
		a.At = time.Unix(at, 0).UTC()
		out = append(out, a)
	}

	return out, rows.Err()
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}
