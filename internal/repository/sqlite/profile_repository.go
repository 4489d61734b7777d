package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"talent-sourcing-service/internal/entity"
)

// Open opens a SQLite database. A single connection keeps ":memory:"
// databases shared across calls.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ProfileRepository is the enrichment cache on a local SQLite file.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
    identity   TEXT PRIMARY KEY,
    source     TEXT NOT NULL,
    payload    TEXT NOT NULL,
    fetched_at INTEGER NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *ProfileRepository) Get(ctx context.Context, identity string) (entity.AuxiliaryData, bool, error) {
	var (
		payload string
		ms      int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM enrichment_cache WHERE identity = ?`, identity,
	).Scan(&payload, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.AuxiliaryData{}, false, nil
	}
	if err != nil {
		return entity.AuxiliaryData{}, false, err
	}

	var d entity.AuxiliaryData
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return entity.AuxiliaryData{}, false, fmt.Errorf("decode payload: %w", err)
	}
	d.FetchedAt = time.UnixMilli(ms).UTC()
	return d, true, nil
}

func (r *ProfileRepository) Put(ctx context.Context, identity string, data entity.AuxiliaryData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO enrichment_cache (identity, source, payload, fetched_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE
SET source = excluded.source, payload = excluded.payload, fetched_at = excluded.fetched_at`,
		identity, data.Source, string(payload), data.FetchedAt.UnixMilli(),
	)
	return err
}

func (r *ProfileRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrichment_cache WHERE fetched_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
