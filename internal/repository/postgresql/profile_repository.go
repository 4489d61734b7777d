package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"talent-sourcing-service/internal/entity"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// ProfileRepository is the enrichment cache on Postgres.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
    identity   TEXT PRIMARY KEY,
    source     TEXT NOT NULL,
    payload    JSONB NOT NULL,
    fetched_at TIMESTAMPTZ NOT NULL
);
`
	_, err := r.pool.Exec(ctx, q)
	return err
}

func (r *ProfileRepository) Get(ctx context.Context, identity string) (entity.AuxiliaryData, bool, error) {
	const q = `
SELECT payload, fetched_at
FROM enrichment_cache
WHERE identity = $1;
`
	var (
		payload   []byte
		fetchedAt time.Time
	)
	if err := r.pool.QueryRow(ctx, q, identity).Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.AuxiliaryData{}, false, nil
		}
		return entity.AuxiliaryData{}, false, err
	}

	var d entity.AuxiliaryData
	if err := json.Unmarshal(payload, &d); err != nil {
		return entity.AuxiliaryData{}, false, fmt.Errorf("decode payload: %w", err)
	}
	d.FetchedAt = fetchedAt
	return d, true, nil
}

func (r *ProfileRepository) Put(ctx context.Context, identity string, data entity.AuxiliaryData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO enrichment_cache (identity, source, payload, fetched_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (identity) DO UPDATE
SET source = EXCLUDED.source, payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at;
`
	_, err = r.pool.Exec(ctx, q, identity, data.Source, payload, data.FetchedAt)
	return err
}

// DeleteOlderThan prunes entries past the freshness window.
func (r *ProfileRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enrichment_cache WHERE fetched_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
