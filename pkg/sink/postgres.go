package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediacrawl/pkg/logger"
)

const recordsSchema = `
CREATE TABLE IF NOT EXISTS crawl_records (
	id          BIGSERIAL PRIMARY KEY,
	platform    TEXT        NOT NULL,
	kind        TEXT        NOT NULL,
	item_id     TEXT        NOT NULL,
	created_at  BIGINT      NOT NULL,
	fetched_at  TIMESTAMPTZ NOT NULL,
	payload     JSONB       NOT NULL,
	UNIQUE (platform, kind, item_id)
)`

const insertRecord = `
INSERT INTO crawl_records (platform, kind, item_id, created_at, fetched_at, payload)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (platform, kind, item_id) DO UPDATE
SET created_at = EXCLUDED.created_at,
    fetched_at = EXCLUDED.fetched_at,
    payload    = EXCLUDED.payload`

// PostgresSink upserts records into a single table keyed by platform, kind
// and item id, so re-crawls refresh rather than duplicate.
type PostgresSink struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresSink connects and ensures the records table exists.
func NewPostgresSink(ctx context.Context, dsn string, log logger.Logger) (*PostgresSink, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, recordsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring records table: %w", err)
	}
	return &PostgresSink{pool: pool, log: log}, nil
}

// Write implements Sink.
func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	payload, err := rec.marshal()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, insertRecord,
		rec.Platform, rec.Kind, rec.ItemID, rec.CreatedAt, rec.FetchedAt, payload)
	if err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.ItemID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
