package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPgxPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pgxpool: %w", err)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id             UUID PRIMARY KEY,
	text           TEXT NOT NULL,
	optimizations  JSONB,
	details        JSONB,
	optimized_text TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	edited_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS transcriptions_created_at_idx ON transcriptions (created_at DESC);

CREATE TABLE IF NOT EXISTS users (
	user_id    TEXT PRIMARY KEY,
	tokens     INTEGER NOT NULL,
	is_premium BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
