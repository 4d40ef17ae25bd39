package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
)

const createForecastTable = `
CREATE TABLE IF NOT EXISTS forecast_cache (
	region     VARCHAR(100) PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

const upsertForecast = `
INSERT INTO forecast_cache (region, payload, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (region) DO UPDATE
SET payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at;`

const selectForecast = `SELECT payload FROM forecast_cache WHERE region = $1;`

// PostgresBackend keeps forecasts in a forecast_cache table.
type PostgresBackend struct {
	db *sql.DB
}

// OpenPostgres connects with the pgx driver and creates the table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	b, err := NewPostgres(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgres wraps an existing connection pool and ensures the schema.
func NewPostgres(ctx context.Context, db *sql.DB) (*PostgresBackend, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createForecastTable); err != nil {
		return nil, fmt.Errorf("create forecast_cache table: %w", err)
	}
	return &PostgresBackend{db: db}, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	if _, err := b.db.ExecContext(ctx, upsertForecast, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert forecast for %s: %w", key, err)
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, selectForecast, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select forecast for %s: %w", key, err)
	}
	return payload, true, nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
