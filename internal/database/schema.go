package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent and applied on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS air_quality_readings (
		id          BIGSERIAL PRIMARY KEY,
		grid_key    TEXT             NOT NULL,
		lat         DOUBLE PRECISION NOT NULL,
		lon         DOUBLE PRECISION NOT NULL,
		location    TEXT             NOT NULL,
		aqi         INTEGER          NOT NULL CHECK (aqi BETWEEN 1 AND 500),
		pollutants  JSONB            NOT NULL,
		source      TEXT             NOT NULL,
		observed_at TIMESTAMPTZ      NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS air_quality_readings_grid_observed
		ON air_quality_readings (grid_key, observed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS feature_flags (
		key        TEXT PRIMARY KEY,
		value      JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the history and feature flag tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
