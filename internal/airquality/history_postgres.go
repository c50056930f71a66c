package airquality

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresHistory is a PostgreSQL implementation of HistoryRepository on
// the air_quality_readings table created by database.EnsureSchema.
type PostgresHistory struct {
	pool *pgxpool.Pool
}

// NewPostgresHistory creates a history repository on pool.
func NewPostgresHistory(pool *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{pool: pool}
}

// Record implements HistoryRepository.
func (r *PostgresHistory) Record(ctx context.Context, reading *Reading) error {
	query := `
		INSERT INTO air_quality_readings
			(grid_key, lat, lon, location, aqi, pollutants, source, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	pollutants, err := json.Marshal(reading.Pollutants)
	if err != nil {
		return fmt.Errorf("encode pollutants: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		GridKey(reading.Coordinates),
		reading.Coordinates.Latitude,
		reading.Coordinates.Longitude,
		reading.Location,
		reading.AQI,
		pollutants,
		string(reading.Source),
		reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// List implements HistoryRepository.
func (r *PostgresHistory) List(ctx context.Context, c Coordinate, limit int) ([]*Reading, error) {
	query := `
		SELECT lat, lon, location, aqi, pollutants, source, observed_at
		FROM air_quality_readings
		WHERE grid_key = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, GridKey(c), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]*Reading, 0)
	for rows.Next() {
		var (
			reading        Reading
			source         string
			pollutantsJSON []byte
		)
		if err := rows.Scan(
			&reading.Coordinates.Latitude,
			&reading.Coordinates.Longitude,
			&reading.Location,
			&reading.AQI,
			&pollutantsJSON,
			&source,
			&reading.Timestamp,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pollutantsJSON, &reading.Pollutants); err != nil {
			return nil, fmt.Errorf("decode pollutants: %w", err)
		}
		reading.Source = Source(source)
		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

var _ HistoryRepository = (*PostgresHistory)(nil)
