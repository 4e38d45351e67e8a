package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trip-optimizer-service/internal/platform/db"
)

// One row per candidate; rank preserves the geocoder's order.
const createGeocodeCacheQuery = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        query TEXT NOT NULL,
        rank INTEGER NOT NULL,
        address TEXT NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL,
        PRIMARY KEY (query, rank)
    );
	`

// InitSQLiteSchema creates the geocode cache table in SQLite.
func InitSQLiteSchema(sqlite *sql.DB) error {
	if sqlite == nil {
		return errors.New("init schema: DB is nil")
	}

	if _, err := sqlite.Exec(createGeocodeCacheQuery); err != nil {
		return fmt.Errorf("init schema: create geocode_cache: %w", err)
	}
	return nil
}

// InitPostgresSchema creates the geocode cache table in Postgres.
func InitPostgresSchema(ctx context.Context, q db.Querier) error {
	if q == nil {
		return errors.New("init schema: DB is nil")
	}

	if _, err := q.Exec(ctx, createGeocodeCacheQuery); err != nil {
		return fmt.Errorf("init schema: create geocode_cache: %w", err)
	}
	return nil
}
