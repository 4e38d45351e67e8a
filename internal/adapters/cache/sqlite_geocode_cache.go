package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
)

// SQLite backed cache mapping normalized search keys to geocoding candidates.
// Keys are expected to be normalized by the caller.
type SqliteGeocodeCache struct {
	DB *sql.DB
}

func NewSqliteGeocodeCache(db *sql.DB) *SqliteGeocodeCache {
	return &SqliteGeocodeCache{DB: db}
}

// Fetch the cached candidates for key. A key with no rows is a miss.
func (s *SqliteGeocodeCache) Get(
	ctx context.Context,
	key string,
) (_ []ports.GeocodeCandidate, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.sqlite.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("geocode cache: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT
        address,
        lon,
        lat
    FROM geocode_cache
    WHERE query = ?
    ORDER BY rank;
	`, key)
	if err != nil {
		return nil, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	var out []ports.GeocodeCandidate
	for rows.Next() {
		var c ports.GeocodeCandidate
		if err := rows.Scan(&c.Address, &c.Coords.Lon, &c.Coords.Lat); err != nil {
			return nil, false, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, len(out) > 0, nil
}

// Replace the candidates stored for key.
func (s *SqliteGeocodeCache) Put(ctx context.Context, key string, candidates []ports.GeocodeCandidate) (err error) {
	defer obs.Time(ctx, "geocode.cache.sqlite.Put")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert geocode cache: empty query key")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM geocode_cache WHERE query = ?;`, key); err != nil {
		return fmt.Errorf("insert geocode cache: clear %q: %w", key, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO geocode_cache (
        query,
        rank,
        address,
        lon,
        lat
    )
    VALUES (?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for i, c := range candidates {
		if err := c.Coords.Validate(); err != nil {
			return fmt.Errorf("insert geocode cache query=%q rank=%d: %w", key, i, err)
		}
		if _, err := stmt.ExecContext(ctx, key, i, c.Address, c.Coords.Lon, c.Coords.Lat); err != nil {
			return fmt.Errorf("insert geocode cache query=%q rank=%d: %w", key, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}

var _ ports.GeocodeCache = (*SqliteGeocodeCache)(nil)
