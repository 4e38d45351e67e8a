package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trip-optimizer-service/internal/platform/db"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"
)

// PostgresGeocodeCache is a Postgres-backed cache mapping normalized search
// keys to geocoding candidates.
type PostgresGeocodeCache struct {
	DB db.Querier
}

func NewPostgresGeocodeCache(q db.Querier) *PostgresGeocodeCache {
	return &PostgresGeocodeCache{DB: q}
}

// Fetch the cached candidates for key. A key with no rows is a miss.
func (s *PostgresGeocodeCache) Get(
	ctx context.Context,
	key string,
) (_ []ports.GeocodeCandidate, _ bool, err error) {
	defer obs.Time(ctx, "geocode.cache.postgres.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("geocode cache: db is nil")
	}

	q := `
	SELECT address, lon, lat
    FROM geocode_cache
    WHERE query = $1
    ORDER BY rank;
	`

	rows, err := s.DB.Query(ctx, q, key)
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

// Replace the candidates stored for key in one transaction.
func (s *PostgresGeocodeCache) Put(ctx context.Context, key string, candidates []ports.GeocodeCandidate) (err error) {
	defer obs.Time(ctx, "geocode.cache.postgres.Put")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if strings.TrimSpace(key) == "" {
		return errors.New("insert geocode cache: empty query key")
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM geocode_cache WHERE query = $1;`, key); err != nil {
		return fmt.Errorf("insert geocode cache: clear %q: %w", key, err)
	}

	insert := `
	INSERT INTO geocode_cache (query, rank, address, lon, lat)
    VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (query, rank) DO UPDATE
	SET address = EXCLUDED.address,
		lon = EXCLUDED.lon,
		lat = EXCLUDED.lat;
	`
	for i, c := range candidates {
		if err := c.Coords.Validate(); err != nil {
			return fmt.Errorf("insert geocode cache query=%q rank=%d: %w", key, i, err)
		}
		if _, err := tx.Exec(ctx, insert, key, i, c.Address, c.Coords.Lon, c.Coords.Lat); err != nil {
			return fmt.Errorf("insert geocode cache query=%q rank=%d: %w", key, i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}

var _ ports.GeocodeCache = (*PostgresGeocodeCache)(nil)
