package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresGeocodeCacheGet(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT address, lon, lat\s+FROM geocode_cache\s+WHERE query = \$1`).
		WithArgs("gran via 1").
		WillReturnRows(pgxmock.NewRows([]string{"address", "lon", "lat"}).
			AddRow("Gran Via 1, Madrid", -3.70, 40.42).
			AddRow("Gran Via 1, Bilbao", -2.93, 43.26))

	got, ok, err := NewPostgresGeocodeCache(mock).Get(context.Background(), "gran via 1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sampleCandidates, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGeocodeCacheMiss(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT address, lon, lat`).
		WithArgs("nowhere").
		WillReturnRows(pgxmock.NewRows([]string{"address", "lon", "lat"}))

	_, ok, err := NewPostgresGeocodeCache(mock).Get(context.Background(), "nowhere")

	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGeocodeCacheGetError(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT address, lon, lat`).
		WithArgs("x").
		WillReturnError(errors.New("connection reset"))

	_, _, err := NewPostgresGeocodeCache(mock).Get(context.Background(), "x")

	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresGeocodeCachePut(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM geocode_cache WHERE query = \$1`).
		WithArgs("gran via 1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`INSERT INTO geocode_cache`).
		WithArgs("gran via 1", 0, "Gran Via 1, Madrid", -3.70, 40.42).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO geocode_cache`).
		WithArgs("gran via 1", 1, "Gran Via 1, Bilbao", -2.93, 43.26).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := NewPostgresGeocodeCache(mock).Put(context.Background(), "gran via 1", sampleCandidates)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGeocodeCachePutRollsBack(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM geocode_cache`).
		WithArgs("gran via 1").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := NewPostgresGeocodeCache(mock).Put(context.Background(), "gran via 1", sampleCandidates)

	assert.ErrorContains(t, err, "deadlock detected")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitPostgresSchema(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS geocode_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, InitPostgresSchema(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}
