package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS forecast_cache")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	b, err := NewPostgres(context.Background(), db)
	require.NoError(t, err)
	return b, mock
}

func TestPostgresBackendUpsertAndSelect(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)
	cache := NewForecastCache(b, quietLogger())

	payload, err := json.Marshal(sampleForecast(12))
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forecast_cache")).
		WithArgs("Hyogo", payload, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM forecast_cache WHERE region = $1")).
		WithArgs("Hyogo").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM forecast_cache")).
		WithArgs("Tokyo").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	require.True(t, cache.Write(ctx, "Hyogo", sampleForecast(12)))

	got, ok := cache.Read(ctx, "Hyogo")
	require.True(t, ok)
	assert.Equal(t, sampleForecast(12), got)

	_, ok = cache.Read(ctx, "Tokyo")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendErrors(t *testing.T) {
	ctx := context.Background()
	b, mock := newMockPostgres(t)
	cache := NewForecastCache(b, quietLogger())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forecast_cache")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM forecast_cache")).
		WillReturnError(errors.New("connection reset"))

	assert.False(t, cache.Write(ctx, "Tokyo", sampleForecast(1)))
	_, ok := cache.Read(ctx, "Tokyo")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("refused"))

	_, err = NewPostgres(context.Background(), db)
	assert.Error(t, err)
}
