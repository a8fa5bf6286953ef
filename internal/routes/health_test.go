package routes_test

import (
	"errors"
	"net/http"
	"testing"

	"flowfin/config"
	"flowfin/internal/routes"
	"flowfin/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// mockDB swaps config.DB for a postgres dialector over sqlmock.
func mockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	prev := config.DB
	config.DB = db
	t.Cleanup(func() { config.DB = prev })
	return mock
}

func TestHealthz(t *testing.T) {
	testutil.NewDB(t)
	r := routes.NewRouter()

	var body healthBody
	rec := testutil.Do(t, r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.Decode(t, rec, &body)
	assert.Equal(t, healthBody{Status: "ok", Database: "ok", Cache: "disabled"}, body)
}

func TestHealthzReportsDatabaseOutage(t *testing.T) {
	testutil.NewDB(t)
	mock := mockDB(t)
	r := routes.NewRouter()

	mock.ExpectPing()
	rec := testutil.Do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	var body healthBody
	rec = testutil.Do(t, r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	testutil.Decode(t, rec, &body)
	assert.Equal(t, "down", body.Status)
	assert.Equal(t, "unavailable", body.Database)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthzChecksCache(t *testing.T) {
	testutil.NewDB(t)
	mr := miniredis.RunT(t)
	config.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { config.RDB.Close() })
	r := routes.NewRouter()

	var body healthBody
	testutil.Decode(t, testutil.Do(t, r, http.MethodGet, "/healthz", "", nil), &body)
	assert.Equal(t, "ok", body.Cache)

	mr.Close()
	rec := testutil.Do(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "a cache outage does not fail the probe")
	testutil.Decode(t, rec, &body)
	assert.Equal(t, "unavailable", body.Cache)
}
