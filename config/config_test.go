package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreGlobals(t *testing.T) {
	prevApp, prevKey, prevRDB := App, JwtKey, RDB
	t.Cleanup(func() { App, JwtKey, RDB = prevApp, prevKey, prevRDB })
}

func TestLoadFromEnvironment(t *testing.T) {
	restoreGlobals(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_URL", "postgres://flowfin@localhost/flowfin")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("AUTH_RATE_LIMIT", "2.5")
	t.Setenv("TOKEN_TTL", "1h")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", s.HTTPAddr)
	assert.Equal(t, time.Hour, s.TokenTTL)
	assert.Equal(t, 2.5, s.AuthRateLimit)
	assert.Equal(t, 10, s.AuthRateBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.AllowedOrigins)
	assert.True(t, s.CronEnabled)
	assert.Equal(t, s, App)
	assert.Equal(t, []byte("s3cret"), JwtKey)
}

func TestLoadRequiresSecrets(t *testing.T) {
	restoreGlobals(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_URL", "postgres://flowfin@localhost/flowfin")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_URL", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_URL")

	t.Setenv("DB_URL", "postgres://flowfin@localhost/flowfin")
	t.Setenv("AUTH_RATE_BURST", "many")
	_, err = Load()
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	restoreGlobals(t)
	ctx := context.Background()

	RDB = nil
	ConnectRedis("")
	assert.Nil(t, RDB)
	assert.Equal(t, "disabled", CacheStatus(ctx))

	mr := miniredis.RunT(t)
	ConnectRedis("redis://" + mr.Addr() + "/2")
	require.NotNil(t, RDB)
	assert.Equal(t, 2, RDB.Options().DB)
	assert.Equal(t, "ok", CacheStatus(ctx))
	_ = RDB.Close()

	ConnectRedis(mr.Addr())
	require.NotNil(t, RDB)
	assert.Equal(t, 0, RDB.Options().DB)
	_ = RDB.Close()

	RDB = nil
	ConnectRedis("redis://" + mr.Addr() + "/not-a-db")
	assert.Nil(t, RDB)
}

func TestPingDBWithoutDatabase(t *testing.T) {
	assert.Error(t, PingDB(context.Background(), nil))
}
