package config

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// RDB is nil while the user cache is disabled.
	RDB *redis.Client
	Ctx = context.Background()
)

// ConnectRedis enables the user cache. addr is host:port or a redis:// URL.
// An empty or unreachable address leaves caching disabled.
func ConnectRedis(addr string) {
	if addr == "" {
		slog.Warn("REDIS_ADDR is not set, user cache disabled")
		return
	}

	opts, err := redisOptions(addr)
	if err != nil {
		slog.Error("Invalid REDIS_ADDR, user cache disabled", "error", err)
		return
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(Ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Redis unreachable, user cache disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return
	}

	RDB = client
	slog.Info("Connected to Redis", "addr", opts.Addr, "db", opts.DB)
}

func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// CacheStatus is "disabled", "ok" or "unavailable".
func CacheStatus(ctx context.Context) string {
	if RDB == nil {
		return "disabled"
	}
	if err := RDB.Ping(ctx).Err(); err != nil {
		return "unavailable"
	}
	return "ok"
}
