// backend-go/internal/cache/redis_helper.go
package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stocklens/backend-go/internal/config"
)

// Fallback when CACHE_FORECAST_TTL_SECONDS is unset or negative. Forecasts
// only change on refresh runs, so ten minutes of staleness is acceptable.
const defaultForecastTTL = 10 * time.Minute

const redisDialTimeout = 5 * time.Second

// newRedisClient dials redis and verifies the connection with a ping before
// the cache is put in front of any store. REDIS_URL wins over the discrete
// host and port fields.
func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		host, port := cfg.RedisHost, cfg.RedisPort
		if host == "" {
			host = "127.0.0.1"
		}
		if port == "" {
			port = "6379"
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, 0, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.ForecastTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultForecastTTL
	}
	return client, ttl, nil
}

// purgeKeys deletes every key matching pattern, walking the keyspace with
// SCAN rather than KEYS.
func purgeKeys(ctx context.Context, client *redis.Client, pattern string, batchSize int64) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}
