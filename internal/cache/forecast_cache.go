// backend-go/internal/cache/forecast_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/internal/domain"
)

const (
	forecastKeyPrefix    = "forecast:latest"
	reorderReportKey     = "reorder:report"
	forecastScanBatchize = 100
)

// ForecastCache fronts the forecast store and the assembled reorder report.
// Forecasts refresh on a batch cadence, so short TTLs are safe.
type ForecastCache interface {
	GetForecast(ctx context.Context, code string) (domain.ForecastResult, bool, error)
	SetForecast(ctx context.Context, result domain.ForecastResult) error
	GetReorderReport(ctx context.Context) ([]domain.ReorderSignal, bool, error)
	SetReorderReport(ctx context.Context, signals []domain.ReorderSignal) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

func NewForecastCache(cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{client: client, ttl: ttl}, nil
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func forecastKey(code string) string {
	return fmt.Sprintf("%s:%s", forecastKeyPrefix, code)
}

func (c *redisForecastCache) GetForecast(ctx context.Context, code string) (domain.ForecastResult, bool, error) {
	payload, err := c.client.Get(ctx, forecastKey(code)).Bytes()
	if err == redis.Nil {
		return domain.ForecastResult{}, false, nil
	}
	if err != nil {
		return domain.ForecastResult{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.ForecastResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return domain.ForecastResult{}, false, fmt.Errorf("decode forecast cache: %w", err)
	}
	return result, true, nil
}

func (c *redisForecastCache) SetForecast(ctx context.Context, result domain.ForecastResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}
	if err := c.client.Set(ctx, forecastKey(result.ProductCode), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) GetReorderReport(ctx context.Context) ([]domain.ReorderSignal, bool, error) {
	payload, err := c.client.Get(ctx, reorderReportKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var signals []domain.ReorderSignal
	if err := json.Unmarshal(payload, &signals); err != nil {
		return nil, false, fmt.Errorf("decode reorder report cache: %w", err)
	}
	return signals, true, nil
}

func (c *redisForecastCache) SetReorderReport(ctx context.Context, signals []domain.ReorderSignal) error {
	payload, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("encode reorder report cache: %w", err)
	}
	if err := c.client.Set(ctx, reorderReportKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	if err := purgeKeys(ctx, c.client, forecastKeyPrefix+":*", forecastScanBatchize); err != nil {
		return err
	}
	return c.client.Del(ctx, reorderReportKey).Err()
}

func (n *noopForecastCache) GetForecast(ctx context.Context, code string) (domain.ForecastResult, bool, error) {
	return domain.ForecastResult{}, false, nil
}

func (n *noopForecastCache) SetForecast(ctx context.Context, result domain.ForecastResult) error {
	return nil
}

func (n *noopForecastCache) GetReorderReport(ctx context.Context) ([]domain.ReorderSignal, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) SetReorderReport(ctx context.Context, signals []domain.ReorderSignal) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}
