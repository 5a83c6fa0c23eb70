// backend-go/internal/forecast/service.go
package forecast

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/cache"
	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
)

// Service is the read side of forecasting: latest results per SKU, cached.
// Refresh delegates to the pipeline and drops the cache afterwards.
type Service struct {
	forecasts repository.ForecastRepository
	pipeline  *Pipeline
	cache     cache.ForecastCache
}

func NewService(forecasts repository.ForecastRepository, pipeline *Pipeline, cacheImpl cache.ForecastCache) *Service {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &Service{forecasts: forecasts, pipeline: pipeline, cache: cacheImpl}
}

// GetLatest returns the most recent forecast for one SKU.
func (s *Service) GetLatest(ctx context.Context, code string) (domain.ForecastResult, error) {
	if result, ok, err := s.cache.GetForecast(ctx, code); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_code", code).Msg("forecast: cache get failed")
	}

	result, err := s.forecasts.GetLatest(ctx, code)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	if err := s.cache.SetForecast(ctx, result); err != nil {
		log.Warn().Err(err).Str("product_code", code).Msg("forecast: cache set failed")
	}
	return result, nil
}

// ListLatest returns the most recent forecast for every SKU.
func (s *Service) ListLatest(ctx context.Context) ([]domain.ForecastResult, error) {
	return s.forecasts.ListLatest(ctx)
}

// Refresh reruns the forecasting pipeline and invalidates cached results.
func (s *Service) Refresh(ctx context.Context) (RunSummary, error) {
	summary, err := s.pipeline.Run(ctx)
	if err != nil {
		return summary, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("forecast: cache invalidation failed")
	}
	return summary, nil
}
