// backend-go/internal/reorder/service.go
package reorder

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/cache"
	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
)

// confidenceMultipliers widen the reorder point when the forecast itself is
// shaky, so low-confidence SKUs carry a larger buffer.
var confidenceMultipliers = map[string]float64{
	"low":         1.3,
	"low-medium":  1.2,
	"medium":      1.1,
	"medium-high": 1.05,
	"high":        1.0,
}

// ProductReader is the slice of the ledger store the reorder service needs.
type ProductReader interface {
	GetProduct(ctx context.Context, code string) (domain.Product, error)
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
}

// Service joins the latest forecasts with product master data and runs the
// reorder calculation. The full report is cached; single-product lookups
// are cheap enough to compute directly.
type Service struct {
	products  ProductReader
	forecasts repository.ForecastRepository
	cache     cache.ForecastCache
	calc      *Calculator
}

func NewService(products ProductReader, forecasts repository.ForecastRepository, cacheImpl cache.ForecastCache) *Service {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &Service{
		products:  products,
		forecasts: forecasts,
		cache:     cacheImpl,
		calc:      NewCalculator(),
	}
}

// Report computes reorder signals for every active product that has a
// forecast. Products without one are skipped; they cannot be scored.
func (s *Service) Report(ctx context.Context) ([]domain.ReorderSignal, error) {
	if signals, ok, err := s.cache.GetReorderReport(ctx); err == nil && ok {
		return signals, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("reorder: cache get report failed")
	}

	products, err := s.products.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing products for reorder report: %w", err)
	}

	forecasts, err := s.forecasts.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing forecasts for reorder report: %w", err)
	}

	byCode := make(map[string]domain.ForecastResult, len(forecasts))
	for _, f := range forecasts {
		byCode[f.ProductCode] = f
	}

	signals := make([]domain.ReorderSignal, 0, len(products))
	for _, p := range products {
		f, ok := byCode[p.Code]
		if !ok {
			continue
		}
		signals = append(signals, s.calc.Calculate(buildInput(p, f)))
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Urgency != signals[j].Urgency {
			return signals[i].Urgency.Rank() < signals[j].Urgency.Rank()
		}
		return signals[i].ProductCode < signals[j].ProductCode
	})

	if err := s.cache.SetReorderReport(ctx, signals); err != nil {
		log.Warn().Err(err).Msg("reorder: cache set report failed")
	}

	return signals, nil
}

// ForProduct computes the reorder signal for a single product.
func (s *Service) ForProduct(ctx context.Context, code string) (domain.ReorderSignal, error) {
	product, err := s.products.GetProduct(ctx, code)
	if err != nil {
		return domain.ReorderSignal{}, err
	}

	forecast, err := s.forecasts.GetLatest(ctx, code)
	if err != nil {
		return domain.ReorderSignal{}, err
	}

	return s.calc.Calculate(buildInput(product, forecast)), nil
}

func buildInput(p domain.Product, f domain.ForecastResult) Input {
	return Input{
		ProductCode:          p.Code,
		CurrentStock:         p.CurrentStock,
		SafetyStock:          p.SafetyStock,
		LeadTimeDays:         p.LeadTimeDays,
		MOQ:                  p.MOQ,
		MonthlyPredictions:   f.ForwardMonths(),
		ConfidenceMultiplier: confidenceMultipliers[f.Confidence],
	}
}
