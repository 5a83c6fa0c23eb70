// backend-go/internal/forecast/pipeline.go
package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// PipelineConfig sizes one forecasting run.
type PipelineConfig struct {
	// concurrent SKU fitters; model fitting is CPU-bound
	Workers int
	// months of shipment history loaded per SKU
	HistoryMonths int
}

// Pipeline trains and persists forecasts for every SKU with shipment history.
// It runs on its own batch cadence, fully decoupled from the stock ledger.
type Pipeline struct {
	shipments repository.ShipmentRepository
	forecasts repository.ForecastRepository
	engine    *Engine
	config    PipelineConfig
}

func NewPipeline(shipments repository.ShipmentRepository, forecasts repository.ForecastRepository, cfg PipelineConfig) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.HistoryMonths < 1 {
		cfg.HistoryMonths = 36
	}
	return &Pipeline{
		shipments: shipments,
		forecasts: forecasts,
		engine:    NewEngine(),
		config:    cfg,
	}
}

// RunSummary reports one pipeline run. Skipped SKUs had too little history;
// failures are per-SKU and never abort the run.
type RunSummary struct {
	Processed int           `json:"processed"`
	Saved     int           `json:"saved"`
	Skipped   int           `json:"skipped"`
	Failures  []SKUError    `json:"failures,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

type SKUError struct {
	ProductCode string `json:"product_code"`
	Error       string `json:"error"`
}

// Run forecasts every SKU present in the shipment history using a worker
// pool.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	started := timeutil.NowUTC()

	codes, err := p.shipments.ListProductCodes(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	var (
		mu      sync.Mutex
		summary RunSummary
		wg      sync.WaitGroup
	)
	jobs := make(chan string, len(codes))

	for i := 0; i < p.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range jobs {
				_, err := p.ForecastProduct(ctx, code)

				mu.Lock()
				summary.Processed++
				switch {
				case errors.Is(err, domain.ErrNotEnoughData):
					summary.Skipped++
				case err != nil:
					summary.Failures = append(summary.Failures, SKUError{
						ProductCode: code,
						Error:       err.Error(),
					})
				default:
					summary.Saved++
				}
				mu.Unlock()

				if err != nil && !errors.Is(err, domain.ErrNotEnoughData) {
					log.Error().Err(err).Str("product_code", code).Msg("forecast failed for SKU")
				}
			}
		}()
	}

	for _, code := range codes {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return summary, ctx.Err()
		case jobs <- code:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Elapsed = timeutil.NowUTC().Sub(started)
	log.Info().
		Int("processed", summary.Processed).
		Int("saved", summary.Saved).
		Int("skipped", summary.Skipped).
		Int("failures", len(summary.Failures)).
		Dur("elapsed", summary.Elapsed).
		Msg("forecast run finished")
	return summary, nil
}

// ForecastProduct trains, blends and persists the forecast for one SKU.
func (p *Pipeline) ForecastProduct(ctx context.Context, code string) (domain.ForecastResult, error) {
	now := timeutil.NowUTC()
	since := timeutil.MonthKey(now).AddDate(0, -p.config.HistoryMonths, 0)

	records, err := p.shipments.ListByProductSince(ctx, code, since)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	series := BuildMonthlySeries(records, now)
	result, err := p.engine.Forecast(code, series, now)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	if err := p.forecasts.Save(ctx, &result); err != nil {
		return domain.ForecastResult{}, err
	}

	log.Debug().
		Str("product_code", code).
		Str("method", result.Method).
		Str("confidence", result.Confidence).
		Int("data_points", result.DataPoints).
		Msg("forecast saved")
	return result, nil
}
