// backend-go/internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// DailyCloser seals one business date.
type DailyCloser interface {
	CloseDay(ctx context.Context, date time.Time) error
}

// ForecastRefresher reruns the forecasting pipeline.
type ForecastRefresher interface {
	RefreshForecasts(ctx context.Context) error
}

// Scheduler owns the batch cadence: the nightly close just after midnight and
// the forecast refresh later in the night. Jobs run in the configured business
// time zone and are guarded against overlapping runs of themselves.
type Scheduler struct {
	cron     *cron.Cron
	batch    config.BatchConfig
	forecast config.ForecastConfig

	closer    DailyCloser
	refresher ForecastRefresher

	closing    atomic.Bool
	refreshing atomic.Bool
}

func New(batch config.BatchConfig, forecast config.ForecastConfig, closer DailyCloser, refresher ForecastRefresher) (*Scheduler, error) {
	tz := batch.Timezone
	if tz == "" {
		tz = "Asia/Seoul"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", tz, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		batch:     batch,
		forecast:  forecast,
		closer:    closer,
		refresher: refresher,
	}, nil
}

// Start registers the jobs and launches the cron loop. The context bounds
// every job run; cancel it before Stop to interrupt in-flight work.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.closer != nil {
		spec := s.batch.DailyCloseCron
		if spec == "" {
			spec = "5 0 * * *"
		}
		if _, err := s.cron.AddFunc(spec, func() { s.runDailyClose(ctx) }); err != nil {
			return fmt.Errorf("error scheduling daily close: %w", err)
		}
		log.Info().Str("cron", spec).Msg("daily close scheduled")
	}

	if s.refresher != nil {
		spec := s.forecast.RefreshCron
		if spec == "" {
			spec = "30 2 * * *"
		}
		if _, err := s.cron.AddFunc(spec, func() { s.runForecastRefresh(ctx) }); err != nil {
			return fmt.Errorf("error scheduling forecast refresh: %w", err)
		}
		log.Info().Str("cron", spec).Msg("forecast refresh scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runDailyClose seals the previous business date. Two close runs must never
// interleave: a second trigger while one is still running is dropped.
func (s *Scheduler) runDailyClose(ctx context.Context) {
	if !s.closing.CompareAndSwap(false, true) {
		log.Warn().Msg("daily close still running, skipping trigger")
		return
	}
	defer s.closing.Store(false)

	target := timeutil.PreviousBusinessDate(timeutil.NowUTC())
	if err := s.closer.CloseDay(ctx, target); err != nil {
		log.Error().Err(err).Time("target_date", target).Msg("daily close failed")
	}
}

func (s *Scheduler) runForecastRefresh(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		log.Warn().Msg("forecast refresh still running, skipping trigger")
		return
	}
	defer s.refreshing.Store(false)

	if err := s.refresher.RefreshForecasts(ctx); err != nil {
		log.Error().Err(err).Msg("forecast refresh failed")
	}
}
