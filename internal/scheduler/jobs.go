// backend-go/internal/scheduler/jobs.go
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/archive"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/ledger"
)

// CloseJob seals a business date and, when an exporter is configured, uploads
// the resulting ledger snapshot to the archive.
type CloseJob struct {
	ledger   *ledger.Service
	exporter *archive.Exporter
}

func NewCloseJob(ledgerService *ledger.Service, exporter *archive.Exporter) *CloseJob {
	return &CloseJob{ledger: ledgerService, exporter: exporter}
}

func (j *CloseJob) CloseDay(ctx context.Context, date time.Time) error {
	summary, err := j.ledger.GenerateDailyLedger(ctx, date)
	if err != nil {
		return err
	}
	if len(summary.Failures) > 0 {
		log.Warn().
			Int("failures", len(summary.Failures)).
			Time("target_date", date).
			Msg("daily close finished with per-product failures")
	}

	// Archive upload is best-effort: the close itself already committed.
	if j.exporter != nil {
		if _, err := j.exporter.ExportDay(ctx, date); err != nil {
			log.Error().Err(err).Time("target_date", date).Msg("ledger snapshot upload failed")
		}
	}
	return nil
}

// RefreshJob reruns the forecast pipeline through the forecast service so the
// cache is invalidated together with the refresh.
type RefreshJob struct {
	forecasts *forecast.Service
}

func NewRefreshJob(forecasts *forecast.Service) *RefreshJob {
	return &RefreshJob{forecasts: forecasts}
}

func (j *RefreshJob) RefreshForecasts(ctx context.Context) error {
	_, err := j.forecasts.Refresh(ctx)
	return err
}
