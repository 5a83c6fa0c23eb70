// backend-go/cmd/scheduler/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	zlog "github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/archive"
	"github.com/stocklens/backend-go/internal/cache"
	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/ledger"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/internal/repository/postgres"
	"github.com/stocklens/backend-go/internal/scheduler"
	"github.com/stocklens/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		zlog.Warn().Err(err).Msg("cache unavailable, continuing without it")
		forecastCache = cache.NewNoopForecastCache()
	}

	ledgerRepo := postgres.NewLedgerRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db.DB)
	forecastRepo := repository.NewForecastRepository(db.DB)

	ledgerService := ledger.NewService(ledgerRepo)
	pipeline := forecast.NewPipeline(shipmentRepo, forecastRepo, forecast.PipelineConfig{
		Workers:       cfg.Forecast.Workers,
		HistoryMonths: cfg.Forecast.HistoryLimit,
	})
	forecastService := forecast.NewService(forecastRepo, pipeline, forecastCache)

	var exporter *archive.Exporter
	if cfg.Archive.Enabled {
		store, err := archive.NewMinioClient(cfg.Archive)
		if err != nil {
			zlog.Fatal().Err(err).Msg("archive storage unavailable")
		}
		exporter = archive.NewExporter(ledgerRepo, store)
	}

	sched, err := scheduler.New(
		cfg.Batch,
		cfg.Forecast,
		scheduler.NewCloseJob(ledgerService, exporter),
		scheduler.NewRefreshJob(forecastService),
	)
	if err != nil {
		zlog.Fatal().Err(err).Msg("scheduler setup failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := sched.Start(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("scheduler start failed")
	}
	zlog.Info().Msg("scheduler running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down scheduler")
	cancel()
	sched.Stop()
	zlog.Info().Msg("scheduler exiting")
}
