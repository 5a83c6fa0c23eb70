// backend-go/cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/backend-go/internal/api"
	"github.com/stocklens/backend-go/internal/cache"
	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/ledger"
	"github.com/stocklens/backend-go/internal/reorder"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/internal/repository/postgres"
	"github.com/stocklens/backend-go/pkg/logger"

	zlog "github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

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
	reorderService := reorder.NewService(ledgerRepo, forecastRepo, forecastCache)

	router := api.NewRouter(&api.Services{
		LedgerService:   ledgerService,
		ForecastService: forecastService,
		ReorderService:  reorderService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zlog.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("server forced to shutdown")
	}

	zlog.Info().Msg("server exiting")
}
