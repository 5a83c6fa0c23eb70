// backend-go/cmd/forecast/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/stocklens/backend-go/internal/archive"
	"github.com/stocklens/backend-go/internal/config"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/ledger"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/internal/repository/postgres"
	"github.com/stocklens/backend-go/pkg/logger"
)

type services struct {
	ledger    *ledger.Service
	pipeline  *forecast.Pipeline
	ledgers   repository.LedgerRepository
	cfg       *config.Config
	closeFunc func() error
}

func buildServices() (*services, error) {
	cfg := config.Load()
	logger.Setup(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ledgerRepo := postgres.NewLedgerRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db.DB)
	forecastRepo := repository.NewForecastRepository(db.DB)

	return &services{
		ledger: ledger.NewService(ledgerRepo),
		pipeline: forecast.NewPipeline(shipmentRepo, forecastRepo, forecast.PipelineConfig{
			Workers:       cfg.Forecast.Workers,
			HistoryMonths: cfg.Forecast.HistoryLimit,
		}),
		ledgers:   ledgerRepo,
		cfg:       cfg,
		closeFunc: db.Close,
	}, nil
}

func parseDateFlag(c *cli.Context) (time.Time, error) {
	raw := c.String("date")
	if raw == "" {
		return time.Now().UTC().AddDate(0, 0, -1), nil
	}
	return time.Parse("2006-01-02", raw)
}

func main() {
	_ = godotenv.Load()

	dateFlag := &cli.StringFlag{
		Name:  "date",
		Usage: "Business date in YYYY-MM-DD (defaults to yesterday)",
	}

	app := &cli.App{
		Name:  "stocklens",
		Usage: "Batch operations: forecasting, daily close and archive export",
		Commands: []*cli.Command{
			{
				Name:  "forecast",
				Usage: "Run the forecasting pipeline for every SKU",
				Action: func(c *cli.Context) error {
					svc, err := buildServices()
					if err != nil {
						return err
					}
					defer svc.closeFunc()

					summary, err := svc.pipeline.Run(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("processed=%d saved=%d skipped=%d failures=%d elapsed=%s\n",
						summary.Processed, summary.Saved, summary.Skipped, len(summary.Failures), summary.Elapsed)
					return nil
				},
			},
			{
				Name:      "forecast-sku",
				Usage:     "Run the forecasting pipeline for one SKU",
				ArgsUsage: "<product-code>",
				Action: func(c *cli.Context) error {
					code := c.Args().First()
					if code == "" {
						return fmt.Errorf("product code argument is required")
					}

					svc, err := buildServices()
					if err != nil {
						return err
					}
					defer svc.closeFunc()

					result, err := svc.pipeline.ForecastProduct(c.Context, code)
					if err != nil {
						return err
					}
					fmt.Printf("%s method=%s confidence=%s months=[%.1f %.1f %.1f %.1f]\n",
						result.ProductCode, result.Method, result.Confidence,
						result.MonthP0, result.MonthP1, result.MonthP2, result.MonthP3)
					return nil
				},
			},
			{
				Name:  "daily-close",
				Usage: "Regenerate daily ledgers and seal a business date",
				Flags: []cli.Flag{dateFlag},
				Action: func(c *cli.Context) error {
					date, err := parseDateFlag(c)
					if err != nil {
						return fmt.Errorf("invalid date: %w", err)
					}

					svc, err := buildServices()
					if err != nil {
						return err
					}
					defer svc.closeFunc()

					summary, err := svc.ledger.GenerateDailyLedger(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Printf("date=%s products=%d ledgers=%d checkpoints=%d failures=%d elapsed=%s\n",
						summary.TargetDate.Format("2006-01-02"), summary.ProductsProcessed,
						summary.LedgersCreated, summary.CheckpointsCreated, len(summary.Failures), summary.Elapsed)
					return nil
				},
			},
			{
				Name:  "export",
				Usage: "Upload the daily ledger snapshot for a date to the archive",
				Flags: []cli.Flag{dateFlag},
				Action: func(c *cli.Context) error {
					date, err := parseDateFlag(c)
					if err != nil {
						return fmt.Errorf("invalid date: %w", err)
					}

					svc, err := buildServices()
					if err != nil {
						return err
					}
					defer svc.closeFunc()

					if !svc.cfg.Archive.Enabled {
						return fmt.Errorf("archive is not enabled")
					}
					store, err := archive.NewMinioClient(svc.cfg.Archive)
					if err != nil {
						return err
					}

					rows, err := archive.NewExporter(svc.ledgers, store).ExportDay(c.Context, date)
					if err != nil {
						return err
					}
					fmt.Printf("date=%s rows=%d\n", date.Format("2006-01-02"), rows)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
