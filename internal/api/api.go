// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/api/handlers"
	"github.com/stocklens/backend-go/internal/api/middleware"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/ledger"
	"github.com/stocklens/backend-go/internal/reorder"
)

type Services struct {
	LedgerService   *ledger.Service
	ForecastService *forecast.Service
	ReorderService  *reorder.Service
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.LedgerService != nil {
			ledgerHandler := handlers.NewLedgerHandler(services.LedgerService)

			txGroup := apiGroup.Group("/transactions")
			{
				txGroup.POST("", ledgerHandler.CreateTransaction)
				txGroup.GET("/validate-date", ledgerHandler.ValidateDate)
				txGroup.GET("/:id", ledgerHandler.GetTransaction)
				txGroup.DELETE("/:id", ledgerHandler.DeleteTransaction)
			}

			cpGroup := apiGroup.Group("/checkpoints")
			{
				cpGroup.POST("", ledgerHandler.CreateCheckpoint)
				cpGroup.DELETE("/:id", ledgerHandler.DeactivateCheckpoint)
			}

			productGroup := apiGroup.Group("/products/:code")
			{
				productGroup.GET("/checkpoints", ledgerHandler.ListCheckpoints)
				productGroup.GET("/daily-ledgers", ledgerHandler.ListDailyLedgers)
				productGroup.POST("/recompute-stock", ledgerHandler.RecomputeStock)
			}

			apiGroup.POST("/batch/daily-close", ledgerHandler.RunDailyClose)
		}

		if services.ForecastService != nil && services.ReorderService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService, services.ReorderService)

			forecastGroup := apiGroup.Group("/forecasts")
			{
				forecastGroup.GET("", forecastHandler.ListForecasts)
				forecastGroup.POST("/refresh", forecastHandler.RefreshForecasts)
				forecastGroup.GET("/:code", forecastHandler.GetForecast)
			}

			reorderGroup := apiGroup.Group("/reorder")
			{
				reorderGroup.GET("/report", forecastHandler.GetReorderReport)
				reorderGroup.GET("/:code", forecastHandler.GetReorderSignal)
			}
		}
	}

	return router
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
