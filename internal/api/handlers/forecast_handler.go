package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/forecast"
	"github.com/stocklens/backend-go/internal/reorder"
)

type ForecastHandler struct {
	forecasts *forecast.Service
	reorders  *reorder.Service
}

func NewForecastHandler(forecasts *forecast.Service, reorders *reorder.Service) *ForecastHandler {
	return &ForecastHandler{forecasts: forecasts, reorders: reorders}
}

func forecastStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrForecastNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotEnoughData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *ForecastHandler) ListForecasts(c *gin.Context) {
	results, err := h.forecasts.ListLatest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if results == nil {
		results = make([]domain.ForecastResult, 0)
	}

	c.JSON(http.StatusOK, gin.H{"forecasts": results})
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	result, err := h.forecasts.GetLatest(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(forecastStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RefreshForecasts reruns the full forecasting pipeline synchronously. Meant
// for operators; the scheduler covers the regular cadence.
func (h *ForecastHandler) RefreshForecasts(c *gin.Context) {
	summary, err := h.forecasts.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ForecastHandler) GetReorderReport(c *gin.Context) {
	signals, err := h.reorders.Report(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if signals == nil {
		signals = make([]domain.ReorderSignal, 0)
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (h *ForecastHandler) GetReorderSignal(c *gin.Context) {
	signal, err := h.reorders.ForProduct(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(forecastStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, signal)
}
