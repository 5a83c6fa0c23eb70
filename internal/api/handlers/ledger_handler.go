package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/ledger"
)

type LedgerHandler struct {
	service *ledger.Service
}

func NewLedgerHandler(service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{service: service}
}

type createTransactionRequest struct {
	ProductCode     string `json:"product_code" binding:"required"`
	Type            string `json:"transaction_type" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required"`
	TransactionDate string `json:"transaction_date"`
	Memo            string `json:"memo"`
	CreatedBy       string `json:"created_by"`
}

type createCheckpointRequest struct {
	ProductCode    string `json:"product_code" binding:"required"`
	CheckpointDate string `json:"checkpoint_date" binding:"required"`
	ConfirmedStock *int   `json:"confirmed_stock" binding:"required"`
	Reason         string `json:"reason"`
	CreatedBy      string `json:"created_by"`
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// ledgerStatus maps domain sentinels onto HTTP status codes.
func ledgerStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrCheckpointNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrCheckpointExists),
		errors.Is(err, domain.ErrAdjustmentSuperseded),
		errors.Is(err, domain.ErrDailyCloseRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *LedgerHandler) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txDate, err := parseDate(req.TransactionDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction_date"})
		return
	}

	created, err := h.service.CreateTransaction(c.Request.Context(), ledger.CreateTransactionInput{
		ProductCode:     req.ProductCode,
		Type:            domain.TransactionType(strings.ToUpper(req.Type)),
		Quantity:        req.Quantity,
		TransactionDate: txDate,
		Memo:            req.Memo,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		status := ledgerStatus(err)
		if status == http.StatusInternalServerError && isValidationError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// isValidationError distinguishes bad input from infrastructure failures for
// errors that carry no sentinel.
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "quantity") || strings.Contains(msg, "transaction type")
}

func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	t, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	if err := h.service.DeleteTransaction(c.Request.Context(), id); err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateDate previews whether a transaction dated at the given instant would
// still affect current stock.
func (h *LedgerHandler) ValidateDate(c *gin.Context) {
	code := strings.TrimSpace(c.Query("product_code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_code is required"})
		return
	}

	date, err := parseDate(c.Query("date"))
	if err != nil || date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid date is required"})
		return
	}

	validation, err := h.service.ResolveStockState(c.Request.Context(), code, date)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, validation)
}

func (h *LedgerHandler) CreateCheckpoint(c *gin.Context) {
	var req createCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cpDate, err := parseDate(req.CheckpointDate)
	if err != nil || cpDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkpoint_date"})
		return
	}

	cp, err := h.service.CreateCheckpoint(c.Request.Context(), ledger.CreateCheckpointInput{
		ProductCode:    req.ProductCode,
		CheckpointDate: cpDate,
		Type:           domain.CheckpointAdjust,
		ConfirmedStock: *req.ConfirmedStock,
		Reason:         req.Reason,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cp)
}

func (h *LedgerHandler) DeactivateCheckpoint(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkpoint id"})
		return
	}

	if err := h.service.DeactivateCheckpoint(c.Request.Context(), id); err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *LedgerHandler) ListCheckpoints(c *gin.Context) {
	code := c.Param("code")

	checkpoints, err := h.service.ListCheckpoints(c.Request.Context(), code)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkpoints": checkpoints})
}

func (h *LedgerHandler) ListDailyLedgers(c *gin.Context) {
	code := c.Param("code")

	to, err := parseDate(c.DefaultQuery("to", time.Now().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	from, err := parseDate(c.DefaultQuery("from", to.AddDate(0, -1, 0).Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}

	ledgers, err := h.service.ListDailyLedgers(c.Request.Context(), code, from, to)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ledgers": ledgers})
}

func (h *LedgerHandler) RecomputeStock(c *gin.Context) {
	code := c.Param("code")

	stock, err := h.service.RecomputeCurrentStock(c.Request.Context(), code)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_code": code, "current_stock": stock})
}

type dailyCloseRequest struct {
	Date string `json:"date" binding:"required"`
}

// RunDailyClose regenerates the daily ledgers for one business date. The
// nightly scheduler is the usual caller; this endpoint covers manual reruns.
func (h *LedgerHandler) RunDailyClose(c *gin.Context) {
	var req dailyCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseDate(req.Date)
	if err != nil || date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	summary, err := h.service.GenerateDailyLedger(c.Request.Context(), date)
	if err != nil {
		c.JSON(ledgerStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
