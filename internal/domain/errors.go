// backend-go/internal/domain/errors.go
package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product code does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrTransactionNotFound is returned when a transaction id does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrCheckpointNotFound is returned when a checkpoint id does not exist
	// or is already inactive.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrInsufficientStock rejects an OUT transaction whose quantity exceeds
	// the product's current stock. Nothing is persisted.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCheckpointExists is returned when an active checkpoint already exists
	// for the same product, date and type.
	ErrCheckpointExists = errors.New("active checkpoint already exists for date and type")
	// ErrAdjustmentSuperseded rejects deleting a transaction that a later
	// adjustment has already confirmed over.
	ErrAdjustmentSuperseded = errors.New("a later adjustment supersedes this transaction")
	// ErrDailyCloseRunning is returned when a daily close tick overlaps a run
	// still in progress.
	ErrDailyCloseRunning = errors.New("daily close already running")
	// ErrNotEnoughData marks SKUs with fewer than two monthly data points; no
	// forecast is produced for them.
	ErrNotEnoughData = errors.New("not enough history to forecast")
	// ErrForecastNotFound is returned when no forecast has been generated yet
	// for a product.
	ErrForecastNotFound = errors.New("forecast not found")
)
