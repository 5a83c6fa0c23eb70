// backend-go/internal/repository/ledger_repository.go
package repository

import (
	"context"
	"time"

	"github.com/stocklens/backend-go/internal/domain"
)

// LedgerTx is the transactional slice of the ledger store. Every stock write
// path runs against one of these inside a single database transaction so the
// checkpoint resolution, the transaction row and the product update commit or
// roll back together.
type LedgerTx interface {
	// GetProductForUpdate loads a product row with a row-level lock, serializing
	// concurrent writers on the same product.
	GetProductForUpdate(ctx context.Context, code string) (domain.Product, error)
	SaveProductStock(ctx context.Context, code string, stock int) error

	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	DeleteTransactionRow(ctx context.Context, id int64) error
	// RetireTransactionsThrough flips every current-affecting transaction for
	// the product dated on or before the cutoff into the historical state
	// pointing at checkpointID. Returns the number of rows flipped.
	RetireTransactionsThrough(ctx context.Context, code string, cutoff time.Time, checkpointID int64) (int64, error)
	// RestoreTransactionsForCheckpoint is the symmetric inverse: it flips back
	// exactly the transactions retired by checkpointID, and no others.
	RestoreTransactionsForCheckpoint(ctx context.Context, checkpointID int64) (int64, error)
	// BindTransactionToCheckpoint pins a single row to the historical state of
	// checkpointID regardless of the state it holds now. The blanket retirement
	// only flips current rows, so a row that resolved historical against a
	// later checkpoint needs this to be rebound.
	BindTransactionToCheckpoint(ctx context.Context, id, checkpointID int64) error

	InsertCheckpoint(ctx context.Context, cp *domain.StockCheckpoint) error
	DeactivateCheckpoint(ctx context.Context, id int64) error

	DeleteLedgersForDate(ctx context.Context, date time.Time) (int64, error)
	InsertDailyLedger(ctx context.Context, row *domain.DailyLedger) error

	LedgerReader
}

// LedgerReader collects the read-side queries shared by the transactional and
// plain handles.
type LedgerReader interface {
	GetProduct(ctx context.Context, code string) (domain.Product, error)
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)

	GetTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	// LatestAdjustment returns the chronologically last ADJUST transaction for
	// the product, or nil when none exists.
	LatestAdjustment(ctx context.Context, code string) (*domain.Transaction, error)
	HasAdjustmentAfter(ctx context.Context, code string, date time.Time) (bool, error)
	// ListAffectingBetween returns current-affecting, non-DISPOSAL transactions
	// for the product in the half-open window [from, to), ordered by
	// transaction date. A nil bound leaves that side unbounded.
	ListAffectingBetween(ctx context.Context, code string, from, to *time.Time) ([]domain.Transaction, error)
	// ListTransactionsBetween is the same window over every non-DISPOSAL
	// transaction regardless of state. Historical reconstruction replays these:
	// a retired row still moved stock when it happened.
	ListTransactionsBetween(ctx context.Context, code string, from, to *time.Time) ([]domain.Transaction, error)

	GetCheckpoint(ctx context.Context, id int64) (domain.StockCheckpoint, error)
	// LatestActiveCheckpointAfter returns the most recent active checkpoint
	// dated strictly after the given instant, or nil.
	LatestActiveCheckpointAfter(ctx context.Context, code string, after time.Time) (*domain.StockCheckpoint, error)
	// LatestActiveCheckpointBefore returns the most recent active checkpoint
	// dated strictly before the given instant, or nil.
	LatestActiveCheckpointBefore(ctx context.Context, code string, before time.Time) (*domain.StockCheckpoint, error)
	// LatestActiveCheckpointOnOrBefore is the inclusive variant used for
	// historical stock reconstruction.
	LatestActiveCheckpointOnOrBefore(ctx context.Context, code string, at time.Time) (*domain.StockCheckpoint, error)
	LatestActiveCheckpoint(ctx context.Context, code string) (*domain.StockCheckpoint, error)
	HasActiveCheckpointOnOrAfter(ctx context.Context, code string, date time.Time) (bool, error)
	// GetActiveCheckpointAt returns the active checkpoint with exactly this
	// date and type, or nil. Used both as the duplicate gate and to find the
	// checkpoint an adjustment minted.
	GetActiveCheckpointAt(ctx context.Context, code string, date time.Time, cpType domain.CheckpointType) (*domain.StockCheckpoint, error)
	ListCheckpoints(ctx context.Context, code string) ([]domain.StockCheckpoint, error)

	GetDailyLedger(ctx context.Context, code string, date time.Time) (*domain.DailyLedger, error)
	ListDailyLedgers(ctx context.Context, code string, from, to time.Time) ([]domain.DailyLedger, error)
}

// LedgerRepository is the full ledger store handed to services.
type LedgerRepository interface {
	LedgerReader
	WithTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
