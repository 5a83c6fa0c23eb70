// backend-go/internal/repository/postgres/ledger_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
)

const productColumns = `
	id, code, name, category, unit, current_stock, safety_stock, lead_time_days,
	moq, purchase_price, sale_price, currency, is_active, is_auto_calculated,
	created_at, updated_at
`

const transactionColumns = `
	id, product_code, transaction_type, quantity, previous_stock, new_stock,
	transaction_date, memo, created_by, created_at, affects_current_stock, checkpoint_id
`

const checkpointColumns = `
	id, product_code, checkpoint_date, checkpoint_type, confirmed_stock,
	reason, created_by, is_active, created_at
`

const ledgerColumns = `
	id, product_code, ledger_date, beginning_stock, total_inbound,
	total_outbound, adjustments, ending_stock, created_at
`

// transactionRow flattens the StockState variant for scanning.
type transactionRow struct {
	ID                  int64                  `db:"id"`
	ProductCode         string                 `db:"product_code"`
	Type                domain.TransactionType `db:"transaction_type"`
	Quantity            int                    `db:"quantity"`
	PreviousStock       int                    `db:"previous_stock"`
	NewStock            int                    `db:"new_stock"`
	TransactionDate     time.Time              `db:"transaction_date"`
	Memo                string                 `db:"memo"`
	CreatedBy           string                 `db:"created_by"`
	CreatedAt           time.Time              `db:"created_at"`
	AffectsCurrentStock bool                   `db:"affects_current_stock"`
	CheckpointID        *int64                 `db:"checkpoint_id"`
}

func (row transactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:              row.ID,
		ProductCode:     row.ProductCode,
		Type:            row.Type,
		Quantity:        row.Quantity,
		PreviousStock:   row.PreviousStock,
		NewStock:        row.NewStock,
		TransactionDate: row.TransactionDate,
		Memo:            row.Memo,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt,
		State: domain.StockState{
			AffectsCurrentStock: row.AffectsCurrentStock,
			CheckpointID:        row.CheckpointID,
		},
	}
}

// ledgerQueries implements every query against either the pool or an open
// transaction via sqlx.ExtContext.
type ledgerQueries struct {
	ext sqlx.ExtContext
}

type ledgerRepository struct {
	db *DB
	ledgerQueries
}

type ledgerTx struct {
	ledgerQueries
}

// NewLedgerRepository builds the postgres-backed ledger store.
func NewLedgerRepository(db *DB) repository.LedgerRepository {
	return &ledgerRepository{db: db, ledgerQueries: ledgerQueries{ext: db.DB}}
}

func (r *ledgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(ctx, &ledgerTx{ledgerQueries{ext: tx}})
	})
}

// --- products ---

func (q *ledgerQueries) getProduct(ctx context.Context, code string, forUpdate bool) (domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE code = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var product domain.Product
	if err := sqlx.GetContext(ctx, q.ext, &product, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("error getting product %s: %w", code, err)
	}
	return product, nil
}

func (q *ledgerQueries) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	return q.getProduct(ctx, code, false)
}

func (q *ledgerQueries) GetProductForUpdate(ctx context.Context, code string) (domain.Product, error) {
	return q.getProduct(ctx, code, true)
}

func (q *ledgerQueries) SaveProductStock(ctx context.Context, code string, stock int) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE products SET current_stock = $2, updated_at = now() WHERE code = $1`, code, stock)
	if err != nil {
		return fmt.Errorf("error updating product stock for %s: %w", code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (q *ledgerQueries) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY code`
	if err := sqlx.SelectContext(ctx, q.ext, &products, query); err != nil {
		return nil, fmt.Errorf("error listing active products: %w", err)
	}
	return products, nil
}

// --- transactions ---

func (q *ledgerQueries) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO stock_transactions
			(product_code, transaction_type, quantity, previous_stock, new_stock,
			 transaction_date, memo, created_by, affects_current_stock, checkpoint_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	row := q.ext.QueryRowxContext(ctx, query,
		tx.ProductCode, tx.Type, tx.Quantity, tx.PreviousStock, tx.NewStock,
		tx.TransactionDate, tx.Memo, tx.CreatedBy,
		tx.State.AffectsCurrentStock, tx.State.CheckpointID)
	if err := row.Scan(&tx.ID, &tx.CreatedAt); err != nil {
		return fmt.Errorf("error inserting transaction: %w", err)
	}
	return nil
}

func (q *ledgerQueries) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	var row transactionRow
	query := `SELECT ` + transactionColumns + ` FROM stock_transactions WHERE id = $1`
	if err := sqlx.GetContext(ctx, q.ext, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}
		return domain.Transaction{}, fmt.Errorf("error getting transaction %d: %w", id, err)
	}
	return row.toDomain(), nil
}

func (q *ledgerQueries) DeleteTransactionRow(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM stock_transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting transaction %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (q *ledgerQueries) LatestAdjustment(ctx context.Context, code string) (*domain.Transaction, error) {
	var row transactionRow
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions
		WHERE product_code = $1 AND transaction_type = $2
		ORDER BY transaction_date DESC, id DESC
		LIMIT 1
	`
	if err := sqlx.GetContext(ctx, q.ext, &row, query, code, domain.TransactionAdjust); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting latest adjustment for %s: %w", code, err)
	}
	tx := row.toDomain()
	return &tx, nil
}

func (q *ledgerQueries) HasAdjustmentAfter(ctx context.Context, code string, date time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_transactions
			WHERE product_code = $1 AND transaction_type = $2 AND transaction_date > $3
		)
	`
	if err := sqlx.GetContext(ctx, q.ext, &exists, query, code, domain.TransactionAdjust, date); err != nil {
		return false, fmt.Errorf("error checking later adjustments for %s: %w", code, err)
	}
	return exists, nil
}

func (q *ledgerQueries) ListAffectingBetween(ctx context.Context, code string, from, to *time.Time) ([]domain.Transaction, error) {
	return q.listTransactions(ctx, code, from, to, true)
}

func (q *ledgerQueries) ListTransactionsBetween(ctx context.Context, code string, from, to *time.Time) ([]domain.Transaction, error) {
	return q.listTransactions(ctx, code, from, to, false)
}

func (q *ledgerQueries) listTransactions(ctx context.Context, code string, from, to *time.Time, affectingOnly bool) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM stock_transactions
		WHERE product_code = $1
		  AND transaction_type <> $2
	`
	if affectingOnly {
		query += " AND affects_current_stock"
	}

	args := []interface{}{code, domain.TransactionDisposal}
	var conditions []string
	argCounter := 3

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_date >= $%d", argCounter))
		args = append(args, *from)
		argCounter++
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_date < $%d", argCounter))
		args = append(args, *to)
		argCounter++
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY transaction_date, id"

	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error listing transactions for %s: %w", code, err)
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.toDomain())
	}
	return txs, nil
}

func (q *ledgerQueries) RetireTransactionsThrough(ctx context.Context, code string, cutoff time.Time, checkpointID int64) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE stock_transactions
		SET affects_current_stock = false, checkpoint_id = $3
		WHERE product_code = $1 AND affects_current_stock AND transaction_date <= $2
	`, code, cutoff, checkpointID)
	if err != nil {
		return 0, fmt.Errorf("error retiring transactions for %s: %w", code, err)
	}
	return res.RowsAffected()
}

func (q *ledgerQueries) RestoreTransactionsForCheckpoint(ctx context.Context, checkpointID int64) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE stock_transactions
		SET affects_current_stock = true, checkpoint_id = NULL
		WHERE checkpoint_id = $1
	`, checkpointID)
	if err != nil {
		return 0, fmt.Errorf("error restoring transactions for checkpoint %d: %w", checkpointID, err)
	}
	return res.RowsAffected()
}

func (q *ledgerQueries) BindTransactionToCheckpoint(ctx context.Context, id, checkpointID int64) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE stock_transactions
		SET affects_current_stock = false, checkpoint_id = $2
		WHERE id = $1
	`, id, checkpointID)
	if err != nil {
		return fmt.Errorf("error binding transaction %d to checkpoint %d: %w", id, checkpointID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// --- checkpoints ---

func (q *ledgerQueries) InsertCheckpoint(ctx context.Context, cp *domain.StockCheckpoint) error {
	query := `
		INSERT INTO stock_checkpoints
			(product_code, checkpoint_date, checkpoint_type, confirmed_stock,
			 reason, created_by, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		RETURNING id, created_at
	`

	row := q.ext.QueryRowxContext(ctx, query,
		cp.ProductCode, cp.CheckpointDate, cp.Type, cp.ConfirmedStock, cp.Reason, cp.CreatedBy)
	if err := row.Scan(&cp.ID, &cp.CreatedAt); err != nil {
		return fmt.Errorf("error inserting checkpoint: %w", err)
	}
	cp.IsActive = true
	return nil
}

func (q *ledgerQueries) DeactivateCheckpoint(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE stock_checkpoints SET is_active = false WHERE id = $1 AND is_active`, id)
	if err != nil {
		return fmt.Errorf("error deactivating checkpoint %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrCheckpointNotFound
	}
	return nil
}

func (q *ledgerQueries) GetCheckpoint(ctx context.Context, id int64) (domain.StockCheckpoint, error) {
	var cp domain.StockCheckpoint
	query := `SELECT ` + checkpointColumns + ` FROM stock_checkpoints WHERE id = $1`
	if err := sqlx.GetContext(ctx, q.ext, &cp, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockCheckpoint{}, domain.ErrCheckpointNotFound
		}
		return domain.StockCheckpoint{}, fmt.Errorf("error getting checkpoint %d: %w", id, err)
	}
	return cp, nil
}

func (q *ledgerQueries) latestActiveCheckpoint(ctx context.Context, code, cond string, args ...interface{}) (*domain.StockCheckpoint, error) {
	query := `
		SELECT ` + checkpointColumns + `
		FROM stock_checkpoints
		WHERE product_code = $1 AND is_active
	`
	if cond != "" {
		query += " AND " + cond
	}
	query += " ORDER BY checkpoint_date DESC, id DESC LIMIT 1"

	var cp domain.StockCheckpoint
	allArgs := append([]interface{}{code}, args...)
	if err := sqlx.GetContext(ctx, q.ext, &cp, query, allArgs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting latest checkpoint for %s: %w", code, err)
	}
	return &cp, nil
}

func (q *ledgerQueries) LatestActiveCheckpointAfter(ctx context.Context, code string, after time.Time) (*domain.StockCheckpoint, error) {
	return q.latestActiveCheckpoint(ctx, code, "checkpoint_date > $2", after)
}

func (q *ledgerQueries) LatestActiveCheckpointBefore(ctx context.Context, code string, before time.Time) (*domain.StockCheckpoint, error) {
	return q.latestActiveCheckpoint(ctx, code, "checkpoint_date < $2", before)
}

func (q *ledgerQueries) LatestActiveCheckpointOnOrBefore(ctx context.Context, code string, at time.Time) (*domain.StockCheckpoint, error) {
	return q.latestActiveCheckpoint(ctx, code, "checkpoint_date <= $2", at)
}

func (q *ledgerQueries) LatestActiveCheckpoint(ctx context.Context, code string) (*domain.StockCheckpoint, error) {
	return q.latestActiveCheckpoint(ctx, code, "")
}

func (q *ledgerQueries) HasActiveCheckpointOnOrAfter(ctx context.Context, code string, date time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_checkpoints
			WHERE product_code = $1 AND is_active AND checkpoint_date >= $2
		)
	`
	if err := sqlx.GetContext(ctx, q.ext, &exists, query, code, date); err != nil {
		return false, fmt.Errorf("error checking checkpoints on or after date for %s: %w", code, err)
	}
	return exists, nil
}

func (q *ledgerQueries) GetActiveCheckpointAt(ctx context.Context, code string, date time.Time, cpType domain.CheckpointType) (*domain.StockCheckpoint, error) {
	var cp domain.StockCheckpoint
	query := `
		SELECT ` + checkpointColumns + `
		FROM stock_checkpoints
		WHERE product_code = $1 AND is_active AND checkpoint_date = $2 AND checkpoint_type = $3
		ORDER BY id DESC
		LIMIT 1
	`
	if err := sqlx.GetContext(ctx, q.ext, &cp, query, code, date, cpType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting checkpoint at date for %s: %w", code, err)
	}
	return &cp, nil
}

func (q *ledgerQueries) ListCheckpoints(ctx context.Context, code string) ([]domain.StockCheckpoint, error) {
	var cps []domain.StockCheckpoint
	query := `
		SELECT ` + checkpointColumns + `
		FROM stock_checkpoints
		WHERE product_code = $1
		ORDER BY checkpoint_date DESC, id DESC
	`
	if err := sqlx.SelectContext(ctx, q.ext, &cps, query, code); err != nil {
		return nil, fmt.Errorf("error listing checkpoints for %s: %w", code, err)
	}
	return cps, nil
}

// --- daily ledgers ---

func (q *ledgerQueries) DeleteLedgersForDate(ctx context.Context, date time.Time) (int64, error) {
	res, err := q.ext.ExecContext(ctx, `DELETE FROM daily_ledgers WHERE ledger_date = $1`, date)
	if err != nil {
		return 0, fmt.Errorf("error deleting daily ledgers for %s: %w", date.Format("2006-01-02"), err)
	}
	return res.RowsAffected()
}

func (q *ledgerQueries) InsertDailyLedger(ctx context.Context, row *domain.DailyLedger) error {
	query := `
		INSERT INTO daily_ledgers
			(product_code, ledger_date, beginning_stock, total_inbound,
			 total_outbound, adjustments, ending_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	r := q.ext.QueryRowxContext(ctx, query,
		row.ProductCode, row.LedgerDate, row.BeginningStock, row.TotalInbound,
		row.TotalOutbound, row.Adjustments, row.EndingStock)
	if err := r.Scan(&row.ID, &row.CreatedAt); err != nil {
		return fmt.Errorf("error inserting daily ledger: %w", err)
	}
	return nil
}

func (q *ledgerQueries) GetDailyLedger(ctx context.Context, code string, date time.Time) (*domain.DailyLedger, error) {
	var row domain.DailyLedger
	query := `
		SELECT ` + ledgerColumns + `
		FROM daily_ledgers
		WHERE product_code = $1 AND ledger_date = $2
	`
	if err := sqlx.GetContext(ctx, q.ext, &row, query, code, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting daily ledger for %s: %w", code, err)
	}
	return &row, nil
}

func (q *ledgerQueries) ListDailyLedgers(ctx context.Context, code string, from, to time.Time) ([]domain.DailyLedger, error) {
	var rows []domain.DailyLedger
	query := `
		SELECT ` + ledgerColumns + `
		FROM daily_ledgers
		WHERE product_code = $1 AND ledger_date BETWEEN $2 AND $3
		ORDER BY ledger_date
	`
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, code, from, to); err != nil {
		return nil, fmt.Errorf("error listing daily ledgers for %s: %w", code, err)
	}
	return rows, nil
}
