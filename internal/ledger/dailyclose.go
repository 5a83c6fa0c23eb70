// backend-go/internal/ledger/dailyclose.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// CloseSummary reports one daily close run. A failed product is recorded and
// skipped; it never aborts the run.
type CloseSummary struct {
	TargetDate         time.Time      `json:"target_date"`
	ProductsProcessed  int            `json:"products_processed"`
	LedgersCreated     int            `json:"ledgers_created"`
	CheckpointsCreated int            `json:"checkpoints_created"`
	Failures           []ProductError `json:"failures,omitempty"`
	Elapsed            time.Duration  `json:"elapsed"`
}

// ProductError pins a close failure to the product it happened on.
type ProductError struct {
	ProductCode string `json:"product_code"`
	Error       string `json:"error"`
}

// GenerateDailyLedger regenerates the per-product summary rows for one
// business day and seals the day with DAILY_CLOSE checkpoints. The run is
// idempotent: existing rows for the date are dropped first, and a product
// already covered by a checkpoint on or after the day start is not re-sealed.
func (s *Service) GenerateDailyLedger(ctx context.Context, targetDate time.Time) (CloseSummary, error) {
	if !s.closing.CompareAndSwap(false, true) {
		return CloseSummary{}, domain.ErrDailyCloseRunning
	}
	defer s.closing.Store(false)

	started := timeutil.NowUTC()
	date := timeutil.BusinessDate(targetDate)
	summary := CloseSummary{TargetDate: date}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		deleted, err := tx.DeleteLedgersForDate(ctx, date)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.Info().
				Time("target_date", date).
				Int64("deleted", deleted).
				Msg("replaced existing daily ledgers")
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("error clearing daily ledgers: %w", err)
	}

	products, err := s.repo.ListActiveProducts(ctx)
	if err != nil {
		return summary, fmt.Errorf("error listing products for daily close: %w", err)
	}

	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.ProductsProcessed++
		sealed, err := s.closeProductDay(ctx, product.Code, date)
		if err != nil {
			log.Error().Err(err).
				Str("product_code", product.Code).
				Time("target_date", date).
				Msg("daily close failed for product")
			summary.Failures = append(summary.Failures, ProductError{
				ProductCode: product.Code,
				Error:       err.Error(),
			})
			continue
		}
		summary.LedgersCreated++
		if sealed {
			summary.CheckpointsCreated++
		}
	}

	summary.Elapsed = timeutil.NowUTC().Sub(started)
	log.Info().
		Time("target_date", date).
		Int("products", summary.ProductsProcessed).
		Int("ledgers", summary.LedgersCreated).
		Int("checkpoints", summary.CheckpointsCreated).
		Int("failures", len(summary.Failures)).
		Dur("elapsed", summary.Elapsed).
		Msg("daily close finished")
	return summary, nil
}

// closeProductDay writes one ledger row and, unless a later checkpoint already
// covers the day, seals it with a DAILY_CLOSE checkpoint at the day's closing
// instant. Each product commits independently.
func (s *Service) closeProductDay(ctx context.Context, code string, date time.Time) (bool, error) {
	dayStart, dayEnd := timeutil.DayBoundsUTC(date)
	sealed := false

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if _, err := tx.GetProductForUpdate(ctx, code); err != nil {
			return err
		}

		beginning, err := beginningStock(ctx, tx, code, date)
		if err != nil {
			return fmt.Errorf("error computing beginning stock: %w", err)
		}

		// Every movement of the day counts, including rows a later close or
		// adjustment has already retired; regeneration stays idempotent.
		txs, err := tx.ListTransactionsBetween(ctx, code, &dayStart, &dayEnd)
		if err != nil {
			return err
		}

		row := domain.DailyLedger{
			ProductCode:    code,
			LedgerDate:     date,
			BeginningStock: beginning,
		}
		for _, t := range txs {
			switch t.Type {
			case domain.TransactionIn, domain.TransactionReturn:
				row.TotalInbound += t.Quantity
			case domain.TransactionOut:
				row.TotalOutbound += t.Quantity
			case domain.TransactionAdjust:
				row.Adjustments += t.Delta()
			}
		}
		row.EndingStock = beginning + row.TotalInbound - row.TotalOutbound + row.Adjustments

		if err := tx.InsertDailyLedger(ctx, &row); err != nil {
			return err
		}

		covered, err := tx.HasActiveCheckpointOnOrAfter(ctx, code, dayStart)
		if err != nil {
			return err
		}
		if covered {
			return nil
		}

		closeAt := timeutil.EndOfDayUTC(date)
		cp := domain.StockCheckpoint{
			ProductCode:    code,
			CheckpointDate: closeAt,
			Type:           domain.CheckpointDailyClose,
			ConfirmedStock: row.EndingStock,
			Reason:         fmt.Sprintf("daily close %s", date.Format("2006-01-02")),
			CreatedBy:      "system",
		}
		if err := tx.InsertCheckpoint(ctx, &cp); err != nil {
			return err
		}
		if _, err := tx.RetireTransactionsThrough(ctx, code, closeAt, cp.ID); err != nil {
			return err
		}
		sealed = true
		return nil
	})
	return sealed, err
}
