// backend-go/internal/ledger/resolver.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// resolveState decides whether a transaction dated at the given instant counts
// toward current stock. The rule is anchored on checkpoints: any active
// checkpoint dated strictly after the transaction supersedes it. A transaction
// dated exactly at a checkpoint stays current; retirement of ties happens only
// when a checkpoint is created, never retroactively on resolution.
func resolveState(ctx context.Context, r repository.LedgerReader, code string, txDate time.Time) (domain.StockState, error) {
	cp, err := r.LatestActiveCheckpointAfter(ctx, code, txDate)
	if err != nil {
		return domain.StockState{}, err
	}
	if cp != nil {
		return domain.HistoricalState(cp.ID), nil
	}
	return domain.CurrentState(), nil
}

// replayFromAnchor sums deltas of every non-disposal movement in
// [anchor, until) on top of the anchor's confirmed stock. Rows retired by a
// later checkpoint still count: they moved stock when they happened. Rows
// retired by the anchor itself are already inside its confirmed value and are
// skipped.
func replayFromAnchor(ctx context.Context, r repository.LedgerReader, code string, anchor *domain.StockCheckpoint, until *time.Time) (int, error) {
	base := 0
	var from *time.Time
	if anchor != nil {
		base = anchor.ConfirmedStock
		from = &anchor.CheckpointDate
	}

	txs, err := r.ListTransactionsBetween(ctx, code, from, until)
	if err != nil {
		return 0, err
	}
	for _, t := range txs {
		if anchor != nil && t.State.CheckpointID != nil && *t.State.CheckpointID == anchor.ID {
			continue
		}
		base += t.Delta()
	}
	return base, nil
}

// stockAsOf reconstructs the stock level at an arbitrary instant: the
// confirmed stock of the latest active checkpoint dated on or before it, plus
// the movements in between.
func stockAsOf(ctx context.Context, r repository.LedgerReader, code string, at time.Time) (int, error) {
	cp, err := r.LatestActiveCheckpointOnOrBefore(ctx, code, at)
	if err != nil {
		return 0, err
	}
	return replayFromAnchor(ctx, r, code, cp, &at)
}

// beginningStock computes the opening stock for a business day, in order of
// trust: replay from the latest active checkpoint before the day, then the
// prior day's ledger row, then the live product counter.
func beginningStock(ctx context.Context, r repository.LedgerReader, code string, date time.Time) (int, error) {
	dayStart, _ := timeutil.DayBoundsUTC(date)

	cp, err := r.LatestActiveCheckpointBefore(ctx, code, dayStart)
	if err != nil {
		return 0, err
	}
	if cp != nil {
		return replayFromAnchor(ctx, r, code, cp, &dayStart)
	}

	prior, err := r.GetDailyLedger(ctx, code, date.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	if prior != nil {
		return prior.EndingStock, nil
	}

	product, err := r.GetProduct(ctx, code)
	if err != nil {
		return 0, err
	}
	return product.CurrentStock, nil
}

// recomputeCurrentStock replays on-hand stock from the latest active
// checkpoint, or from the full affecting history when no checkpoint exists.
func recomputeCurrentStock(ctx context.Context, r repository.LedgerReader, code string) (int, error) {
	cp, err := r.LatestActiveCheckpoint(ctx, code)
	if err != nil {
		return 0, err
	}

	base := 0
	var from *time.Time
	if cp != nil {
		base = cp.ConfirmedStock
		from = &cp.CheckpointDate
	}

	txs, err := r.ListAffectingBetween(ctx, code, from, nil)
	if err != nil {
		return 0, err
	}
	for _, t := range txs {
		base += t.Delta()
	}
	return base, nil
}

// ResolveStockState reports how a transaction dated at the given instant would
// be classified, after verifying the product exists.
func (s *Service) ResolveStockState(ctx context.Context, code string, txDate time.Time) (domain.DateValidation, error) {
	if _, err := s.repo.GetProduct(ctx, code); err != nil {
		return domain.DateValidation{}, err
	}

	state, err := resolveState(ctx, s.repo, code, timeutil.ToUTC(txDate))
	if err != nil {
		return domain.DateValidation{}, fmt.Errorf("error resolving stock state for %s: %w", code, err)
	}

	return domain.DateValidation{
		IsValid:             true,
		AffectsCurrentStock: state.AffectsCurrentStock,
		CheckpointID:        state.CheckpointID,
	}, nil
}

// BeginningStock exposes the opening-stock computation for a business date.
func (s *Service) BeginningStock(ctx context.Context, code string, date time.Time) (int, error) {
	if _, err := s.repo.GetProduct(ctx, code); err != nil {
		return 0, err
	}
	return beginningStock(ctx, s.repo, code, timeutil.BusinessDate(date))
}

// RecomputeCurrentStock replays the product's on-hand stock from its anchor
// checkpoint and persists the result. Used as a repair and audit path.
func (s *Service) RecomputeCurrentStock(ctx context.Context, code string) (int, error) {
	var stock int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if _, err := tx.GetProductForUpdate(ctx, code); err != nil {
			return err
		}

		var err error
		stock, err = recomputeCurrentStock(ctx, tx, code)
		if err != nil {
			return fmt.Errorf("error recomputing stock for %s: %w", code, err)
		}
		return tx.SaveProductStock(ctx, code, stock)
	})
	return stock, err
}
