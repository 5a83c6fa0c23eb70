// backend-go/internal/ledger/service.go
package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// Service is the stock ledger engine. Every mutation runs inside a single
// database transaction holding a row lock on the product, so checkpoint
// resolution, the transaction row and the product counter commit together.
type Service struct {
	repo repository.LedgerRepository

	// serializes daily close runs within this process
	closing atomic.Bool
}

func NewService(repo repository.LedgerRepository) *Service {
	return &Service{repo: repo}
}

// CreateTransactionInput carries one stock movement to record. Quantity is a
// positive magnitude for IN/OUT/RETURN/DISPOSAL and a signed non-zero
// correction for ADJUST. A zero TransactionDate means now.
type CreateTransactionInput struct {
	ProductCode     string
	Type            domain.TransactionType
	Quantity        int
	TransactionDate time.Time
	Memo            string
	CreatedBy       string
}

func (in CreateTransactionInput) validate() error {
	switch in.Type {
	case domain.TransactionIn, domain.TransactionOut, domain.TransactionReturn, domain.TransactionDisposal:
		if in.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive for %s transactions", in.Type)
		}
	case domain.TransactionAdjust:
		if in.Quantity == 0 {
			return fmt.Errorf("adjustment quantity must be non-zero")
		}
	default:
		return fmt.Errorf("unknown transaction type %q", in.Type)
	}
	return nil
}

// CreateTransaction records a stock movement. Backdated transactions that fall
// behind an active checkpoint are stored as historical rows and never touch
// the product counter. An ADJUST additionally mints a checkpoint at its date
// and retires every current-affecting row dated on or before it, including
// itself; its effect survives through the checkpoint's confirmed stock.
func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput) (domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return domain.Transaction{}, err
	}

	txDate := timeutil.ToUTC(in.TransactionDate)
	if in.TransactionDate.IsZero() {
		txDate = timeutil.NowUTC()
	}

	var created domain.Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		product, err := tx.GetProductForUpdate(ctx, in.ProductCode)
		if err != nil {
			return err
		}

		state := domain.CurrentState()
		if in.Type == domain.TransactionDisposal {
			state = domain.StockState{}
		} else {
			state, err = resolveState(ctx, tx, in.ProductCode, txDate)
			if err != nil {
				return fmt.Errorf("error resolving stock state: %w", err)
			}
		}

		previous := product.CurrentStock
		if !state.IsCurrent() && in.Type != domain.TransactionDisposal {
			previous, err = stockAsOf(ctx, tx, in.ProductCode, txDate)
			if err != nil {
				return fmt.Errorf("error reconstructing stock at %s: %w", txDate.Format(time.RFC3339), err)
			}
		}

		newStock := previous
		switch in.Type {
		case domain.TransactionIn, domain.TransactionReturn:
			newStock = previous + in.Quantity
		case domain.TransactionOut:
			if state.IsCurrent() && in.Quantity > previous {
				return domain.ErrInsufficientStock
			}
			newStock = previous - in.Quantity
		case domain.TransactionAdjust:
			newStock = previous + in.Quantity
		case domain.TransactionDisposal:
			// Disposal is record-only: snapshots bracket the unchanged stock.
		}

		created = domain.Transaction{
			ProductCode:     in.ProductCode,
			Type:            in.Type,
			Quantity:        in.Quantity,
			PreviousStock:   previous,
			NewStock:        newStock,
			TransactionDate: txDate,
			Memo:            in.Memo,
			CreatedBy:       in.CreatedBy,
			State:           state,
		}
		if err := tx.InsertTransaction(ctx, &created); err != nil {
			return err
		}

		if in.Type == domain.TransactionAdjust {
			if err := s.mintAdjustCheckpoint(ctx, tx, &created); err != nil {
				return err
			}
		}

		if state.IsCurrent() && in.Type != domain.TransactionDisposal {
			if err := tx.SaveProductStock(ctx, in.ProductCode, newStock); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	log.Info().
		Str("product_code", created.ProductCode).
		Str("type", string(created.Type)).
		Int("quantity", created.Quantity).
		Int("new_stock", created.NewStock).
		Bool("affects_current_stock", created.State.AffectsCurrentStock).
		Msg("stock transaction recorded")
	return created, nil
}

// mintAdjustCheckpoint creates the checkpoint an adjustment asserts and
// retires everything dated on or before it. The adjustment row itself is
// retired too: its delta is already baked into the confirmed stock, so
// leaving it current would double-count.
func (s *Service) mintAdjustCheckpoint(ctx context.Context, tx repository.LedgerTx, adj *domain.Transaction) error {
	existing, err := tx.GetActiveCheckpointAt(ctx, adj.ProductCode, adj.TransactionDate, domain.CheckpointAdjust)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrCheckpointExists
	}

	cp := domain.StockCheckpoint{
		ProductCode:    adj.ProductCode,
		CheckpointDate: adj.TransactionDate,
		Type:           domain.CheckpointAdjust,
		ConfirmedStock: adj.NewStock,
		Reason:         adj.Memo,
		CreatedBy:      adj.CreatedBy,
	}
	if err := tx.InsertCheckpoint(ctx, &cp); err != nil {
		return err
	}

	retired, err := tx.RetireTransactionsThrough(ctx, adj.ProductCode, adj.TransactionDate, cp.ID)
	if err != nil {
		return err
	}

	// A backdated adjustment resolved historical against a later checkpoint,
	// so the blanket retirement above did not touch its row. Rebind it: its
	// delta is inside the minted confirmed stock, and it must stay retired by
	// that checkpoint even if the later one is deactivated.
	if err := tx.BindTransactionToCheckpoint(ctx, adj.ID, cp.ID); err != nil {
		return err
	}
	adj.State = domain.HistoricalState(cp.ID)

	log.Info().
		Str("product_code", adj.ProductCode).
		Time("checkpoint_date", cp.CheckpointDate).
		Int("confirmed_stock", cp.ConfirmedStock).
		Int64("retired", retired).
		Msg("adjustment checkpoint created")
	return nil
}

// DeleteTransaction removes a stock movement and reverses its effect.
// Movements already superseded by a later adjustment cannot be deleted; an
// adjustment itself is deletable only while it is the most recent one, and
// deleting it also deactivates the checkpoint it minted.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetProductForUpdate(ctx, t.ProductCode); err != nil {
			return err
		}

		if t.Type == domain.TransactionAdjust {
			return s.deleteAdjustment(ctx, tx, t)
		}

		later, err := tx.HasAdjustmentAfter(ctx, t.ProductCode, t.TransactionDate)
		if err != nil {
			return err
		}
		if later {
			return domain.ErrAdjustmentSuperseded
		}

		if err := tx.DeleteTransactionRow(ctx, t.ID); err != nil {
			return err
		}
		if t.State.IsCurrent() && t.Delta() != 0 {
			product, err := tx.GetProduct(ctx, t.ProductCode)
			if err != nil {
				return err
			}
			return tx.SaveProductStock(ctx, t.ProductCode, product.CurrentStock-t.Delta())
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int64("transaction_id", id).Msg("stock transaction deleted")
	return nil
}

// deleteAdjustment unwinds the most recent adjustment: the checkpoint it
// minted is deactivated, the rows that checkpoint retired are restored, and
// on-hand stock is replayed from the surviving anchor.
func (s *Service) deleteAdjustment(ctx context.Context, tx repository.LedgerTx, t domain.Transaction) error {
	latest, err := tx.LatestAdjustment(ctx, t.ProductCode)
	if err != nil {
		return err
	}
	if latest == nil || latest.ID != t.ID {
		return domain.ErrAdjustmentSuperseded
	}

	cp, err := tx.GetActiveCheckpointAt(ctx, t.ProductCode, t.TransactionDate, domain.CheckpointAdjust)
	if err != nil {
		return err
	}
	if cp != nil {
		if err := tx.DeactivateCheckpoint(ctx, cp.ID); err != nil {
			return err
		}
		if _, err := tx.RestoreTransactionsForCheckpoint(ctx, cp.ID); err != nil {
			return err
		}
	}

	if err := tx.DeleteTransactionRow(ctx, t.ID); err != nil {
		return err
	}

	stock, err := recomputeCurrentStock(ctx, tx, t.ProductCode)
	if err != nil {
		return fmt.Errorf("error recomputing stock for %s: %w", t.ProductCode, err)
	}
	return tx.SaveProductStock(ctx, t.ProductCode, stock)
}

// CreateCheckpointInput carries a manual stock count assertion.
type CreateCheckpointInput struct {
	ProductCode    string
	CheckpointDate time.Time
	Type           domain.CheckpointType
	ConfirmedStock int
	Reason         string
	CreatedBy      string
}

// CreateCheckpoint asserts a confirmed stock level as of a date, retiring
// every current-affecting transaction dated on or before it. When the new
// checkpoint becomes the latest anchor the product counter snaps to the
// confirmed value.
func (s *Service) CreateCheckpoint(ctx context.Context, in CreateCheckpointInput) (domain.StockCheckpoint, error) {
	if in.ConfirmedStock < 0 {
		return domain.StockCheckpoint{}, fmt.Errorf("confirmed stock must not be negative")
	}
	cpDate := timeutil.ToUTC(in.CheckpointDate)

	var cp domain.StockCheckpoint
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		if _, err := tx.GetProductForUpdate(ctx, in.ProductCode); err != nil {
			return err
		}

		existing, err := tx.GetActiveCheckpointAt(ctx, in.ProductCode, cpDate, in.Type)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrCheckpointExists
		}

		cp = domain.StockCheckpoint{
			ProductCode:    in.ProductCode,
			CheckpointDate: cpDate,
			Type:           in.Type,
			ConfirmedStock: in.ConfirmedStock,
			Reason:         in.Reason,
			CreatedBy:      in.CreatedBy,
		}
		if err := tx.InsertCheckpoint(ctx, &cp); err != nil {
			return err
		}
		if _, err := tx.RetireTransactionsThrough(ctx, in.ProductCode, cpDate, cp.ID); err != nil {
			return err
		}

		newer, err := tx.LatestActiveCheckpointAfter(ctx, in.ProductCode, cpDate)
		if err != nil {
			return err
		}
		if newer == nil {
			return tx.SaveProductStock(ctx, in.ProductCode, in.ConfirmedStock)
		}
		return nil
	})
	if err != nil {
		return domain.StockCheckpoint{}, err
	}

	log.Info().
		Str("product_code", cp.ProductCode).
		Time("checkpoint_date", cp.CheckpointDate).
		Str("type", string(cp.Type)).
		Int("confirmed_stock", cp.ConfirmedStock).
		Msg("stock checkpoint created")
	return cp, nil
}

// DeactivateCheckpoint retires a checkpoint from resolution, restores exactly
// the transactions it had retired and replays the product counter from the
// surviving anchor.
func (s *Service) DeactivateCheckpoint(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		cp, err := tx.GetCheckpoint(ctx, id)
		if err != nil {
			return err
		}
		if !cp.IsActive {
			return domain.ErrCheckpointNotFound
		}
		if _, err := tx.GetProductForUpdate(ctx, cp.ProductCode); err != nil {
			return err
		}

		if err := tx.DeactivateCheckpoint(ctx, id); err != nil {
			return err
		}
		if _, err := tx.RestoreTransactionsForCheckpoint(ctx, id); err != nil {
			return err
		}

		stock, err := recomputeCurrentStock(ctx, tx, cp.ProductCode)
		if err != nil {
			return fmt.Errorf("error recomputing stock for %s: %w", cp.ProductCode, err)
		}
		return tx.SaveProductStock(ctx, cp.ProductCode, stock)
	})
	if err != nil {
		return err
	}

	log.Info().Int64("checkpoint_id", id).Msg("stock checkpoint deactivated")
	return nil
}

// GetTransaction returns one transaction by id.
func (s *Service) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListCheckpoints returns all checkpoints for a product, newest first.
func (s *Service) ListCheckpoints(ctx context.Context, code string) ([]domain.StockCheckpoint, error) {
	if _, err := s.repo.GetProduct(ctx, code); err != nil {
		return nil, err
	}
	return s.repo.ListCheckpoints(ctx, code)
}

// ListDailyLedgers returns the per-day summary rows for a product between two
// date keys, inclusive.
func (s *Service) ListDailyLedgers(ctx context.Context, code string, from, to time.Time) ([]domain.DailyLedger, error) {
	if _, err := s.repo.GetProduct(ctx, code); err != nil {
		return nil, err
	}
	return s.repo.ListDailyLedgers(ctx, code, timeutil.BusinessDate(from), timeutil.BusinessDate(to))
}
