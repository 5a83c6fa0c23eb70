// backend-go/internal/ledger/service_test.go
package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

// memLedgerRepo is an in-memory LedgerRepository. WithTx runs the callback
// directly; the engine's correctness under test does not depend on rollback.
type memLedgerRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	txs      map[int64]*domain.Transaction
	cps      map[int64]*domain.StockCheckpoint
	ledgers  map[string]*domain.DailyLedger

	nextTxID     int64
	nextCpID     int64
	nextLedgerID int64

	// codes whose row lock acquisition fails, to exercise error paths
	failLock map[string]bool
}

var errLockFailed = errors.New("could not obtain row lock")

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		products: make(map[string]*domain.Product),
		txs:      make(map[int64]*domain.Transaction),
		cps:      make(map[int64]*domain.StockCheckpoint),
		ledgers:  make(map[string]*domain.DailyLedger),
		failLock: make(map[string]bool),
	}
}

func (m *memLedgerRepo) addProduct(code string, stock int) {
	m.products[code] = &domain.Product{
		Code:         code,
		Name:         code,
		CurrentStock: stock,
		IsActive:     true,
	}
}

func ledgerKey(code string, date time.Time) string {
	return code + "|" + date.Format("2006-01-02")
}

func (m *memLedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	return fn(ctx, m)
}

func (m *memLedgerRepo) GetProduct(_ context.Context, code string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return *p, nil
}

func (m *memLedgerRepo) GetProductForUpdate(ctx context.Context, code string) (domain.Product, error) {
	if m.failLock[code] {
		return domain.Product{}, errLockFailed
	}
	return m.GetProduct(ctx, code)
}

func (m *memLedgerRepo) SaveProductStock(_ context.Context, code string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[code]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.CurrentStock = stock
	return nil
}

func (m *memLedgerRepo) ListActiveProducts(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memLedgerRepo) InsertTransaction(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTxID++
	tx.ID = m.nextTxID
	tx.CreatedAt = timeutil.NowUTC()
	cp := *tx
	m.txs[tx.ID] = &cp
	return nil
}

func (m *memLedgerRepo) GetTransaction(_ context.Context, id int64) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return *t, nil
}

func (m *memLedgerRepo) DeleteTransactionRow(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[id]; !ok {
		return domain.ErrTransactionNotFound
	}
	delete(m.txs, id)
	return nil
}

func (m *memLedgerRepo) LatestAdjustment(_ context.Context, code string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Transaction
	for _, t := range m.txs {
		if t.ProductCode != code || t.Type != domain.TransactionAdjust {
			continue
		}
		if latest == nil || t.TransactionDate.After(latest.TransactionDate) ||
			(t.TransactionDate.Equal(latest.TransactionDate) && t.ID > latest.ID) {
			latest = t
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memLedgerRepo) HasAdjustmentAfter(_ context.Context, code string, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.txs {
		if t.ProductCode == code && t.Type == domain.TransactionAdjust && t.TransactionDate.After(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedgerRepo) ListAffectingBetween(ctx context.Context, code string, from, to *time.Time) ([]domain.Transaction, error) {
	all, err := m.ListTransactionsBetween(ctx, code, from, to)
	if err != nil {
		return nil, err
	}
	var out []domain.Transaction
	for _, t := range all {
		if t.State.AffectsCurrentStock {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memLedgerRepo) ListTransactionsBetween(_ context.Context, code string, from, to *time.Time) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for _, t := range m.txs {
		if t.ProductCode != code || t.Type == domain.TransactionDisposal {
			continue
		}
		if from != nil && t.TransactionDate.Before(*from) {
			continue
		}
		if to != nil && !t.TransactionDate.Before(*to) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].TransactionDate.Before(out[j].TransactionDate)
	})
	return out, nil
}

func (m *memLedgerRepo) RetireTransactionsThrough(_ context.Context, code string, cutoff time.Time, checkpointID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.txs {
		if t.ProductCode == code && t.State.AffectsCurrentStock && !t.TransactionDate.After(cutoff) {
			t.State = domain.HistoricalState(checkpointID)
			n++
		}
	}
	return n, nil
}

func (m *memLedgerRepo) BindTransactionToCheckpoint(_ context.Context, id, checkpointID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txs[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.State = domain.HistoricalState(checkpointID)
	return nil
}

func (m *memLedgerRepo) RestoreTransactionsForCheckpoint(_ context.Context, checkpointID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.txs {
		if t.State.CheckpointID != nil && *t.State.CheckpointID == checkpointID {
			t.State = domain.CurrentState()
			n++
		}
	}
	return n, nil
}

func (m *memLedgerRepo) InsertCheckpoint(_ context.Context, cp *domain.StockCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCpID++
	cp.ID = m.nextCpID
	cp.IsActive = true
	cp.CreatedAt = timeutil.NowUTC()
	clone := *cp
	m.cps[cp.ID] = &clone
	return nil
}

func (m *memLedgerRepo) DeactivateCheckpoint(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.cps[id]
	if !ok || !cp.IsActive {
		return domain.ErrCheckpointNotFound
	}
	cp.IsActive = false
	return nil
}

func (m *memLedgerRepo) GetCheckpoint(_ context.Context, id int64) (domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.cps[id]
	if !ok {
		return domain.StockCheckpoint{}, domain.ErrCheckpointNotFound
	}
	return *cp, nil
}

func (m *memLedgerRepo) latestActive(code string, match func(*domain.StockCheckpoint) bool) *domain.StockCheckpoint {
	var latest *domain.StockCheckpoint
	for _, cp := range m.cps {
		if cp.ProductCode != code || !cp.IsActive || !match(cp) {
			continue
		}
		if latest == nil || cp.CheckpointDate.After(latest.CheckpointDate) ||
			(cp.CheckpointDate.Equal(latest.CheckpointDate) && cp.ID > latest.ID) {
			latest = cp
		}
	}
	if latest == nil {
		return nil
	}
	clone := *latest
	return &clone
}

func (m *memLedgerRepo) LatestActiveCheckpointAfter(_ context.Context, code string, after time.Time) (*domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestActive(code, func(cp *domain.StockCheckpoint) bool {
		return cp.CheckpointDate.After(after)
	}), nil
}

func (m *memLedgerRepo) LatestActiveCheckpointBefore(_ context.Context, code string, before time.Time) (*domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestActive(code, func(cp *domain.StockCheckpoint) bool {
		return cp.CheckpointDate.Before(before)
	}), nil
}

func (m *memLedgerRepo) LatestActiveCheckpointOnOrBefore(_ context.Context, code string, at time.Time) (*domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestActive(code, func(cp *domain.StockCheckpoint) bool {
		return !cp.CheckpointDate.After(at)
	}), nil
}

func (m *memLedgerRepo) LatestActiveCheckpoint(_ context.Context, code string) (*domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestActive(code, func(*domain.StockCheckpoint) bool { return true }), nil
}

func (m *memLedgerRepo) HasActiveCheckpointOnOrAfter(_ context.Context, code string, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.latestActive(code, func(cp *domain.StockCheckpoint) bool {
		return !cp.CheckpointDate.Before(date)
	})
	return cp != nil, nil
}

func (m *memLedgerRepo) GetActiveCheckpointAt(_ context.Context, code string, date time.Time, cpType domain.CheckpointType) (*domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestActive(code, func(cp *domain.StockCheckpoint) bool {
		return cp.CheckpointDate.Equal(date) && cp.Type == cpType
	}), nil
}

func (m *memLedgerRepo) ListCheckpoints(_ context.Context, code string) ([]domain.StockCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StockCheckpoint
	for _, cp := range m.cps {
		if cp.ProductCode == code {
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckpointDate.Equal(out[j].CheckpointDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].CheckpointDate.After(out[j].CheckpointDate)
	})
	return out, nil
}

func (m *memLedgerRepo) DeleteLedgersForDate(_ context.Context, date time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	suffix := "|" + date.Format("2006-01-02")
	var n int64
	for key := range m.ledgers {
		if strings.HasSuffix(key, suffix) {
			delete(m.ledgers, key)
			n++
		}
	}
	return n, nil
}

func (m *memLedgerRepo) InsertDailyLedger(_ context.Context, row *domain.DailyLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLedgerID++
	row.ID = m.nextLedgerID
	row.CreatedAt = timeutil.NowUTC()
	clone := *row
	m.ledgers[ledgerKey(row.ProductCode, row.LedgerDate)] = &clone
	return nil
}

func (m *memLedgerRepo) GetDailyLedger(_ context.Context, code string, date time.Time) (*domain.DailyLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.ledgers[ledgerKey(code, date)]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (m *memLedgerRepo) ListDailyLedgers(_ context.Context, code string, from, to time.Time) ([]domain.DailyLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DailyLedger
	for _, row := range m.ledgers {
		if row.ProductCode != code || row.LedgerDate.Before(from) || row.LedgerDate.After(to) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LedgerDate.Before(out[j].LedgerDate) })
	return out, nil
}

// kst builds a UTC instant from KST wall-clock components.
func kst(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, timeutil.KST).UTC()
}

func TestCreateTransactionMovesCurrentStock(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	in, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        50,
		TransactionDate: kst(2025, 3, 10, 10, 0, 0),
	})
	require.NoError(t, err)
	require.Equal(t, 0, in.PreviousStock)
	require.Equal(t, 50, in.NewStock)
	require.True(t, in.State.IsCurrent())

	out, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionOut,
		Quantity:        20,
		TransactionDate: kst(2025, 3, 10, 15, 0, 0),
	})
	require.NoError(t, err)
	require.Equal(t, 50, out.PreviousStock)
	require.Equal(t, 30, out.NewStock)

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 30, product.CurrentStock)
}

func TestCreateTransactionRejectsOversell(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 10)
	svc := NewService(repo)

	_, err := svc.CreateTransaction(context.Background(), CreateTransactionInput{
		ProductCode: "SKU-1",
		Type:        domain.TransactionOut,
		Quantity:    11,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	product, err := repo.GetProduct(context.Background(), "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 10, product.CurrentStock)
}

func TestCreateTransactionValidatesInput(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 10)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "SKU-1", Type: domain.TransactionIn, Quantity: 0,
	})
	require.Error(t, err)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "SKU-1", Type: domain.TransactionAdjust, Quantity: 0,
	})
	require.Error(t, err)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "SKU-1", Type: domain.TransactionType("TRANSFER"), Quantity: 5,
	})
	require.Error(t, err)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "GHOST", Type: domain.TransactionIn, Quantity: 5,
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAdjustMintsCheckpointAndRetiresHistory(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	in, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        80,
		TransactionDate: kst(2025, 3, 10, 9, 0, 0),
	})
	require.NoError(t, err)

	adj, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        20,
		TransactionDate: kst(2025, 3, 10, 14, 0, 0),
		Memo:            "cycle count",
	})
	require.NoError(t, err)
	require.Equal(t, 80, adj.PreviousStock)
	require.Equal(t, 100, adj.NewStock)

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 100, product.CurrentStock)

	cps, err := repo.ListCheckpoints(ctx, "SKU-1")
	require.NoError(t, err)
	require.Len(t, cps, 1)
	require.Equal(t, domain.CheckpointAdjust, cps[0].Type)
	require.Equal(t, 100, cps[0].ConfirmedStock)
	require.True(t, cps[0].CheckpointDate.Equal(adj.TransactionDate))

	// Both the prior movement and the adjustment itself are retired; the
	// confirmed stock carries their combined effect.
	stored, err := repo.GetTransaction(ctx, in.ID)
	require.NoError(t, err)
	require.False(t, stored.State.IsCurrent())
	require.Equal(t, cps[0].ID, *stored.State.CheckpointID)

	storedAdj, err := repo.GetTransaction(ctx, adj.ID)
	require.NoError(t, err)
	require.False(t, storedAdj.State.IsCurrent())

	recomputed, err := svc.RecomputeCurrentStock(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 100, recomputed)
}

func TestBackdatedAdjustBindsToOwnCheckpoint(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	later, err := svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: kst(2025, 3, 10, 23, 59, 59),
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 100,
	})
	require.NoError(t, err)

	adj, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        20,
		TransactionDate: kst(2025, 3, 5, 14, 0, 0),
		Memo:            "late cycle count",
	})
	require.NoError(t, err)

	minted, err := repo.GetActiveCheckpointAt(ctx, "SKU-1", adj.TransactionDate, domain.CheckpointAdjust)
	require.NoError(t, err)
	require.NotNil(t, minted)
	require.Equal(t, 20, minted.ConfirmedStock)

	// The stored row must point at the checkpoint it minted, not at the later
	// one it resolved against.
	stored, err := repo.GetTransaction(ctx, adj.ID)
	require.NoError(t, err)
	require.False(t, stored.State.IsCurrent())
	require.NotNil(t, stored.State.CheckpointID)
	require.Equal(t, minted.ID, *stored.State.CheckpointID)
	require.Equal(t, minted.ID, *adj.State.CheckpointID)

	// The later anchor still governs the live counter.
	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 100, product.CurrentStock)

	// Dropping the later anchor must not resurrect the adjustment row; its
	// delta is already inside the minted confirmed stock.
	require.NoError(t, svc.DeactivateCheckpoint(ctx, later.ID))

	stored, err = repo.GetTransaction(ctx, adj.ID)
	require.NoError(t, err)
	require.False(t, stored.State.IsCurrent())

	product, err = repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 20, product.CurrentStock)
}

func TestBackdatedTransactionBehindCheckpointStaysHistorical(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        40,
		TransactionDate: kst(2025, 3, 9, 11, 0, 0),
	})
	require.NoError(t, err)

	_, err = svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: kst(2025, 3, 9, 23, 59, 59),
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 40,
	})
	require.NoError(t, err)

	late, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionOut,
		Quantity:        15,
		TransactionDate: kst(2025, 3, 9, 16, 0, 0),
	})
	require.NoError(t, err)
	require.False(t, late.State.IsCurrent())
	require.Equal(t, 40, late.PreviousStock)
	require.Equal(t, 25, late.NewStock)

	// Historical rows never move the live counter.
	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 40, product.CurrentStock)
}

func TestResolveStockStateTieStaysCurrent(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	cpDate := kst(2025, 3, 9, 23, 59, 59)
	_, err := svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: cpDate,
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 10,
	})
	require.NoError(t, err)

	atTie, err := svc.ResolveStockState(ctx, "SKU-1", cpDate)
	require.NoError(t, err)
	require.True(t, atTie.AffectsCurrentStock)

	before, err := svc.ResolveStockState(ctx, "SKU-1", cpDate.Add(-time.Second))
	require.NoError(t, err)
	require.False(t, before.AffectsCurrentStock)
	require.NotNil(t, before.CheckpointID)

	_, err = svc.ResolveStockState(ctx, "GHOST", cpDate)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDisposalIsRecordOnly(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 60)
	svc := NewService(repo)
	ctx := context.Background()

	disp, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "SKU-1",
		Type:        domain.TransactionDisposal,
		Quantity:    5,
	})
	require.NoError(t, err)
	require.Equal(t, 60, disp.PreviousStock)
	require.Equal(t, 60, disp.NewStock)
	require.False(t, disp.State.IsCurrent())

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 60, product.CurrentStock)
}

func TestDeleteTransactionReversesDelta(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	in, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode: "SKU-1",
		Type:        domain.TransactionIn,
		Quantity:    30,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, in.ID))

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 0, product.CurrentStock)

	_, err = repo.GetTransaction(ctx, in.ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestDeleteTransactionBlockedByLaterAdjustment(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	in, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        30,
		TransactionDate: kst(2025, 3, 10, 9, 0, 0),
	})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        5,
		TransactionDate: kst(2025, 3, 10, 18, 0, 0),
	})
	require.NoError(t, err)

	err = svc.DeleteTransaction(ctx, in.ID)
	require.ErrorIs(t, err, domain.ErrAdjustmentSuperseded)
}

func TestDeleteLatestAdjustmentUnwindsCheckpoint(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	in, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        80,
		TransactionDate: kst(2025, 3, 10, 9, 0, 0),
	})
	require.NoError(t, err)

	adj, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        20,
		TransactionDate: kst(2025, 3, 10, 14, 0, 0),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, adj.ID))

	// The inbound row is current again and the counter is replayed from it.
	stored, err := repo.GetTransaction(ctx, in.ID)
	require.NoError(t, err)
	require.True(t, stored.State.IsCurrent())

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 80, product.CurrentStock)

	cps, err := repo.ListCheckpoints(ctx, "SKU-1")
	require.NoError(t, err)
	require.Len(t, cps, 1)
	require.False(t, cps[0].IsActive)
}

func TestDeleteNonLatestAdjustmentRejected(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	first, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        10,
		TransactionDate: kst(2025, 3, 10, 9, 0, 0),
	})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionAdjust,
		Quantity:        -3,
		TransactionDate: kst(2025, 3, 11, 9, 0, 0),
	})
	require.NoError(t, err)

	err = svc.DeleteTransaction(ctx, first.ID)
	require.ErrorIs(t, err, domain.ErrAdjustmentSuperseded)
}

func TestCheckpointDeactivationRestoresExactly(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        50,
		TransactionDate: kst(2025, 3, 10, 9, 0, 0),
	})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionOut,
		Quantity:        20,
		TransactionDate: kst(2025, 3, 10, 11, 0, 0),
	})
	require.NoError(t, err)

	cp, err := svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: kst(2025, 3, 10, 23, 59, 59),
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 35,
		Reason:         "physical count found 5 extra",
	})
	require.NoError(t, err)

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 35, product.CurrentStock)

	_, err = svc.CreateTransaction(ctx, CreateTransactionInput{
		ProductCode:     "SKU-1",
		Type:            domain.TransactionIn,
		Quantity:        10,
		TransactionDate: kst(2025, 3, 11, 9, 0, 0),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateCheckpoint(ctx, cp.ID))

	// Replay with the checkpoint gone: 50 - 20 + 10.
	product, err = repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 40, product.CurrentStock)

	txs, err := repo.ListAffectingBetween(ctx, "SKU-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	err = svc.DeactivateCheckpoint(ctx, cp.ID)
	require.ErrorIs(t, err, domain.ErrCheckpointNotFound)
}

func TestDuplicateCheckpointRejected(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	at := kst(2025, 3, 10, 23, 59, 59)
	_, err := svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: at,
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 10,
	})
	require.NoError(t, err)

	_, err = svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: at,
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 12,
	})
	require.ErrorIs(t, err, domain.ErrCheckpointExists)
}

func TestBackdatedCheckpointKeepsNewerAnchor(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.addProduct("SKU-1", 0)
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: kst(2025, 3, 10, 23, 59, 59),
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 70,
	})
	require.NoError(t, err)

	// An older count arriving late must not clobber the newer anchor.
	_, err = svc.CreateCheckpoint(ctx, CreateCheckpointInput{
		ProductCode:    "SKU-1",
		CheckpointDate: kst(2025, 3, 5, 23, 59, 59),
		Type:           domain.CheckpointDailyClose,
		ConfirmedStock: 55,
	})
	require.NoError(t, err)

	product, err := repo.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	require.Equal(t, 70, product.CurrentStock)
}
