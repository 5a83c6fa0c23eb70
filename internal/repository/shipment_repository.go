// backend-go/internal/repository/shipment_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stocklens/backend-go/internal/domain"
)

// ShipmentRepository reads and loads the historical outbound rows the
// forecasting pipeline trains on. The ledger never touches this table.
type ShipmentRepository interface {
	InsertBatch(ctx context.Context, records []domain.ShipmentRecord) (int, error)
	ListByProductSince(ctx context.Context, code string, since time.Time) ([]domain.ShipmentRecord, error)
	ListProductCodes(ctx context.Context) ([]string, error)
}

type shipmentRepository struct {
	db *sqlx.DB
}

func NewShipmentRepository(db *sqlx.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) InsertBatch(ctx context.Context, records []domain.ShipmentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO shipment_history (product_code, quantity, shipped_at, source)
		VALUES (:product_code, :quantity, :shipped_at, :source)
	`

	res, err := r.db.NamedExecContext(ctx, query, records)
	if err != nil {
		return 0, fmt.Errorf("error inserting shipment records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return len(records), nil
	}
	return int(n), nil
}

func (r *shipmentRepository) ListByProductSince(ctx context.Context, code string, since time.Time) ([]domain.ShipmentRecord, error) {
	query := `
		SELECT id, product_code, quantity, shipped_at, source, created_at
		FROM shipment_history
		WHERE product_code = $1 AND shipped_at >= $2
		ORDER BY shipped_at
	`

	var records []domain.ShipmentRecord
	if err := r.db.SelectContext(ctx, &records, query, code, since); err != nil {
		return nil, fmt.Errorf("error listing shipment records: %w", err)
	}

	return records, nil
}

func (r *shipmentRepository) ListProductCodes(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT product_code FROM shipment_history ORDER BY product_code`

	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query); err != nil {
		return nil, fmt.Errorf("error listing shipment product codes: %w", err)
	}

	return codes, nil
}
