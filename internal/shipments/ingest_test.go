// backend-go/internal/shipments/ingest_test.go
package shipments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/backend-go/internal/domain"
)

type memShipmentRepo struct {
	records []domain.ShipmentRecord
	batches int
}

func (m *memShipmentRepo) InsertBatch(ctx context.Context, records []domain.ShipmentRecord) (int, error) {
	m.records = append(m.records, records...)
	m.batches++
	return len(records), nil
}

func (m *memShipmentRepo) ListByProductSince(ctx context.Context, code string, since time.Time) ([]domain.ShipmentRecord, error) {
	return nil, nil
}

func (m *memShipmentRepo) ListProductCodes(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestIngestCSV(t *testing.T) {
	csvBody := strings.Join([]string{
		"product_code,quantity,shipped_at",
		"SKU-A,3,2025-01-15",
		"SKU-A,2.0,2025-01-16 09:30:00",
		"SKU-B,5,2025-01-17T08:00:00Z",
	}, "\n")

	repo := &memShipmentRepo{}
	svc := NewIngestService(repo)

	summary, err := svc.IngestCSV(context.Background(), strings.NewReader(csvBody), "backfill")
	require.NoError(t, err)
	require.Equal(t, 3, summary.Rows)
	require.Equal(t, 3, summary.Inserted)
	require.Zero(t, summary.Skipped)

	require.Len(t, repo.records, 3)
	require.Equal(t, "SKU-A", repo.records[0].ProductCode)
	require.Equal(t, 3, repo.records[0].Quantity)
	require.Equal(t, "backfill", repo.records[0].Source)
	require.Equal(t, 2, repo.records[1].Quantity)
	require.Equal(t, time.UTC, repo.records[2].ShippedAt.Location())
}

func TestIngestCSVSkipsBadRows(t *testing.T) {
	csvBody := strings.Join([]string{
		"product_code,quantity,shipped_at,source",
		"SKU-A,10,2025-01-15,erp",
		",5,2025-01-15,erp",
		"SKU-B,-4,2025-01-15,erp",
		"SKU-C,2,not-a-date,erp",
	}, "\n")

	repo := &memShipmentRepo{}
	svc := NewIngestService(repo)

	summary, err := svc.IngestCSV(context.Background(), strings.NewReader(csvBody), "upload")
	require.NoError(t, err)
	require.Equal(t, 4, summary.Rows)
	require.Equal(t, 1, summary.Inserted)
	require.Equal(t, 3, summary.Skipped)
	require.Equal(t, "erp", repo.records[0].Source)
}

func TestIngestRows(t *testing.T) {
	repo := &memShipmentRepo{}
	svc := NewIngestService(repo)

	rows := []domain.ShipmentRecord{
		{ProductCode: "SKU-A", Quantity: 4, ShippedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ProductCode: "", Quantity: 4, ShippedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ProductCode: "SKU-B", Quantity: 0, ShippedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	summary, err := svc.IngestRows(context.Background(), rows, "push")
	require.NoError(t, err)
	require.Equal(t, 3, summary.Rows)
	require.Equal(t, 1, summary.Inserted)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, "push", repo.records[0].Source)
}

func TestIngestCSVMissingColumn(t *testing.T) {
	csvBody := "product_code,quantity\nSKU-A,3\n"

	svc := NewIngestService(&memShipmentRepo{})

	_, err := svc.IngestCSV(context.Background(), strings.NewReader(csvBody), "upload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "shipped_at")
}
