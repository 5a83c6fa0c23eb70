// backend-go/internal/archive/ledger_export_test.go
package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/backend-go/internal/domain"
)

type memLedgerReader struct {
	products []domain.Product
	ledgers  map[string]*domain.DailyLedger
}

func (m *memLedgerReader) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func (m *memLedgerReader) GetDailyLedger(ctx context.Context, code string, date time.Time) (*domain.DailyLedger, error) {
	return m.ledgers[code], nil
}

type memStorage struct {
	key         string
	contentType string
	data        []byte
}

func (m *memStorage) UploadObject(ctx context.Context, key, contentType string, data []byte) error {
	m.key = key
	m.contentType = contentType
	m.data = data
	return nil
}

func TestExportDay(t *testing.T) {
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	reader := &memLedgerReader{
		products: []domain.Product{
			{Code: "SKU-A", IsActive: true},
			{Code: "SKU-B", IsActive: true},
		},
		ledgers: map[string]*domain.DailyLedger{
			"SKU-A": {
				ProductCode:    "SKU-A",
				LedgerDate:     date,
				BeginningStock: 100,
				TotalInbound:   50,
				TotalOutbound:  30,
				EndingStock:    120,
			},
		},
	}
	storage := &memStorage{}

	rows, err := NewExporter(reader, storage).ExportDay(context.Background(), date)
	require.NoError(t, err)
	require.Equal(t, 1, rows)
	require.Equal(t, "daily-ledgers/2025-03-10.csv", storage.key)
	require.Equal(t, "text/csv", storage.contentType)

	lines := strings.Split(strings.TrimSpace(string(storage.data)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "SKU-A,2025-03-10,100,50,30,0,120", lines[1])
}
