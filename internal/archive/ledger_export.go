// backend-go/internal/archive/ledger_export.go
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/domain"
)

// LedgerReader is the slice of the ledger store the exporter reads from.
type LedgerReader interface {
	ListActiveProducts(ctx context.Context) ([]domain.Product, error)
	GetDailyLedger(ctx context.Context, code string, date time.Time) (*domain.DailyLedger, error)
}

// Exporter writes the sealed daily ledgers for one business date to object
// storage as a CSV snapshot.
type Exporter struct {
	ledgers LedgerReader
	storage ObjectStorage
}

func NewExporter(ledgers LedgerReader, storage ObjectStorage) *Exporter {
	return &Exporter{ledgers: ledgers, storage: storage}
}

// ExportDay uploads one CSV with a row per product that has a ledger for the
// date. Returns the number of rows written.
func (e *Exporter) ExportDay(ctx context.Context, date time.Time) (int, error) {
	products, err := e.ledgers.ListActiveProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing products for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"product_code", "ledger_date", "beginning_stock", "total_inbound", "total_outbound", "adjustments", "ending_stock"}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("error writing export header: %w", err)
	}

	rows := 0
	for _, p := range products {
		row, err := e.ledgers.GetDailyLedger(ctx, p.Code, date)
		if err != nil {
			return 0, fmt.Errorf("error reading ledger for %s: %w", p.Code, err)
		}
		if row == nil {
			continue
		}

		record := []string{
			row.ProductCode,
			row.LedgerDate.Format("2006-01-02"),
			strconv.Itoa(row.BeginningStock),
			strconv.Itoa(row.TotalInbound),
			strconv.Itoa(row.TotalOutbound),
			strconv.Itoa(row.Adjustments),
			strconv.Itoa(row.EndingStock),
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("error writing export row: %w", err)
		}
		rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("error flushing export: %w", err)
	}

	key := fmt.Sprintf("daily-ledgers/%s.csv", date.Format("2006-01-02"))
	if err := e.storage.UploadObject(ctx, key, "text/csv", buf.Bytes()); err != nil {
		return 0, err
	}

	log.Info().Str("key", key).Int("rows", rows).Msg("daily ledger snapshot archived")
	return rows, nil
}
