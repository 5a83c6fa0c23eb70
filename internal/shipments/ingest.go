// backend-go/internal/shipments/ingest.go
package shipments

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stocklens/backend-go/internal/domain"
	"github.com/stocklens/backend-go/internal/repository"
	"github.com/stocklens/backend-go/pkg/timeutil"
)

const insertBatchSize = 500

// IngestService loads historical shipment CSV exports into the shipment
// history table the forecasting pipeline trains on.
type IngestService struct {
	repo repository.ShipmentRepository
}

func NewIngestService(repo repository.ShipmentRepository) *IngestService {
	return &IngestService{repo: repo}
}

// IngestSummary reports one CSV load.
type IngestSummary struct {
	Rows     int `json:"rows"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// IngestCSV parses a shipment CSV and batch-inserts its rows. Rows with an
// unknown date format or a non-positive quantity are skipped, not fatal; a
// malformed file fails fast.
func (s *IngestService) IngestCSV(ctx context.Context, r io.Reader, source string) (IngestSummary, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return IngestSummary{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range []string{"product_code", "quantity", "shipped_at"} {
		if _, ok := colMap[col]; !ok {
			return IngestSummary{}, fmt.Errorf("missing required column: %s", col)
		}
	}

	var (
		summary IngestSummary
		batch   []domain.ShipmentRecord
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.repo.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		summary.Inserted += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("failed to read CSV record: %w", err)
		}
		summary.Rows++

		row, ok := parseRow(record, colMap, source)
		if !ok {
			summary.Skipped++
			continue
		}

		batch = append(batch, row)
		if len(batch) >= insertBatchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	log.Info().
		Str("source", source).
		Int("rows", summary.Rows).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Msg("shipment CSV ingested")
	return summary, nil
}

// IngestRows inserts already-structured shipment rows, used by push-based
// integrations. Rows with a missing code or non-positive quantity are skipped.
func (s *IngestService) IngestRows(ctx context.Context, rows []domain.ShipmentRecord, source string) (IngestSummary, error) {
	summary := IngestSummary{Rows: len(rows)}

	valid := make([]domain.ShipmentRecord, 0, len(rows))
	for _, row := range rows {
		if row.ProductCode == "" || row.Quantity <= 0 || row.ShippedAt.IsZero() {
			summary.Skipped++
			continue
		}
		if row.Source == "" {
			row.Source = source
		}
		row.ShippedAt = timeutil.ToUTC(row.ShippedAt)
		valid = append(valid, row)
	}

	n, err := s.repo.InsertBatch(ctx, valid)
	if err != nil {
		return summary, err
	}
	summary.Inserted = n

	log.Info().
		Str("source", source).
		Int("rows", summary.Rows).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Msg("shipment rows ingested")
	return summary, nil
}

func parseRow(record []string, colMap map[string]int, source string) (domain.ShipmentRecord, bool) {
	getValue := func(colName string) string {
		if idx, ok := colMap[colName]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	code := getValue("product_code")
	if code == "" {
		return domain.ShipmentRecord{}, false
	}

	// Quantities occasionally arrive as float strings like "3.0".
	qtyFloat, err := strconv.ParseFloat(getValue("quantity"), 64)
	if err != nil || qtyFloat <= 0 {
		return domain.ShipmentRecord{}, false
	}

	shippedAt, ok := parseShippedAt(getValue("shipped_at"))
	if !ok {
		return domain.ShipmentRecord{}, false
	}

	if src := getValue("source"); src != "" {
		source = src
	}

	return domain.ShipmentRecord{
		ProductCode: code,
		Quantity:    int(qtyFloat),
		ShippedAt:   shippedAt,
		Source:      source,
	}, true
}

func parseShippedAt(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return timeutil.ToUTC(t), true
		}
	}
	return time.Time{}, false
}
