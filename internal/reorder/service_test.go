// backend-go/internal/reorder/service_test.go
package reorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/backend-go/internal/domain"
)

type memProductReader struct {
	products map[string]domain.Product
}

func (m *memProductReader) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	p, ok := m.products[code]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *memProductReader) ListActiveProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type memForecastStore struct {
	latest map[string]domain.ForecastResult
}

func (m *memForecastStore) Save(ctx context.Context, result *domain.ForecastResult) error {
	if m.latest == nil {
		m.latest = make(map[string]domain.ForecastResult)
	}
	m.latest[result.ProductCode] = *result
	return nil
}

func (m *memForecastStore) GetLatest(ctx context.Context, code string) (domain.ForecastResult, error) {
	f, ok := m.latest[code]
	if !ok {
		return domain.ForecastResult{}, domain.ErrForecastNotFound
	}
	return f, nil
}

func (m *memForecastStore) ListLatest(ctx context.Context) ([]domain.ForecastResult, error) {
	var out []domain.ForecastResult
	for _, f := range m.latest {
		out = append(out, f)
	}
	return out, nil
}

func testProduct(code string, stock int) domain.Product {
	return domain.Product{
		Code:         code,
		Name:         "product " + code,
		CurrentStock: stock,
		SafetyStock:  50,
		LeadTimeDays: 5,
		MOQ:          10,
		IsActive:     true,
	}
}

func testForecast(code string, monthly float64, confidence string) domain.ForecastResult {
	return domain.ForecastResult{
		ProductCode: code,
		Method:      "ses+linear",
		Confidence:  confidence,
		MonthP0:     monthly,
		MonthP1:     monthly,
		MonthP2:     monthly,
		MonthP3:     monthly,
	}
}

func TestReportSortsByUrgency(t *testing.T) {
	products := &memProductReader{products: map[string]domain.Product{
		"SKU-LOW":  testProduct("SKU-LOW", 50),   // at reorder point, critical
		"SKU-HIGH": testProduct("SKU-HIGH", 900), // comfortably stocked
	}}
	forecasts := &memForecastStore{latest: map[string]domain.ForecastResult{
		"SKU-LOW":  testForecast("SKU-LOW", 300, "high"),
		"SKU-HIGH": testForecast("SKU-HIGH", 300, "high"),
	}}

	svc := NewService(products, forecasts, nil)

	signals, err := svc.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 2)
	require.Equal(t, "SKU-LOW", signals[0].ProductCode)
	require.Equal(t, domain.UrgencyCritical, signals[0].Urgency)
	require.Equal(t, "SKU-HIGH", signals[1].ProductCode)
	require.Equal(t, domain.UrgencyNormal, signals[1].Urgency)
}

func TestReportSkipsProductsWithoutForecast(t *testing.T) {
	products := &memProductReader{products: map[string]domain.Product{
		"SKU-A": testProduct("SKU-A", 100),
		"SKU-B": testProduct("SKU-B", 100),
	}}
	forecasts := &memForecastStore{latest: map[string]domain.ForecastResult{
		"SKU-A": testForecast("SKU-A", 300, "medium"),
	}}

	svc := NewService(products, forecasts, nil)

	signals, err := svc.Report(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, "SKU-A", signals[0].ProductCode)
}

func TestForProductAppliesConfidenceMultiplier(t *testing.T) {
	products := &memProductReader{products: map[string]domain.Product{
		"SKU-A": testProduct("SKU-A", 900),
	}}
	forecasts := &memForecastStore{latest: map[string]domain.ForecastResult{
		"SKU-A": testForecast("SKU-A", 300, "low"),
	}}

	svc := NewService(products, forecasts, nil)

	got, err := svc.ForProduct(context.Background(), "SKU-A")
	require.NoError(t, err)
	// 10/day * (5 + 10) days * 1.3 low-confidence multiplier = 195
	require.Equal(t, 195, got.ReorderPoint)
}

func TestForProductUnknownCode(t *testing.T) {
	svc := NewService(&memProductReader{}, &memForecastStore{}, nil)

	_, err := svc.ForProduct(context.Background(), "SKU-MISSING")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestForProductWithoutForecast(t *testing.T) {
	products := &memProductReader{products: map[string]domain.Product{
		"SKU-A": testProduct("SKU-A", 100),
	}}
	svc := NewService(products, &memForecastStore{}, nil)

	_, err := svc.ForProduct(context.Background(), "SKU-A")
	require.ErrorIs(t, err, domain.ErrForecastNotFound)
}
