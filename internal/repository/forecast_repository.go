// backend-go/internal/repository/forecast_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/stocklens/backend-go/internal/domain"
)

// ForecastRepository persists per-SKU forecast results. Only the latest run
// per product is served; older rows are kept for accuracy review.
type ForecastRepository interface {
	Save(ctx context.Context, result *domain.ForecastResult) error
	GetLatest(ctx context.Context, code string) (domain.ForecastResult, error)
	ListLatest(ctx context.Context) ([]domain.ForecastResult, error)
}

type forecastRepository struct {
	db *sqlx.DB
}

func NewForecastRepository(db *sqlx.DB) ForecastRepository {
	return &forecastRepository{db: db}
}

func (r *forecastRepository) Save(ctx context.Context, result *domain.ForecastResult) error {
	query := `
		INSERT INTO forecast_results
			(product_code, generated_at, method, confidence,
			 month_p0, month_p1, month_p2, month_p3,
			 future_trend, rmse, mae, data_points)
		VALUES
			(:product_code, :generated_at, :method, :confidence,
			 :month_p0, :month_p1, :month_p2, :month_p3,
			 :future_trend, :rmse, :mae, :data_points)
		RETURNING id
	`

	rows, err := r.db.NamedQueryContext(ctx, query, result)
	if err != nil {
		return fmt.Errorf("error saving forecast result: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&result.ID); err != nil {
			return fmt.Errorf("error scanning forecast id: %w", err)
		}
	}
	return rows.Err()
}

func (r *forecastRepository) GetLatest(ctx context.Context, code string) (domain.ForecastResult, error) {
	query := `
		SELECT id, product_code, generated_at, method, confidence,
		       month_p0, month_p1, month_p2, month_p3,
		       future_trend, rmse, mae, data_points
		FROM forecast_results
		WHERE product_code = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var result domain.ForecastResult
	if err := r.db.GetContext(ctx, &result, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ForecastResult{}, domain.ErrForecastNotFound
		}
		return domain.ForecastResult{}, fmt.Errorf("error getting latest forecast: %w", err)
	}

	return result, nil
}

func (r *forecastRepository) ListLatest(ctx context.Context) ([]domain.ForecastResult, error) {
	query := `
		SELECT DISTINCT ON (product_code)
		       id, product_code, generated_at, method, confidence,
		       month_p0, month_p1, month_p2, month_p3,
		       future_trend, rmse, mae, data_points
		FROM forecast_results
		ORDER BY product_code, generated_at DESC
	`

	var results []domain.ForecastResult
	if err := r.db.SelectContext(ctx, &results, query); err != nil {
		return nil, fmt.Errorf("error listing latest forecasts: %w", err)
	}

	return results, nil
}
