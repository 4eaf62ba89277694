package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfonseca/dcaflow-backend/internal/domain"
)

// PriceHistoryRepository stores ingested price observations and serves them
// back as a domain.PriceSource
type PriceHistoryRepository struct {
	db *DB
}

// Compile-time interface check
var _ domain.PriceSource = (*PriceHistoryRepository)(nil)

// NewPriceHistoryRepository creates a new price history repository
func NewPriceHistoryRepository(db *DB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// Add inserts one price observation for a pair at a granularity
func (r *PriceHistoryRepository) Add(ctx context.Context, pair string, granularity domain.Granularity, obs domain.PriceObservation) error {
	query := `
		INSERT INTO price_history (pair, granularity, instant, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair, granularity, instant) DO UPDATE SET price = EXCLUDED.price
	`

	_, err := r.db.ExecContext(ctx, query,
		pair,
		string(granularity),
		obs.Instant,
		obs.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price observation: %w", err)
	}

	return nil
}

// Fetch retrieves observations for the pair inside [start, end], ascending by
// instant. Gaps are expected; the result may be empty.
func (r *PriceHistoryRepository) Fetch(ctx context.Context, pair string, start, end time.Time, granularity domain.Granularity) (domain.PriceSeries, error) {
	query := `
		SELECT instant, price
		FROM price_history
		WHERE pair = $1 AND granularity = $2 AND instant >= $3 AND instant <= $4
		ORDER BY instant ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pair, string(granularity), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	series := make(domain.PriceSeries, 0)
	for rows.Next() {
		var obs domain.PriceObservation
		var priceStr string

		if err := rows.Scan(&obs.Instant, &priceStr); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		// Parse price (DECIMAL)
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}
		obs.Price = price

		series = append(series, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price rows: %w", err)
	}

	return series, nil
}
