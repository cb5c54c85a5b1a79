package postgres

import (
	"context"
	"database/sql"
	"errors"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

// pricingRowID is the primary key of the singleton tariff row.
const pricingRowID = 1

// PricingRepository is a PostgreSQL implementation of repository.PricingRepository.
type PricingRepository struct {
	q Querier
}

// NewPricingRepository creates a new PostgreSQL pricing repository.
func NewPricingRepository(db *sql.DB) *PricingRepository {
	return &PricingRepository{q: db}
}

// NewPricingRepositoryWithTx creates a pricing repository using a transaction.
func NewPricingRepositoryWithTx(tx *sql.Tx) *PricingRepository {
	return &PricingRepository{q: tx}
}

// Get returns the stored tariff.
func (r *PricingRepository) Get(ctx context.Context) (*domain.PricingConfig, error) {
	query := `SELECT id, base_fare, price_per_km, updated_at FROM pricing_config WHERE id = $1`

	var cfg domain.PricingConfig
	err := r.q.QueryRowContext(ctx, query, pricingRowID).Scan(&cfg.ID, &cfg.BaseFare, &cfg.PricePerKm, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// EnsureDefault inserts def unless a tariff already exists.
// Concurrent callers converge on a single row.
func (r *PricingRepository) EnsureDefault(ctx context.Context, def domain.PricingConfig) (*domain.PricingConfig, error) {
	query := `
		INSERT INTO pricing_config (id, base_fare, price_per_km)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.q.ExecContext(ctx, query, pricingRowID, def.BaseFare, def.PricePerKm); err != nil {
		return nil, err
	}
	return r.Get(ctx)
}

// Save creates or replaces the tariff.
func (r *PricingRepository) Save(ctx context.Context, cfg *domain.PricingConfig) error {
	query := `
		INSERT INTO pricing_config (id, base_fare, price_per_km, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET base_fare = EXCLUDED.base_fare, price_per_km = EXCLUDED.price_per_km, updated_at = now()
		RETURNING id, updated_at
	`

	return r.q.QueryRowContext(ctx, query, pricingRowID, cfg.BaseFare, cfg.PricePerKm).Scan(&cfg.ID, &cfg.UpdatedAt)
}
