package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/shipping"
)

const (
	listShippingMethodsSQL = `SELECT id, name, cost, estimated_delivery FROM shipping_methods ORDER BY cost, id`

	upsertShippingMethodSQL = `INSERT INTO shipping_methods (id, name, cost, estimated_delivery)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			cost = EXCLUDED.cost,
			estimated_delivery = EXCLUDED.estimated_delivery`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	db DB
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(db DB) *ShippingRepository {
	return &ShippingRepository{db: db}
}

// List returns all shipping methods, cheapest first.
func (r *ShippingRepository) List(ctx context.Context) ([]pricing.ShippingMethod, error) {
	rows, err := r.db.Query(ctx, listShippingMethodsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping methods")
	}
	methods, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.ShippingMethod, error) {
		var m pricing.ShippingMethod
		err := row.Scan(&m.ID, &m.Name, &m.Cost, &m.EstimatedDelivery)
		return m, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "list shipping methods")
	}
	return methods, nil
}

// Upsert creates or replaces a shipping method.
func (r *ShippingRepository) Upsert(ctx context.Context, m pricing.ShippingMethod) error {
	if _, err := r.db.Exec(ctx, upsertShippingMethodSQL,
		m.ID, m.Name, m.Cost, m.EstimatedDelivery,
	); err != nil {
		return errors.Wrapf(err, "upsert shipping method %q", m.ID)
	}
	return nil
}
