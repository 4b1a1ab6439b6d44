package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/supplier"
)

const (
	getSupplierByIDSQL = `SELECT id, name, phone, email FROM suppliers WHERE id = $1`

	upsertSupplierSQL = `INSERT INTO suppliers (id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email`
)

var _ supplier.Repository = (*SupplierRepository)(nil)

// SupplierRepository implements supplier.Repository backed by PostgreSQL.
type SupplierRepository struct {
	db DB
}

// NewSupplierRepository returns a SupplierRepository that uses the given pool.
func NewSupplierRepository(db DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// GetByID returns supplier.ErrNotFound when no supplier has the id.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*supplier.Supplier, error) {
	var s supplier.Supplier
	err := r.db.QueryRow(ctx, getSupplierByIDSQL, id).Scan(&s.ID, &s.Name, &s.Phone, &s.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, supplier.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get supplier %q", id)
	}
	return &s, nil
}

// Upsert creates or replaces a supplier.
func (r *SupplierRepository) Upsert(ctx context.Context, s supplier.Supplier) error {
	if _, err := r.db.Exec(ctx, upsertSupplierSQL, s.ID, s.Name, s.Phone, s.Email); err != nil {
		return errors.Wrapf(err, "upsert supplier %q", s.ID)
	}
	return nil
}
