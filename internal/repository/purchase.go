package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/purchase"
)

const (
	createPurchaseSQL = `INSERT INTO purchases (id, supplier_id, subtotal, discount, shipping_cost, total,
		cash_tendered, balance, coupon_code, shipping_method_id, payment_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	createPurchaseItemSQL = `INSERT INTO purchase_items (purchase_id, line_no, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getPurchaseSQL = `SELECT id, supplier_id, subtotal, discount, shipping_cost, total,
		cash_tendered, balance, coupon_code, shipping_method_id, payment_status, note, created_at
		FROM purchases WHERE id = $1`

	listPurchaseItemsSQL = `SELECT product_id, quantity, unit_price
		FROM purchase_items WHERE purchase_id = $1 ORDER BY line_no`
)

var _ purchase.Repository = (*PurchaseRepository)(nil)

// PurchaseRepository implements purchase.Repository backed by PostgreSQL.
type PurchaseRepository struct {
	db DB
}

// NewPurchaseRepository returns a PurchaseRepository that uses the given pool.
func NewPurchaseRepository(db DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// Create persists a purchase and its items in one transaction.
func (r *PurchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, createPurchaseSQL,
		p.ID, p.SupplierID, p.Subtotal, p.Discount, p.ShippingCost, p.Total,
		p.CashTendered, p.Balance, p.CouponCode, p.ShippingMethodID,
		string(p.PaymentStatus), p.Note, p.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert purchase %q", p.ID)
	}

	for i, item := range p.Items {
		if _, err := tx.Exec(ctx, createPurchaseItemSQL,
			p.ID, i+1, item.ProductID, item.Quantity, item.UnitPrice,
		); err != nil {
			return errors.Wrapf(err, "insert purchase item %d", i+1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// GetByID returns purchase.ErrNotFound when no purchase has the id.
func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*purchase.Purchase, error) {
	var (
		p             purchase.Purchase
		paymentStatus string
	)
	err := r.db.QueryRow(ctx, getPurchaseSQL, id).Scan(
		&p.ID, &p.SupplierID, &p.Subtotal, &p.Discount, &p.ShippingCost, &p.Total,
		&p.CashTendered, &p.Balance, &p.CouponCode, &p.ShippingMethodID,
		&paymentStatus, &p.Note, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, purchase.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get purchase %q", id)
	}
	p.PaymentStatus = draft.PaymentStatus(paymentStatus)

	rows, err := r.db.Query(ctx, listPurchaseItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of purchase %q", id)
	}
	p.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (purchase.Item, error) {
		var item purchase.Item
		err := row.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice)
		return item, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list items of purchase %q", id)
	}
	return &p, nil
}
