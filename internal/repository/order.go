package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_name, subtotal, discount, shipping_cost, total,
		coupon_code, shipping_method_id, status, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT id, customer_name, subtotal, discount, shipping_cost, total,
		coupon_code, shipping_method_id, status, payment_status, created_at
		FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY line_no`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists an order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerName, o.Subtotal, o.Discount, o.ShippingCost, o.Total,
		o.CouponCode, o.ShippingMethodID, string(o.Status), string(o.PaymentStatus), o.CreatedAt,
	); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	for i, item := range o.Items {
		if _, err := tx.Exec(ctx, createOrderItemSQL,
			o.ID, i+1, item.ProductID, item.Quantity, item.UnitPrice,
		); err != nil {
			return errors.Wrapf(err, "insert order item %d", i+1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// GetByID returns order.ErrNotFound when no order has the id.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
	)
	err := r.db.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.CustomerName, &o.Subtotal, &o.Discount, &o.ShippingCost, &o.Total,
		&o.CouponCode, &o.ShippingMethodID, &status, &paymentStatus, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o.Status = order.Status(status)
	o.PaymentStatus = draft.PaymentStatus(paymentStatus)

	rows, err := r.db.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %q", id)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var item order.Item
		err := row.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice)
		return item, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %q", id)
	}
	return &o, nil
}
