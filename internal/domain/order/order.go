package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/draft"
)

// ErrNotFound is returned when an order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Order represents a placed customer order with its price breakdown frozen
// at placement time.
type Order struct {
	ID               string
	CustomerName     string
	Items            []Item
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	ShippingCost     decimal.Decimal
	Total            decimal.Decimal
	CouponCode       string
	ShippingMethodID string
	Status           Status
	PaymentStatus    draft.PaymentStatus
	CreatedAt        time.Time
}

// Item represents a single line of an order.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
