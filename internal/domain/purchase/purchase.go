// Package purchase records stock bought from suppliers.
package purchase

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/draft"
)

// ErrNotFound is returned when a purchase does not exist.
var ErrNotFound = errors.New("purchase not found")

// Purchase is a recorded supplier purchase. Unit prices are what the supplier
// charged, not catalog prices.
type Purchase struct {
	ID               string
	SupplierID       string
	Items            []Item
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	ShippingCost     decimal.Decimal
	Total            decimal.Decimal
	CashTendered     decimal.Decimal
	Balance          decimal.Decimal
	CouponCode       string
	ShippingMethodID string
	PaymentStatus    draft.PaymentStatus
	Note             string
	CreatedAt        time.Time
}

// Item is one purchased product line.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for purchases.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
}
