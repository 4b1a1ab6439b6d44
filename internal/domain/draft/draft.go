// Package draft holds the in-memory order or purchase a user is composing.
//
// A Draft keeps its price breakdown consistent with its inputs: every
// mutating method re-runs the pricing pipeline before returning, so
// Breakdown never reflects stale line items, coupon or shipping selection.
package draft

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/pricing"
)

// Kind distinguishes sales orders from supplier purchases.
type Kind string

const (
	// KindOrder is a customer order; it has no cash reconciliation.
	KindOrder Kind = "order"
	// KindPurchase is a supplier purchase; cash tendered reduces the balance.
	KindPurchase Kind = "purchase"
)

// ErrItemIndex is returned when a line item index is out of range.
var ErrItemIndex = errors.New("line item index out of range")

// Draft is a not-yet-persisted order or purchase.
type Draft struct {
	kind             Kind
	items            []pricing.LineItem
	coupon           *pricing.Coupon
	shippingMethodID string
	shippingMethods  []pricing.ShippingMethod
	cashTendered     decimal.Decimal

	breakdown pricing.Breakdown
}

// New creates an empty draft of the given kind priced against methods.
func New(kind Kind, methods []pricing.ShippingMethod) *Draft {
	d := &Draft{
		kind:            kind,
		shippingMethods: slices.Clone(methods),
		cashTendered:    decimal.Zero,
	}
	d.recalculate()
	return d
}

// Kind returns the draft kind.
func (d *Draft) Kind() Kind { return d.kind }

// Items returns a copy of the line items.
func (d *Draft) Items() []pricing.LineItem { return slices.Clone(d.items) }

// Coupon returns the selected coupon, or nil.
func (d *Draft) Coupon() *pricing.Coupon {
	if d.coupon == nil {
		return nil
	}
	c := *d.coupon
	return &c
}

// ShippingMethodID returns the selected shipping method id.
func (d *Draft) ShippingMethodID() string { return d.shippingMethodID }

// Breakdown returns the current price projection.
func (d *Draft) Breakdown() pricing.Breakdown { return d.breakdown }

// AddItem appends a line item.
func (d *Draft) AddItem(item pricing.LineItem) {
	d.items = append(d.items, item)
	d.recalculate()
}

// UpdateItem replaces the quantity and unit price of the item at index.
func (d *Draft) UpdateItem(index, quantity int, unitPrice decimal.Decimal) error {
	if index < 0 || index >= len(d.items) {
		return errors.Wrapf(ErrItemIndex, "update item %d", index)
	}
	d.items[index].Quantity = quantity
	d.items[index].UnitPrice = unitPrice
	d.recalculate()
	return nil
}

// RemoveItem deletes the item at index.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.items) {
		return errors.Wrapf(ErrItemIndex, "remove item %d", index)
	}
	d.items = slices.Delete(d.items, index, index+1)
	d.recalculate()
	return nil
}

// SelectCoupon sets the applied coupon; nil clears it.
func (d *Draft) SelectCoupon(c *pricing.Coupon) {
	if c == nil {
		d.coupon = nil
	} else {
		cp := *c
		d.coupon = &cp
	}
	d.recalculate()
}

// SelectShipping sets the shipping method by id; "" clears it.
func (d *Draft) SelectShipping(methodID string) {
	d.shippingMethodID = methodID
	d.recalculate()
}

// SetShippingMethods replaces the catalog the shipping id is resolved against.
func (d *Draft) SetShippingMethods(methods []pricing.ShippingMethod) {
	d.shippingMethods = slices.Clone(methods)
	d.recalculate()
}

// SetCashTendered records the cash handed over for a purchase. It is kept on
// orders too but does not affect their breakdown.
func (d *Draft) SetCashTendered(amount decimal.Decimal) {
	d.cashTendered = amount
	d.recalculate()
}

func (d *Draft) recalculate() {
	d.breakdown = pricing.Calculate(pricing.Input{
		Items:            d.items,
		Coupon:           d.coupon,
		ShippingMethodID: d.shippingMethodID,
		ShippingMethods:  d.shippingMethods,
		WithBalance:      d.kind == KindPurchase,
		CashTendered:     d.cashTendered,
	})
}
