// Package pricing derives the monetary breakdown of an order or purchase from
// its line items, an optional coupon and an optional shipping method.
//
// Every function in this package is pure: it reads its arguments and returns
// a value. Callers own the state being priced (see package draft).
package pricing

import (
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a flat amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// LineItem is one product line within an order or purchase.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns Quantity * UnitPrice.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Coupon is the part of a coupon rule the calculator needs.
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
}

// ShippingMethod is a flat-rate delivery option.
type ShippingMethod struct {
	ID                string
	Name              string
	Cost              decimal.Decimal
	EstimatedDelivery string
}

// Breakdown is the computed price projection of a draft.
type Breakdown struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
	CashTendered decimal.Decimal
	Balance      decimal.Decimal
}

// Equal reports whether both breakdowns carry the same amounts.
func (b Breakdown) Equal(o Breakdown) bool {
	return b.Subtotal.Equal(o.Subtotal) &&
		b.Discount.Equal(o.Discount) &&
		b.ShippingCost.Equal(o.ShippingCost) &&
		b.Total.Equal(o.Total) &&
		b.CashTendered.Equal(o.CashTendered) &&
		b.Balance.Equal(o.Balance)
}

// ComputeSubtotal returns the sum of quantity * unit price over items,
// rounded to 2 decimal places. Quantities are not validated here.
func ComputeSubtotal(items []LineItem) decimal.Decimal {
	sum := zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal())
	}
	return sum.Round(2)
}

// ResolveDiscount computes the discount a coupon grants on subtotal. A nil
// coupon grants nothing. Percentages are clamped to [0, 100] and fixed amounts
// never exceed the subtotal, so the result always lies in [0, subtotal].
//
// The amount is rounded half away from zero to 2 decimal places: 10% of 0.05
// is 0.01, not 0.005.
func ResolveDiscount(subtotal decimal.Decimal, c *Coupon) decimal.Decimal {
	if c == nil || !subtotal.IsPositive() {
		return zero
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		pct := clamp(c.Value, zero, hundred)
		amount = subtotal.Mul(pct).Div(hundred)
	case DiscountFixed:
		amount = decimal.Min(c.Value, subtotal)
	default:
		return zero
	}

	return clamp(amount.Round(2), zero, subtotal)
}

// ResolveShippingCost returns the cost of the method with the given id, or
// zero when no method is selected or the id is unknown.
func ResolveShippingCost(methodID string, methods []ShippingMethod) decimal.Decimal {
	if methodID == "" {
		return zero
	}
	for _, m := range methods {
		if m.ID == methodID {
			return floorAtZero(m.Cost).Round(2)
		}
	}
	return zero
}

// ComposeTotal returns subtotal - discount + shipping, floored at zero and
// rounded to 2 decimal places. With cent-rounded operands the rounding is
// exact, so the total always equals subtotal - discount + shipping.
func ComposeTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return floorAtZero(subtotal.Sub(discount).Add(shipping)).Round(2)
}

// ComputeBalance returns what is still owed after cashTendered is applied to
// total. Overpayment yields zero. The result is rounded to 2 decimal places.
func ComputeBalance(total, cashTendered decimal.Decimal) decimal.Decimal {
	return floorAtZero(total.Sub(cashTendered)).Round(2)
}

// Input gathers everything Calculate reads.
type Input struct {
	Items            []LineItem
	Coupon           *Coupon
	ShippingMethodID string
	ShippingMethods  []ShippingMethod

	// WithBalance enables cash reconciliation (purchases).
	WithBalance  bool
	CashTendered decimal.Decimal
}

// Calculate runs the full pipeline. The subtotal is computed first because
// fixed discounts are capped against it.
func Calculate(in Input) Breakdown {
	subtotal := ComputeSubtotal(in.Items)
	discount := ResolveDiscount(subtotal, in.Coupon)
	shipping := ResolveShippingCost(in.ShippingMethodID, in.ShippingMethods)
	total := ComposeTotal(subtotal, discount, shipping)

	b := Breakdown{
		Subtotal:     subtotal,
		Discount:     discount,
		ShippingCost: shipping,
		Total:        total,
		CashTendered: zero,
		Balance:      zero,
	}
	if in.WithBalance {
		b.CashTendered = floorAtZero(in.CashTendered).Round(2)
		b.Balance = ComputeBalance(total, b.CashTendered)
	}
	return b
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
