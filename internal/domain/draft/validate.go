package draft

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/pricing"
)

// ErrEmptyItems is returned when a draft is submitted without line items.
var ErrEmptyItems = errors.New("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	Index     int
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InvalidPriceError indicates a line item has a negative unit price or one
// finer than a cent.
type InvalidPriceError struct {
	Index     int
	ProductID string
	Price     decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	if !e.Price.IsNegative() {
		return fmt.Sprintf("unit price must have at most 2 decimal places for product %s", e.ProductID)
	}
	return fmt.Sprintf("unit price must not be negative for product %s", e.ProductID)
}

// IsCents reports whether d has no precision below a cent.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// ValidateItems checks items before they are priced for submission. The
// calculator itself accepts any input; this is the gate in front of it.
func ValidateItems(items []pricing.LineItem) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{Index: i, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitPrice.IsNegative() || !IsCents(item.UnitPrice) {
			return &InvalidPriceError{Index: i, ProductID: item.ProductID, Price: item.UnitPrice}
		}
	}
	return nil
}
