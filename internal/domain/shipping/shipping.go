// Package shipping holds flat-rate delivery options.
package shipping

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/florist/internal/domain/pricing"
)

// ErrUnknownMethod is returned when a draft selects a shipping method id that
// is not in the catalog.
var ErrUnknownMethod = errors.New("unknown shipping method")

// Repository provides the shipping method catalog.
type Repository interface {
	List(ctx context.Context) ([]pricing.ShippingMethod, error)
	Upsert(ctx context.Context, m pricing.ShippingMethod) error
}

// Find returns the method with the given id.
func Find(methods []pricing.ShippingMethod, id string) (pricing.ShippingMethod, bool) {
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return pricing.ShippingMethod{}, false
}
