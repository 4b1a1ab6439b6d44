// Package catalog loads the reference data a draft is priced against.
//
// Products, the selected coupon and the shipping methods are fetched
// concurrently; Load returns only after all three have completed.
package catalog

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/shipping"
)

// Query selects what Load fetches.
type Query struct {
	ProductIDs []string
	// CouponCode is resolved only when non-empty.
	CouponCode string
}

// Snapshot is the reference data for one pricing run.
type Snapshot struct {
	Products        map[string]product.Product
	Coupon          *pricing.Coupon
	ShippingMethods []pricing.ShippingMethod
}

// Product returns the product with the given id.
func (s *Snapshot) Product(id string) (product.Product, bool) {
	p, ok := s.Products[id]
	return p, ok
}

// Loader fetches snapshots from the domain repositories.
type Loader struct {
	products product.Repository
	coupons  coupon.Validator
	shipping shipping.Repository
}

// NewLoader creates a Loader.
func NewLoader(
	products product.Repository,
	coupons coupon.Validator,
	shipping shipping.Repository,
) *Loader {
	return &Loader{
		products: products,
		coupons:  coupons,
		shipping: shipping,
	}
}

// Load fetches products, the coupon and shipping methods in parallel. Missing
// products are not an error here; callers decide how to report them.
func (l *Loader) Load(ctx context.Context, q Query) (*Snapshot, error) {
	var (
		products []product.Product
		c        *pricing.Coupon
		methods  []pricing.ShippingMethod
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(q.ProductIDs) == 0 {
			return nil
		}
		ids := slices.Compact(slices.Sorted(slices.Values(q.ProductIDs)))
		var err error
		products, err = l.products.GetByIDs(gctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		return nil
	})
	g.Go(func() error {
		if q.CouponCode == "" {
			return nil
		}
		var err error
		c, err = l.coupons.Validate(gctx, q.CouponCode)
		if err != nil {
			return errors.Wrap(err, "validate coupon")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		methods, err = l.shipping.List(gctx)
		if err != nil {
			return errors.Wrap(err, "list shipping methods")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return &Snapshot{
		Products:        byID,
		Coupon:          c,
		ShippingMethods: methods,
	}, nil
}

// ShippingMethods returns the shipping method catalog.
func (l *Loader) ShippingMethods(ctx context.Context) ([]pricing.ShippingMethod, error) {
	methods, err := l.shipping.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping methods")
	}
	return methods, nil
}

// Coupons returns the coupons that can be applied right now.
func (l *Loader) Coupons(ctx context.Context) ([]coupon.Rule, error) {
	return l.coupons.ListValid(ctx)
}
