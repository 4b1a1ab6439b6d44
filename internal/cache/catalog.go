package cache

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/florist/internal/codec"
	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
	"github.com/xenking/florist/internal/domain/shipping"
)

const (
	keyShipping = "shipping"
	keyCoupons  = "coupons"
)

func couponKey(code string) string {
	return "coupon:" + strings.ToUpper(code)
}

// ShippingRepository caches the shipping method list.
type ShippingRepository struct {
	next  shipping.Repository
	cache *Cache
}

var _ shipping.Repository = (*ShippingRepository)(nil)

// NewShippingRepository wraps next with c.
func NewShippingRepository(next shipping.Repository, c *Cache) *ShippingRepository {
	return &ShippingRepository{next: next, cache: c}
}

// List returns the cached methods, loading them from next on a miss.
func (r *ShippingRepository) List(ctx context.Context) ([]pricing.ShippingMethod, error) {
	var methods []pricing.ShippingMethod
	if r.cache.get(ctx, keyShipping, func(d *jx.Decoder) (err error) {
		methods, err = codec.DecodeShippingMethods(d)
		return err
	}) {
		return methods, nil
	}

	methods, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.set(ctx, keyShipping, codec.Marshal(func(e *jx.Encoder) {
		codec.ShippingMethods(e, methods)
	}))
	return methods, nil
}

// Upsert writes through to next and drops the cached list.
func (r *ShippingRepository) Upsert(ctx context.Context, m pricing.ShippingMethod) error {
	if err := r.next.Upsert(ctx, m); err != nil {
		return err
	}
	return r.cache.Invalidate(ctx, keyShipping)
}

// CouponRepository caches coupon lookups by code and the active list.
// Unknown codes are not cached.
type CouponRepository struct {
	next  coupon.Repository
	cache *Cache
}

var _ coupon.Repository = (*CouponRepository)(nil)

// NewCouponRepository wraps next with c.
func NewCouponRepository(next coupon.Repository, c *Cache) *CouponRepository {
	return &CouponRepository{next: next, cache: c}
}

// FindByCode returns the cached rule for code, loading it from next on a miss.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	key := couponKey(code)
	var rule coupon.Rule
	if r.cache.get(ctx, key, func(d *jx.Decoder) (err error) {
		rule, err = codec.DecodeCouponRule(d)
		return err
	}) {
		return &rule, nil
	}

	found, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.cache.set(ctx, key, codec.Marshal(func(e *jx.Encoder) {
		codec.CouponRule(e, *found)
	}))
	return found, nil
}

// ListActive returns the cached active rules, loading them from next on a miss.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Rule, error) {
	var rules []coupon.Rule
	if r.cache.get(ctx, keyCoupons, func(d *jx.Decoder) (err error) {
		rules, err = codec.DecodeCouponRules(d)
		return err
	}) {
		return rules, nil
	}

	rules, err := r.next.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.set(ctx, keyCoupons, codec.Marshal(func(e *jx.Encoder) {
		codec.CouponRules(e, rules)
	}))
	return rules, nil
}

// Upsert writes through to next and drops the entries the rule appears in.
func (r *CouponRepository) Upsert(ctx context.Context, rule coupon.Rule) error {
	if err := r.next.Upsert(ctx, rule); err != nil {
		return err
	}
	if err := r.cache.Invalidate(ctx, couponKey(rule.Code), keyCoupons); err != nil {
		return errors.Wrapf(err, "coupon %q", rule.Code)
	}
	return nil
}

// InvalidateCatalog drops the cached shipping and coupon lists along with
// the entries of the given coupon codes.
func (c *Cache) InvalidateCatalog(ctx context.Context, couponCodes ...string) error {
	keys := make([]string, 0, len(couponCodes)+2)
	keys = append(keys, keyShipping, keyCoupons)
	for _, code := range couponCodes {
		keys = append(keys, couponKey(code))
	}
	return c.Invalidate(ctx, keys...)
}
