package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/florist/internal/domain/pricing"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its valid time window.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponInactive is returned when a coupon was switched off in the back office.
	ErrCouponInactive = errors.New("coupon inactive")
	// ErrUnsupportedType is returned for rules whose discount type the
	// calculator does not know.
	ErrUnsupportedType = errors.New("unsupported discount type")
)

// Rule is a coupon as managed by the back office.
type Rule struct {
	Code         string
	DiscountType pricing.DiscountType
	Value        decimal.Decimal
	Description  string
	Active       bool
	ValidFrom    *time.Time
	ValidUntil   *time.Time
}

// Check reports why the rule cannot be applied at now, or nil if it can.
func (r *Rule) Check(now time.Time) error {
	if !r.Active {
		return ErrCouponInactive
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCouponExpired
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ErrCouponExpired
	}
	if !r.DiscountType.Valid() {
		return errors.Wrapf(ErrUnsupportedType, "%q", r.DiscountType)
	}
	return nil
}

// Pricing returns the calculator's view of the rule.
func (r *Rule) Pricing() *pricing.Coupon {
	return &pricing.Coupon{
		Code:         r.Code,
		DiscountType: r.DiscountType,
		Value:        r.Value,
	}
}

// Repository provides lookup and mutation of coupon rules.
type Repository interface {
	// FindByCode returns ErrInvalidCoupon when no rule matches code.
	FindByCode(ctx context.Context, code string) (*Rule, error)
	ListActive(ctx context.Context) ([]Rule, error)
	Upsert(ctx context.Context, r Rule) error
}
