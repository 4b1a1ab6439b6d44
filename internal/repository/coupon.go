package repository

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/pricing"
)

const (
	couponColumns = `code, discount_type, value, description, active, valid_from, valid_until`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE UPPER(code) = UPPER($1)`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE active = TRUE ORDER BY code`

	upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, description, active, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	db DB
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(db DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// FindByCode looks up a coupon by its code (case-insensitive), active or not.
// Returns coupon.ErrInvalidCoupon when no coupon matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.db.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}

// ListActive returns every coupon switched on in the back office, including
// ones outside their validity window.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.db.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	rules, err := pgx.CollectRows(rows, scanCouponRule)
	if err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	return rules, nil
}

// Upsert creates or replaces a coupon. Codes are stored upper-case.
func (r *CouponRepository) Upsert(ctx context.Context, rule coupon.Rule) error {
	code := strings.ToUpper(rule.Code)
	if _, err := r.db.Exec(ctx, upsertCouponSQL,
		code, string(rule.DiscountType), rule.Value, rule.Description,
		rule.Active, rule.ValidFrom, rule.ValidUntil,
	); err != nil {
		return errors.Wrapf(err, "upsert coupon %q", code)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		validFrom    *time.Time
		validUntil   *time.Time
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value, &rule.Description,
		&rule.Active, &validFrom, &validUntil,
	)
	rule.DiscountType = pricing.DiscountType(discountType)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
