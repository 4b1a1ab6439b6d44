package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/florist/internal/domain/pricing"
)

// Validator resolves a coupon code into something the calculator can apply.
type Validator interface {
	Validate(ctx context.Context, code string) (*pricing.Coupon, error)
	ListValid(ctx context.Context) ([]Rule, error)
}

// RepoValidator implements Validator on top of a Repository. It is the only
// place inactive and expired coupons are filtered out.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for code and checks it can be applied now.
func (v *RepoValidator) Validate(ctx context.Context, code string) (*pricing.Coupon, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := rule.Check(v.now()); err != nil {
		return nil, err
	}
	return rule.Pricing(), nil
}

// ListValid returns the active rules that can be applied now.
func (v *RepoValidator) ListValid(ctx context.Context) ([]Rule, error) {
	rules, err := v.repo.ListActive(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	now := v.now()
	valid := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Check(now) == nil {
			valid = append(valid, r)
		}
	}
	return valid, nil
}
