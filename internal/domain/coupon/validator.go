package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator checks a coupon code against an order subtotal and returns the
// coupon when it is applicable.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error)
}

// RepoValidator implements Validator against a Repository. An optional
// CodeFilter short-circuits lookups for codes that cannot exist.
type RepoValidator struct {
	repo   Repository
	filter *CodeFilter
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
// filter may be nil to disable pre-filtering.
func NewRepoValidator(repo Repository, filter *CodeFilter) *RepoValidator {
	return &RepoValidator{repo: repo, filter: filter, now: time.Now}
}

// Validate normalizes the code, looks it up, and checks expiry and the
// minimum order constraint against subtotal.
//
// Errors: ErrNotFound for unknown or inactive codes, ErrExpired past the
// expiry date, and *MinOrderError when subtotal is below the coupon's
// minimum order amount.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrNotFound
	}

	if v.filter != nil && !v.filter.MightContain(code) {
		return nil, ErrNotFound
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return nil, ErrNotFound
	}
	if v.now().After(c.ExpiryDate) {
		return nil, ErrExpired
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return nil, &MinOrderError{Minimum: c.MinOrderAmount}
	}

	return c, nil
}
