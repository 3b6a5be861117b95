package coupon

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for coupon administration input.
var (
	ErrEmptyCode       = errors.New("coupon code is required")
	ErrInvalidDiscount = errors.New("discount amount must be greater than 0")
	ErrInvalidMinimum  = errors.New("minimum order amount must not be negative")
	ErrMissingExpiry   = errors.New("expiry date is required")
)

// Service handles admin management of coupons and keeps the shared CodeFilter
// in step with the repository.
type Service struct {
	repo   Repository
	filter *CodeFilter
}

// NewService creates a coupon admin Service. filter may be nil.
func NewService(repo Repository, filter *CodeFilter) *Service {
	return &Service{repo: repo, filter: filter}
}

// List returns all coupons, including inactive ones.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.repo.List(ctx)
}

// ListActive returns coupons currently flagged active.
func (s *Service) ListActive(ctx context.Context) ([]Coupon, error) {
	return s.repo.ListActive(ctx)
}

// Create validates and persists a new coupon. Duplicate codes fail with
// ErrCodeExists.
func (s *Service) Create(ctx context.Context, c *Coupon) error {
	if err := validate(c); err != nil {
		return err
	}

	c.Code = NormalizeCode(c.Code)
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	if s.filter != nil {
		s.filter.Add(c.Code)
	}
	return nil
}

// Update replaces the coupon stored under originalCode, allowing the code
// itself to change as long as it doesn't collide with another coupon.
func (s *Service) Update(ctx context.Context, originalCode string, c *Coupon) error {
	if err := validate(c); err != nil {
		return err
	}

	c.Code = NormalizeCode(c.Code)
	if err := s.repo.Update(ctx, NormalizeCode(originalCode), c); err != nil {
		return err
	}
	if s.filter != nil {
		s.filter.Add(c.Code)
	}
	return nil
}

// Delete removes a coupon by code. The CodeFilter keeps a stale positive for
// the deleted code until the next Reload; lookups fall through to the
// repository and miss.
func (s *Service) Delete(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, NormalizeCode(code))
}

// ReloadFilter rebuilds the CodeFilter from the repository.
func (s *Service) ReloadFilter(ctx context.Context) error {
	if s.filter == nil {
		return nil
	}

	coupons, err := s.repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list coupons")
	}

	codes := make([]string, len(coupons))
	for i, c := range coupons {
		codes[i] = c.Code
	}
	s.filter.Reload(codes)
	return nil
}

func validate(c *Coupon) error {
	if NormalizeCode(c.Code) == "" {
		return ErrEmptyCode
	}
	if !c.DiscountAmount.IsPositive() {
		return ErrInvalidDiscount
	}
	if c.MinOrderAmount.IsNegative() {
		return ErrInvalidMinimum
	}
	if c.ExpiryDate.IsZero() {
		return ErrMissingExpiry
	}
	return nil
}
