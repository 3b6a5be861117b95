// Package coupon holds discount codes and their validation rules.
package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a coupon code does not exist or is inactive.
	ErrNotFound = errors.New("invalid coupon code")
	// ErrExpired is returned when a coupon is past its expiry date.
	ErrExpired = errors.New("coupon expired")
	// ErrCodeExists is returned when creating or renaming a coupon would
	// collide with an existing code.
	ErrCodeExists = errors.New("coupon code already exists")
)

// MinOrderError indicates the cart subtotal does not reach the coupon's
// minimum order amount. It carries the required minimum for display.
type MinOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinOrderError) Error() string {
	return fmt.Sprintf("order must be at least %s to use this coupon", e.Minimum.StringFixed(2))
}

// Coupon is a flat-amount discount code.
type Coupon struct {
	Code           string
	DiscountAmount decimal.Decimal
	MinOrderAmount decimal.Decimal
	ExpiryDate     time.Time
	Active         bool
}

// NormalizeCode canonicalizes a coupon code for lookup and storage.
// Codes are case-insensitive and stored upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository defines persistence operations for coupons. Lookup methods
// receive already-normalized codes.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	// Update replaces the coupon stored under originalCode. Renaming onto an
	// existing code fails with ErrCodeExists.
	Update(ctx context.Context, originalCode string, c *Coupon) error
	Delete(ctx context.Context, code string) error
}
