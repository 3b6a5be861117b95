// Package catalog holds the product catalog domain model.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned by stock decrements that would drive the
// stock count below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// BulkRule prices a threshold quantity of a product as a fixed-price bundle.
// Quantities below the threshold pay the per-unit selling price.
type BulkRule struct {
	// ThresholdQty is the number of units that form one bundle. Always > 0.
	ThresholdQty int
	// BundlePrice is the price paid for one full bundle. The rule is assumed
	// to undercut ThresholdQty * SellingPrice, but that is not enforced: a
	// rule that doesn't yields a negative discount downstream.
	BundlePrice decimal.Decimal
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID           string
	Name         string
	SellingPrice decimal.Decimal
	// OriginalPrice is the strike-through list price. Nil when the product
	// has no markdown. Display-only, never used in pricing.
	OriginalPrice *decimal.Decimal
	Unit          string
	Stock         int
	Category      string
	ImageURL      string
	BulkRule      *BulkRule
}

// Repository defines persistence operations for the product catalog.
//
// AdjustStock must be implemented as an atomic, floor-safe operation at the
// datastore: a decrement that would leave stock negative fails with
// ErrInsufficientStock instead of partially applying. Competing checkouts for
// the last unit of a product rely on this.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) error
}
