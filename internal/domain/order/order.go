// Package order holds the order record and the placement workflow.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order. It is a plain state holder,
// not a state machine: admin and staff may set any value at any time,
// including moving a delivered order back to pending.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusReady     Status = "Ready"
	StatusInTransit Status = "In Transit"
	StatusDelivered Status = "Delivered"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusReady, StatusInTransit, StatusDelivered:
		return Status(s), nil
	default:
		return "", errors.Errorf("unknown order status %q", s)
	}
}

// Item is a frozen line-item snapshot: name and unit price at time of
// purchase, immune to later catalog edits or deletions.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Location is the delivery destination: free-text address plus optional
// coordinates, persisted exactly as given.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
}

// Order is an immutable record of a completed checkout; only Status changes
// after creation.
type Order struct {
	ID           string
	UserID       uuid.UUID
	Username     string
	MobileNumber string
	Items        []Item

	Subtotal       decimal.Decimal
	DiscountTotal  decimal.Decimal
	DeliveryCharge decimal.Decimal
	FinalTotal     decimal.Decimal
	CouponCode     string

	Status    Status
	Location  Location
	CreatedAt time.Time
}

// Sentinel errors for placement preconditions.
var (
	ErrNotFound        = errors.New("order not found")
	ErrUnauthenticated = errors.New("sign in to place an order")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingAddress  = errors.New("delivery address is required")
	ErrInvalidMobile   = errors.New("a valid 10-digit mobile number is required")
)

// InsufficientStockError names the product that blocked a placement.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (%d requested, %d available)",
		e.ProductName, e.Requested, e.Available)
}

// ProductGoneError indicates a cart line whose product no longer exists.
type ProductGoneError struct {
	ProductName string
}

func (e *ProductGoneError) Error() string {
	return fmt.Sprintf("%s is no longer available", e.ProductName)
}

// Repository defines persistence for orders.
//
// Commit is the all-or-nothing placement transaction: insert the order,
// decrement stock for every item with a floor-safe conditional update, and
// save the customer's mobile number, all in one unit. Any failed decrement
// aborts the whole transaction with *InsufficientStockError, leaving neither
// an order nor a stock change behind.
type Repository interface {
	Commit(ctx context.Context, o *Order) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
