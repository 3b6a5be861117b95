package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/go-faster/errors"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/cart"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// PlaceRequest is the input to a placement attempt.
type PlaceRequest struct {
	User     *user.User
	Mobile   string
	Location Location
}

// Service orchestrates order placement and order management.
type Service struct {
	products catalog.Repository
	orders   Repository
	carts    *cart.Service
	engine   *pricing.Engine
	coupons  coupon.Validator

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service.
func NewService(
	products catalog.Repository,
	orders Repository,
	carts *cart.Service,
	engine *pricing.Engine,
	coupons coupon.Validator,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		carts:    carts,
		engine:   engine,
		coupons:  coupons,
		now:      time.Now,
		newID:    NewOrderID,
	}
}

// NewOrderID generates a human-readable order id like ORD-1756454400000-3f2a.
// The random suffix keeps ids unique under concurrent placements within the
// same millisecond.
func NewOrderID() string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b[:]))
}

// Place runs the checkout workflow:
//
//  1. Preconditions: authenticated user, non-empty cart, address, valid
//     10-digit mobile number. No mutation on failure.
//  2. Stock re-validation against freshly read products; any shortfall aborts
//     the whole placement.
//  3. Authoritative pricing with the cart's active coupon (manual or
//     auto-applied), snapshotted into the order.
//  4. Atomic commit: order insert + conditional stock decrements + mobile
//     number update in a single transaction (see Repository.Commit).
//  5. Post-commit: clear the cart and return the order.
//
// The conditional decrement inside Commit is what arbitrates competing
// checkouts for the last unit; the step-2 re-read only produces a friendlier
// early error.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if req.User == nil {
		return nil, ErrUnauthenticated
	}

	lines := s.carts.Snapshot(req.User.ID)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Location.Address == "" {
		return nil, ErrMissingAddress
	}
	if !mobilePattern.MatchString(req.Mobile) {
		return nil, ErrInvalidMobile
	}

	// Re-read current stock; never trust the snapshots taken at page load.
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.Product.ID
	}
	fresh, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	byID := make(map[string]catalog.Product, len(fresh))
	for _, p := range fresh {
		byID[p.ID] = p
	}

	items := make([]Item, len(lines))
	priceLines := make([]pricing.Line, len(lines))
	for i, l := range lines {
		p, ok := byID[l.Product.ID]
		if !ok {
			return nil, &ProductGoneError{ProductName: l.Product.Name}
		}
		if l.Quantity > p.Stock {
			return nil, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   l.Quantity,
			}
		}

		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.SellingPrice,
			Quantity:  l.Quantity,
		}
		priceLines[i] = pricing.Line{
			UnitPrice: p.SellingPrice,
			Quantity:  l.Quantity,
			BulkRule:  p.BulkRule,
		}
	}

	// Resolve the active coupon the same way the cart summary does: manual
	// code first, auto-apply rule otherwise.
	subtotal := pricing.Subtotal(priceLines)
	var active *coupon.Coupon
	if code := s.carts.CouponCode(req.User.ID); code != "" {
		c, err := s.coupons.Validate(ctx, code, subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "validate coupon")
		}
		active = c
	}
	active, _ = s.engine.AutoApply(ctx, subtotal, active, s.coupons)

	totals := s.engine.Compute(priceLines, active)

	o := &Order{
		ID:             s.newID(),
		UserID:         req.User.ID,
		Username:       req.User.Username,
		MobileNumber:   req.Mobile,
		Items:          items,
		Subtotal:       totals.Subtotal,
		DiscountTotal:  totals.BulkDiscount.Add(totals.CouponDiscount),
		DeliveryCharge: totals.DeliveryCharge,
		FinalTotal:     totals.FinalTotal,
		Status:         StatusPending,
		Location:       req.Location,
		CreatedAt:      s.now(),
	}
	if active != nil {
		o.CouponCode = active.Code
	}

	if err := s.orders.Commit(ctx, o); err != nil {
		return nil, err
	}

	s.carts.Clear(req.User.ID)
	return o, nil
}

// List returns the orders visible to the actor: admin and staff see every
// order, a regular user only their own.
func (s *Service) List(ctx context.Context, actor *user.User) ([]Order, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if user.RequireRole(actor, user.RoleAdmin, user.RoleStaff) == nil {
		return s.orders.ListAll(ctx)
	}
	return s.orders.ListByUser(ctx, actor.ID)
}

// UpdateStatus sets an order's status. Restricted to admin and staff; any of
// the four statuses may be set at any time.
func (s *Service) UpdateStatus(ctx context.Context, actor *user.User, orderID string, status Status) error {
	if err := user.RequireRole(actor, user.RoleAdmin, user.RoleStaff); err != nil {
		return err
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	return s.orders.UpdateStatus(ctx, orderID, status)
}
