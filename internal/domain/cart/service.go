package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
)

// SummaryLine is a priced cart line for display.
type SummaryLine struct {
	Product   catalog.Product
	Quantity  int
	Breakdown pricing.LineBreakdown
}

// Summary is the fully priced view of a cart: reconciled lines, the active
// coupon (manual or auto-applied), and the totals.
type Summary struct {
	Lines  []SummaryLine
	Totals pricing.Totals

	// Coupon is the active coupon, nil when none applies.
	Coupon *coupon.Coupon
	// AutoApplied reports whether Coupon was applied by the promotion rule
	// rather than the user.
	AutoApplied bool
	// CouponError carries the human-readable reason a manually applied code
	// is not currently contributing (e.g. the subtotal dropped below its
	// minimum). Empty when the coupon applied cleanly or none was set.
	CouponError string
}

// Service manages the carts of all signed-in users. Carts live in process
// memory; the persisted source of truth for everything a cart references is
// the catalog, which is re-read before every mutation so stale stock is never
// trusted.
type Service struct {
	products catalog.Repository
	engine   *pricing.Engine
	coupons  coupon.Validator

	mu    sync.Mutex
	carts map[uuid.UUID]*cart
}

// NewService creates a cart Service.
func NewService(products catalog.Repository, engine *pricing.Engine, coupons coupon.Validator) *Service {
	return &Service{
		products: products,
		engine:   engine,
		coupons:  coupons,
		carts:    make(map[uuid.UUID]*cart),
	}
}

func (s *Service) cartFor(userID uuid.UUID) *cart {
	c, ok := s.carts[userID]
	if !ok {
		c = newCart()
		s.carts[userID] = c
	}
	return c
}

// Add puts one unit of the product into the user's cart, incrementing the
// quantity when the product is already present. Adding past the product's
// current stock fails with *StockLimitError.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, productID string) error {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "fetch product")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(userID)
	qty := 1
	if l, ok := c.get(productID); ok {
		qty = l.Quantity + 1
	}
	if qty > p.Stock {
		return &StockLimitError{ProductName: p.Name, Available: p.Stock}
	}

	c.put(*p, qty)
	return nil
}

// SetQuantity sets the line quantity outright, inserting the line when the
// product is not in the cart yet (the cart is keyed by product, so setting a
// quantity is an upsert). A quantity of zero or less removes the line.
// Quantities above the product's current stock are rejected with
// *StockLimitError, leaving the line unchanged.
func (s *Service) SetQuantity(ctx context.Context, userID uuid.UUID, productID string, qty int) error {
	if qty <= 0 {
		s.Remove(userID, productID)
		return nil
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "fetch product")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty > p.Stock {
		return &StockLimitError{ProductName: p.Name, Available: p.Stock}
	}

	s.cartFor(userID).put(*p, qty)
	return nil
}

// Remove deletes the line unconditionally.
func (s *Service) Remove(userID uuid.UUID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[userID]; ok {
		c.remove(productID)
	}
}

// Clear empties the cart and drops any applied coupon. Invoked on logout and
// after successful order placement.
func (s *Service) Clear(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// ApplyCoupon validates the code against the cart's current subtotal and
// stores it as the manually applied coupon. A manual coupon overrides any
// auto-applied one.
func (s *Service) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*coupon.Coupon, error) {
	lines, err := s.freshLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	c, err := s.coupons.Validate(ctx, code, pricing.Subtotal(lines))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cartFor(userID).couponCode = c.Code
	s.mu.Unlock()

	return c, nil
}

// RemoveCoupon clears the manually applied coupon.
func (s *Service) RemoveCoupon(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[userID]; ok {
		c.couponCode = ""
	}
}

// Snapshot returns the cart lines in display order without refreshing them.
func (s *Service) Snapshot(userID uuid.UUID) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil
	}
	return c.snapshot()
}

// CouponCode returns the manually applied coupon code, or empty.
func (s *Service) CouponCode(userID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[userID]; ok {
		return c.couponCode
	}
	return ""
}

// Summarize re-reads every product in the cart, reconciles lines against
// current catalog state (deleted products drop out, quantities clamp down to
// available stock), resolves the active coupon, and prices the result.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	lines, err := s.reconcile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Nothing to price. The delivery tier only exists once there is at
	// least one line; an empty cart owes nothing.
	if len(lines) == 0 {
		return &Summary{}, nil
	}

	priceLines := make([]pricing.Line, len(lines))
	for i, l := range lines {
		priceLines[i] = pricing.Line{
			UnitPrice: l.Product.SellingPrice,
			Quantity:  l.Quantity,
			BulkRule:  l.Product.BulkRule,
		}
	}
	subtotal := pricing.Subtotal(priceLines)

	summary := &Summary{Lines: make([]SummaryLine, len(lines))}
	for i, l := range lines {
		summary.Lines[i] = SummaryLine{
			Product:   l.Product,
			Quantity:  l.Quantity,
			Breakdown: pricing.BreakdownLine(priceLines[i]),
		}
	}

	// Manual coupon first; it is re-validated against the current subtotal
	// every time, so a cart shrinking below the coupon's minimum surfaces a
	// reason instead of keeping a stale discount.
	var active *coupon.Coupon
	if code := s.CouponCode(userID); code != "" {
		c, err := s.coupons.Validate(ctx, code, subtotal)
		if err != nil {
			summary.CouponError = err.Error()
		} else {
			active = c
		}
	}

	active, summary.AutoApplied = s.engine.AutoApply(ctx, subtotal, active, s.coupons)
	summary.Coupon = active
	summary.Totals = s.engine.Compute(priceLines, active)

	return summary, nil
}

// freshLines returns the cart's lines with product state re-read from the
// catalog, without mutating the cart.
func (s *Service) freshLines(ctx context.Context, userID uuid.UUID) ([]pricing.Line, error) {
	lines := s.Snapshot(userID)
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.Product.ID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.Product.ID]
		if !ok {
			continue
		}
		out = append(out, pricing.Line{UnitPrice: p.SellingPrice, Quantity: l.Quantity, BulkRule: p.BulkRule})
	}
	return out, nil
}

// reconcile refreshes product snapshots and enforces the stock invariant on
// the stored cart: deleted products are dropped, quantities above current
// stock are clamped, and lines at zero stock are removed.
func (s *Service) reconcile(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	lines := s.Snapshot(userID)
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.Product.ID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartFor(userID)
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.Product.ID]
		if !ok || p.Stock == 0 {
			c.remove(l.Product.ID)
			continue
		}
		qty := l.Quantity
		if qty > p.Stock {
			qty = p.Stock
		}
		c.put(p, qty)
		out = append(out, Line{Product: p, Quantity: qty})
	}
	return out, nil
}
