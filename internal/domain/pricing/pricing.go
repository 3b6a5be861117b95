// Package pricing computes cart valuations: bulk-rule unit pricing, coupon
// discounts, tiered delivery charges, and the final payable total.
//
// Everything here is pure arithmetic over decimal values. Catalog and coupon
// state arrives through the inputs; the engine performs no I/O of its own.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
)

// Line is one cart line as seen by the engine: a unit price, a quantity, and
// the product's bulk rule if it has one.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	BulkRule  *catalog.BulkRule
}

// LineBreakdown is the per-line result of bulk pricing.
type LineBreakdown struct {
	// Subtotal is UnitPrice * Quantity before any discount.
	Subtotal decimal.Decimal
	// EffectiveCost is what the line actually costs after bundle pricing.
	EffectiveCost decimal.Decimal
	// BulkDiscount is Subtotal - EffectiveCost. Negative when the bulk rule
	// is mispriced above the per-unit total; it is carried through as-is.
	BulkDiscount decimal.Decimal
}

// Totals is the complete valuation of a cart.
type Totals struct {
	Subtotal       decimal.Decimal
	BulkDiscount   decimal.Decimal
	CouponDiscount decimal.Decimal
	DeliveryCharge decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Tariff holds the delivery tiers and the auto-apply promotion rule.
// Amounts are in the store's single configured currency.
type Tariff struct {
	// FreeDeliveryAbove: net amounts strictly above this ship free.
	FreeDeliveryAbove decimal.Decimal
	// ReducedDeliveryAt: net amounts at or above this (and not above
	// FreeDeliveryAbove) pay ReducedCharge; below it, BaseCharge.
	ReducedDeliveryAt decimal.Decimal
	ReducedCharge     decimal.Decimal
	BaseCharge        decimal.Decimal

	// AutoApplyCode is the designated promotional coupon probed once the
	// subtotal reaches AutoApplyAt. Empty disables auto-apply.
	AutoApplyCode string
	AutoApplyAt   decimal.Decimal
}

// DefaultTariff returns the storefront's standard tiers: free delivery above
// 3000, 25 between 1000 and 3000 inclusive, 50 below 1000, and the AUTO50
// promotion from 2000 up.
func DefaultTariff() Tariff {
	return Tariff{
		FreeDeliveryAbove: decimal.NewFromInt(3000),
		ReducedDeliveryAt: decimal.NewFromInt(1000),
		ReducedCharge:     decimal.NewFromInt(25),
		BaseCharge:        decimal.NewFromInt(50),
		AutoApplyCode:     "AUTO50",
		AutoApplyAt:       decimal.NewFromInt(2000),
	}
}

// Engine values carts against a Tariff.
type Engine struct {
	tariff Tariff
}

// NewEngine creates an Engine with the given tariff.
func NewEngine(tariff Tariff) *Engine {
	return &Engine{tariff: tariff}
}

// Tariff returns the engine's tariff.
func (e *Engine) Tariff() Tariff {
	return e.tariff
}

// BreakdownLine prices a single line under its bulk rule. Without a rule the
// effective cost equals the subtotal and the discount is zero.
func BreakdownLine(l Line) LineBreakdown {
	qty := decimal.NewFromInt(int64(l.Quantity))
	sub := l.UnitPrice.Mul(qty)

	if l.BulkRule == nil || l.BulkRule.ThresholdQty <= 0 {
		return LineBreakdown{Subtotal: sub, EffectiveCost: sub, BulkDiscount: decimal.Zero}
	}

	bundles := l.Quantity / l.BulkRule.ThresholdQty
	remainder := l.Quantity % l.BulkRule.ThresholdQty

	cost := l.BulkRule.BundlePrice.Mul(decimal.NewFromInt(int64(bundles))).
		Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(remainder))))

	return LineBreakdown{
		Subtotal:      sub,
		EffectiveCost: cost,
		BulkDiscount:  sub.Sub(cost),
	}
}

// Subtotal returns the plain sum of UnitPrice * Quantity across lines,
// before any discount. This is the basis for coupon eligibility checks and
// the auto-apply threshold.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// DeliveryCharge returns the delivery fee tier for the given net amount
// (subtotal minus bulk discount, before any coupon).
func (e *Engine) DeliveryCharge(net decimal.Decimal) decimal.Decimal {
	switch {
	case net.GreaterThan(e.tariff.FreeDeliveryAbove):
		return decimal.Zero
	case net.GreaterThanOrEqual(e.tariff.ReducedDeliveryAt):
		return e.tariff.ReducedCharge
	default:
		return e.tariff.BaseCharge
	}
}

// Compute values the cart. c is the active, already-validated coupon, or nil.
//
// The final total is clamped at zero: a coupon larger than the net amount
// never produces a negative payable. Per-line bulk discounts are NOT clamped,
// so a mispriced bulk rule can reduce the aggregate discount.
func (e *Engine) Compute(lines []Line, c *coupon.Coupon) Totals {
	subtotal := decimal.Zero
	bulkDiscount := decimal.Zero
	for _, l := range lines {
		b := BreakdownLine(l)
		subtotal = subtotal.Add(b.Subtotal)
		bulkDiscount = bulkDiscount.Add(b.BulkDiscount)
	}

	net := subtotal.Sub(bulkDiscount)
	delivery := e.DeliveryCharge(net)

	couponDiscount := decimal.Zero
	if c != nil {
		couponDiscount = c.DiscountAmount
	}

	final := net.Sub(couponDiscount).Add(delivery)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal.Round(2),
		BulkDiscount:   bulkDiscount.Round(2),
		CouponDiscount: couponDiscount.Round(2),
		DeliveryCharge: delivery.Round(2),
		FinalTotal:     final.Round(2),
	}
}

// AutoApply resolves the active coupon for a cart. A manually applied coupon
// always wins. Otherwise, once subtotal reaches the tariff's threshold, the
// designated promotional code is validated silently; a cart dropping back
// below the threshold loses it again simply by this rule re-evaluating.
//
// The returned bool reports whether the coupon was auto-applied. Validation
// failures of the promotional code are swallowed: auto-apply is best-effort.
func (e *Engine) AutoApply(ctx context.Context, subtotal decimal.Decimal, manual *coupon.Coupon, v coupon.Validator) (*coupon.Coupon, bool) {
	if manual != nil {
		return manual, false
	}
	if e.tariff.AutoApplyCode == "" || subtotal.LessThan(e.tariff.AutoApplyAt) {
		return nil, false
	}

	c, err := v.Validate(ctx, e.tariff.AutoApplyCode, subtotal)
	if err != nil {
		return nil, false
	}
	return c, true
}
