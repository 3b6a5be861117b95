package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/cart"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/pricing"
)

type cartLineResponse struct {
	Product      productResponse `json:"product"`
	Quantity     int             `json:"quantity"`
	Subtotal     float64         `json:"subtotal"`
	Cost         float64         `json:"cost"`
	BulkDiscount float64         `json:"bulk_discount,omitempty"`
}

type totalsResponse struct {
	Subtotal       float64 `json:"subtotal"`
	BulkDiscount   float64 `json:"bulk_discount"`
	CouponDiscount float64 `json:"coupon_discount"`
	DeliveryCharge float64 `json:"delivery_charge"`
	FinalTotal     float64 `json:"final_total"`
}

type cartResponse struct {
	Lines       []cartLineResponse `json:"lines"`
	Totals      totalsResponse     `json:"totals"`
	Coupon      *couponResponse    `json:"coupon,omitempty"`
	AutoApplied bool               `json:"auto_applied,omitempty"`
	CouponError string             `json:"coupon_error,omitempty"`
}

func toTotalsResponse(t pricing.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:       t.Subtotal.InexactFloat64(),
		BulkDiscount:   t.BulkDiscount.InexactFloat64(),
		CouponDiscount: t.CouponDiscount.InexactFloat64(),
		DeliveryCharge: t.DeliveryCharge.InexactFloat64(),
		FinalTotal:     t.FinalTotal.InexactFloat64(),
	}
}

func (h *Handler) toCartResponse(s *cart.Summary) cartResponse {
	resp := cartResponse{
		Lines:       make([]cartLineResponse, len(s.Lines)),
		Totals:      toTotalsResponse(s.Totals),
		AutoApplied: s.AutoApplied,
		CouponError: s.CouponError,
	}
	for i, l := range s.Lines {
		resp.Lines[i] = cartLineResponse{
			Product:      h.toProductResponse(l.Product),
			Quantity:     l.Quantity,
			Subtotal:     l.Breakdown.Subtotal.InexactFloat64(),
			Cost:         l.Breakdown.EffectiveCost.InexactFloat64(),
			BulkDiscount: l.Breakdown.BulkDiscount.InexactFloat64(),
		}
	}
	if s.Coupon != nil {
		cp := toCouponResponse(*s.Coupon)
		resp.Coupon = &cp
	}
	return resp
}

// GetCart returns the priced, reconciled view of the caller's cart.
func (h *Handler) GetCart(c echo.Context) error {
	summary, err := h.carts.Summarize(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toCartResponse(summary))
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(c echo.Context) error {
	h.carts.Clear(currentUser(c).ID)
	return c.NoContent(http.StatusNoContent)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
}

// AddCartItem increments a product's quantity in the cart by one.
func (h *Handler) AddCartItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil || req.ProductID == "" {
		return badRequest(c, "product_id is required")
	}

	if err := h.carts.Add(c.Request().Context(), currentUser(c).ID, req.ProductID); err != nil {
		return mapCartError(c, err)
	}
	return h.GetCart(c)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetCartItemQuantity sets the exact quantity for a cart line, inserting the
// line when the product is not in the cart yet. Zero or less removes it.
func (h *Handler) SetCartItemQuantity(c echo.Context) error {
	var req setQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := h.carts.SetQuantity(c.Request().Context(), currentUser(c).ID, c.Param("id"), req.Quantity); err != nil {
		return mapCartError(c, err)
	}
	return h.GetCart(c)
}

// RemoveCartItem drops a line from the cart regardless of quantity.
func (h *Handler) RemoveCartItem(c echo.Context) error {
	h.carts.Remove(currentUser(c).ID, c.Param("id"))
	return h.GetCart(c)
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

// ApplyCartCoupon validates a code against the caller's current subtotal and
// attaches it to the cart.
func (h *Handler) ApplyCartCoupon(c echo.Context) error {
	var req applyCouponRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return badRequest(c, "code is required")
	}

	if _, err := h.carts.ApplyCoupon(c.Request().Context(), currentUser(c).ID, req.Code); err != nil {
		return mapCouponError(c, err)
	}
	return h.GetCart(c)
}

// RemoveCartCoupon detaches the manual coupon; an auto-apply promotion may
// still kick in on the next summary.
func (h *Handler) RemoveCartCoupon(c echo.Context) error {
	h.carts.RemoveCoupon(currentUser(c).ID)
	return h.GetCart(c)
}

func mapCartError(c echo.Context, err error) error {
	var stockErr *cart.StockLimitError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return respondError(c, http.StatusNotFound, "product not found")
	case errors.As(err, &stockErr):
		return respondError(c, http.StatusUnprocessableEntity, stockErr.Error())
	default:
		return err
	}
}
