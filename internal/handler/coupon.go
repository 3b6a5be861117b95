package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
)

type couponResponse struct {
	Code           string    `json:"code"`
	DiscountAmount float64   `json:"discount_amount"`
	MinOrderAmount float64   `json:"min_order_amount"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Active         bool      `json:"active"`
}

type couponRequest struct {
	Code           string    `json:"code"`
	DiscountAmount float64   `json:"discount_amount"`
	MinOrderAmount float64   `json:"min_order_amount"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Active         *bool     `json:"active"`
}

func toCouponResponse(c coupon.Coupon) couponResponse {
	return couponResponse{
		Code:           c.Code,
		DiscountAmount: c.DiscountAmount.InexactFloat64(),
		MinOrderAmount: c.MinOrderAmount.InexactFloat64(),
		ExpiryDate:     c.ExpiryDate,
		Active:         c.Active,
	}
}

func (r *couponRequest) toDomain() *coupon.Coupon {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &coupon.Coupon{
		Code:           r.Code,
		DiscountAmount: decimal.NewFromFloat(r.DiscountAmount),
		MinOrderAmount: decimal.NewFromFloat(r.MinOrderAmount),
		ExpiryDate:     r.ExpiryDate,
		Active:         active,
	}
}

type validateCouponRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
}

type validateCouponResponse struct {
	Valid  bool           `json:"valid"`
	Coupon couponResponse `json:"coupon"`
}

// ValidateCoupon checks a code against the given subtotal without attaching
// it to any cart.
func (h *Handler) ValidateCoupon(c echo.Context) error {
	var req validateCouponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	found, err := h.validator.Validate(c.Request().Context(), req.Code, decimal.NewFromFloat(req.Subtotal))
	if err != nil {
		return mapCouponError(c, err)
	}
	return c.JSON(http.StatusOK, validateCouponResponse{Valid: true, Coupon: toCouponResponse(*found)})
}

// ListCoupons returns every coupon, active or not. Admin only.
func (h *Handler) ListCoupons(c echo.Context) error {
	coupons, err := h.coupons.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]couponResponse, len(coupons))
	for i, cp := range coupons {
		resp[i] = toCouponResponse(cp)
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateCoupon adds a coupon. Admin only.
func (h *Handler) CreateCoupon(c echo.Context) error {
	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	cp := req.toDomain()
	if err := h.coupons.Create(c.Request().Context(), cp); err != nil {
		return mapCouponAdminError(c, err)
	}
	return c.JSON(http.StatusCreated, toCouponResponse(*cp))
}

// UpdateCoupon replaces the coupon stored under the path code. Admin only.
func (h *Handler) UpdateCoupon(c echo.Context) error {
	var req couponRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Code == "" {
		req.Code = c.Param("code")
	}

	cp := req.toDomain()
	if err := h.coupons.Update(c.Request().Context(), c.Param("code"), cp); err != nil {
		return mapCouponAdminError(c, err)
	}
	return c.JSON(http.StatusOK, toCouponResponse(*cp))
}

// DeleteCoupon removes a coupon. Admin only.
func (h *Handler) DeleteCoupon(c echo.Context) error {
	if err := h.coupons.Delete(c.Request().Context(), c.Param("code")); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "coupon not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// mapCouponError converts validation failures into client errors with the
// exact reason, so the storefront can surface it next to the coupon field.
func mapCouponError(c echo.Context, err error) error {
	var minErr *coupon.MinOrderError
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return respondError(c, http.StatusUnprocessableEntity, "invalid coupon code")
	case errors.Is(err, coupon.ErrExpired):
		return respondError(c, http.StatusUnprocessableEntity, "coupon has expired")
	case errors.As(err, &minErr):
		return respondError(c, http.StatusUnprocessableEntity, minErr.Error())
	default:
		return err
	}
}

func mapCouponAdminError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, coupon.ErrCodeExists):
		return respondError(c, http.StatusConflict, "coupon code already exists")
	case errors.Is(err, coupon.ErrNotFound):
		return respondError(c, http.StatusNotFound, "coupon not found")
	case errors.Is(err, coupon.ErrEmptyCode),
		errors.Is(err, coupon.ErrInvalidDiscount),
		errors.Is(err, coupon.ErrInvalidMinimum),
		errors.Is(err, coupon.ErrMissingExpiry):
		return badRequest(c, err.Error())
	default:
		return err
	}
}
