package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/order"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

type orderItemResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

type locationDTO struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	Username       string              `json:"username"`
	MobileNumber   string              `json:"mobile_number"`
	Items          []orderItemResponse `json:"items"`
	Subtotal       float64             `json:"subtotal"`
	DiscountTotal  float64             `json:"discount_total"`
	DeliveryCharge float64             `json:"delivery_charge"`
	FinalTotal     float64             `json:"final_total"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	Status         string              `json:"status"`
	Location       locationDTO         `json:"location"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:             o.ID,
		Username:       o.Username,
		MobileNumber:   o.MobileNumber,
		Items:          items,
		Subtotal:       o.Subtotal.InexactFloat64(),
		DiscountTotal:  o.DiscountTotal.InexactFloat64(),
		DeliveryCharge: o.DeliveryCharge.InexactFloat64(),
		FinalTotal:     o.FinalTotal.InexactFloat64(),
		CouponCode:     o.CouponCode,
		Status:         string(o.Status),
		Location: locationDTO{
			Lat:     o.Location.Lat,
			Lng:     o.Location.Lng,
			Address: o.Location.Address,
		},
		CreatedAt: o.CreatedAt,
	}
}

type placeOrderRequest struct {
	Mobile   string      `json:"mobile"`
	Location locationDTO `json:"location"`
}

// PlaceOrder runs the checkout workflow against the caller's cart.
func (h *Handler) PlaceOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	o, err := h.orders.Place(c.Request().Context(), order.PlaceRequest{
		User:   currentUser(c),
		Mobile: req.Mobile,
		Location: order.Location{
			Lat:     req.Location.Lat,
			Lng:     req.Location.Lng,
			Address: req.Location.Address,
		},
	})
	if err != nil {
		return mapOrderError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the caller's orders, or every order for admin and
// staff.
func (h *Handler) ListOrders(c echo.Context) error {
	orders, err := h.orders.List(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	return c.JSON(http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus sets an order's fulfilment status. Admin and staff only.
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		return badRequest(c, "unknown order status")
	}

	if err := h.orders.UpdateStatus(c.Request().Context(), currentUser(c), c.Param("id"), status); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "order not found")
		}
		if errors.Is(err, user.ErrForbidden) {
			return respondError(c, http.StatusForbidden, "insufficient permissions")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// mapOrderError converts placement failures into client errors, keeping the
// exact stock shortfall visible to the storefront.
func mapOrderError(c echo.Context, err error) error {
	var (
		stockErr *order.InsufficientStockError
		goneErr  *order.ProductGoneError
	)
	switch {
	case errors.Is(err, order.ErrUnauthenticated):
		return respondError(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, order.ErrEmptyCart):
		return badRequest(c, "cart is empty")
	case errors.Is(err, order.ErrMissingAddress):
		return badRequest(c, "delivery address is required")
	case errors.Is(err, order.ErrInvalidMobile):
		return badRequest(c, "a 10-digit mobile number is required")
	case errors.As(err, &stockErr):
		return respondError(c, http.StatusUnprocessableEntity, stockErr.Error())
	case errors.As(err, &goneErr):
		return respondError(c, http.StatusUnprocessableEntity, goneErr.Error())
	default:
		return mapCouponError(c, err)
	}
}
