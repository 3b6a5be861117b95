// Package handler exposes the storefront over HTTP using echo, delegating
// all business logic to the domain services.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/cart"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/coupon"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/order"
	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
	"github.com/FitnessFreakCoder/freshmart/internal/token"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	users     *user.Service
	tokens    *token.Issuer
	products  catalog.Repository
	coupons   *coupon.Service
	validator coupon.Validator
	carts     *cart.Service
	orders    *order.Service

	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	users *user.Service,
	tokens *token.Issuer,
	products catalog.Repository,
	coupons *coupon.Service,
	validator coupon.Validator,
	carts *cart.Service,
	orders *order.Service,
) *Handler {
	return &Handler{
		users:        users,
		tokens:       tokens,
		products:     products,
		coupons:      coupons,
		validator:    validator,
		carts:        carts,
		orders:       orders,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts all API routes on e.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/auth/register", h.RegisterUser)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.Me, h.RequireAuth)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products", h.CreateProduct, h.RequireAuth, h.RequireRole(user.RoleAdmin))
	api.PUT("/products/:id", h.UpdateProduct, h.RequireAuth, h.RequireRole(user.RoleAdmin))
	api.DELETE("/products/:id", h.DeleteProduct, h.RequireAuth, h.RequireRole(user.RoleAdmin))

	api.POST("/coupons/validate", h.ValidateCoupon)
	api.GET("/coupons", h.ListCoupons, h.RequireAuth, h.RequireRole(user.RoleAdmin))
	api.POST("/coupons", h.CreateCoupon, h.RequireAuth, h.RequireRole(user.RoleAdmin))
	api.PUT("/coupons/:code", h.UpdateCoupon, h.RequireAuth, h.RequireRole(user.RoleAdmin))
	api.DELETE("/coupons/:code", h.DeleteCoupon, h.RequireAuth, h.RequireRole(user.RoleAdmin))

	carts := api.Group("/cart", h.RequireAuth)
	carts.GET("", h.GetCart)
	carts.DELETE("", h.ClearCart)
	carts.POST("/items", h.AddCartItem)
	carts.PUT("/items/:id", h.SetCartItemQuantity)
	carts.DELETE("/items/:id", h.RemoveCartItem)
	carts.POST("/coupon", h.ApplyCartCoupon)
	carts.DELETE("/coupon", h.RemoveCartCoupon)

	api.POST("/orders", h.PlaceOrder, h.RequireAuth)
	api.GET("/orders", h.ListOrders, h.RequireAuth)
	api.PATCH("/orders/:id/status", h.UpdateOrderStatus, h.RequireAuth, h.RequireRole(user.RoleAdmin, user.RoleStaff))
}

// errorResponse is the uniform error body for every endpoint.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Code: status, Message: message})
}

func badRequest(c echo.Context, message string) error {
	return respondError(c, http.StatusBadRequest, message)
}
