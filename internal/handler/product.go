package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/catalog"
)

type bulkRuleDTO struct {
	ThresholdQty int     `json:"threshold_qty"`
	BundlePrice  float64 `json:"bundle_price"`
}

type productResponse struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	SellingPrice  float64      `json:"selling_price"`
	OriginalPrice *float64     `json:"original_price,omitempty"`
	Unit          string       `json:"unit,omitempty"`
	Stock         int          `json:"stock"`
	Category      string       `json:"category,omitempty"`
	ImageURL      string       `json:"image_url,omitempty"`
	BulkRule      *bulkRuleDTO `json:"bulk_rule,omitempty"`
}

type productRequest struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	SellingPrice  float64      `json:"selling_price"`
	OriginalPrice *float64     `json:"original_price"`
	Unit          string       `json:"unit"`
	Stock         int          `json:"stock"`
	Category      string       `json:"category"`
	ImageURL      string       `json:"image_url"`
	BulkRule      *bulkRuleDTO `json:"bulk_rule"`
}

func (h *Handler) toProductResponse(p catalog.Product) productResponse {
	resp := productResponse{
		ID:           p.ID,
		Name:         p.Name,
		SellingPrice: p.SellingPrice.InexactFloat64(),
		Unit:         p.Unit,
		Stock:        p.Stock,
		Category:     p.Category,
		ImageURL:     h.imageURL(p.ImageURL),
	}
	if p.OriginalPrice != nil {
		v := p.OriginalPrice.InexactFloat64()
		resp.OriginalPrice = &v
	}
	if p.BulkRule != nil {
		resp.BulkRule = &bulkRuleDTO{
			ThresholdQty: p.BulkRule.ThresholdQty,
			BundlePrice:  p.BulkRule.BundlePrice.InexactFloat64(),
		}
	}
	return resp
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (r *productRequest) toDomain() (*catalog.Product, error) {
	if r.ID == "" || r.Name == "" {
		return nil, errors.New("id and name are required")
	}
	price := decimal.NewFromFloat(r.SellingPrice)
	if !price.IsPositive() {
		return nil, errors.New("selling_price must be positive")
	}
	if r.Stock < 0 {
		return nil, errors.New("stock must not be negative")
	}

	p := &catalog.Product{
		ID:           r.ID,
		Name:         r.Name,
		SellingPrice: price,
		Unit:         r.Unit,
		Stock:        r.Stock,
		Category:     r.Category,
		ImageURL:     r.ImageURL,
	}
	if r.OriginalPrice != nil {
		v := decimal.NewFromFloat(*r.OriginalPrice)
		p.OriginalPrice = &v
	}
	if r.BulkRule != nil {
		if r.BulkRule.ThresholdQty < 2 {
			return nil, errors.New("bulk threshold must be at least 2")
		}
		bundle := decimal.NewFromFloat(r.BulkRule.BundlePrice)
		if !bundle.IsPositive() {
			return nil, errors.New("bulk bundle price must be positive")
		}
		p.BulkRule = &catalog.BulkRule{
			ThresholdQty: r.BulkRule.ThresholdQty,
			BundlePrice:  bundle,
		}
	}
	return p, nil
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.products.List(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = h.toProductResponse(p)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetProduct returns a single product by id.
func (h *Handler) GetProduct(c echo.Context) error {
	p, err := h.products.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, h.toProductResponse(*p))
}

// CreateProduct adds a product to the catalog. Admin only.
func (h *Handler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := req.toDomain()
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.products.Create(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.toProductResponse(*p))
}

// UpdateProduct replaces a product's editable fields. Admin only.
func (h *Handler) UpdateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ID = c.Param("id")

	p, err := req.toDomain()
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.products.Update(c.Request().Context(), p); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "product not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, h.toProductResponse(*p))
}

// DeleteProduct removes a product. Admin only. Existing order snapshots keep
// their frozen copy of the product.
func (h *Handler) DeleteProduct(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return respondError(c, http.StatusNotFound, "product not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
