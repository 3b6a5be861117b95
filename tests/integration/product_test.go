//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seededCount {
		t.Fatalf("expected %d products, got %d", seededCount, len(products))
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)

	var rice *productResponse
	for i := range products {
		if products[i].ID == "rice-basmati-1kg" {
			rice = &products[i]
			break
		}
	}

	if rice == nil {
		t.Fatal("product 'rice-basmati-1kg' not found")
	}
	if rice.Name != "Premium Basmati Rice" {
		t.Errorf("name: got %q, want %q", rice.Name, "Premium Basmati Rice")
	}
	if rice.SellingPrice != 150 {
		t.Errorf("selling_price: got %v, want 150", rice.SellingPrice)
	}
	if rice.Category != "Grains & Rice" {
		t.Errorf("category: got %q, want %q", rice.Category, "Grains & Rice")
	}
	if rice.BulkRule == nil {
		t.Fatal("bulk_rule missing")
	}
	if rice.BulkRule.ThresholdQty != 2 || rice.BulkRule.BundlePrice != 280 {
		t.Errorf("bulk_rule: got %+v, want {2 280}", *rice.BulkRule)
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/ghee-pure-500ml")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	product := decodeJSON[productResponse](t, resp)
	if product.ID != "ghee-pure-500ml" {
		t.Errorf("id: got %q, want %q", product.ID, "ghee-pure-500ml")
	}
	if product.Name != "Pure Mountain Ghee" {
		t.Errorf("name: got %q, want %q", product.Name, "Pure Mountain Ghee")
	}
	if product.BulkRule != nil {
		t.Errorf("bulk_rule: got %+v, want none", *product.BulkRule)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/no-such-product")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestProductAdmin_CRUD(t *testing.T) {
	admin := login(t, "admin", adminPassword)

	create := map[string]any{
		"id":            "itest-cheese-200g",
		"name":          "Yak Cheese",
		"selling_price": 450,
		"unit":          "200 g",
		"stock":         12,
		"category":      "Dairy",
	}

	resp := doRequest(t, http.MethodPost, "/api/products", create, admin)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	update := map[string]any{
		"name":          "Yak Cheese",
		"selling_price": 475,
		"unit":          "200 g",
		"stock":         20,
		"category":      "Dairy",
	}
	resp = doRequest(t, http.MethodPut, "/api/products/itest-cheese-200g", update, admin)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}

	got := doGet(t, "/api/products/itest-cheese-200g")
	defer got.Body.Close()
	p := decodeJSON[productResponse](t, got)
	if p.SellingPrice != 475 || p.Stock != 20 {
		t.Errorf("after update: got price %v stock %d, want 475 / 20", p.SellingPrice, p.Stock)
	}

	resp = doRequest(t, http.MethodDelete, "/api/products/itest-cheese-200g", nil, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}

	gone := doGet(t, "/api/products/itest-cheese-200g")
	defer gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Fatalf("after delete: expected 404, got %d", gone.StatusCode)
	}
}

func TestProductAdmin_Forbidden(t *testing.T) {
	shopper := registerShopper(t)

	resp := doRequest(t, http.MethodPost, "/api/products", map[string]any{
		"id": "x", "name": "x", "selling_price": 1,
	}, shopper)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestProductAdmin_Unauthenticated(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/products", map[string]any{
		"id": "x", "name": "x", "selling_price": 1,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
