//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 4 {
		t.Fatalf("expected at least 4 seeded products, got %d", len(products))
	}

	byID := make(map[string]productResponse, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	grinder, ok := byID["prod-burr-grinder"]
	if !ok {
		t.Fatal("seeded product prod-burr-grinder missing")
	}
	if grinder.Price != "74.5" {
		t.Errorf("price: got %q, want 74.5", grinder.Price)
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/prod-espresso-machine", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.Name == "" || p.SKU == "" {
		t.Errorf("incomplete product: %+v", p)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("variants: got %d, want 2", len(p.Variants))
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/prod-nope", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
