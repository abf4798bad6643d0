package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartloom/checkout/internal/domain/product"
)

type variantResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceAdjustment string `json:"priceAdjustment"`
	Stock           int    `json:"stock"`
}

type productResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	SKU      string            `json:"sku"`
	Price    string            `json:"price"`
	Stock    int               `json:"stock"`
	Variants []variantResponse `json:"variants,omitempty"`
}

func toProductResponse(p product.Product, variants []product.Variant) productResponse {
	resp := productResponse{
		ID:    p.ID,
		Name:  p.Name,
		SKU:   p.SKU,
		Price: p.Price.String(),
		Stock: p.Stock,
	}
	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		resp.Variants = append(resp.Variants, variantResponse{
			ID:              v.ID,
			Name:            v.Name,
			PriceAdjustment: v.PriceAdjustment.String(),
			Stock:           v.Stock,
		})
	}
	return resp
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p, nil))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	variants, err := h.products.VariantsByProduct(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductResponse(*p, variants))
}
