package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cartloom/checkout/internal/domain/cart"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type cartItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"createdAt"`
}

func toCartItemResponse(it cart.Item) cartItemResponse {
	return cartItemResponse{
		ID:        it.ID,
		ProductID: it.ProductID,
		VariantID: it.VariantID,
		Quantity:  it.Quantity,
		CreatedAt: it.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	items, err := h.carts.ListByUser(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]cartItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, toCartItemResponse(it))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	var req cartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId required")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	item := &cart.Item{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.carts.Add(r.Context(), item); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartItemResponse(*item))
}
