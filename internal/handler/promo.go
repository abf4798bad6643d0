package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validatePromoRequest struct {
	Code     string `json:"code"`
	Subtotal string `json:"subtotal"`
}

type promoPreviewResponse struct {
	Code           string `json:"code"`
	DiscountType   string `json:"discountType"`
	DiscountAmount string `json:"discountAmount"`
	FreeShipping   bool   `json:"freeShipping"`
}

// ValidatePromo previews the discount a promo code would yield for the
// actor at the given subtotal. Nothing is redeemed.
func (h *Handler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	var req validatePromoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code required")
		return
	}
	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil || subtotal.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid subtotal")
		return
	}

	preview, err := h.orders.ValidatePromoCode(r.Context(), req.Code, userID, subtotal)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, promoPreviewResponse{
		Code:           preview.Code.Code,
		DiscountType:   string(preview.Code.DiscountType),
		DiscountAmount: preview.Discount.Amount.String(),
		FreeShipping:   preview.Discount.FreeShipping,
	})
}
