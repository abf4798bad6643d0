package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartloom/checkout/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
}

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	PaymentMethod string             `json:"paymentMethod"`
	Shipping      addressRequest     `json:"shippingAddress"`
	PromoCode     string             `json:"promoCode,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type statusNoteRequest struct {
	Note string `json:"note,omitempty"`
}

type orderItemResponse struct {
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId,omitempty"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	VariantName string `json:"variantName,omitempty"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// orderResponse carries all money as exact decimal strings.
type orderResponse struct {
	ID             string              `json:"id"`
	Number         string              `json:"orderNumber"`
	Status         string              `json:"status"`
	PaymentStatus  string              `json:"paymentStatus"`
	PaymentMethod  string              `json:"paymentMethod"`
	Subtotal       string              `json:"subtotal"`
	ShippingCost   string              `json:"shippingCost"`
	DiscountAmount string              `json:"discountAmount"`
	TotalAmount    string              `json:"totalAmount"`
	PromoCodeID    string              `json:"promoCodeId,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	CancelReason   string              `json:"cancelReason,omitempty"`
	Items          []orderItemResponse `json:"items,omitempty"`
	CreatedAt      string              `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		Number:         o.Number,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  o.PaymentMethod,
		Subtotal:       o.Subtotal.String(),
		ShippingCost:   o.ShippingCost.String(),
		DiscountAmount: o.DiscountAmount.String(),
		TotalAmount:    o.TotalAmount.String(),
		PromoCodeID:    o.PromoCodeID,
		Notes:          o.Notes,
		CancelReason:   o.CancelReason,
		CreatedAt:      o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Name:        it.Name,
			SKU:         it.SKU,
			VariantName: it.VariantName,
			UnitPrice:   it.UnitPrice.String(),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.String(),
		})
	}
	return resp
}

// CreateOrder places an order for the authenticated actor.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		}
	}

	o, err := h.orders.CreateOrder(r.Context(), userID, order.CreateOrderRequest{
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		Shipping: order.Address{
			Name:       req.Shipping.Name,
			Phone:      req.Shipping.Phone,
			Line1:      req.Shipping.Line1,
			Line2:      req.Shipping.Line2,
			City:       req.Shipping.City,
			Province:   req.Shipping.Province,
			PostalCode: req.Shipping.PostalCode,
		},
		PromoCode: req.PromoCode,
		Notes:     req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns one of the actor's orders with item snapshots.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns the actor's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	list, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(list))
	for i := range list {
		resp[i] = toOrderResponse(&list[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

type statusChangeResponse struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Note      string `json:"note,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// OrderHistory returns the status history of the actor's order.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	history, err := h.orders.OrderHistory(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := make([]statusChangeResponse, len(history))
	for i, c := range history {
		resp[i] = statusChangeResponse{
			From:      string(c.From),
			To:        string(c.To),
			Note:      c.Note,
			CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// CancelOrder cancels the actor's order, releasing its reserved stock.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := requireActor(w, r)
	if userID == "" {
		return
	}

	var req cancelOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"), userID, req.Reason)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ConfirmOrder advances a pending order to confirmed.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req statusNoteRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.ConfirmOrder(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// MarkDelivered advances a confirmed order to delivered.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	var req statusNoteRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}
