// Package handler exposes the checkout engine over HTTP. Identity
// resolution happens upstream; handlers trust the authenticated actor ID
// in the X-User-ID header.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cartloom/checkout/internal/domain/cart"
	"github.com/cartloom/checkout/internal/domain/order"
	"github.com/cartloom/checkout/internal/domain/product"
	"github.com/cartloom/checkout/internal/domain/promo"
)

// actorHeader carries the already-authenticated actor identifier.
const actorHeader = "X-User-ID"

// OrderService is the order engine surface the handlers depend on.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req order.CreateOrderRequest) (*order.Order, error)
	CancelOrder(ctx context.Context, orderID, userID, reason string) (*order.Order, error)
	ConfirmOrder(ctx context.Context, orderID, note string) (*order.Order, error)
	MarkDelivered(ctx context.Context, orderID, note string) (*order.Order, error)
	ValidatePromoCode(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*promo.Preview, error)
	GetOrder(ctx context.Context, orderID, userID string) (*order.Order, error)
	ListOrders(ctx context.Context, userID string) ([]order.Order, error)
	OrderHistory(ctx context.Context, orderID, userID string) ([]order.StatusChange, error)
}

// Handler serves the JSON API, delegating business logic to the order
// service and repositories.
type Handler struct {
	orders   OrderService
	products product.Repository
	carts    cart.Repository
}

// New constructs a Handler with the required dependencies.
func New(orders OrderService, products product.Repository, carts cart.Repository) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		carts:    carts,
	}
}

// Routes mounts all API routes on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)

	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddCartItem)

	r.Post("/orders", h.CreateOrder)
	r.Get("/orders", h.ListOrders)
	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/orders/{id}/history", h.OrderHistory)
	r.Post("/orders/{id}/cancel", h.CancelOrder)
	r.Post("/orders/{id}/confirm", h.ConfirmOrder)
	r.Post("/orders/{id}/deliver", h.MarkDelivered)

	r.Post("/promo/validate", h.ValidatePromo)

	return r
}

// actor extracts the authenticated actor ID, or "" when absent.
func actor(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps a domain error to its HTTP representation,
// logging and masking anything unexpected.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapDomainError(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		message = "internal error"
	}
	respondError(w, status, message)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// requireActor writes 401 and returns "" when no actor header is present.
func requireActor(w http.ResponseWriter, r *http.Request) string {
	id := actor(r)
	if id == "" {
		respondError(w, http.StatusUnauthorized, "authentication required")
	}
	return id
}
