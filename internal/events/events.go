// Package events emits order lifecycle notifications for downstream
// consumers (notifications, activity logs, dashboards). Publishing is
// strictly post-commit and best-effort: a failed publish is logged and
// never affects the already-committed order.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cartloom/checkout/internal/domain/order"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderCancelled     = "order.cancelled"
)

// Envelope is the wire format shared by all order events.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	OrderID    string          `json:"order_id"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderCreatedPayload describes a freshly committed order.
type OrderCreatedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	TotalAmount string `json:"total_amount"`
	ItemCount   int    `json:"item_count"`
}

// StatusChangedPayload describes a lifecycle transition.
type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// CancelledPayload describes a cancellation with its reason.
type CancelledPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func newEnvelope(eventType, orderID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		OccurredAt: time.Now(),
		Producer:   "checkout-api",
		OrderID:    orderID,
		Payload:    raw,
	}, nil
}

var _ order.Publisher = Noop{}

// Noop discards all events. Used when no broker is configured.
type Noop struct{}

func (Noop) OrderCreated(context.Context, *order.Order) {}

func (Noop) OrderStatusChanged(context.Context, *order.Order, order.Status, order.Status) {}

func (Noop) OrderCancelled(context.Context, *order.Order, string) {}
