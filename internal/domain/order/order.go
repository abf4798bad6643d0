package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartloom/checkout/internal/domain/cart"
	"github.com/cartloom/checkout/internal/domain/product"
	"github.com/cartloom/checkout/internal/domain/promo"
)

var (
	// ErrNotFound is returned when an order does not exist or is not
	// visible to the requesting actor.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateNumber is returned by Repository.Create on an order
	// number collision. The orchestrator retries once with a fresh number.
	ErrDuplicateNumber = errors.New("duplicate order number")
)

// Order is a durable record of a placed order. It is created once,
// atomically with its items and shipping snapshot; afterwards only its
// status-related fields change, and only through the lifecycle methods.
type Order struct {
	ID             string
	Number         string
	UserID         string
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentMethod  string
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	PromoCodeID    string // empty when no code was redeemed
	Shipping       Address
	Notes          string
	CancelReason   string
	CancelledAt    *time.Time
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is an immutable snapshot of a line item at order time. It is
// deliberately decoupled from the live catalog so later edits never alter
// historical orders; cancellation restores exactly these quantities.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	VariantID   string // empty for plain product lines
	Name        string
	SKU         string
	VariantName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

// Target returns the stock target this item's quantities were reserved
// against.
func (i Item) Target() product.StockTarget {
	if i.VariantID != "" {
		return product.VariantTarget(i.VariantID)
	}
	return product.ProductTarget(i.ProductID)
}

// Address is the shipping destination snapshot stored on the order.
type Address struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Province   string
	PostalCode string
}

// StatusChange is one immutable entry in an order's status history.
type StatusChange struct {
	ID        string
	OrderID   string
	From      Status
	To        Status
	Note      string
	CreatedAt time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order together with its item snapshots. It
	// returns ErrDuplicateNumber when the order number is already taken.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetForUpdate loads the order and locks its row for the duration of
	// the enclosing transaction, serializing concurrent lifecycle changes.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	SetStatus(ctx context.Context, id string, to Status) error
	SetCancelled(ctx context.Context, id, reason string, at time.Time) error
	AppendHistory(ctx context.Context, change *StatusChange) error
	History(ctx context.Context, orderID string) ([]StatusChange, error)
}

// Tx bundles the transaction-scoped repositories available to one atomic
// unit of work. Every read observes, and every write joins, the same
// storage transaction.
type Tx interface {
	Products() product.Repository
	Inventory() product.Inventory
	Carts() cart.Repository
	Promos() promo.Repository
	Orders() Repository
}

// TxManager runs fn inside one storage transaction. If fn returns an
// error the transaction is rolled back and no effect survives; otherwise
// it commits.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Publisher emits best-effort notifications strictly after a transaction
// has committed. Implementations must never fail the calling operation.
type Publisher interface {
	OrderCreated(ctx context.Context, o *Order)
	OrderStatusChanged(ctx context.Context, o *Order, from, to Status)
	OrderCancelled(ctx context.Context, o *Order, reason string)
}
