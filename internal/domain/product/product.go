package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	// ErrNotFound is returned when a requested product does not exist
	// or is no longer active.
	ErrNotFound = errors.New("product not found")
	// ErrVariantNotFound is returned when a requested variant does not
	// exist, is inactive, or belongs to a different product.
	ErrVariantNotFound = errors.New("product variant not found")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	SKU      string
	Price    decimal.Decimal
	IsActive bool
	Stock    int
}

// Variant is a purchasable variation of a product. Its unit price is the
// parent product price plus PriceAdjustment (which may be negative), and it
// carries its own stock counter.
type Variant struct {
	ID              string
	ProductID       string
	Name            string
	PriceAdjustment decimal.Decimal
	IsActive        bool
	Stock           int
}

// StockTarget identifies the row whose stock a reservation moves: the
// product itself, or one of its variants. Reservation and release treat
// both uniformly instead of branching on optional fields.
type StockTarget struct {
	productID string
	variantID string
}

// ProductTarget returns a StockTarget pointing at a product's own stock.
func ProductTarget(productID string) StockTarget {
	return StockTarget{productID: productID}
}

// VariantTarget returns a StockTarget pointing at a variant's stock.
func VariantTarget(variantID string) StockTarget {
	return StockTarget{variantID: variantID}
}

// IsVariant reports whether the target is a variant row.
func (t StockTarget) IsVariant() bool { return t.variantID != "" }

// ID returns the identifier of the targeted row.
func (t StockTarget) ID() string {
	if t.variantID != "" {
		return t.variantID
	}
	return t.productID
}

func (t StockTarget) String() string {
	if t.IsVariant() {
		return "variant " + t.variantID
	}
	return "product " + t.productID
}

// InsufficientStockError indicates a reservation asked for more units than
// the target currently holds.
type InsufficientStockError struct {
	Target    StockTarget
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d", e.Target, e.Requested)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, id string) (*Variant, error)
	VariantsByProduct(ctx context.Context, productID string) ([]Variant, error)
}

// Inventory moves stock for the given target. Both operations must run
// inside the caller's transaction: Reserve uses a conditional decrement so
// two concurrent reservations cannot both pass the availability check, and
// Release is its exact inverse.
type Inventory interface {
	Reserve(ctx context.Context, target StockTarget, quantity int) error
	Release(ctx context.Context, target StockTarget, quantity int) error
}
