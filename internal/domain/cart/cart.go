// Package cart holds the ephemeral shopping cart contents for an actor.
// Items are destroyed when an order is placed or the cart is explicitly
// cleared.
package cart

import (
	"context"
	"time"
)

// Item is a single product/variant + quantity entry in an actor's cart.
type Item struct {
	ID        string
	UserID    string
	ProductID string
	VariantID string // empty when the plain product is carted
	Quantity  int
	CreatedAt time.Time
}

// Repository defines persistence operations for cart items.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	Add(ctx context.Context, item *Item) error
	// Clear removes every cart item of the given user. Clearing an empty
	// cart is not an error.
	Clear(ctx context.Context, userID string) error
}
