package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/internal/domain/cart"
)

const (
	listCartItemsSQL = `SELECT id, user_id, product_id, COALESCE(variant_id, ''), quantity, created_at
		FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	// The conflict target must spell out the same expression as the
	// idx_cart_items_user_target unique index or Postgres cannot infer it.
	addCartItemSQL = `INSERT INTO cart_items (id, user_id, product_id, variant_id, quantity)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (user_id, product_id, COALESCE(variant_id, ''))
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	db querier
}

// NewCartRepository returns a pool-scoped CartRepository.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{db: pool}
}

// ListByUser returns the user's cart items, oldest first.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := r.db.Query(ctx, listCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %q: %w", userID, err)
	}
	items, err := pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %q: %w", userID, err)
	}
	return items, nil
}

// Add inserts a cart item, merging quantities when the same product/variant
// is already carted.
func (r *CartRepository) Add(ctx context.Context, item *cart.Item) error {
	_, err := r.db.Exec(ctx, addCartItemSQL,
		item.ID, item.UserID, item.ProductID, item.VariantID, item.Quantity)
	if err != nil {
		return fmt.Errorf("adding cart item for %q: %w", item.UserID, err)
	}
	return nil
}

// Clear removes every cart item of the given user.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart of %q: %w", userID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.VariantID, &it.Quantity, &it.CreatedAt)
	return it, err
}
