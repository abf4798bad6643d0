package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/internal/domain/product"
)

// Conditional decrements: a separate check-then-decrement would be a
// lost-update hazard under concurrency, so availability is enforced by the
// WHERE clause and the affected-row count. The same shape applies to both
// stock tables.
const (
	reserveProductSQL = `UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`

	reserveVariantSQL = `UPDATE product_variants
		SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id = $1 AND stock_quantity >= $2`

	releaseProductSQL = `UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`

	releaseVariantSQL = `UPDATE product_variants
		SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1`
)

var _ product.Inventory = (*InventoryRepository)(nil)

// InventoryRepository implements product.Inventory backed by PostgreSQL.
type InventoryRepository struct {
	db querier
}

// NewInventoryRepository returns a pool-scoped InventoryRepository.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{db: pool}
}

// Reserve decrements the target's stock by quantity, failing with
// product.InsufficientStockError when fewer units remain. The decrement
// joins the caller's transaction and is serialized per row by the storage
// engine, so two concurrent reservations cannot both pass.
func (r *InventoryRepository) Reserve(ctx context.Context, target product.StockTarget, quantity int) error {
	sql := reserveProductSQL
	if target.IsVariant() {
		sql = reserveVariantSQL
	}

	tag, err := r.db.Exec(ctx, sql, target.ID(), quantity)
	if err != nil {
		return fmt.Errorf("reserving %d of %s: %w", quantity, target, err)
	}
	if tag.RowsAffected() == 0 {
		return &product.InsufficientStockError{Target: target, Requested: quantity}
	}
	return nil
}

// Release is the exact inverse of Reserve, restoring quantity units to the
// target.
func (r *InventoryRepository) Release(ctx context.Context, target product.StockTarget, quantity int) error {
	sql := releaseProductSQL
	if target.IsVariant() {
		sql = releaseVariantSQL
	}

	tag, err := r.db.Exec(ctx, sql, target.ID(), quantity)
	if err != nil {
		return fmt.Errorf("releasing %d of %s: %w", quantity, target, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("releasing %d of %s: row not found", quantity, target)
	}
	return nil
}
