package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, sku, price, is_active, stock_quantity
		FROM products ORDER BY id`

	getProductSQL = `SELECT id, name, sku, price, is_active, stock_quantity
		FROM products WHERE id = $1`

	getVariantSQL = `SELECT id, product_id, name, price_adjustment, is_active, stock_quantity
		FROM product_variants WHERE id = $1`

	variantsByProductSQL = `SELECT id, product_id, name, price_adjustment, is_active, stock_quantity
		FROM product_variants WHERE product_id = $1 ORDER BY id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db querier
}

// NewProductRepository returns a pool-scoped ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: pool}
}

// List returns all products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// GetByID returns a single product. Returns product.ErrNotFound when no
// matching row exists.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetVariant returns a single variant. Returns product.ErrVariantNotFound
// when no matching row exists.
func (r *ProductRepository) GetVariant(ctx context.Context, id string) (*product.Variant, error) {
	rows, err := r.db.Query(ctx, getVariantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrVariantNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// VariantsByProduct returns all variants of the given product.
func (r *ProductRepository) VariantsByProduct(ctx context.Context, productID string) ([]product.Variant, error) {
	rows, err := r.db.Query(ctx, variantsByProductSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variants of %q: %w", productID, err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return nil, fmt.Errorf("listing variants of %q: %w", productID, err)
	}
	return variants, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.IsActive, &p.Stock)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (product.Variant, error) {
	var v product.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.PriceAdjustment, &v.IsActive, &v.Stock)
	return v, err
}
