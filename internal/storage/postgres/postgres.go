// Package postgres implements the domain repositories on PostgreSQL via
// pgx. All money columns are NUMERIC and scan into decimal.Decimal.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/db"
	"github.com/cartloom/checkout/internal/domain/cart"
	"github.com/cartloom/checkout/internal/domain/order"
	"github.com/cartloom/checkout/internal/domain/product"
	"github.com/cartloom/checkout/internal/domain/promo"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, letting
// every repository run either pool-scoped or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

var _ order.TxManager = (*Store)(nil)

// Store runs atomic units of work. Reads inside the transaction observe
// writes made earlier in the same transaction; nothing is visible to other
// transactions until commit.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn in one read-committed transaction, committing when fn
// returns nil and rolling back otherwise. The availability checks use
// conditional writes, so read-committed suffices to serialize concurrent
// reservations per row.
func (s *Store) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool,
		pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		func(tx pgx.Tx) error {
			return fn(&txRepos{db: tx})
		})
}

// txRepos bundles transaction-scoped repositories over one pgx.Tx.
type txRepos struct {
	db pgx.Tx
}

func (t *txRepos) Products() product.Repository { return &ProductRepository{db: t.db} }
func (t *txRepos) Inventory() product.Inventory { return &InventoryRepository{db: t.db} }
func (t *txRepos) Carts() cart.Repository       { return &CartRepository{db: t.db} }
func (t *txRepos) Promos() promo.Repository     { return &PromoRepository{db: t.db} }
func (t *txRepos) Orders() order.Repository     { return &OrderRepository{db: t.db} }

// newID generates identifiers for rows created inside the storage layer.
func newID() string { return uuid.New().String() }
