package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		id, order_number, user_id, status, payment_status, payment_method,
		subtotal, shipping_cost, discount_amount, total_amount, promo_code_id,
		ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_province, ship_postal_code,
		notes, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, NULLIF($11, ''),
		$12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21
	)`

	insertOrderItemSQL = `INSERT INTO order_items (
		id, order_id, product_id, variant_id, name, sku, variant_name,
		unit_price, quantity, subtotal
	) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`

	selectOrderSQL = `SELECT id, order_number, user_id, status, payment_status, payment_method,
		subtotal, shipping_cost, discount_amount, total_amount, COALESCE(promo_code_id, ''),
		ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_province, ship_postal_code,
		notes, COALESCE(cancel_reason, ''), cancelled_at, created_at, updated_at
		FROM orders`

	selectOrderItemsSQL = `SELECT id, order_id, product_id, COALESCE(variant_id, ''),
		name, sku, variant_name, unit_price, quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`

	setStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	setCancelledSQL = `UPDATE orders
		SET status = 'cancelled', cancel_reason = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1`

	insertHistorySQL = `INSERT INTO order_status_history (id, order_id, from_status, to_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectHistorySQL = `SELECT id, order_id, from_status, to_status, note, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db querier
}

// NewOrderRepository returns a pool-scoped OrderRepository for reads
// outside transactions.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: pool}
}

// Create persists the order, its item snapshots, and the initial history
// entry. A collision on the unique order-number index surfaces as
// order.ErrDuplicateNumber.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.UserID, string(o.Status), string(o.PaymentStatus), o.PaymentMethod,
		o.Subtotal, o.ShippingCost, o.DiscountAmount, o.TotalAmount, o.PromoCodeID,
		o.Shipping.Name, o.Shipping.Phone, o.Shipping.Line1, o.Shipping.Line2,
		o.Shipping.City, o.Shipping.Province, o.Shipping.PostalCode,
		o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err := r.db.Exec(ctx, insertOrderItemSQL,
			it.ID, it.OrderID, it.ProductID, it.VariantID,
			it.Name, it.SKU, it.VariantName,
			it.UnitPrice, it.Quantity, it.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("creating order item %q: %w", it.ID, err)
		}
	}

	return r.AppendHistory(ctx, &order.StatusChange{
		ID:        newID(),
		OrderID:   o.ID,
		From:      "",
		To:        o.Status,
		Note:      "order placed",
		CreatedAt: o.CreatedAt,
	})
}

// GetByID returns the order with its item snapshots.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, selectOrderSQL+` WHERE id = $1`, id)
}

// GetForUpdate loads the order with a row lock, serializing concurrent
// lifecycle changes on the same order for the rest of the transaction.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, selectOrderSQL+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) get(ctx context.Context, sql, id string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.db.Query(ctx, selectOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first, without item
// snapshots.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, selectOrderSQL+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	return list, nil
}

// SetStatus updates the order's status column only; history is appended
// separately in the same transaction.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, to order.Status) error {
	tag, err := r.db.Exec(ctx, setStatusSQL, id, string(to))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// SetCancelled marks the order cancelled with a reason and timestamp.
func (r *OrderRepository) SetCancelled(ctx context.Context, id, reason string, at time.Time) error {
	tag, err := r.db.Exec(ctx, setCancelledSQL, id, reason, at)
	if err != nil {
		return fmt.Errorf("cancelling order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// AppendHistory inserts one immutable status-history entry.
func (r *OrderRepository) AppendHistory(ctx context.Context, change *order.StatusChange) error {
	_, err := r.db.Exec(ctx, insertHistorySQL,
		change.ID, change.OrderID, string(change.From), string(change.To),
		change.Note, change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history for order %q: %w", change.OrderID, err)
	}
	return nil
}

// History returns the order's status history in chronological order.
func (r *OrderRepository) History(ctx context.Context, orderID string) ([]order.StatusChange, error) {
	rows, err := r.db.Query(ctx, selectHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting history of order %q: %w", orderID, err)
	}
	history, err := pgx.CollectRows(rows, scanStatusChange)
	if err != nil {
		return nil, fmt.Errorf("getting history of order %q: %w", orderID, err)
	}
	return history, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                     order.Order
		status, paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &status, &paymentStatus, &o.PaymentMethod,
		&o.Subtotal, &o.ShippingCost, &o.DiscountAmount, &o.TotalAmount, &o.PromoCodeID,
		&o.Shipping.Name, &o.Shipping.Phone, &o.Shipping.Line1, &o.Shipping.Line2,
		&o.Shipping.City, &o.Shipping.Province, &o.Shipping.PostalCode,
		&o.Notes, &o.CancelReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
		&it.Name, &it.SKU, &it.VariantName,
		&it.UnitPrice, &it.Quantity, &it.Subtotal,
	)
	return it, err
}

func scanStatusChange(row pgx.CollectableRow) (order.StatusChange, error) {
	var (
		c        order.StatusChange
		from, to string
	)
	err := row.Scan(&c.ID, &c.OrderID, &from, &to, &c.Note, &c.CreatedAt)
	c.From = order.Status(from)
	c.To = order.Status(to)
	return c, err
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
// on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
