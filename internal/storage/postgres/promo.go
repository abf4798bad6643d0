package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloom/checkout/internal/domain/promo"
)

const (
	getPromoByCodeSQL = `SELECT id, code, discount_type, discount_value, min_purchase,
		COALESCE(max_discount, 0), usage_limit, usage_per_user,
		valid_from, valid_until, is_active, used_count
		FROM promo_codes WHERE UPPER(code) = UPPER($1) AND is_active = TRUE`

	countUsagesSQL = `SELECT count(*) FROM promo_code_usages
		WHERE promo_code_id = $1 AND user_id = $2`

	// Guarded increment: zero rows means the global limit is exhausted.
	// The counter and the usage rows only ever move together, in the
	// same transaction.
	incrementUsesSQL = `UPDATE promo_codes
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)`

	// Guarded insert: zero rows means the actor already reached the
	// per-user limit. Must run after incrementUsesSQL has locked the
	// promo row; concurrent redeemers then queue on that lock and the
	// count subquery sees their committed usage rows.
	insertUsageSQL = `INSERT INTO promo_code_usages (id, promo_code_id, user_id, order_id)
		SELECT $1, $2, $3, $4
		WHERE $5 <= 0 OR (SELECT count(*) FROM promo_code_usages
			WHERE promo_code_id = $2 AND user_id = $3) < $5`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	db querier
}

// NewPromoRepository returns a pool-scoped PromoRepository, suitable for
// read-only validation previews.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{db: pool}
}

// FindByCode looks up an active promo code case-insensitively. Returns
// promo.ErrCodeNotFound when no matching active code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := r.db.Query(ctx, getPromoByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrCodeNotFound
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &c, nil
}

// CountUsagesByUser returns how many times the user has redeemed the code.
func (r *PromoRepository) CountUsagesByUser(ctx context.Context, promoID, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countUsagesSQL, promoID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usages of %q by %q: %w", promoID, userID, err)
	}
	return n, nil
}

// Redeem records one redemption: a counter increment guarded by the global
// limit, then a usage row guarded by the per-user limit. The increment goes
// first because its row lock is what serializes concurrent redemptions of
// the same code; without it two transactions could each count the other's
// uncommitted usage rows as absent and both slip past the per-user limit.
// Both statements run on the enclosing transaction, so a failed guard
// aborts the checkout that attempted it and rolls the increment back.
func (r *PromoRepository) Redeem(ctx context.Context, promoID, userID, orderID string, perUserLimit int) error {
	tag, err := r.db.Exec(ctx, incrementUsesSQL, promoID)
	if err != nil {
		return fmt.Errorf("incrementing uses of %q: %w", promoID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrUsageLimitReached
	}

	tag, err = r.db.Exec(ctx, insertUsageSQL, newID(), promoID, userID, orderID, perUserLimit)
	if err != nil {
		return fmt.Errorf("recording usage of %q by %q: %w", promoID, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrAlreadyUsed
	}
	return nil
}

func scanPromoCode(row pgx.CollectableRow) (promo.Code, error) {
	var (
		c            promo.Code
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.Value, &c.MinPurchase,
		&c.MaxDiscount, &c.UsageLimit, &c.UsagePerUser,
		&c.ValidFrom, &c.ValidUntil, &c.IsActive, &c.UsedCount,
	)
	c.DiscountType = promo.DiscountType(discountType)
	return c, err
}
