package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promo discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal, optionally
	// capped at MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed subtracts a fixed amount, clamped to the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeShipping zeroes the shipping cost and carries no
	// monetary discount of its own.
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Validation failures, one per eligibility check.
var (
	// ErrCodeNotFound is returned when no active promo code matches.
	ErrCodeNotFound = errors.New("promo code not found")
	// ErrCodeNotYetValid is returned before the code's validity window opens.
	ErrCodeNotYetValid = errors.New("promo code not yet valid")
	// ErrCodeExpired is returned after the code's validity window closes.
	ErrCodeExpired = errors.New("promo code expired")
	// ErrUsageLimitReached is returned when the global usage limit is exhausted.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
	// ErrAlreadyUsed is returned when the actor has hit the per-user limit.
	ErrAlreadyUsed = errors.New("promo code already used")
)

// BelowMinimumError indicates the order subtotal does not reach the code's
// minimum purchase amount. The message states the minimum.
type BelowMinimumError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum purchase of %s required", e.Minimum)
}

// Code is a promotional code rule. Codes are stored upper-cased and matched
// case-insensitively. UsedCount is a projection over usage rows; the two are
// only ever updated together, inside one transaction.
type Code struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinPurchase  decimal.Decimal
	MaxDiscount  decimal.Decimal // zero means no cap
	UsageLimit   int             // zero means unlimited
	UsagePerUser int
	ValidFrom    *time.Time
	ValidUntil   *time.Time
	IsActive     bool
	UsedCount    int
}

// Usage records one redemption of a promo code by a user on an order. Its
// existence enforces the per-user limit and survives order cancellation.
type Usage struct {
	ID        string
	PromoID   string
	UserID    string
	OrderID   string
	CreatedAt time.Time
}

// Repository provides lookup and redemption of promo codes.
//
// Redeem performs the two writes of a redemption as guarded statements:
// the usage-row insert fails with ErrAlreadyUsed when the actor's count has
// reached perUserLimit, and the counter increment fails with
// ErrUsageLimitReached when the global limit is exhausted. It must be
// called on a transaction-scoped repository only.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
	CountUsagesByUser(ctx context.Context, promoID, userID string) (int, error)
	Redeem(ctx context.Context, promoID, userID, orderID string, perUserLimit int) error
}
