package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Preview is the outcome of a successful validation: the matched code and
// the discount it would yield. Nothing has been redeemed yet.
type Preview struct {
	Code     *Code
	Discount Discount
}

// Validator decides whether an actor may use a promo code against a given
// subtotal. Validation never mutates state; redemption happens separately,
// inside the checkout transaction, so a code cannot be spent merely by
// being checked.
type Validator interface {
	Validate(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*Preview, error)
}

// RepoValidator implements Validator by looking up codes and usage counts
// from a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a RepoValidator backed by the given Repository.
func NewValidator(repo Repository) *RepoValidator {
	return NewValidatorAt(repo, time.Now)
}

// NewValidatorAt creates a RepoValidator that evaluates validity windows
// against the given clock instead of time.Now.
func NewValidatorAt(repo Repository, now func() time.Time) *RepoValidator {
	return &RepoValidator{repo: repo, now: now}
}

// Validate runs the eligibility checks in order, each with its own failure:
// code exists and active, validity window, global usage limit, per-user
// usage limit, minimum purchase. On success it returns the computed
// discount preview.
func (v *RepoValidator) Validate(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*Preview, error) {
	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}

	now := v.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrCodeNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrCodeExpired
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if c.UsagePerUser > 0 {
		used, err := v.repo.CountUsagesByUser(ctx, c.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count promo usages")
		}
		if used >= c.UsagePerUser {
			return nil, ErrAlreadyUsed
		}
	}

	if subtotal.LessThan(c.MinPurchase) {
		return nil, &BelowMinimumError{Minimum: c.MinPurchase}
	}

	d, err := Compute(c, subtotal)
	if err != nil {
		return nil, err
	}

	return &Preview{Code: c, Discount: d}, nil
}
