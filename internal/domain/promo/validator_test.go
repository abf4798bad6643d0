package promo

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromoRepo struct {
	code     *Code
	findErr  error
	used     int
	countErr error
}

func (m *mockPromoRepo) FindByCode(_ context.Context, _ string) (*Code, error) {
	return m.code, m.findErr
}

func (m *mockPromoRepo) CountUsagesByUser(_ context.Context, _, _ string) (int, error) {
	return m.used, m.countErr
}

func (m *mockPromoRepo) Redeem(_ context.Context, _, _, _ string, _ int) error {
	return nil
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name         string
		repo         *mockPromoRepo
		subtotal     decimal.Decimal
		wantAmount   decimal.Decimal
		wantErr      error
		wantBelowMin bool
	}{
		{
			name: "valid code returns discount",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "SAVE10",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					UsagePerUser: 1,
				},
			},
			subtotal:   decimal.NewFromInt(100),
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name:     "unknown code",
			repo:     &mockPromoRepo{findErr: ErrCodeNotFound},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrCodeNotFound,
		},
		{
			name: "not yet valid",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "FUTURE",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					ValidFrom:    &futureTime,
				},
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrCodeNotYetValid,
		},
		{
			name: "expired",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "OLD",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					ValidUntil:   &pastTime,
				},
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrCodeExpired,
		},
		{
			name: "within window succeeds",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "WINDOW",
					DiscountType: DiscountFixed,
					Value:        decimal.NewFromInt(5),
					ValidFrom:    &pastTime,
					ValidUntil:   &futureTime,
				},
			},
			subtotal:   decimal.NewFromInt(100),
			wantAmount: decimal.NewFromInt(5),
		},
		{
			name: "global usage limit reached",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "LIMITED",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					UsageLimit:   100,
					UsedCount:    100,
				},
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrUsageLimitReached,
		},
		{
			name: "zero usage limit means unlimited",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "UNLIMITED",
					DiscountType: DiscountFixed,
					Value:        decimal.NewFromInt(5),
					UsedCount:    9999,
				},
			},
			subtotal:   decimal.NewFromInt(100),
			wantAmount: decimal.NewFromInt(5),
		},
		{
			name: "per-user limit reached",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "ONCE",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					UsagePerUser: 1,
				},
				used: 1,
			},
			subtotal: decimal.NewFromInt(100),
			wantErr:  ErrAlreadyUsed,
		},
		{
			name: "under per-user limit succeeds",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "TWICE",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					UsagePerUser: 2,
				},
				used: 1,
			},
			subtotal:   decimal.NewFromInt(100),
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name: "below minimum purchase",
			repo: &mockPromoRepo{
				code: &Code{
					ID:           "p1",
					Code:         "BIGONLY",
					DiscountType: DiscountFixed,
					Value:        decimal.NewFromInt(20),
					MinPurchase:  decimal.NewFromInt(150),
				},
			},
			subtotal:     decimal.NewFromInt(100),
			wantBelowMin: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), "CODE", "user-1", tt.subtotal)

			if tt.wantBelowMin {
				var belowMin *BelowMinimumError
				require.ErrorAs(t, err, &belowMin)
				assert.True(t, decimal.NewFromInt(150).Equal(belowMin.Minimum))
				return
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantAmount.Equal(got.Discount.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Discount.Amount)
		})
	}
}

func TestRepoValidator_LookupFailure(t *testing.T) {
	repo := &mockPromoRepo{findErr: errors.New("db down")}

	v := NewValidator(repo)
	_, err := v.Validate(context.Background(), "ANY", "user-1", decimal.NewFromInt(50))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup promo code")
}
