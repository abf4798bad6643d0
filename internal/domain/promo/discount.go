package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount holds the computed monetary discount and whether shipping should
// be zeroed.
type Discount struct {
	Amount       decimal.Decimal
	FreeShipping bool
}

// Compute calculates the discount the given code yields for an order
// subtotal. Every monetary discount, regardless of type, is clamped to the
// subtotal so the discount alone can never push a total negative.
func Compute(c *Code, subtotal decimal.Decimal) (Discount, error) {
	switch c.DiscountType {
	case DiscountPercentage:
		amount := subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.IsPositive() && amount.GreaterThan(c.MaxDiscount) {
			amount = c.MaxDiscount
		}
		return Discount{Amount: clamp(amount, subtotal)}, nil
	case DiscountFixed:
		return Discount{Amount: clamp(c.Value, subtotal)}, nil
	case DiscountFreeShipping:
		return Discount{Amount: decimal.Zero, FreeShipping: true}, nil
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", c.DiscountType)
	}
}

// clamp bounds amount to [0, subtotal] and rounds to 2 decimal places.
func clamp(amount, subtotal decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(amount, subtotal).Round(2)
}
