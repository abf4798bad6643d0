package order

import "github.com/shopspring/decimal"

// ShippingPolicy is a flat fee below a subtotal threshold, free above it.
type ShippingPolicy struct {
	FlatFee       decimal.Decimal
	FreeThreshold decimal.Decimal
}

// PricedLine is a line item resolved against the catalog: base price,
// optional variant adjustment, and requested quantity. Negative prices and
// quantities are rejected upstream.
type PricedLine struct {
	BasePrice  decimal.Decimal
	Adjustment decimal.Decimal
	Quantity   int
}

// UnitPrice returns base price plus variant adjustment.
func (l PricedLine) UnitPrice() decimal.Decimal {
	return l.BasePrice.Add(l.Adjustment)
}

// Quote holds the computed totals for a set of line items.
type Quote struct {
	LineSubtotals []decimal.Decimal
	Subtotal      decimal.Decimal
	ShippingCost  decimal.Decimal
}

// CalculateQuote computes per-line subtotals, the order subtotal, and the
// shipping cost under the given policy. Pure: no side effects, decimal
// arithmetic throughout.
func CalculateQuote(lines []PricedLine, policy ShippingPolicy) Quote {
	q := Quote{
		LineSubtotals: make([]decimal.Decimal, len(lines)),
		Subtotal:      decimal.Zero,
	}
	for i, l := range lines {
		sub := l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
		q.LineSubtotals[i] = sub
		q.Subtotal = q.Subtotal.Add(sub)
	}

	if q.Subtotal.GreaterThanOrEqual(policy.FreeThreshold) {
		q.ShippingCost = decimal.Zero
	} else {
		q.ShippingCost = policy.FlatFee
	}
	return q
}
