package checkout

import (
	"errors"

	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/promotion"
)

// ErrInvalidPricing means the computed totals are not chargeable, e.g. a
// fixed discount larger than the cart. The discount is deliberately not
// clamped; an operator misconfiguration should fail loudly.
var ErrInvalidPricing = errors.New("invalid pricing")

// Totals holds the integer minor-unit amounts written onto the order.
// Tax is computed on the undiscounted subtotal; the processor applies the
// coupon to the same base on its side.
type Totals struct {
	Subtotal int64
	Discount int64
	Tax      int64
	Total    int64
}

// ComputeTotals prices the cart lines with an optional promotion and the
// destination's combined tax rate in milli-percent.
func ComputeTotals(lines []cart.Line, promo *promotion.Promotion, taxMilliPercent int64) (Totals, error) {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.EffectiveUnitPrice() * l.Quantity
	}

	var discount int64
	if promo != nil {
		switch promo.Type {
		case promotion.TypePercentage:
			// Percentage discounts floor; only tax rounds half-even.
			discount = subtotal * promo.Value / 100
		case promotion.TypeFixedAmount:
			discount = promo.Value
		}
	}

	tax := roundHalfEven(subtotal*taxMilliPercent, 100_000)
	total := subtotal - discount + tax
	if total < 0 {
		return Totals{}, ErrInvalidPricing
	}
	return Totals{Subtotal: subtotal, Discount: discount, Tax: tax, Total: total}, nil
}

// roundHalfEven divides n by d rounding half to even, matching how the
// payment processor rounds tax amounts. n and d must be non-negative.
func roundHalfEven(n, d int64) int64 {
	q := n / d
	r := n % d
	switch {
	case 2*r < d:
		return q
	case 2*r > d:
		return q + 1
	case q%2 == 0:
		return q
	default:
		return q + 1
	}
}
