package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Calculate returns the discount amount the coupon yields for the cart.
// FLAT coupons yield their value regardless of cart contents; PERCENT coupons
// yield value% of the cart subtotal, capped by MaxDiscountAmount when set.
// The result is never negative. Pure: safe to call repeatedly and concurrently.
func Calculate(c *Coupon, crt cart.Cart) decimal.Decimal {
	var amount decimal.Decimal

	switch c.DiscountType {
	case DiscountFlat:
		amount = c.DiscountValue
	case DiscountPercent:
		amount = crt.Value().Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscountAmount != nil && amount.GreaterThan(*c.MaxDiscountAmount) {
			amount = *c.MaxDiscountAmount
		}
	}

	return floorAtZero(amount)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
