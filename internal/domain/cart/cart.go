// Package cart holds the ephemeral per-request shopping context: the cart
// being priced and the user it belongs to. Both are plain values supplied by
// the caller; nothing here touches storage.
package cart

import "github.com/shopspring/decimal"

// Item represents a single line item in the cart.
type Item struct {
	ProductID string
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Cart is an ordered sequence of line items.
type Cart struct {
	Items []Item
}

// Value returns the cart subtotal: the sum of unit price times quantity
// across all items.
func (c Cart) Value() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// Categories returns the set of distinct item categories in the cart.
func (c Cart) Categories() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		set[item.Category] = struct{}{}
	}
	return set
}

// TotalItems returns the total quantity across all items.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// User is the per-request user context evaluated against coupon rules.
type User struct {
	ID            string
	Tier          string
	Country       string
	LifetimeSpend decimal.Decimal
	OrdersPlaced  int

	// CouponUsage optionally overrides the persistent per-user usage
	// counters, keyed by coupon code. A present entry is used verbatim,
	// including zero, so callers can simulate usage history without
	// mutating real counters.
	CouponUsage map[string]int
}
