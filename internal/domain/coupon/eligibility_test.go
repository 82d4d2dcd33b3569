package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

func testUser() cart.User {
	return cart.User{
		ID:            "u123",
		Tier:          "NEW",
		Country:       "IN",
		LifetimeSpend: decimal.Zero,
		OrdersPlaced:  0,
	}
}

func testCart() cart.Cart {
	return cartOf(
		item("electronics", "1500", 1),
		item("fashion", "500", 2),
	)
}

func evalNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestEvaluate_Eligible(t *testing.T) {
	c := testCoupon("WELCOME100", DiscountFlat, "100")
	c.Rules.FirstOrderOnly = true

	ev := Evaluate(c, testUser(), testCart(), evalNow(), 0)

	assert.True(t, ev.Eligible)
	assert.Empty(t, ev.Reasons)
	assert.True(t, ev.Discount.Equal(d("100")))
	for rule, ok := range ev.Breakdown {
		assert.True(t, ok, "rule %s should pass", rule)
	}
}

func TestEvaluate_ReasonCodes(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Coupon)
		user       func(cart.User) cart.User
		usage      int
		wantReason ReasonCode
		wantRule   string
	}{
		{
			name:       "inactive coupon",
			mutate:     func(c *Coupon) { c.Active = false },
			wantReason: ReasonCouponInactive,
			wantRule:   RuleActive,
		},
		{
			name: "not yet started",
			mutate: func(c *Coupon) {
				c.StartDate = evalNow().Add(24 * time.Hour)
				c.EndDate = evalNow().Add(48 * time.Hour)
			},
			wantReason: ReasonDateInvalid,
			wantRule:   RuleDateWindow,
		},
		{
			name: "already expired",
			mutate: func(c *Coupon) {
				c.StartDate = evalNow().Add(-48 * time.Hour)
				c.EndDate = evalNow().Add(-24 * time.Hour)
			},
			wantReason: ReasonDateInvalid,
			wantRule:   RuleDateWindow,
		},
		{
			name:       "usage limit reached",
			mutate:     func(c *Coupon) { c.UsageLimitPerUser = ip(1) },
			usage:      1,
			wantReason: ReasonUsageLimitExceeded,
			wantRule:   RuleUsageLimit,
		},
		{
			name:       "tier not allowed",
			mutate:     func(c *Coupon) { c.Rules.AllowedUserTiers = []string{"GOLD"} },
			wantReason: ReasonUserTierNotAllowed,
			wantRule:   RuleUserTier,
		},
		{
			name:       "lifetime spend too low",
			mutate:     func(c *Coupon) { c.Rules.MinLifetimeSpend = dp("10000") },
			wantReason: ReasonMinLifetimeSpendNotMet,
			wantRule:   RuleMinLifetimeSpend,
		},
		{
			name:       "not enough orders",
			mutate:     func(c *Coupon) { c.Rules.MinOrdersPlaced = ip(3) },
			wantReason: ReasonMinOrdersNotMet,
			wantRule:   RuleMinOrdersPlaced,
		},
		{
			name:   "not a first order",
			mutate: func(c *Coupon) { c.Rules.FirstOrderOnly = true },
			user: func(u cart.User) cart.User {
				u.OrdersPlaced = 2
				return u
			},
			wantReason: ReasonNotFirstOrder,
			wantRule:   RuleFirstOrderOnly,
		},
		{
			name:       "country not allowed",
			mutate:     func(c *Coupon) { c.Rules.AllowedCountries = []string{"US", "GB"} },
			wantReason: ReasonCountryNotAllowed,
			wantRule:   RuleCountry,
		},
		{
			name:       "cart value too low",
			mutate:     func(c *Coupon) { c.Rules.MinCartValue = dp("5000") },
			wantReason: ReasonMinCartValueNotMet,
			wantRule:   RuleMinCartValue,
		},
		{
			name:       "no applicable category in cart",
			mutate:     func(c *Coupon) { c.Rules.ApplicableCategories = []string{"groceries"} },
			wantReason: ReasonCategoryNotApplicable,
			wantRule:   RuleApplicableCategories,
		},
		{
			name:       "excluded category in cart",
			mutate:     func(c *Coupon) { c.Rules.ExcludedCategories = []string{"fashion"} },
			wantReason: ReasonCategoryExcluded,
			wantRule:   RuleExcludedCategories,
		},
		{
			name:       "not enough items",
			mutate:     func(c *Coupon) { c.Rules.MinItemsCount = ip(5) },
			wantReason: ReasonMinItemsNotMet,
			wantRule:   RuleMinItemsCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCoupon("TESTME", DiscountFlat, "50")
			tt.mutate(c)

			user := testUser()
			if tt.user != nil {
				user = tt.user(user)
			}
			ev := Evaluate(c, user, testCart(), evalNow(), tt.usage)

			assert.False(t, ev.Eligible)
			assert.Contains(t, ev.Reasons, tt.wantReason)
			assert.False(t, ev.Breakdown[tt.wantRule])
			assert.True(t, ev.Discount.IsZero())
		})
	}
}

func TestEvaluate_Exhaustive(t *testing.T) {
	// Multiple failing rules must all be reported, in check order.
	c := testCoupon("MULTI", DiscountFlat, "50")
	c.Active = false
	c.Rules.AllowedUserTiers = []string{"GOLD"}
	c.Rules.MinCartValue = dp("99999")

	ev := Evaluate(c, testUser(), testCart(), evalNow(), 0)

	require.Equal(t, []ReasonCode{
		ReasonCouponInactive,
		ReasonUserTierNotAllowed,
		ReasonMinCartValueNotMet,
	}, ev.Reasons)
	assert.Len(t, ev.Breakdown, 12)
}

func TestEvaluate_DateWindowInclusive(t *testing.T) {
	c := testCoupon("EDGE", DiscountFlat, "10")

	for _, now := range []time.Time{c.StartDate, c.EndDate} {
		ev := Evaluate(c, testUser(), testCart(), now, 0)
		assert.True(t, ev.Breakdown[RuleDateWindow], "instant %s should be within the window", now)
	}
}

func TestEvaluate_UsageOverrideBelowLimit(t *testing.T) {
	c := testCoupon("LIMIT3", DiscountFlat, "10")
	c.UsageLimitPerUser = ip(3)

	ev := Evaluate(c, testUser(), testCart(), evalNow(), 2)
	assert.True(t, ev.Eligible)
}

func TestEvaluate_ZeroDiscountIsInformational(t *testing.T) {
	// Percent coupon on an empty cart: eligible, but nothing to apply.
	c := testCoupon("PCT10", DiscountPercent, "10")

	ev := Evaluate(c, testUser(), cartOf(), evalNow(), 0)

	assert.True(t, ev.Eligible)
	assert.Equal(t, []ReasonCode{ReasonNoDiscountApplicable}, ev.Reasons)
	assert.True(t, ev.Discount.IsZero())
}
