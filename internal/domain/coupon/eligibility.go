package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// Evaluation is the full verdict for one coupon against one user and cart.
// The same structure backs both the single-coupon diagnostic query (which
// renders Reasons and Breakdown) and catalog-wide selection (which only looks
// at Eligible and Discount).
type Evaluation struct {
	Eligible bool
	// Reasons lists the failed checks in the fixed order they run. A trailing
	// NO_DISCOUNT_APPLICABLE entry is informational and does not affect Eligible.
	Reasons []ReasonCode
	// Breakdown records pass/fail per rule name for every check performed,
	// including rules the coupon does not configure (recorded as pass).
	Breakdown map[string]bool
	Discount  decimal.Decimal
}

// Evaluate runs every eligibility check for the coupon against the user and
// cart at the given instant. Evaluation is exhaustive, not short-circuiting:
// each failing check contributes both a Breakdown entry and a reason code, so
// callers can render a complete diagnostic. usageCount is the resolved
// per-user usage count for this coupon (see Resolver.usageCount).
func Evaluate(c *Coupon, user cart.User, crt cart.Cart, now time.Time, usageCount int) Evaluation {
	ev := Evaluation{
		Breakdown: make(map[string]bool, 12),
		Discount:  decimal.Zero,
	}

	check := func(rule string, ok bool, reason ReasonCode) {
		ev.Breakdown[rule] = ok
		if !ok {
			ev.Reasons = append(ev.Reasons, reason)
		}
	}

	check(RuleActive, c.Active, ReasonCouponInactive)

	withinWindow := !now.Before(c.StartDate) && !now.After(c.EndDate)
	check(RuleDateWindow, withinWindow, ReasonDateInvalid)

	usageOK := c.UsageLimitPerUser == nil || usageCount < *c.UsageLimitPerUser
	check(RuleUsageLimit, usageOK, ReasonUsageLimitExceeded)

	r := c.Rules

	check(RuleUserTier,
		len(r.AllowedUserTiers) == 0 || contains(r.AllowedUserTiers, user.Tier),
		ReasonUserTierNotAllowed)

	check(RuleMinLifetimeSpend,
		r.MinLifetimeSpend == nil || user.LifetimeSpend.GreaterThanOrEqual(*r.MinLifetimeSpend),
		ReasonMinLifetimeSpendNotMet)

	check(RuleMinOrdersPlaced,
		r.MinOrdersPlaced == nil || user.OrdersPlaced >= *r.MinOrdersPlaced,
		ReasonMinOrdersNotMet)

	check(RuleFirstOrderOnly,
		!r.FirstOrderOnly || user.OrdersPlaced == 0,
		ReasonNotFirstOrder)

	check(RuleCountry,
		len(r.AllowedCountries) == 0 || contains(r.AllowedCountries, user.Country),
		ReasonCountryNotAllowed)

	check(RuleMinCartValue,
		r.MinCartValue == nil || crt.Value().GreaterThanOrEqual(*r.MinCartValue),
		ReasonMinCartValueNotMet)

	categories := crt.Categories()

	check(RuleApplicableCategories,
		len(r.ApplicableCategories) == 0 || anyInSet(r.ApplicableCategories, categories),
		ReasonCategoryNotApplicable)

	check(RuleExcludedCategories,
		len(r.ExcludedCategories) == 0 || !anyInSet(r.ExcludedCategories, categories),
		ReasonCategoryExcluded)

	check(RuleMinItemsCount,
		r.MinItemsCount == nil || crt.TotalItems() >= *r.MinItemsCount,
		ReasonMinItemsNotMet)

	ev.Eligible = len(ev.Reasons) == 0
	if ev.Eligible {
		ev.Discount = Calculate(c, crt)
		if ev.Discount.IsZero() {
			// Technically eligible, nothing to apply.
			ev.Reasons = append(ev.Reasons, ReasonNoDiscountApplicable)
		}
	}

	return ev
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyInSet(list []string, set map[string]struct{}) bool {
	for _, s := range list {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
