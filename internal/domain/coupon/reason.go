package coupon

// ReasonCode names exactly which eligibility check failed. The set is closed:
// clients map codes to human-readable text, the engine never emits free-form
// failure explanations.
type ReasonCode string

const (
	ReasonCouponInactive         ReasonCode = "COUPON_INACTIVE"
	ReasonDateInvalid            ReasonCode = "DATE_INVALID"
	ReasonUsageLimitExceeded     ReasonCode = "USAGE_LIMIT_EXCEEDED"
	ReasonUserTierNotAllowed     ReasonCode = "USER_TIER_NOT_ALLOWED"
	ReasonMinLifetimeSpendNotMet ReasonCode = "MIN_LIFETIME_SPEND_NOT_MET"
	ReasonMinOrdersNotMet        ReasonCode = "MIN_ORDERS_NOT_MET"
	ReasonNotFirstOrder          ReasonCode = "NOT_FIRST_ORDER"
	ReasonCountryNotAllowed      ReasonCode = "COUNTRY_NOT_ALLOWED"
	ReasonMinCartValueNotMet     ReasonCode = "MIN_CART_VALUE_NOT_MET"
	ReasonCategoryNotApplicable  ReasonCode = "CATEGORY_NOT_APPLICABLE"
	ReasonCategoryExcluded       ReasonCode = "CATEGORY_EXCLUDED"
	ReasonMinItemsNotMet         ReasonCode = "MIN_ITEMS_NOT_MET"

	// ReasonNoDiscountApplicable is informational: the coupon is eligible but
	// the computed discount is zero. It never flips the eligibility verdict.
	ReasonNoDiscountApplicable ReasonCode = "NO_DISCOUNT_APPLICABLE"
)

// Breakdown rule names, recorded in the fixed order checks run. Every
// evaluation reports all of them, so clients always render a complete grid.
const (
	RuleActive               = "active"
	RuleDateWindow           = "dateWindow"
	RuleUsageLimit           = "usageLimit"
	RuleUserTier             = "userTier"
	RuleMinLifetimeSpend     = "minLifetimeSpend"
	RuleMinOrdersPlaced      = "minOrdersPlaced"
	RuleFirstOrderOnly       = "firstOrderOnly"
	RuleCountry              = "country"
	RuleMinCartValue         = "minCartValue"
	RuleApplicableCategories = "applicableCategories"
	RuleExcludedCategories   = "excludedCategories"
	RuleMinItemsCount        = "minItemsCount"
)
