package coupon

import "time"

// StatusFilter narrows a catalog listing by lifecycle state.
type StatusFilter string

const (
	// StatusActive matches coupons that are active and not soft-deleted.
	// This is the default listing behaviour.
	StatusActive StatusFilter = "active"
	// StatusInactive matches coupons that are inactive or soft-deleted.
	StatusInactive StatusFilter = "inactive"
	// StatusAll matches every coupon, soft-deleted ones included.
	StatusAll StatusFilter = "all"
)

// ParseStatusFilter maps a query-string value to a StatusFilter.
// An empty value selects the default; unknown values are rejected.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case "":
		return StatusActive, true
	case StatusActive, StatusInactive, StatusAll:
		return StatusFilter(s), true
	default:
		return "", false
	}
}

// ListFilter narrows a catalog listing. Each set field narrows independently;
// all conditions are ANDed.
type ListFilter struct {
	Status StatusFilter
	// ValidOn keeps only coupons whose validity window contains the instant,
	// endpoints inclusive.
	ValidOn *time.Time
	// UserTier keeps only coupons available to the tier: no tier restriction,
	// or the tier is a member of AllowedUserTiers.
	UserTier string
	// Category keeps only coupons applicable to the category: it must not be
	// excluded and, when an applicable set is configured, must be a member.
	Category string
}

// Matches reports whether the coupon passes the filter. Shared by every store
// implementation so listing semantics never diverge.
func (f ListFilter) Matches(c *Coupon) bool {
	live := c.Active && c.DeletedAt == nil

	switch f.Status {
	case StatusInactive:
		if live {
			return false
		}
	case StatusAll:
	default: // StatusActive and the zero value
		if !live {
			return false
		}
	}

	if f.ValidOn != nil {
		if f.ValidOn.Before(c.StartDate) || f.ValidOn.After(c.EndDate) {
			return false
		}
	}

	if f.UserTier != "" &&
		len(c.Rules.AllowedUserTiers) > 0 &&
		!contains(c.Rules.AllowedUserTiers, f.UserTier) {
		return false
	}

	if f.Category != "" {
		if contains(c.Rules.ExcludedCategories, f.Category) {
			return false
		}
		if len(c.Rules.ApplicableCategories) > 0 &&
			!contains(c.Rules.ApplicableCategories, f.Category) {
			return false
		}
	}

	return true
}
