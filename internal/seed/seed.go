// Package seed loads coupon fixtures from JSON files, for demo catalogs and
// the seed-db tool.
package seed

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

type couponJSON struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	UsageLimitPerUser *int             `json:"usageLimitPerUser,omitempty"`
	Eligibility       rulesJSON        `json:"eligibility"`
}

type rulesJSON struct {
	AllowedUserTiers     []string         `json:"allowedUserTiers,omitempty"`
	MinLifetimeSpend     *decimal.Decimal `json:"minLifetimeSpend,omitempty"`
	MinOrdersPlaced      *int             `json:"minOrdersPlaced,omitempty"`
	FirstOrderOnly       bool             `json:"firstOrderOnly,omitempty"`
	AllowedCountries     []string         `json:"allowedCountries,omitempty"`
	MinCartValue         *decimal.Decimal `json:"minCartValue,omitempty"`
	ApplicableCategories []string         `json:"applicableCategories,omitempty"`
	ExcludedCategories   []string         `json:"excludedCategories,omitempty"`
	MinItemsCount        *int             `json:"minItemsCount,omitempty"`
}

// Load reads a JSON coupon fixture file and returns validated coupon records.
// Seeded coupons start active without a deletion stamp.
func Load(path string) ([]coupon.Coupon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return Parse(data)
}

// Parse decodes and validates a JSON coupon fixture document.
func Parse(data []byte) ([]coupon.Coupon, error) {
	var raw []couponJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse seed JSON")
	}

	out := make([]coupon.Coupon, 0, len(raw))
	for _, cj := range raw {
		c := coupon.Coupon{
			Code:              coupon.NormalizeCode(cj.Code),
			Description:       cj.Description,
			DiscountType:      coupon.DiscountType(cj.DiscountType),
			DiscountValue:     cj.DiscountValue,
			MaxDiscountAmount: cj.MaxDiscountAmount,
			StartDate:         cj.StartDate,
			EndDate:           cj.EndDate,
			UsageLimitPerUser: cj.UsageLimitPerUser,
			Rules: coupon.Rules{
				AllowedUserTiers:     cj.Eligibility.AllowedUserTiers,
				MinLifetimeSpend:     cj.Eligibility.MinLifetimeSpend,
				MinOrdersPlaced:      cj.Eligibility.MinOrdersPlaced,
				FirstOrderOnly:       cj.Eligibility.FirstOrderOnly,
				AllowedCountries:     cj.Eligibility.AllowedCountries,
				MinCartValue:         cj.Eligibility.MinCartValue,
				ApplicableCategories: cj.Eligibility.ApplicableCategories,
				ExcludedCategories:   cj.Eligibility.ExcludedCategories,
				MinItemsCount:        cj.Eligibility.MinItemsCount,
			},
			Active: true,
		}
		if err := c.Validate(); err != nil {
			return nil, errors.Wrapf(err, "seed coupon %q", cj.Code)
		}
		out = append(out, c)
	}

	return out, nil
}
