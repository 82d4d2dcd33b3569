package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME100", NormalizeCode("welcome100"))
	assert.Equal(t, "WELCOME100", NormalizeCode("  Welcome100 "))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Coupon)
		wantField string
	}{
		{
			name:   "valid coupon",
			mutate: func(c *Coupon) {},
		},
		{
			name:      "missing code",
			mutate:    func(c *Coupon) { c.Code = "" },
			wantField: "code",
		},
		{
			name:      "missing description",
			mutate:    func(c *Coupon) { c.Description = "" },
			wantField: "description",
		},
		{
			name:      "unknown discount type",
			mutate:    func(c *Coupon) { c.DiscountType = "BOGOF" },
			wantField: "discountType",
		},
		{
			name:      "zero discount value",
			mutate:    func(c *Coupon) { c.DiscountValue = d("0") },
			wantField: "discountValue",
		},
		{
			name:      "negative discount value",
			mutate:    func(c *Coupon) { c.DiscountValue = d("-5") },
			wantField: "discountValue",
		},
		{
			name:      "non-positive cap",
			mutate:    func(c *Coupon) { c.MaxDiscountAmount = dp("0") },
			wantField: "maxDiscountAmount",
		},
		{
			name:      "missing dates",
			mutate:    func(c *Coupon) { c.StartDate, c.EndDate = time.Time{}, time.Time{} },
			wantField: "startDate",
		},
		{
			name:      "end before start",
			mutate:    func(c *Coupon) { c.StartDate, c.EndDate = c.EndDate, c.StartDate },
			wantField: "endDate",
		},
		{
			name:      "end equals start",
			mutate:    func(c *Coupon) { c.EndDate = c.StartDate },
			wantField: "endDate",
		},
		{
			name:      "usage limit below one",
			mutate:    func(c *Coupon) { c.UsageLimitPerUser = ip(0) },
			wantField: "usageLimitPerUser",
		},
		{
			name:      "negative min lifetime spend",
			mutate:    func(c *Coupon) { c.Rules.MinLifetimeSpend = dp("-1") },
			wantField: "eligibility.minLifetimeSpend",
		},
		{
			name:      "negative min orders",
			mutate:    func(c *Coupon) { c.Rules.MinOrdersPlaced = ip(-1) },
			wantField: "eligibility.minOrdersPlaced",
		},
		{
			name:      "negative min cart value",
			mutate:    func(c *Coupon) { c.Rules.MinCartValue = dp("-1") },
			wantField: "eligibility.minCartValue",
		},
		{
			name:      "negative min items",
			mutate:    func(c *Coupon) { c.Rules.MinItemsCount = ip(-1) },
			wantField: "eligibility.minItemsCount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCoupon("VALID10", DiscountFlat, "10")
			tt.mutate(c)

			err := c.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.wantField, verr.Field)
			}
		})
	}
}
