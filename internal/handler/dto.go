package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// couponPayload is the request body for coupon create/update. Money fields
// decode into decimal.Decimal directly so amounts never round-trip through
// binary floats.
type couponPayload struct {
	Code              string           `json:"code"`
	Description       string           `json:"description"`
	DiscountType      string           `json:"discountType"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	UsageLimitPerUser *int             `json:"usageLimitPerUser"`
	Eligibility       rulesPayload     `json:"eligibility"`
}

type rulesPayload struct {
	AllowedUserTiers     []string         `json:"allowedUserTiers"`
	MinLifetimeSpend     *decimal.Decimal `json:"minLifetimeSpend"`
	MinOrdersPlaced      *int             `json:"minOrdersPlaced"`
	FirstOrderOnly       bool             `json:"firstOrderOnly"`
	AllowedCountries     []string         `json:"allowedCountries"`
	MinCartValue         *decimal.Decimal `json:"minCartValue"`
	ApplicableCategories []string         `json:"applicableCategories"`
	ExcludedCategories   []string         `json:"excludedCategories"`
	MinItemsCount        *int             `json:"minItemsCount"`
}

func (p *couponPayload) toDomain() *coupon.Coupon {
	return &coupon.Coupon{
		Code:              coupon.NormalizeCode(p.Code),
		Description:       p.Description,
		DiscountType:      coupon.DiscountType(p.DiscountType),
		DiscountValue:     p.DiscountValue,
		MaxDiscountAmount: p.MaxDiscountAmount,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		UsageLimitPerUser: p.UsageLimitPerUser,
		Rules:             coupon.Rules(p.Eligibility),
		Active:            true,
	}
}

// couponResponse is the wire form of a coupon record. Amounts are JSON
// numbers.
type couponResponse struct {
	Code              string       `json:"code"`
	Description       string       `json:"description"`
	DiscountType      string       `json:"discountType"`
	DiscountValue     float64      `json:"discountValue"`
	MaxDiscountAmount *float64     `json:"maxDiscountAmount,omitempty"`
	StartDate         time.Time    `json:"startDate"`
	EndDate           time.Time    `json:"endDate"`
	UsageLimitPerUser *int         `json:"usageLimitPerUser,omitempty"`
	Eligibility       rulesPayload `json:"eligibility"`
	IsActive          bool         `json:"isActive"`
	DeletedAt         *time.Time   `json:"deletedAt,omitempty"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	resp := couponResponse{
		Code:              c.Code,
		Description:       c.Description,
		DiscountType:      string(c.DiscountType),
		DiscountValue:     c.DiscountValue.InexactFloat64(),
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		UsageLimitPerUser: c.UsageLimitPerUser,
		Eligibility:       rulesPayload(c.Rules),
		IsActive:          c.Active,
		DeletedAt:         c.DeletedAt,
	}
	if c.MaxDiscountAmount != nil {
		v := c.MaxDiscountAmount.InexactFloat64()
		resp.MaxDiscountAmount = &v
	}
	return resp
}

type userPayload struct {
	UserID        string          `json:"userId"`
	UserTier      string          `json:"userTier"`
	Country       string          `json:"country"`
	LifetimeSpend decimal.Decimal `json:"lifetimeSpend"`
	OrdersPlaced  int             `json:"ordersPlaced"`
	CouponUsage   map[string]int  `json:"couponUsage"`
}

func (p *userPayload) toDomain() cart.User {
	return cart.User{
		ID:            p.UserID,
		Tier:          p.UserTier,
		Country:       p.Country,
		LifetimeSpend: p.LifetimeSpend,
		OrdersPlaced:  p.OrdersPlaced,
		CouponUsage:   p.CouponUsage,
	}
}

type cartPayload struct {
	Items []cartItemPayload `json:"items"`
}

type cartItemPayload struct {
	ProductID string          `json:"productId"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

func (p *cartPayload) toDomain() cart.Cart {
	items := make([]cart.Item, len(p.Items))
	for i, item := range p.Items {
		items[i] = cart.Item{
			ProductID: item.ProductID,
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return cart.Cart{Items: items}
}

// evaluationRequest is the body for validate and find-best queries.
type evaluationRequest struct {
	User     *userPayload `json:"user"`
	Cart     *cartPayload `json:"cart"`
	Simulate bool         `json:"simulate"`
}

type validateResponse struct {
	IsEligible bool                `json:"isEligible"`
	Reasons    []coupon.ReasonCode `json:"reasons"`
	Breakdown  map[string]bool     `json:"breakdown"`
	Discount   float64             `json:"discount"`
}

type bestCouponResponse struct {
	Coupon   *couponResponse `json:"coupon"`
	Discount float64         `json:"discount"`
}

type statsResponse struct {
	Code             string `json:"code"`
	TotalRedemptions int    `json:"totalRedemptions"`
	UniqueUsers      int    `json:"uniqueUsers"`
}

type listResponse struct {
	Coupons []couponResponse `json:"coupons"`
}
