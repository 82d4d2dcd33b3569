// Package coupon implements the promotional coupon engine: the catalog
// record model, the eligibility rule evaluator, the discount calculator, and
// the deterministic best-coupon resolver.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountFlat subtracts a fixed currency amount, independent of cart size.
	DiscountFlat DiscountType = "FLAT"
	// DiscountPercent subtracts a percentage of the cart value, optionally
	// capped by the coupon's MaxDiscountAmount.
	DiscountPercent DiscountType = "PERCENT"
)

var (
	// ErrNotFound is returned when a coupon code does not exist in the catalog.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeExists is returned when creating a coupon whose code is already taken.
	ErrCodeExists = errors.New("coupon code already exists")
)

// ValidationError reports a rejected coupon payload. Field names use the
// wire-format casing so the message is directly renderable to API clients.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid coupon: " + e.Field + " " + e.Reason
}

// Rules is a coupon's eligibility rule set. Every field is optional and
// independent; configured rules are ANDed together.
type Rules struct {
	AllowedUserTiers     []string
	MinLifetimeSpend     *decimal.Decimal
	MinOrdersPlaced      *int
	FirstOrderOnly       bool
	AllowedCountries     []string
	MinCartValue         *decimal.Decimal
	ApplicableCategories []string
	ExcludedCategories   []string
	MinItemsCount        *int
}

// Coupon is a named discount policy with a validity window, a discount rule,
// and an eligibility rule set. Code is the sole identity key and is immutable
// after creation.
type Coupon struct {
	Code              string
	Description       string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	UsageLimitPerUser *int
	Rules             Rules
	Active            bool
	DeletedAt         *time.Time
}

// NormalizeCode canonicalizes a coupon code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the record-level invariants of a coupon payload.
// It does not consult the catalog; duplicate detection happens in the store.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if c.Description == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	switch c.DiscountType {
	case DiscountFlat, DiscountPercent:
	default:
		return &ValidationError{Field: "discountType", Reason: "must be FLAT or PERCENT"}
	}
	if !c.DiscountValue.IsPositive() {
		return &ValidationError{Field: "discountValue", Reason: "must be positive"}
	}
	if c.MaxDiscountAmount != nil && !c.MaxDiscountAmount.IsPositive() {
		return &ValidationError{Field: "maxDiscountAmount", Reason: "must be positive"}
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "and endDate are required"}
	}
	if !c.EndDate.After(c.StartDate) {
		return &ValidationError{Field: "endDate", Reason: "must be after startDate"}
	}
	if c.UsageLimitPerUser != nil && *c.UsageLimitPerUser < 1 {
		return &ValidationError{Field: "usageLimitPerUser", Reason: "must be at least 1"}
	}
	return c.Rules.validate()
}

func (r *Rules) validate() error {
	if r.MinLifetimeSpend != nil && r.MinLifetimeSpend.IsNegative() {
		return &ValidationError{Field: "eligibility.minLifetimeSpend", Reason: "must not be negative"}
	}
	if r.MinOrdersPlaced != nil && *r.MinOrdersPlaced < 0 {
		return &ValidationError{Field: "eligibility.minOrdersPlaced", Reason: "must not be negative"}
	}
	if r.MinCartValue != nil && r.MinCartValue.IsNegative() {
		return &ValidationError{Field: "eligibility.minCartValue", Reason: "must not be negative"}
	}
	if r.MinItemsCount != nil && *r.MinItemsCount < 0 {
		return &ValidationError{Field: "eligibility.minItemsCount", Reason: "must not be negative"}
	}
	return nil
}

// Stats aggregates redemption counters for a single coupon.
type Stats struct {
	Code             string
	TotalRedemptions int
	UniqueUsers      int
}

// Store is the catalog collaborator: it holds coupon records, per-user usage
// counters, and redemption aggregates. Implementations must be safe for
// concurrent use; catalog mutation and redemption increments require mutual
// exclusion so concurrent selections cannot lose counter updates.
type Store interface {
	// Create inserts a new coupon. Returns ErrCodeExists when the code is taken.
	Create(ctx context.Context, c *Coupon) error
	// Get returns the coupon with the given code, soft-deleted ones included.
	Get(ctx context.Context, code string) (*Coupon, error)
	// Update replaces every field of the coupon except its code.
	Update(ctx context.Context, code string, c *Coupon) error
	// SoftDelete deactivates the coupon and stamps DeletedAt. The record is
	// never physically removed, so historical stats stay valid.
	SoftDelete(ctx context.Context, code string, at time.Time) error
	// List returns the coupons matching the filter.
	List(ctx context.Context, f ListFilter) ([]Coupon, error)
	// Stats returns the redemption aggregates for the given code.
	Stats(ctx context.Context, code string) (*Stats, error)
	// RecordRedemption increments the coupon's redemption total and adds the
	// user to its unique-user set.
	RecordRedemption(ctx context.Context, code, userID string) error
	// UsageCount returns how many times the user has consumed the coupon,
	// zero if never.
	UsageCount(ctx context.Context, userID, code string) (int, error)
}
