package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

func newCoupon(code string) *coupon.Coupon {
	return &coupon.Coupon{
		Code:          code,
		Description:   "test coupon",
		DiscountType:  coupon.DiscountFlat,
		DiscountValue: decimal.NewFromInt(100),
		StartDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCoupon("save10")))

	// Codes are normalized on write and on lookup.
	got, err := s.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)

	got, err = s.Get(ctx, "save10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Code)
}

func TestStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Create(ctx, newCoupon("SAVE10")))
	err := s.Create(ctx, newCoupon("save10"))
	assert.ErrorIs(t, err, coupon.ErrCodeExists)
}

func TestStore_GetNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Get(context.Background(), "MISSING")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newCoupon("SAVE10")))

	upd := newCoupon("SAVE10")
	upd.Description = "updated"
	upd.DiscountValue = decimal.NewFromInt(250)
	require.NoError(t, s.Update(ctx, "SAVE10", upd))

	got, err := s.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Description)
	assert.True(t, got.DiscountValue.Equal(decimal.NewFromInt(250)))

	err = s.Update(ctx, "MISSING", upd)
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestStore_SoftDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newCoupon("SAVE10")))

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SoftDelete(ctx, "SAVE10", at))

	// The record survives and is retrievable.
	got, err := s.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, got.DeletedAt.Equal(at))

	// Default listing no longer shows it.
	active, err := s.List(ctx, coupon.ListFilter{Status: coupon.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.List(ctx, coupon.ListFilter{Status: coupon.StatusAll})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = s.SoftDelete(ctx, "MISSING", at)
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	gold := newCoupon("GOLD15")
	gold.Rules.AllowedUserTiers = []string{"GOLD"}
	require.NoError(t, s.Create(ctx, gold))

	electronics := newCoupon("FESTIVE20")
	electronics.Rules.ApplicableCategories = []string{"electronics"}
	require.NoError(t, s.Create(ctx, electronics))

	expired := newCoupon("OLD5")
	expired.StartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expired.EndDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, expired))

	// Results come back ordered by code.
	all, err := s.List(ctx, coupon.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "FESTIVE20", all[0].Code)
	assert.Equal(t, "GOLD15", all[1].Code)
	assert.Equal(t, "OLD5", all[2].Code)

	validOn := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	valid, err := s.List(ctx, coupon.ListFilter{ValidOn: &validOn})
	require.NoError(t, err)
	require.Len(t, valid, 2)

	tier, err := s.List(ctx, coupon.ListFilter{UserTier: "SILVER"})
	require.NoError(t, err)
	for _, c := range tier {
		assert.NotEqual(t, "GOLD15", c.Code)
	}

	cat, err := s.List(ctx, coupon.ListFilter{Category: "fashion"})
	require.NoError(t, err)
	for _, c := range cat {
		assert.NotEqual(t, "FESTIVE20", c.Code)
	}
}

func TestStore_StatsAndRedemptions(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Create(ctx, newCoupon("SAVE10")))

	st, err := s.Stats(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalRedemptions)
	assert.Equal(t, 0, st.UniqueUsers)

	require.NoError(t, s.RecordRedemption(ctx, "SAVE10", "u1"))
	require.NoError(t, s.RecordRedemption(ctx, "SAVE10", "u1"))
	require.NoError(t, s.RecordRedemption(ctx, "save10", "u2"))

	st, err = s.Stats(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalRedemptions)
	assert.Equal(t, 2, st.UniqueUsers)

	_, err = s.Stats(ctx, "MISSING")
	assert.ErrorIs(t, err, coupon.ErrNotFound)

	err = s.RecordRedemption(ctx, "MISSING", "u1")
	assert.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestStore_UsageCounters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	n, err := s.UsageCount(ctx, "u1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.IncrementUsage(ctx, "u1", "save10"))
	require.NoError(t, s.IncrementUsage(ctx, "u1", "SAVE10"))

	n, err = s.UsageCount(ctx, "u1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Counters are per user.
	n, err = s.UsageCount(ctx, "u2", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_CallersNeverShareState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	c := newCoupon("SAVE10")
	c.Rules.AllowedCountries = []string{"IN"}
	require.NoError(t, s.Create(ctx, c))

	// Mutating the input after Create must not affect the stored record.
	c.Description = "mutated"
	c.Rules.AllowedCountries[0] = "US"

	got, err := s.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "test coupon", got.Description)
	assert.Equal(t, []string{"IN"}, got.Rules.AllowedCountries)

	// Mutating a returned record must not affect subsequent reads.
	got.Rules.AllowedCountries[0] = "GB"
	again, err := s.Get(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, []string{"IN"}, again.Rules.AllowedCountries)
}
