// Package memory provides the process-lifetime catalog store: coupon records,
// per-user usage counters, and redemption aggregates held in maps behind a
// single RWMutex. State does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

var _ coupon.Store = (*Store)(nil)

// Store is an in-memory coupon.Store implementation.
type Store struct {
	mu      sync.RWMutex
	coupons map[string]*coupon.Coupon
	// usage holds per-user-per-coupon consumption counts: userID -> code -> uses.
	usage map[string]map[string]int
	stats map[string]*statsEntry
}

type statsEntry struct {
	totalRedemptions int
	users            map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		coupons: make(map[string]*coupon.Coupon),
		usage:   make(map[string]map[string]int),
		stats:   make(map[string]*statsEntry),
	}
}

// Create inserts a new coupon, rejecting duplicate codes.
func (s *Store) Create(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := coupon.NormalizeCode(c.Code)
	if _, exists := s.coupons[code]; exists {
		return coupon.ErrCodeExists
	}

	stored := cloneCoupon(c)
	stored.Code = code
	s.coupons[code] = stored
	return nil
}

// Get returns the coupon with the given code, soft-deleted ones included.
func (s *Store) Get(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return cloneCoupon(c), nil
}

// Update replaces every field of the stored coupon except its code.
func (s *Store) Update(_ context.Context, code string, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = coupon.NormalizeCode(code)
	if _, ok := s.coupons[code]; !ok {
		return coupon.ErrNotFound
	}

	stored := cloneCoupon(c)
	stored.Code = code
	s.coupons[code] = stored
	return nil
}

// SoftDelete deactivates the coupon and stamps DeletedAt.
func (s *Store) SoftDelete(_ context.Context, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[coupon.NormalizeCode(code)]
	if !ok {
		return coupon.ErrNotFound
	}

	c.Active = false
	c.DeletedAt = &at
	return nil
}

// List returns the coupons matching the filter, ordered by code.
func (s *Store) List(_ context.Context, f coupon.ListFilter) ([]coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]coupon.Coupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		if f.Matches(c) {
			out = append(out, *cloneCoupon(c))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Stats returns the redemption aggregates for the given code.
func (s *Store) Stats(_ context.Context, code string) (*coupon.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	code = coupon.NormalizeCode(code)
	if _, ok := s.coupons[code]; !ok {
		return nil, coupon.ErrNotFound
	}

	st := &coupon.Stats{Code: code}
	if e, ok := s.stats[code]; ok {
		st.TotalRedemptions = e.totalRedemptions
		st.UniqueUsers = len(e.users)
	}
	return st, nil
}

// RecordRedemption increments the coupon's redemption total and adds the user
// to its unique-user set.
func (s *Store) RecordRedemption(_ context.Context, code, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = coupon.NormalizeCode(code)
	if _, ok := s.coupons[code]; !ok {
		return coupon.ErrNotFound
	}

	e, ok := s.stats[code]
	if !ok {
		e = &statsEntry{users: make(map[string]struct{})}
		s.stats[code] = e
	}
	e.totalRedemptions++
	if userID != "" {
		e.users[userID] = struct{}{}
	}
	return nil
}

// UsageCount returns how many times the user has consumed the coupon.
func (s *Store) UsageCount(_ context.Context, userID, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.usage[userID][coupon.NormalizeCode(code)], nil
}

// IncrementUsage bumps the per-user consumption counter. It is not part of
// coupon.Store: the engine itself never writes usage, the redeem collaborator
// does.
func (s *Store) IncrementUsage(_ context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = coupon.NormalizeCode(code)
	byUser, ok := s.usage[userID]
	if !ok {
		byUser = make(map[string]int)
		s.usage[userID] = byUser
	}
	byUser[code]++
	return nil
}

// cloneCoupon deep-copies a coupon so callers never share mutable state with
// the store.
func cloneCoupon(c *coupon.Coupon) *coupon.Coupon {
	out := *c

	if c.MaxDiscountAmount != nil {
		v := *c.MaxDiscountAmount
		out.MaxDiscountAmount = &v
	}
	if c.UsageLimitPerUser != nil {
		v := *c.UsageLimitPerUser
		out.UsageLimitPerUser = &v
	}
	if c.DeletedAt != nil {
		v := *c.DeletedAt
		out.DeletedAt = &v
	}

	r := &out.Rules
	r.AllowedUserTiers = cloneStrings(c.Rules.AllowedUserTiers)
	r.AllowedCountries = cloneStrings(c.Rules.AllowedCountries)
	r.ApplicableCategories = cloneStrings(c.Rules.ApplicableCategories)
	r.ExcludedCategories = cloneStrings(c.Rules.ExcludedCategories)
	if c.Rules.MinLifetimeSpend != nil {
		v := *c.Rules.MinLifetimeSpend
		r.MinLifetimeSpend = &v
	}
	if c.Rules.MinCartValue != nil {
		v := *c.Rules.MinCartValue
		r.MinCartValue = &v
	}
	if c.Rules.MinOrdersPlaced != nil {
		v := *c.Rules.MinOrdersPlaced
		r.MinOrdersPlaced = &v
	}
	if c.Rules.MinItemsCount != nil {
		v := *c.Rules.MinItemsCount
		r.MinItemsCount = &v
	}

	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
