package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

const (
	insertCouponSQL = `INSERT INTO coupons
		(code, description, discount_type, discount_value, max_discount_amount,
		 start_date, end_date, usage_limit_per_user, eligibility, active, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (code) DO NOTHING`

	getCouponSQL = `SELECT code, description, discount_type, discount_value,
		max_discount_amount, start_date, end_date, usage_limit_per_user,
		eligibility, active, deleted_at
		FROM coupons WHERE code = $1`

	updateCouponSQL = `UPDATE coupons SET
		description = $2, discount_type = $3, discount_value = $4,
		max_discount_amount = $5, start_date = $6, end_date = $7,
		usage_limit_per_user = $8, eligibility = $9, active = $10, deleted_at = $11
		WHERE code = $1`

	softDeleteCouponSQL = `UPDATE coupons SET active = FALSE, deleted_at = $2
		WHERE code = $1`

	listCouponsSQL = `SELECT code, description, discount_type, discount_value,
		max_discount_amount, start_date, end_date, usage_limit_per_user,
		eligibility, active, deleted_at
		FROM coupons ORDER BY code`

	statsSQL = `SELECT c.code,
		COALESCE(s.total_redemptions, 0),
		(SELECT COUNT(*) FROM coupon_redeemers r WHERE r.code = c.code)
		FROM coupons c
		LEFT JOIN coupon_stats s ON s.code = c.code
		WHERE c.code = $1`

	bumpStatsSQL = `INSERT INTO coupon_stats (code, total_redemptions)
		VALUES ($1, 1)
		ON CONFLICT (code) DO UPDATE
		SET total_redemptions = coupon_stats.total_redemptions + 1`

	addRedeemerSQL = `INSERT INTO coupon_redeemers (code, user_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`

	usageCountSQL = `SELECT uses FROM coupon_usage WHERE user_id = $1 AND code = $2`
)

var _ coupon.Store = (*Store)(nil)

// Store implements coupon.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping reports connectivity, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Create inserts a new coupon. Returns coupon.ErrCodeExists when the code is
// already taken.
func (s *Store) Create(ctx context.Context, c *coupon.Coupon) error {
	rules, err := marshalRules(c.Rules)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, insertCouponSQL,
		coupon.NormalizeCode(c.Code), c.Description, string(c.DiscountType),
		c.DiscountValue, c.MaxDiscountAmount, c.StartDate, c.EndDate,
		c.UsageLimitPerUser, rules, c.Active, c.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCodeExists
	}
	return nil
}

// Get looks up a coupon by code, soft-deleted ones included.
func (s *Store) Get(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, getCouponSQL, coupon.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// Update replaces every field of the coupon except its code.
func (s *Store) Update(ctx context.Context, code string, c *coupon.Coupon) error {
	rules, err := marshalRules(c.Rules)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, updateCouponSQL,
		coupon.NormalizeCode(code), c.Description, string(c.DiscountType),
		c.DiscountValue, c.MaxDiscountAmount, c.StartDate, c.EndDate,
		c.UsageLimitPerUser, rules, c.Active, c.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("updating coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// SoftDelete deactivates the coupon and stamps deleted_at.
func (s *Store) SoftDelete(ctx context.Context, code string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, softDeleteCouponSQL, coupon.NormalizeCode(code), at)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// List returns the coupons matching the filter, ordered by code. Lifecycle,
// window, tier, and category narrowing share the domain predicate with the
// in-memory store so listing semantics never diverge.
func (s *Store) List(ctx context.Context, f coupon.ListFilter) ([]coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}

	all, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}

	out := all[:0]
	for i := range all {
		if f.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Stats returns redemption aggregates for the coupon.
func (s *Store) Stats(ctx context.Context, code string) (*coupon.Stats, error) {
	st := &coupon.Stats{}
	err := s.pool.QueryRow(ctx, statsSQL, coupon.NormalizeCode(code)).
		Scan(&st.Code, &st.TotalRedemptions, &st.UniqueUsers)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("stats for coupon %q: %w", code, err)
	}
	return st, nil
}

// RecordRedemption increments the redemption total and registers the user in
// the unique-user set, atomically.
func (s *Store) RecordRedemption(ctx context.Context, code, userID string) error {
	code = coupon.NormalizeCode(code)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recording redemption for %q: %w", code, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, bumpStatsSQL, code); err != nil {
		return fmt.Errorf("recording redemption for %q: %w", code, err)
	}
	if userID != "" {
		if _, err := tx.Exec(ctx, addRedeemerSQL, code, userID); err != nil {
			return fmt.Errorf("recording redeemer for %q: %w", code, err)
		}
	}

	return tx.Commit(ctx)
}

// UsageCount returns the per-user consumption counter, zero when absent.
// The counter is written by the order-placement collaborator, never here.
func (s *Store) UsageCount(ctx context.Context, userID, code string) (int, error) {
	var uses int
	err := s.pool.QueryRow(ctx, usageCountSQL, userID, coupon.NormalizeCode(code)).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage count for %q: %w", code, err)
	}
	return uses, nil
}

// rulesDoc is the JSONB representation of an eligibility rule set.
type rulesDoc struct {
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

func marshalRules(r coupon.Rules) ([]byte, error) {
	doc := rulesDoc(r)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling eligibility rules: %w", err)
	}
	return data, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		rulesJSON    []byte
	)
	err := row.Scan(
		&c.Code, &c.Description, &discountType, &c.DiscountValue,
		&c.MaxDiscountAmount, &c.StartDate, &c.EndDate, &c.UsageLimitPerUser,
		&rulesJSON, &c.Active, &c.DeletedAt,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.DiscountType = coupon.DiscountType(discountType)

	var doc rulesDoc
	if len(rulesJSON) > 0 {
		if err := json.Unmarshal(rulesJSON, &doc); err != nil {
			return coupon.Coupon{}, fmt.Errorf("unmarshaling eligibility rules: %w", err)
		}
	}
	c.Rules = coupon.Rules(doc)

	return c, nil
}
