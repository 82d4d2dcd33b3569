package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/cart"
)

// BestResult is the outcome of a best-coupon selection. A nil Coupon with a
// zero Discount means no coupon applies; that is a normal result, not an error.
type BestResult struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// FindBestParams tunes a best-coupon selection.
type FindBestParams struct {
	// Simulate suppresses the redemption-stat side effect, making the
	// selection a pure what-if query.
	Simulate bool
}

// Resolver answers the two engine queries: "is this specific coupon usable
// now" and "what is the single best coupon for this user and cart".
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver creates a Resolver backed by the given catalog store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// usageCount resolves how many times the user has consumed the coupon.
// A caller-supplied override in the user context wins verbatim (including
// zero); otherwise the persistent per-user counter is consulted. The override
// is never merged with persistent state, so simulations stay side-effect-free
// by construction.
func (r *Resolver) usageCount(ctx context.Context, user cart.User, code string) (int, error) {
	if n, ok := user.CouponUsage[code]; ok {
		return n, nil
	}
	n, err := r.store.UsageCount(ctx, user.ID, code)
	if err != nil {
		return 0, errors.Wrap(err, "usage count")
	}
	return n, nil
}

// Validate evaluates the named coupon against the user and cart and returns
// the full verdict. Returns ErrNotFound when the code is unknown. Soft-deleted
// coupons still resolve; their verdict reports COUPON_INACTIVE, which keeps
// diagnostics working for retired codes.
func (r *Resolver) Validate(ctx context.Context, code string, user cart.User, crt cart.Cart) (*Evaluation, error) {
	code = NormalizeCode(code)

	c, err := r.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	usage, err := r.usageCount(ctx, user, code)
	if err != nil {
		return nil, err
	}

	ev := Evaluate(c, user, crt, r.now(), usage)
	return &ev, nil
}

// FindBest evaluates every active coupon in the catalog and selects the one
// yielding the maximum discount. Ineligible and zero-discount candidates are
// discarded. Ties break deterministically: earlier EndDate wins, then the
// lexicographically smaller code. When a winner is found and params.Simulate
// is false, the winner's redemption aggregates are updated.
func (r *Resolver) FindBest(ctx context.Context, user cart.User, crt cart.Cart, params FindBestParams) (*BestResult, error) {
	// Soft-deleted and inactive coupons are excluded up front, not merely by
	// a reason code.
	candidates, err := r.store.List(ctx, ListFilter{Status: StatusActive})
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	now := r.now()
	best := &BestResult{Discount: decimal.Zero}

	for i := range candidates {
		c := &candidates[i]

		usage, err := r.usageCount(ctx, user, c.Code)
		if err != nil {
			return nil, err
		}

		ev := Evaluate(c, user, crt, now, usage)
		if !ev.Eligible || ev.Discount.IsZero() {
			continue
		}

		if best.Coupon == nil || beats(c, ev.Discount, best) {
			best = &BestResult{Coupon: c, Discount: ev.Discount}
		}
	}

	if best.Coupon != nil && !params.Simulate {
		if err := r.store.RecordRedemption(ctx, best.Coupon.Code, user.ID); err != nil {
			return nil, errors.Wrap(err, "record redemption")
		}
	}

	return best, nil
}

// beats reports whether challenger c with the given discount should replace
// the current best.
func beats(c *Coupon, discount decimal.Decimal, best *BestResult) bool {
	if cmp := discount.Cmp(best.Discount); cmp != 0 {
		return cmp > 0
	}
	if !c.EndDate.Equal(best.Coupon.EndDate) {
		return c.EndDate.Before(best.Coupon.EndDate)
	}
	return c.Code < best.Coupon.Code
}
