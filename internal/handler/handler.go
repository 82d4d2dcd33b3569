// Package handler exposes the coupon engine over a JSON HTTP API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// Handler serves the coupon catalog and evaluation endpoints, delegating
// decision logic to the resolver and persistence to the store.
type Handler struct {
	store    coupon.Store
	resolver *coupon.Resolver
	metrics  *Metrics
	now      func() time.Time
}

// NewHandler constructs a Handler. metrics may be nil, in which case no
// counters are recorded.
func NewHandler(store coupon.Store, resolver *coupon.Resolver, metrics *Metrics) *Handler {
	return &Handler{
		store:    store,
		resolver: resolver,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Routes returns the /api router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.createCoupon)
		r.Get("/", h.listCoupons)
		r.Post("/best", h.findBestCoupon)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.getCoupon)
			r.Put("/", h.updateCoupon)
			r.Delete("/", h.deleteCoupon)
			r.Post("/validate", h.validateCoupon)
			r.Get("/stats", h.couponStats)
		})
	})

	return r
}
