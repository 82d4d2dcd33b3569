package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
)

// createCoupon handles POST /api/coupons.
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c := payload.toDomain()
	if err := c.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrCodeExists) {
			writeError(w, r, http.StatusConflict, "coupon code already exists")
			return
		}
		h.serverError(w, r, err, "create coupon")
		return
	}

	writeJSON(w, r, http.StatusCreated, toCouponResponse(c))
}

// listCoupons handles GET /api/coupons with optional status, validOn,
// userTier, and category filters.
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status, ok := coupon.ParseStatusFilter(q.Get("status"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "status must be active, inactive, or all")
		return
	}

	filter := coupon.ListFilter{
		Status:   status,
		UserTier: q.Get("userTier"),
		Category: q.Get("category"),
	}

	if v := q.Get("validOn"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "validOn must be an RFC 3339 timestamp")
			return
		}
		filter.ValidOn = &t
	}

	coupons, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err, "list coupons")
		return
	}

	resp := listResponse{Coupons: make([]couponResponse, len(coupons))}
	for i := range coupons {
		resp.Coupons[i] = toCouponResponse(&coupons[i])
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// getCoupon handles GET /api/coupons/{code}.
func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, err, "get coupon")
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponResponse(c))
}

// updateCoupon handles PUT /api/coupons/{code}: full replace of every field
// except the code, which is immutable.
func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	code := coupon.NormalizeCode(chi.URLParam(r, "code"))

	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Code != "" && coupon.NormalizeCode(payload.Code) != code {
		writeError(w, r, http.StatusBadRequest, "coupon code is immutable")
		return
	}

	c := payload.toDomain()
	c.Code = code
	if err := c.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Update(r.Context(), code, c); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, err, "update coupon")
		return
	}

	writeJSON(w, r, http.StatusOK, toCouponResponse(c))
}

// deleteCoupon handles DELETE /api/coupons/{code}: soft delete only, the
// record stays so historical stats remain valid.
func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	err := h.store.SoftDelete(r.Context(), chi.URLParam(r, "code"), h.now())
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, err, "delete coupon")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateCoupon handles POST /api/coupons/{code}/validate and returns the
// full eligibility verdict. An ineligible coupon is a 200, not an error.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEvaluationRequest(w, r)
	if !ok {
		return
	}

	ev, err := h.resolver.Validate(r.Context(), chi.URLParam(r, "code"), req.User.toDomain(), req.Cart.toDomain())
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, err, "validate coupon")
		return
	}

	h.metrics.Evaluation(r.Context(), ev.Eligible)

	reasons := ev.Reasons
	if reasons == nil {
		reasons = []coupon.ReasonCode{}
	}
	writeJSON(w, r, http.StatusOK, validateResponse{
		IsEligible: ev.Eligible,
		Reasons:    reasons,
		Breakdown:  ev.Breakdown,
		Discount:   ev.Discount.InexactFloat64(),
	})
}

// findBestCoupon handles POST /api/coupons/best. Absence of an applicable
// coupon yields a null coupon and zero discount, never an error.
func (h *Handler) findBestCoupon(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeEvaluationRequest(w, r)
	if !ok {
		return
	}

	best, err := h.resolver.FindBest(r.Context(), req.User.toDomain(), req.Cart.toDomain(),
		coupon.FindBestParams{Simulate: req.Simulate})
	if err != nil {
		h.serverError(w, r, err, "find best coupon")
		return
	}

	resp := bestCouponResponse{Discount: best.Discount.InexactFloat64()}
	if best.Coupon != nil {
		c := toCouponResponse(best.Coupon)
		resp.Coupon = &c
		h.metrics.Selection(r.Context(), req.Simulate)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// couponStats handles GET /api/coupons/{code}/stats.
func (h *Handler) couponStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "coupon not found")
			return
		}
		h.serverError(w, r, err, "coupon stats")
		return
	}
	writeJSON(w, r, http.StatusOK, statsResponse{
		Code:             st.Code,
		TotalRedemptions: st.TotalRedemptions,
		UniqueUsers:      st.UniqueUsers,
	})
}

// decodeEvaluationRequest parses a {user, cart} body and rejects requests
// missing either part.
func (h *Handler) decodeEvaluationRequest(w http.ResponseWriter, r *http.Request) (*evaluationRequest, bool) {
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if req.User == nil {
		writeError(w, r, http.StatusBadRequest, "user is required")
		return nil, false
	}
	if req.Cart == nil {
		writeError(w, r, http.StatusBadRequest, "cart is required")
		return nil, false
	}
	for _, item := range req.Cart.Items {
		if item.Quantity < 0 {
			writeError(w, r, http.StatusBadRequest, "item quantity must not be negative")
			return nil, false
		}
	}
	return &req, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error, op string) {
	zctx.From(r.Context()).Error(op, zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
