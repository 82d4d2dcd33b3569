//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func newUser() userPayload {
	return userPayload{
		UserID:       "int-u1",
		UserTier:     "NEW",
		Country:      "IN",
		OrdersPlaced: 0,
	}
}

func electronicsCart() cartPayload {
	return cartPayload{Items: []cartItemPayload{
		{ProductID: "p1", Category: "electronics", UnitPrice: 1500, Quantity: 1},
	}}
}

func TestListCoupons(t *testing.T) {
	resp := doGet(t, "/api/coupons")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	list := decodeJSON[listResponse](t, resp)
	if len(list.Coupons) != 4 {
		t.Fatalf("expected 4 coupons, got %d", len(list.Coupons))
	}
	for _, c := range list.Coupons {
		if !c.IsActive {
			t.Errorf("coupon %s: default listing must only show active coupons", c.Code)
		}
	}
}

func TestGetCoupon(t *testing.T) {
	resp := doGet(t, "/api/coupons/WELCOME100")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[couponResponse](t, resp)
	if c.Code != "WELCOME100" {
		t.Errorf("code: got %q, want WELCOME100", c.Code)
	}
	if c.DiscountType != "FLAT" || c.DiscountValue != 100 {
		t.Errorf("discount: got %s %v, want FLAT 100", c.DiscountType, c.DiscountValue)
	}
}

func TestGetCoupon_NotFound(t *testing.T) {
	resp := doGet(t, "/api/coupons/NO_SUCH_CODE")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}

func TestValidateCoupon_FirstOrder(t *testing.T) {
	resp := doPost(t, "/api/coupons/WELCOME100/validate", evaluationRequest{
		User: newUser(),
		Cart: electronicsCart(),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	verdict := decodeJSON[validateResponse](t, resp)
	if !verdict.IsEligible {
		t.Fatalf("expected eligible, reasons: %v", verdict.Reasons)
	}
	if verdict.Discount != 100 {
		t.Errorf("discount: got %v, want 100", verdict.Discount)
	}
	if len(verdict.Breakdown) != 12 {
		t.Errorf("breakdown: got %d rules, want 12", len(verdict.Breakdown))
	}
}

func TestValidateCoupon_Ineligible(t *testing.T) {
	user := newUser()
	user.OrdersPlaced = 3

	resp := doPost(t, "/api/coupons/WELCOME100/validate", evaluationRequest{
		User: user,
		Cart: electronicsCart(),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	verdict := decodeJSON[validateResponse](t, resp)
	if verdict.IsEligible {
		t.Fatal("expected ineligible")
	}
	if len(verdict.Reasons) != 1 || verdict.Reasons[0] != "NOT_FIRST_ORDER" {
		t.Errorf("reasons: got %v, want [NOT_FIRST_ORDER]", verdict.Reasons)
	}
}

func TestFindBest_RecordsRedemption(t *testing.T) {
	// 20% of 2000 = 400 on FESTIVE20 beats the flat 100 for a repeat customer.
	user := newUser()
	user.UserID = "int-best-user"
	user.OrdersPlaced = 2

	cart := cartPayload{Items: []cartItemPayload{
		{ProductID: "p1", Category: "electronics", UnitPrice: 2000, Quantity: 1},
	}}

	resp := doPost(t, "/api/coupons/best", evaluationRequest{User: user, Cart: cart})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	best := decodeJSON[bestCouponResponse](t, resp)
	if best.Coupon == nil {
		t.Fatal("expected a winning coupon")
	}
	if best.Coupon.Code != "FESTIVE20" {
		t.Errorf("winner: got %s, want FESTIVE20", best.Coupon.Code)
	}
	if best.Discount != 400 {
		t.Errorf("discount: got %v, want 400", best.Discount)
	}

	statsResp := doGet(t, "/api/coupons/FESTIVE20/stats")
	defer statsResp.Body.Close()

	st := decodeJSON[statsResponse](t, statsResp)
	if st.TotalRedemptions < 1 {
		t.Errorf("redemptions: got %d, want at least 1", st.TotalRedemptions)
	}
	if st.UniqueUsers < 1 {
		t.Errorf("unique users: got %d, want at least 1", st.UniqueUsers)
	}
}

func TestFindBest_Simulate(t *testing.T) {
	user := newUser()
	user.UserID = "int-sim-user"

	before := doGet(t, "/api/coupons/WELCOME100/stats")
	beforeStats := decodeJSON[statsResponse](t, before)
	before.Body.Close()

	resp := doPost(t, "/api/coupons/best", evaluationRequest{
		User:     user,
		Cart:     electronicsCart(),
		Simulate: true,
	})
	defer resp.Body.Close()

	best := decodeJSON[bestCouponResponse](t, resp)
	if best.Coupon == nil {
		t.Fatal("expected a winning coupon")
	}

	after := doGet(t, "/api/coupons/"+best.Coupon.Code+"/stats")
	afterStats := decodeJSON[statsResponse](t, after)
	after.Body.Close()

	if best.Coupon.Code == "WELCOME100" && afterStats.TotalRedemptions != beforeStats.TotalRedemptions {
		t.Errorf("simulate must not record redemptions: %d -> %d",
			beforeStats.TotalRedemptions, afterStats.TotalRedemptions)
	}
}

func TestCouponLifecycle(t *testing.T) {
	payload := map[string]any{
		"code":          "ITEST50",
		"description":   "integration lifecycle coupon",
		"discountType":  "FLAT",
		"discountValue": 50,
		"startDate":     time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
		"endDate":       time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		"eligibility":   map[string]any{},
	}

	resp := doPost(t, "/api/coupons", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Duplicate create conflicts.
	resp = doPost(t, "/api/coupons", payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Full-replace update.
	payload["description"] = "updated by integration test"
	resp = doJSON(t, http.MethodPut, "/api/coupons/ITEST50", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	updated := decodeJSON[couponResponse](t, resp)
	resp.Body.Close()
	if updated.Description != "updated by integration test" {
		t.Errorf("description: got %q", updated.Description)
	}

	// Soft delete hides the coupon from the default listing but keeps the record.
	resp = doJSON(t, http.MethodDelete, "/api/coupons/ITEST50", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doGet(t, "/api/coupons/ITEST50")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after delete: expected 200, got %d", resp.StatusCode)
	}
	deleted := decodeJSON[couponResponse](t, resp)
	resp.Body.Close()
	if deleted.IsActive {
		t.Error("soft-deleted coupon must be inactive")
	}
	if deleted.DeletedAt == nil {
		t.Error("soft-deleted coupon must carry a deletion stamp")
	}
}
