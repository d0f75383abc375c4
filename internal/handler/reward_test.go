package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/familypoints/internal/model"
)

func TestRewardCatalogVisibility(t *testing.T) {
	env := setupEnv(t)
	h := NewRewardHandler(env.rewards, nil, nil, env.logger)

	w := httptest.NewRecorder()
	h.Create(w, asUser(jsonRequest(t, http.MethodPost, "/api/v1/rewards", rewardRequest{
		Name: "Ice cream", Type: "gift", CostPoints: 50,
	}), env.parent))
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	kept := decode[model.Reward](t, w)
	if kept.Type != model.RewardGift || !kept.IsActive {
		t.Errorf("reward = %+v, want active GIFT", kept)
	}

	gone, err := env.rewards.Create(env.parent.ID, "Old", model.RewardPrivilege, 10, "", true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	w = httptest.NewRecorder()
	h.Delete(w, asUser(withID(httptest.NewRequest(http.MethodDelete, "/", nil), gone.ID), env.parent))
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.List(w, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil), env.child))
	if got := decode[[]model.Reward](t, w); len(got) != 1 || got[0].ID != kept.ID {
		t.Errorf("child catalog = %+v, want only %d", got, kept.ID)
	}

	w = httptest.NewRecorder()
	h.List(w, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/rewards", nil), env.parent))
	if got := decode[[]model.Reward](t, w); len(got) != 2 {
		t.Errorf("parent catalog = %d rewards, want 2", len(got))
	}
}

func TestRewardValidation(t *testing.T) {
	env := setupEnv(t)
	h := NewRewardHandler(env.rewards, nil, nil, env.logger)

	w := httptest.NewRecorder()
	h.Create(w, asUser(jsonRequest(t, http.MethodPost, "/", rewardRequest{Name: " ", Type: "CAR", CostPoints: 0}), env.parent))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, w)
	for _, f := range []string{"name", "type", "cost_points"} {
		if body.Fields[f] == "" {
			t.Errorf("missing field error for %s", f)
		}
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	env := setupEnv(t)
	h := NewRewardHandler(env.rewards, nil, nil, env.logger)
	env.earn(t, 40)

	reward, err := env.rewards.Create(env.parent.ID, "Movie", model.RewardPrivilege, 50, "", true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	w := httptest.NewRecorder()
	h.Redeem(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), reward.ID), env.child))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decode[map[string]string](t, w); body["error"] != "Insufficient points" {
		t.Errorf("error = %q", body["error"])
	}
	if balance, _ := env.ledger.Balance(env.child.ID); balance != 40 {
		t.Errorf("balance = %d, want 40", balance)
	}
}

func TestRedemptionLifecycle(t *testing.T) {
	env := setupEnv(t)
	notifier := newRecordingNotifier()
	h := NewRewardHandler(env.rewards, nil, notifier, env.logger)
	env.earn(t, 100)

	reward, err := env.rewards.Create(env.parent.ID, "Movie", model.RewardPrivilege, 60, "", true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	redeem := func() model.Redemption {
		t.Helper()
		w := httptest.NewRecorder()
		h.Redeem(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), reward.ID), env.child))
		if w.Code != http.StatusCreated {
			t.Fatalf("redeem = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
		return decode[model.Redemption](t, w)
	}

	first := redeem()
	if first.Status != model.StatusPending || first.CostPointsAtTime != 60 {
		t.Errorf("redemption = %+v, want PENDING at 60", first)
	}
	if got := waitFor(t, notifier.redemptions); got != "Kid:Movie" {
		t.Errorf("notification = %q", got)
	}

	// Repricing the reward must not touch the pending request.
	w := httptest.NewRecorder()
	h.Update(w, asUser(withID(jsonRequest(t, http.MethodPut, "/", rewardRequest{
		Name: "Movie", Type: model.RewardPrivilege, CostPoints: 500,
	}), reward.ID), env.parent))
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	h.RejectRedemption(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), first.ID), env.parent))
	if w.Code != http.StatusOK {
		t.Fatalf("reject = %d, want 200", w.Code)
	}
	rejected := decode[model.Redemption](t, w)
	if rejected.Status != model.StatusRejected || rejected.CostPointsAtTime != 60 {
		t.Errorf("rejected = %+v, want REJECTED at 60", rejected)
	}
	if balance, _ := env.ledger.Balance(env.child.ID); balance != 100 {
		t.Errorf("balance after refund = %d, want 100", balance)
	}

	w = httptest.NewRecorder()
	h.ApproveRedemption(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), first.ID), env.parent))
	if w.Code != http.StatusConflict {
		t.Errorf("approve after reject = %d, want 409", w.Code)
	}

	w = httptest.NewRecorder()
	h.ListPendingRedemptions(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.parent))
	if got := decode[[]model.Redemption](t, w); len(got) != 0 {
		t.Errorf("pending = %d, want 0", len(got))
	}

	w = httptest.NewRecorder()
	h.ListMyRedemptions(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.child))
	if got := decode[[]model.Redemption](t, w); len(got) != 1 {
		t.Errorf("my redemptions = %d, want 1", len(got))
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	env := setupEnv(t)
	h := NewRewardHandler(env.rewards, nil, nil, env.logger)
	env.earn(t, 100)

	reward, err := env.rewards.Create(env.parent.ID, "Retired", model.RewardGift, 10, "", false)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	w := httptest.NewRecorder()
	h.Redeem(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), reward.ID), env.child))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
