package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

func TestRewardCRUD(t *testing.T) {
	f := newFixture(t)

	reward, err := f.rewards.Create(f.parent.ID, "Ice Cream Trip", model.RewardPrivilege, 50, "Go get ice cream!", true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if reward.Name != "Ice Cream Trip" {
		t.Errorf("name = %q, want %q", reward.Name, "Ice Cream Trip")
	}
	if reward.CostPoints != 50 {
		t.Errorf("cost_points = %d, want 50", reward.CostPoints)
	}
	if !reward.IsActive {
		t.Error("expected active")
	}

	updated, err := f.rewards.Update(reward.ID, "Movie Night", model.RewardPrivilege, 100, "Watch a movie", true)
	if err != nil {
		t.Fatalf("update reward: %v", err)
	}
	if updated.Name != "Movie Night" || updated.CostPoints != 100 {
		t.Errorf("updated = %+v, want Movie Night at 100", updated)
	}

	if err := f.rewards.Deactivate(reward.ID); err != nil {
		t.Fatalf("deactivate reward: %v", err)
	}
	got, err := f.rewards.GetByID(reward.ID)
	if err != nil {
		t.Fatalf("get deactivated reward: %v", err)
	}
	if got == nil || got.IsActive {
		t.Errorf("got = %+v, want inactive reward kept", got)
	}
}

func TestRewardListActive(t *testing.T) {
	f := newFixture(t)
	f.rewards.Create(f.parent.ID, "Sticker", model.RewardGift, 10, "", true)
	f.rewards.Create(f.parent.ID, "Retired", model.RewardGift, 5, "", false)

	all, err := f.rewards.List(f.parent.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}
	if !all[0].IsActive {
		t.Error("expected active rewards first")
	}

	active, err := f.rewards.ListActive(f.parent.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Sticker" {
		t.Errorf("active = %+v, want [Sticker]", active)
	}
}

func TestRedeemInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	reward, _ := f.rewards.Create(f.parent.ID, "Bike", model.RewardGift, 500, "", true)
	f.earn(t, 100)

	if _, err := f.rewards.Redeem(f.child.ID, reward.ID); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("redeem err = %v, want ErrInsufficientPoints", err)
	}
	if balance, _ := f.ledger.Balance(f.child.ID); balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
}

func TestRedemptionSnapshotSurvivesEdit(t *testing.T) {
	f := newFixture(t)
	reward, _ := f.rewards.Create(f.parent.ID, "Movie", model.RewardPrivilege, 50, "", true)
	f.earn(t, 80)

	d, err := f.rewards.Redeem(f.child.ID, reward.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if d.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", d.Status, model.StatusPending)
	}
	if d.CostPointsAtTime != 50 {
		t.Errorf("cost_points_at_time = %d, want 50", d.CostPointsAtTime)
	}
	if balance, _ := f.ledger.Balance(f.child.ID); balance != 30 {
		t.Errorf("balance after request = %d, want 30", balance)
	}

	if _, err := f.rewards.Update(reward.ID, "Movie", model.RewardPrivilege, 75, "", true); err != nil {
		t.Fatalf("update reward: %v", err)
	}

	got, err := f.rewards.GetRedemption(d.ID)
	if err != nil {
		t.Fatalf("get redemption: %v", err)
	}
	if got.CostPointsAtTime != 50 {
		t.Errorf("cost_points_at_time after edit = %d, want 50", got.CostPointsAtTime)
	}
	if got.Reward.CostPoints != 75 {
		t.Errorf("reward cost = %d, want 75", got.Reward.CostPoints)
	}

	// Rejection refunds the frozen cost, not the new one.
	if _, err := f.rewards.RejectRedemption(d.ID, f.parent.ID); err != nil {
		t.Fatalf("reject redemption: %v", err)
	}
	if balance, _ := f.ledger.Balance(f.child.ID); balance != 80 {
		t.Errorf("balance after refund = %d, want 80", balance)
	}
}

func TestRedemptionTerminalStates(t *testing.T) {
	f := newFixture(t)
	reward, _ := f.rewards.Create(f.parent.ID, "Candy", model.RewardGift, 20, "", true)
	f.earn(t, 100)

	d, err := f.rewards.Redeem(f.child.ID, reward.ID)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	approved, err := f.rewards.ApproveRedemption(d.ID, f.parent.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.StatusApproved || approved.ProcessedAt == nil {
		t.Errorf("approved = %+v, want APPROVED with processed_at", approved)
	}

	if _, err := f.rewards.ApproveRedemption(d.ID, f.parent.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second approve err = %v, want ErrNotPending", err)
	}
	if _, err := f.rewards.RejectRedemption(d.ID, f.parent.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("reject after approve err = %v, want ErrNotPending", err)
	}

	// Debited once at request time, never again.
	if balance, _ := f.ledger.Balance(f.child.ID); balance != 80 {
		t.Errorf("balance = %d, want 80", balance)
	}

	pending, err := f.rewards.ListPendingRedemptions(f.parent.ID)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0", len(pending))
	}
	mine, err := f.rewards.ListRedemptionsByChild(f.child.ID)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("len(mine) = %d, want 1", len(mine))
	}
}

func TestLedgerSummary(t *testing.T) {
	f := newFixture(t)
	f.earn(t, 250)

	sum, err := f.ledger.Summary(f.child.ID, 100, time.Now())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalPoints != 250 {
		t.Errorf("totalPoints = %d, want 250", sum.TotalPoints)
	}
	if sum.TotalMoneyEquivalent != 2.5 {
		t.Errorf("totalMoneyEquivalent = %v, want 2.5", sum.TotalMoneyEquivalent)
	}
	if sum.ThisMonthMoneyEquivalent != 2.5 {
		t.Errorf("thisMonthMoneyEquivalent = %v, want 2.5", sum.ThisMonthMoneyEquivalent)
	}

	next, err := f.ledger.Summary(f.child.ID, 100, time.Now().AddDate(0, 2, 0))
	if err != nil {
		t.Fatalf("summary next month: %v", err)
	}
	if next.ThisMonthMoneyEquivalent != 0 {
		t.Errorf("thisMonthMoneyEquivalent later = %v, want 0", next.ThisMonthMoneyEquivalent)
	}
}
