package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/websocket"
)

type RewardHandler struct {
	broadcaster
	rewardStore *store.RewardStore
	notifier    Notifier
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, hub *websocket.Hub, notifier Notifier, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{broadcaster: broadcaster{hub: hub}, rewardStore: rs, notifier: notifier, logger: logger}
}

type rewardRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	CostPoints  int    `json:"cost_points"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (req *rewardRequest) validate() fieldErrors {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))

	fields := fieldErrors{}
	fields.require("name", req.Name)
	if !model.IsValidRewardType(req.Type) {
		fields["type"] = "must be one of MONEY, PRIVILEGE, GIFT"
	}
	if req.CostPoints <= 0 {
		fields["cost_points"] = "must be greater than 0"
	}
	return fields
}

// Create handles POST /api/v1/rewards.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.validate().write(w) {
		return
	}
	active := req.IsActive == nil || *req.IsActive

	parentID := auth.UserID(r.Context())
	reward, err := h.rewardStore.Create(parentID, req.Name, req.Type, req.CostPoints, req.Description, active)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(parentID, "reward", "created", reward.ID)
	writeJSON(w, http.StatusCreated, reward)
}

// List handles GET /api/v1/rewards. Parents see the whole catalog, children
// only active rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rewards []model.Reward
	var err error
	if auth.IsChild(ctx) || r.URL.Query().Get("active") == "true" {
		rewards, err = h.rewardStore.ListActive(auth.FamilyID(ctx))
	} else {
		rewards, err = h.rewardStore.List(auth.FamilyID(ctx))
	}
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) loadReward(w http.ResponseWriter, r *http.Request) (*model.Reward, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	reward, err := h.rewardStore.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil, false
	}
	if reward == nil || reward.ParentID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "Reward not found")
		return nil, false
	}
	return reward, true
}

// Update handles PUT /api/v1/rewards/{id}. Existing redemptions keep the
// cost they were requested at.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadReward(w, r)
	if !ok {
		return
	}

	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.validate().write(w) {
		return
	}
	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	reward, err := h.rewardStore.Update(existing.ID, req.Name, req.Type, req.CostPoints, req.Description, active)
	if err != nil {
		h.logger.Error("update reward", "id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(existing.ParentID, "reward", "updated", reward.ID)
	writeJSON(w, http.StatusOK, reward)
}

// Delete handles DELETE /api/v1/rewards/{id}. Rewards are deactivated, not
// removed, so past redemptions still resolve.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadReward(w, r)
	if !ok {
		return
	}

	if err := h.rewardStore.Deactivate(existing.ID); err != nil {
		h.logger.Error("deactivate reward", "id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(existing.ParentID, "reward", "deleted", existing.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Redeem handles POST /api/v1/rewards/{id}/redeem.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	reward, ok := h.loadReward(w, r)
	if !ok {
		return
	}
	if !reward.IsActive {
		writeError(w, http.StatusBadRequest, "Reward not available")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	redemption, err := h.rewardStore.Redeem(ac.UserID, reward.ID)
	if errors.Is(err, store.ErrInsufficientPoints) {
		writeError(w, http.StatusBadRequest, "Insufficient points")
		return
	}
	if err != nil {
		h.logger.Error("redeem reward", "reward_id", reward.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to redeem reward")
		return
	}

	h.broadcast(ac.FamilyID, "redemption", "created", redemption.ID)
	if h.notifier != nil {
		go h.notifier.RedemptionPending(ac.FamilyID, ac.Name, reward.Name)
	}

	writeJSON(w, http.StatusCreated, redemption)
}

// ListPendingRedemptions handles GET /api/v1/rewards/redemptions/pending.
func (h *RewardHandler) ListPendingRedemptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.rewardStore.ListPendingRedemptions(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list pending redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if list == nil {
		list = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListMyRedemptions handles GET /api/v1/rewards/redemptions/my.
func (h *RewardHandler) ListMyRedemptions(w http.ResponseWriter, r *http.Request) {
	list, err := h.rewardStore.ListRedemptionsByChild(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if list == nil {
		list = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *RewardHandler) loadRedemption(w http.ResponseWriter, r *http.Request) (*model.Redemption, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	d, err := h.rewardStore.GetRedemption(id)
	if err != nil {
		h.logger.Error("get redemption", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get redemption")
		return nil, false
	}
	if d == nil || d.Reward == nil || d.Reward.ParentID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "Redemption not found")
		return nil, false
	}
	return d, true
}

// ApproveRedemption handles POST /api/v1/rewards/redemptions/{id}/approve.
func (h *RewardHandler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadRedemption(w, r)
	if !ok {
		return
	}

	parentID := auth.UserID(r.Context())
	approved, err := h.rewardStore.ApproveRedemption(d.ID, parentID)
	if !h.checkResolve(w, d.ID, approved, err) {
		return
	}

	h.broadcast(parentID, "redemption", "approved", approved.ID)
	writeJSON(w, http.StatusOK, approved)
}

// RejectRedemption handles POST /api/v1/rewards/redemptions/{id}/reject. The
// frozen cost is refunded.
func (h *RewardHandler) RejectRedemption(w http.ResponseWriter, r *http.Request) {
	d, ok := h.loadRedemption(w, r)
	if !ok {
		return
	}

	parentID := auth.UserID(r.Context())
	rejected, err := h.rewardStore.RejectRedemption(d.ID, parentID)
	if !h.checkResolve(w, d.ID, rejected, err) {
		return
	}

	h.broadcast(parentID, "redemption", "rejected", rejected.ID)
	writeJSON(w, http.StatusOK, rejected)
}

func (h *RewardHandler) checkResolve(w http.ResponseWriter, id int64, d *model.Redemption, err error) bool {
	switch {
	case errors.Is(err, store.ErrNotPending):
		writeError(w, http.StatusConflict, "Redemption not pending")
		return false
	case err != nil:
		h.logger.Error("resolve redemption", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update redemption")
		return false
	case d == nil:
		writeError(w, http.StatusNotFound, "Redemption not found")
		return false
	}
	return true
}
