package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/streak"
	"github.com/dukerupert/familypoints/internal/websocket"
)

type ChildHandler struct {
	broadcaster
	userStore       *store.UserStore
	ledgerStore     *store.LedgerStore
	settingsStore   *store.SettingsStore
	badgeStore      *store.BadgeStore
	submissionStore *store.SubmissionStore
	logger          *slog.Logger
	now             func() time.Time
}

func NewChildHandler(
	us *store.UserStore,
	ls *store.LedgerStore,
	ss *store.SettingsStore,
	bs *store.BadgeStore,
	subs *store.SubmissionStore,
	hub *websocket.Hub,
	logger *slog.Logger,
) *ChildHandler {
	return &ChildHandler{
		broadcaster:     broadcaster{hub: hub},
		userStore:       us,
		ledgerStore:     ls,
		settingsStore:   ss,
		badgeStore:      bs,
		submissionStore: subs,
		logger:          logger,
		now:             time.Now,
	}
}

type childRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Create handles POST /api/v1/children.
func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)

	fields := fieldErrors{}
	fields.require("name", req.Name)
	fields.require("username", req.Username)
	fields.require("password", req.Password)
	if strings.Contains(req.Username, "@") {
		fields["username"] = "must not contain @"
	}
	if fields.write(w) {
		return
	}

	taken, err := h.userStore.UsernameTaken(req.Username)
	if err != nil {
		h.logger.Error("check username", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}
	if taken {
		writeError(w, http.StatusBadRequest, "Username taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}

	parentID := auth.UserID(r.Context())
	child, err := h.userStore.CreateChild(parentID, req.Name, req.Username, hash)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}

	h.broadcast(parentID, "child", "created", child.ID)
	writeJSON(w, http.StatusCreated, child)
}

// List handles GET /api/v1/children.
func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.userStore.ListChildren(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	if children == nil {
		children = []model.User{}
	}
	writeJSON(w, http.StatusOK, children)
}

// loadChild resolves the {id} path value to a child the caller may see: a
// parent sees their own children and a child sees only itself.
func (h *ChildHandler) loadChild(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	ctx := r.Context()
	if auth.IsChild(ctx) && auth.UserID(ctx) != id {
		writeError(w, http.StatusForbidden, "Not your profile")
		return nil, false
	}

	child, err := h.userStore.GetChild(auth.FamilyID(ctx), id)
	if err != nil {
		h.logger.Error("get child", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return nil, false
	}
	if child == nil {
		writeError(w, http.StatusNotFound, "Child not found")
		return nil, false
	}
	return child, true
}

// Get handles GET /api/v1/children/{id}.
func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadChild(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// Delete handles DELETE /api/v1/children/{id}. The child's submissions,
// redemptions, ledger and badges go with it.
func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadChild(w, r)
	if !ok {
		return
	}

	parentID := auth.UserID(r.Context())
	if err := h.userStore.DeleteChild(parentID, child.ID); err != nil {
		h.logger.Error("delete child", "id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete child")
		return
	}

	h.broadcast(parentID, "child", "deleted", child.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summary handles GET /api/v1/children/{id}/summary.
func (h *ChildHandler) Summary(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadChild(w, r)
	if !ok {
		return
	}

	settings, err := h.settingsStore.Get(child.FamilyID())
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	now := h.now()
	points, err := h.ledgerStore.Summary(child.ID, settings.PointsPerDollar, now)
	if err != nil {
		h.logger.Error("points summary", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	if auth.IsChild(r.Context()) && !settings.ShowMoneyToChildren {
		points.TotalMoneyEquivalent = 0
		points.ThisMonthMoneyEquivalent = 0
	}

	badges, err := h.badgeStore.ListForChild(child.ID)
	if err != nil {
		h.logger.Error("list badges", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	if badges == nil {
		badges = []model.ChildBadge{}
	}

	streaks, err := h.streaks(child.ID, now)
	if err != nil {
		h.logger.Error("streaks", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	writeJSON(w, http.StatusOK, model.ChildSummary{
		User:    *child,
		Points:  *points,
		Badges:  badges,
		Streaks: streaks,
	})
}

func (h *ChildHandler) streaks(childID int64, now time.Time) (model.Streaks, error) {
	faith, err := h.submissionStore.ApprovedDays(childID, model.CategoryFaith)
	if err != nil {
		return model.Streaks{}, err
	}
	school, err := h.submissionStore.ApprovedDays(childID, model.CategorySchool)
	if err != nil {
		return model.Streaks{}, err
	}
	today := now.UTC()
	return model.Streaks{
		BibleReadingStreak: streak.Count(faith, today),
		HomeworkStreak:     streak.Count(school, today),
	}, nil
}

// Ledger handles GET /api/v1/children/{id}/ledger, newest entry first.
func (h *ChildHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	child, ok := h.loadChild(w, r)
	if !ok {
		return
	}

	entries, err := h.ledgerStore.List(child.ID)
	if err != nil {
		h.logger.Error("list ledger", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
