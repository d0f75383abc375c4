package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/websocket"
)

type SettingsHandler struct {
	broadcaster
	settingsStore *store.SettingsStore
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub *websocket.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{broadcaster: broadcaster{hub: hub}, settingsStore: ss, logger: logger}
}

// Get handles GET /api/v1/settings. Children read their parent's settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.Get(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	PointsPerDollar          *int     `json:"points_per_dollar"`
	MonthlyDollarCapPerChild *float64 `json:"monthly_dollar_cap_per_child"`
	ShowMoneyToChildren      *bool    `json:"show_money_to_children"`
}

// Update handles PUT /api/v1/settings. Omitted fields keep their value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	parentID := auth.UserID(r.Context())
	current, err := h.settingsStore.Get(parentID)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	ppd, limit, show := current.PointsPerDollar, current.MonthlyDollarCapPerChild, current.ShowMoneyToChildren
	if req.PointsPerDollar != nil {
		ppd = *req.PointsPerDollar
	}
	if req.MonthlyDollarCapPerChild != nil {
		limit = *req.MonthlyDollarCapPerChild
	}
	if req.ShowMoneyToChildren != nil {
		show = *req.ShowMoneyToChildren
	}

	fields := fieldErrors{}
	if ppd < 1 {
		fields["points_per_dollar"] = "must be at least 1"
	}
	if limit < 0 {
		fields["monthly_dollar_cap_per_child"] = "must not be negative"
	}
	if fields.write(w) {
		return
	}

	settings, err := h.settingsStore.Update(parentID, ppd, limit, show)
	if err != nil {
		h.logger.Error("update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}

	h.broadcast(parentID, "settings", "updated", 0)
	writeJSON(w, http.StatusOK, settings)
}
