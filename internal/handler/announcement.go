package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/websocket"
)

const maxAnnouncementLength = 500

type AnnouncementHandler struct {
	broadcaster
	announcementStore *store.AnnouncementStore
	logger            *slog.Logger
}

func NewAnnouncementHandler(as *store.AnnouncementStore, hub *websocket.Hub, logger *slog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{broadcaster: broadcaster{hub: hub}, announcementStore: as, logger: logger}
}

type announcementRequest struct {
	Message string `json:"message"`
}

// Create handles POST /api/v1/announcements.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg := strings.TrimSpace(req.Message)
	fields := fieldErrors{}
	fields.require("message", msg)
	if utf8.RuneCountInString(msg) > maxAnnouncementLength {
		fields["message"] = "must be at most 500 characters"
	}
	if fields.write(w) {
		return
	}

	parentID := auth.UserID(r.Context())
	a, err := h.announcementStore.Create(parentID, msg)
	if err != nil {
		h.logger.Error("create announcement", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create announcement")
		return
	}

	h.broadcast(parentID, "announcement", "created", a.ID)
	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/v1/announcements. Parents get their announcements
// with read receipts; children get the ones they have not dismissed.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var list []model.Announcement
	var err error
	if ac.Role == auth.RoleParent {
		list, err = h.announcementStore.ListForParent(ac.UserID)
	} else {
		list, err = h.announcementStore.ListForChild(ac.FamilyID, ac.UserID)
	}
	if err != nil {
		h.logger.Error("list announcements", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list announcements")
		return
	}
	if list == nil {
		list = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AnnouncementHandler) loadAnnouncement(w http.ResponseWriter, r *http.Request) (*model.Announcement, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	a, err := h.announcementStore.GetByID(id)
	if err != nil {
		h.logger.Error("get announcement", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get announcement")
		return nil, false
	}
	if a == nil || a.ParentID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusNotFound, "Announcement not found")
		return nil, false
	}
	return a, true
}

// Read handles POST /api/v1/announcements/{id}/read.
func (h *AnnouncementHandler) Read(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnnouncement(w, r)
	if !ok {
		return
	}

	childID := auth.UserID(r.Context())
	if err := h.announcementStore.MarkRead(a.ID, childID); err != nil {
		h.logger.Error("mark announcement read", "id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark announcement read")
		return
	}

	h.broadcast(a.ParentID, "announcement", "read", a.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Delete handles DELETE /api/v1/announcements/{id}. A parent deletes the
// announcement; a child dismisses it from their own feed, which is only
// allowed after reading it.
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnnouncement(w, r)
	if !ok {
		return
	}

	ac, _ := auth.FromContext(r.Context())
	if ac.Role == auth.RoleParent {
		if err := h.announcementStore.Delete(a.ID); err != nil {
			h.logger.Error("delete announcement", "id", a.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to delete announcement")
			return
		}
		h.broadcast(a.ParentID, "announcement", "deleted", a.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}

	read, err := h.announcementStore.HasRead(a.ID, ac.UserID)
	if err != nil {
		h.logger.Error("check announcement read", "id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to dismiss announcement")
		return
	}
	if !read {
		writeError(w, http.StatusForbidden, "You must read the announcement before dismissing it")
		return
	}

	if err := h.announcementStore.Dismiss(a.ID, ac.UserID); err != nil {
		h.logger.Error("dismiss announcement", "id", a.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to dismiss announcement")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}
