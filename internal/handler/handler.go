package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/familypoints/internal/websocket"
)

// Notifier pushes review requests to a parent's devices. A nil Notifier
// disables push.
type Notifier interface {
	SubmissionPending(parentID int64, childName, taskName string)
	RedemptionPending(parentID int64, childName, rewardName string)
}

// broadcaster sends family-scoped change notices. It tolerates a nil hub.
type broadcaster struct {
	hub *websocket.Hub
}

func (b broadcaster) broadcast(familyID int64, entity, action string, id int64) {
	if b.hub != nil {
		b.hub.Broadcast(familyID, websocket.NewMessage(entity, action, id, nil))
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fieldErrors collects per-field validation messages for a 422 response.
type fieldErrors map[string]string

func (f fieldErrors) require(field, value string) {
	if value == "" {
		f[field] = "is required"
	}
}

func (f fieldErrors) write(w http.ResponseWriter) bool {
	if len(f) == 0 {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  "validation failed",
		"fields": map[string]string(f),
	})
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}
