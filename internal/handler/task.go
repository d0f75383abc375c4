package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/websocket"
)

type TaskHandler struct {
	broadcaster
	taskStore *store.TaskStore
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{broadcaster: broadcaster{hub: hub}, taskStore: ts, logger: logger}
}

type taskRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (req *taskRequest) validate() fieldErrors {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))

	fields := fieldErrors{}
	fields.require("name", req.Name)
	if !model.IsValidCategory(req.Category) {
		fields["category"] = "must be one of " + strings.Join(model.TaskCategories, ", ")
	}
	if req.Points <= 0 {
		fields["points"] = "must be greater than 0"
	}
	return fields
}

func (req *taskRequest) active() bool {
	return req.IsActive == nil || *req.IsActive
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.validate().write(w) {
		return
	}

	parentID := auth.UserID(r.Context())
	task, err := h.taskStore.Create(parentID, req.Name, req.Category, req.Points, req.Description, req.active())
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(parentID, "task", "created", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/v1/tasks. Children only ever see active tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	f := store.TaskFilter{Category: strings.ToUpper(q.Get("category"))}
	if f.Category != "" && !model.IsValidCategory(f.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid active filter")
			return
		}
		f.Active = &active
	}
	if auth.IsChild(ctx) {
		active := true
		f.Active = &active
	}

	tasks, err := h.taskStore.List(auth.FamilyID(ctx), f)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// loadTask returns the {id} task if it belongs to the caller's family.
func (h *TaskHandler) loadTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	ctx := r.Context()
	if task == nil || task.ParentID != auth.FamilyID(ctx) || (auth.IsChild(ctx) && !task.IsActive) {
		writeError(w, http.StatusNotFound, "Task not found")
		return nil, false
	}
	return task, true
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Update handles PUT /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req taskRequest
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

	task, err := h.taskStore.Update(existing.ID, req.Name, req.Category, req.Points, req.Description, active)
	if err != nil {
		h.logger.Error("update task", "id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(existing.ParentID, "task", "updated", task.ID)
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	if err := h.taskStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete task", "id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(existing.ParentID, "task", "deleted", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}
