package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
	"github.com/dukerupert/familypoints/internal/websocket"
)

type SubmissionHandler struct {
	broadcaster
	submissionStore *store.SubmissionStore
	taskStore       *store.TaskStore
	badgeStore      *store.BadgeStore
	notifier        Notifier
	logger          *slog.Logger
}

func NewSubmissionHandler(
	subs *store.SubmissionStore,
	ts *store.TaskStore,
	bs *store.BadgeStore,
	hub *websocket.Hub,
	notifier Notifier,
	logger *slog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		broadcaster:     broadcaster{hub: hub},
		submissionStore: subs,
		taskStore:       ts,
		badgeStore:      bs,
		notifier:        notifier,
		logger:          logger,
	}
}

type submissionRequest struct {
	TaskID           int64    `json:"task_id"`
	Note             string   `json:"note"`
	BibleReference   string   `json:"bible_reference"`
	Reflection       string   `json:"reflection"`
	EvidenceFilePath string   `json:"evidence_file_path"`
	EvidenceFiles    []string `json:"evidence_files"`
}

// evidenceType guesses a MIME type from the file URL's extension.
func evidenceType(fileURL string) string {
	p := fileURL
	if u, err := url.Parse(fileURL); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(p))); t != "" {
		mt, _, _ := strings.Cut(t, ";")
		return mt
	}
	return "unknown"
}

// Create handles POST /api/v1/submissions. New submissions are always
// PENDING.
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := fieldErrors{}
	if req.TaskID <= 0 {
		fields["task_id"] = "is required"
	}
	for _, f := range req.EvidenceFiles {
		if strings.TrimSpace(f) == "" {
			fields["evidence_files"] = "must not contain empty paths"
		}
	}
	if fields.write(w) {
		return
	}

	ac, _ := auth.FromContext(r.Context())

	task, err := h.taskStore.GetByID(req.TaskID)
	if err != nil {
		h.logger.Error("get task", "id", req.TaskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}
	if task == nil || task.ParentID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if !task.IsActive {
		writeError(w, http.StatusBadRequest, "Task is not active")
		return
	}

	n := store.NewSubmission{
		ChildID:        ac.UserID,
		TaskID:         task.ID,
		Note:           strings.TrimSpace(req.Note),
		BibleReference: strings.TrimSpace(req.BibleReference),
		Reflection:     strings.TrimSpace(req.Reflection),
		LegacyPath:     strings.TrimSpace(req.EvidenceFilePath),
	}
	for _, f := range req.EvidenceFiles {
		n.Evidence = append(n.Evidence, store.EvidenceFile{Path: f, Type: evidenceType(f)})
	}
	if len(n.Evidence) == 0 && n.LegacyPath != "" {
		n.Evidence = []store.EvidenceFile{{Path: n.LegacyPath, Type: evidenceType(n.LegacyPath)}}
	}

	sub, err := h.submissionStore.Create(n)
	if err != nil {
		h.logger.Error("create submission", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create submission")
		return
	}

	h.broadcast(ac.FamilyID, "submission", "created", sub.ID)
	if h.notifier != nil {
		go h.notifier.SubmissionPending(ac.FamilyID, ac.Name, task.Name)
	}

	writeJSON(w, http.StatusCreated, sub)
}

// ListMine handles GET /api/v1/submissions/my.
func (h *SubmissionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionStore.ListByChild(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// ListPending handles GET /api/v1/submissions/pending.
func (h *SubmissionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissionStore.ListPending(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list pending submissions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// loadForReview returns the {id} submission if it was made by one of the
// caller's children.
func (h *SubmissionHandler) loadForReview(w http.ResponseWriter, r *http.Request) (*model.Submission, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	sub, err := h.submissionStore.GetByID(id)
	if err != nil {
		h.logger.Error("get submission", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get submission")
		return nil, false
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, "Submission not found")
		return nil, false
	}
	if sub.Task == nil || sub.Task.ParentID != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "Not your child's submission")
		return nil, false
	}
	return sub, true
}

// Approve handles POST /api/v1/submissions/{id}/approve. Points are credited
// once; a repeat call gets 409.
func (h *SubmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadForReview(w, r)
	if !ok {
		return
	}

	parentID := auth.UserID(r.Context())
	approved, err := h.submissionStore.Approve(sub.ID, parentID)
	if !h.checkResolve(w, sub.ID, approved, err) {
		return
	}

	if n, err := h.badgeStore.Evaluate(approved.ChildID); err != nil {
		h.logger.Error("evaluate badges", "child_id", approved.ChildID, "error", err)
	} else if n > 0 {
		h.logger.Info("badges awarded", "child_id", approved.ChildID, "count", n)
		h.broadcast(parentID, "badge", "awarded", approved.ChildID)
	}

	h.broadcast(parentID, "submission", "approved", approved.ID)
	writeJSON(w, http.StatusOK, approved)
}

// Reject handles POST /api/v1/submissions/{id}/reject.
func (h *SubmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.loadForReview(w, r)
	if !ok {
		return
	}

	parentID := auth.UserID(r.Context())
	rejected, err := h.submissionStore.Reject(sub.ID, parentID)
	if !h.checkResolve(w, sub.ID, rejected, err) {
		return
	}

	h.broadcast(parentID, "submission", "rejected", rejected.ID)
	writeJSON(w, http.StatusOK, rejected)
}

func (h *SubmissionHandler) checkResolve(w http.ResponseWriter, id int64, sub *model.Submission, err error) bool {
	switch {
	case errors.Is(err, store.ErrNotPending):
		writeError(w, http.StatusConflict, "Submission is not pending")
		return false
	case err != nil:
		h.logger.Error("resolve submission", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update submission")
		return false
	case sub == nil:
		writeError(w, http.StatusNotFound, "Submission not found")
		return false
	}
	return true
}
