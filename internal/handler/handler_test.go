package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/dukerupert/familypoints/internal/auth"
	"github.com/dukerupert/familypoints/internal/database"
	"github.com/dukerupert/familypoints/internal/model"
	"github.com/dukerupert/familypoints/internal/store"
)

type testEnv struct {
	users         *store.UserStore
	tasks         *store.TaskStore
	submissions   *store.SubmissionStore
	rewards       *store.RewardStore
	ledger        *store.LedgerStore
	badges        *store.BadgeStore
	settings      *store.SettingsStore
	announcements *store.AnnouncementStore
	pushes        *store.PushStore
	issuer        *auth.Issuer
	logger        *slog.Logger
	parent        *model.User
	child         *model.User
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		users:         store.NewUserStore(db),
		tasks:         store.NewTaskStore(db),
		submissions:   store.NewSubmissionStore(db),
		rewards:       store.NewRewardStore(db),
		ledger:        store.NewLedgerStore(db),
		badges:        store.NewBadgeStore(db),
		settings:      store.NewSettingsStore(db),
		announcements: store.NewAnnouncementStore(db),
		pushes:        store.NewPushStore(db),
		issuer:        auth.NewIssuer("secret", "familypoints", time.Hour),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	env.parent, err = env.users.CreateParent("Pat", "pat@example.com", hash)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	env.child, err = env.users.CreateChild(env.parent.ID, "Kid", "kid", hash)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return env
}

func asUser(r *http.Request, u *model.User) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:   u.ID,
		FamilyID: u.FamilyID(),
		Role:     u.Role,
		Name:     u.Name,
	})
	return r.WithContext(ctx)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func withID(r *http.Request, id int64) *http.Request {
	r.SetPathValue("id", strconv.FormatInt(id, 10))
	return r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func (env *testEnv) task(t *testing.T, category string, points int, active bool) *model.Task {
	t.Helper()
	task, err := env.tasks.Create(env.parent.ID, "Task "+category, category, points, "", active)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (env *testEnv) earn(t *testing.T, points int) {
	t.Helper()
	task := env.task(t, model.CategoryHome, points, true)
	sub, err := env.submissions.Create(store.NewSubmission{ChildID: env.child.ID, TaskID: task.ID})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if _, err := env.submissions.Approve(sub.ID, env.parent.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

type recordingNotifier struct {
	submissions chan string
	redemptions chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{submissions: make(chan string, 4), redemptions: make(chan string, 4)}
}

func (n *recordingNotifier) SubmissionPending(parentID int64, childName, taskName string) {
	n.submissions <- childName + ":" + taskName
}

func (n *recordingNotifier) RedemptionPending(parentID int64, childName, rewardName string) {
	n.redemptions <- childName + ":" + rewardName
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
		return ""
	}
}

func TestFieldErrorsWrite(t *testing.T) {
	w := httptest.NewRecorder()
	fields := fieldErrors{}
	fields.require("name", "")
	fields.require("email", "a@b.c")
	if !fields.write(w) {
		t.Fatal("expected write to report errors")
	}
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := decode[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, w)
	if body.Error != "validation failed" {
		t.Errorf("error = %q", body.Error)
	}
	if body.Fields["name"] != "is required" || len(body.Fields) != 1 {
		t.Errorf("fields = %v", body.Fields)
	}

	if (fieldErrors{}).write(httptest.NewRecorder()) {
		t.Error("empty fieldErrors should not write")
	}
}

func TestEvidenceType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/static/uploads/familypoints/a.png", "image/png"},
		{"https://cdn.example.com/familypoints/b.JPG?sig=1", "image/jpeg"},
		{"https://cdn.example.com/familypoints/c.pdf", "application/pdf"},
		{"/static/uploads/noext", "unknown"},
	}
	for _, tt := range tests {
		if got := evidenceType(tt.in); got != tt.want {
			t.Errorf("evidenceType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBroadcastNilHub(t *testing.T) {
	// Must not panic without a hub.
	broadcaster{}.broadcast(1, "task", "created", 1)
}
