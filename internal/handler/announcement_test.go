package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/familypoints/internal/model"
)

func TestAnnouncementCreateValidation(t *testing.T) {
	env := setupEnv(t)
	h := NewAnnouncementHandler(env.announcements, nil, env.logger)

	tests := []struct {
		name string
		msg  string
		want int
	}{
		{"trimmed", "  Dinner at six  ", http.StatusCreated},
		{"blank", "   ", http.StatusUnprocessableEntity},
		{"too long", strings.Repeat("a", 501), http.StatusUnprocessableEntity},
		{"at limit", strings.Repeat("é", 500), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, asUser(jsonRequest(t, http.MethodPost, "/", announcementRequest{Message: tt.msg}), env.parent))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	list, _ := env.announcements.ListForParent(env.parent.ID)
	for _, a := range list {
		if a.Message != strings.TrimSpace(a.Message) {
			t.Errorf("message %q not trimmed", a.Message)
		}
	}
}

func TestAnnouncementReadsAndDismiss(t *testing.T) {
	env := setupEnv(t)
	h := NewAnnouncementHandler(env.announcements, nil, env.logger)

	a, err := env.announcements.Create(env.parent.ID, "Chores due Friday")
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	sibling, err := env.users.CreateChild(env.parent.ID, "Sib", "sib", "hash")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	dismiss := func() int {
		w := httptest.NewRecorder()
		h.Delete(w, asUser(withID(httptest.NewRequest(http.MethodDelete, "/", nil), a.ID), env.child))
		return w.Code
	}
	read := func(u *model.User) {
		t.Helper()
		w := httptest.NewRecorder()
		h.Read(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), a.ID), u))
		if w.Code != http.StatusOK {
			t.Fatalf("read = %d, want 200", w.Code)
		}
	}

	if code := dismiss(); code != http.StatusForbidden {
		t.Errorf("dismiss before read = %d, want 403", code)
	}

	read(env.child)
	read(env.child)
	read(sibling)

	w := httptest.NewRecorder()
	h.List(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.parent))
	list := decode[[]model.Announcement](t, w)
	if len(list) != 1 || len(list[0].Reads) != 2 {
		t.Fatalf("parent list = %+v, want one announcement with 2 reads", list)
	}
	if list[0].Reads[0].ChildName != "Kid" || list[0].Reads[1].ChildName != "Sib" {
		t.Errorf("reads = %+v, want Kid then Sib", list[0].Reads)
	}

	if code := dismiss(); code != http.StatusOK {
		t.Fatalf("dismiss after read = %d, want 200", code)
	}

	w = httptest.NewRecorder()
	h.List(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.child))
	if got := decode[[]model.Announcement](t, w); len(got) != 0 {
		t.Errorf("child feed after dismiss = %d, want 0", len(got))
	}

	w = httptest.NewRecorder()
	h.List(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), sibling))
	if got := decode[[]model.Announcement](t, w); len(got) != 1 {
		t.Errorf("sibling feed = %d, want 1", len(got))
	}

	w = httptest.NewRecorder()
	h.Delete(w, asUser(withID(httptest.NewRequest(http.MethodDelete, "/", nil), a.ID), env.parent))
	if w.Code != http.StatusOK {
		t.Fatalf("parent delete = %d, want 200", w.Code)
	}
	if got, _ := env.announcements.GetByID(a.ID); got != nil {
		t.Error("announcement still present after parent delete")
	}
}

func TestAnnouncementOtherFamily(t *testing.T) {
	env := setupEnv(t)
	h := NewAnnouncementHandler(env.announcements, nil, env.logger)

	other, err := env.users.CreateParent("Other", "other@example.com", "hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	a, err := env.announcements.Create(other.ID, "Not yours")
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}

	w := httptest.NewRecorder()
	h.Read(w, asUser(withID(httptest.NewRequest(http.MethodPost, "/", nil), a.ID), env.child))
	if w.Code != http.StatusNotFound {
		t.Errorf("read other family = %d, want 404", w.Code)
	}
}
