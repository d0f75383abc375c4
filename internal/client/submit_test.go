package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/familypoints/internal/model"
)

type trackedReader struct {
	io.Reader
	closed atomic.Bool
}

func (r *trackedReader) Close() error {
	r.closed.Store(true)
	return nil
}

type evidenceSet struct {
	mu      sync.Mutex
	readers []*trackedReader
}

func (s *evidenceSet) add(name, body string) Evidence {
	return Evidence{
		Name:        name,
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			r := &trackedReader{Reader: strings.NewReader(body)}
			s.mu.Lock()
			s.readers = append(s.readers, r)
			s.mu.Unlock()
			return r, nil
		},
	}
}

func (s *evidenceSet) allClosed(t *testing.T, want int) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readers) != want {
		t.Fatalf("opened %d readers, want %d", len(s.readers), want)
	}
	for i, r := range s.readers {
		if !r.closed.Load() {
			t.Errorf("reader %d left open", i)
		}
	}
}

// submissionServer accepts uploads except for names listed in failing and
// records every submission it receives.
type submissionServer struct {
	failing     map[string]bool
	delays      map[string]time.Duration
	status      string
	submissions atomic.Int32
	payload     submissionPayload
}

func (s *submissionServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/uploads", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": map[string]string{"file": "is required"}})
			return
		}
		time.Sleep(s.delays[header.Filename])
		if s.failing[header.Filename] {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "File upload failed"})
			return
		}
		writeJSON(w, http.StatusCreated, UploadResponse{Filename: header.Filename, URL: "/static/uploads/familypoints/" + header.Filename})
	})
	mux.HandleFunc("POST /api/v1/submissions", func(w http.ResponseWriter, r *http.Request) {
		s.submissions.Add(1)
		if err := json.NewDecoder(r.Body).Decode(&s.payload); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		status := s.status
		if status == "" {
			status = model.StatusPending
		}
		writeJSON(w, http.StatusCreated, model.Submission{ID: 1, TaskID: s.payload.TaskID, Status: status})
	})
	return mux
}

func TestSubmitUploadFailureAbortsSubmission(t *testing.T) {
	srv := &submissionServer{failing: map[string]bool{"two.jpg": true}}
	c := newTestClient(t, srv.handler(t), nil)

	var files evidenceSet
	_, err := c.Submit(context.Background(), SubmitRequest{
		TaskID: 4,
		Note:   "done",
		Evidence: []Evidence{
			files.add("one.jpg", "1"),
			files.add("two.jpg", "2"),
			files.add("three.jpg", "3"),
		},
	})

	var ue *UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want *UploadError", err)
	}
	if len(ue.Files) != 1 || ue.Files[0] != "two.jpg" {
		t.Errorf("failed files = %v, want [two.jpg]", ue.Files)
	}
	if Classify(err) != KindTransient {
		t.Errorf("kind = %s, want transient", Classify(err))
	}
	if n := srv.submissions.Load(); n != 0 {
		t.Errorf("submissions posted = %d, want 0", n)
	}
	files.allClosed(t, 3)
}

func TestSubmitOpenFailure(t *testing.T) {
	srv := &submissionServer{}
	c := newTestClient(t, srv.handler(t), nil)

	var files evidenceSet
	broken := Evidence{Name: "camera", Open: func() (io.ReadCloser, error) {
		return nil, errors.New("device busy")
	}}
	_, err := c.Submit(context.Background(), SubmitRequest{
		TaskID:   4,
		Evidence: []Evidence{files.add("a.jpg", "a"), broken, files.add("b.jpg", "b")},
	})

	var ue *UploadError
	if !errors.As(err, &ue) || len(ue.Files) != 1 || ue.Files[0] != "camera" {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "device busy") {
		t.Errorf("error %q does not name the cause", err)
	}
	if srv.submissions.Load() != 0 {
		t.Error("submission posted after failed upload")
	}
	files.allClosed(t, 2)
}

func TestSubmitKeepsEvidenceOrder(t *testing.T) {
	// Later files finish first.
	srv := &submissionServer{delays: map[string]time.Duration{
		"a.jpg": 60 * time.Millisecond,
		"b.jpg": 30 * time.Millisecond,
	}}
	c := newTestClient(t, srv.handler(t), nil)

	var files evidenceSet
	sub, err := c.Submit(context.Background(), SubmitRequest{
		TaskID:     4,
		Reflection: "  Psalm 23 is comforting  ",
		Evidence:   []Evidence{files.add("a.jpg", "a"), files.add("b.jpg", "b"), files.add("c.jpg", "c")},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Status != model.StatusPending {
		t.Errorf("status = %s, want PENDING", sub.Status)
	}

	want := []string{
		"/static/uploads/familypoints/a.jpg",
		"/static/uploads/familypoints/b.jpg",
		"/static/uploads/familypoints/c.jpg",
	}
	if strings.Join(srv.payload.EvidenceFiles, ",") != strings.Join(want, ",") {
		t.Errorf("evidence_files = %v, want %v", srv.payload.EvidenceFiles, want)
	}
	if srv.payload.EvidenceFilePath != want[0] {
		t.Errorf("evidence_file_path = %q, want %q", srv.payload.EvidenceFilePath, want[0])
	}
	if srv.payload.Reflection != "Psalm 23 is comforting" {
		t.Errorf("reflection = %q", srv.payload.Reflection)
	}
	files.allClosed(t, 3)
}

func TestSubmitWithoutEvidence(t *testing.T) {
	srv := &submissionServer{}
	c := newTestClient(t, srv.handler(t), nil)

	if _, err := c.Submit(context.Background(), SubmitRequest{TaskID: 7}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if srv.payload.EvidenceFilePath != "" || len(srv.payload.EvidenceFiles) != 0 {
		t.Errorf("payload = %+v, want no evidence", srv.payload)
	}
}

func TestSubmitRejectsNonPendingResult(t *testing.T) {
	srv := &submissionServer{status: model.StatusApproved}
	c := newTestClient(t, srv.handler(t), nil)

	_, err := c.Submit(context.Background(), SubmitRequest{TaskID: 7})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
}
