package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukerupert/familypoints/internal/upload"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUploadLocal(t *testing.T) {
	env := setupEnv(t)
	dir := t.TempDir()
	h := NewUploadHandler(upload.NewLocalStorage(dir, "/static/uploads"), 1<<20, env.logger)

	w := httptest.NewRecorder()
	h.Upload(w, asUser(multipartRequest(t, "file", "proof.png", pngHeader), env.child))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}

	resp := decode[uploadResponse](t, w)
	if !strings.HasPrefix(resp.URL, "/static/uploads/"+upload.Folder+"/") || !strings.HasSuffix(resp.URL, ".png") {
		t.Errorf("url = %q", resp.URL)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(resp.Filename)))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Errorf("stored %d bytes, want %d", len(data), len(pngHeader))
	}
}

func TestUploadRejections(t *testing.T) {
	env := setupEnv(t)
	h := NewUploadHandler(upload.NewLocalStorage(t.TempDir(), "/static/uploads"), 4096, env.logger)

	tests := []struct {
		name  string
		field string
		data  []byte
		want  int
	}{
		{"missing file", "", nil, http.StatusUnprocessableEntity},
		{"wrong field", "photo", pngHeader, http.StatusUnprocessableEntity},
		{"unsupported type", "file", []byte("#!/bin/sh\necho hi\n"), http.StatusUnsupportedMediaType},
		{"too large", "file", bytes.Repeat([]byte{0x89}, 8192), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Upload(w, asUser(multipartRequest(t, tt.field, "x.bin", tt.data), env.child))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

type failingStorage struct{}

func (failingStorage) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestUploadStorageFailure(t *testing.T) {
	env := setupEnv(t)
	h := NewUploadHandler(failingStorage{}, 1<<20, env.logger)

	w := httptest.NewRecorder()
	h.Upload(w, asUser(multipartRequest(t, "file", "proof.png", pngHeader), env.child))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
