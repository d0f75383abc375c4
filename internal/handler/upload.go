package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/familypoints/internal/upload"
)

type UploadHandler struct {
	storage  upload.Storage
	maxBytes int64
	logger   *slog.Logger
}

func NewUploadHandler(storage upload.Storage, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{storage: storage, maxBytes: maxBytes, logger: logger}
}

type uploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Upload handles POST /api/v1/uploads. The multipart field "file" is sniffed
// and stored; the response URL is what submissions reference.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": map[string]string{"file": "is required"},
		})
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	head = head[:n]
	if n == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}

	contentType, err := upload.DetectType(head)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+contentType)
		return
	}

	key := upload.NewKey(header.Filename, contentType)
	body := io.MultiReader(bytes.NewReader(head), file)
	url, err := h.storage.Save(r.Context(), key, contentType, body)
	if err != nil {
		h.logger.Error("save upload", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "File upload failed")
		return
	}

	h.logger.Info("file uploaded", "key", key, "content_type", contentType, "size", header.Size)
	writeJSON(w, http.StatusCreated, uploadResponse{Filename: key, URL: url})
}
