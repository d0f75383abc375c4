// Package upload stores evidence files on local disk or in an
// S3-compatible bucket.
package upload

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Folder prefixes every object key.
const Folder = "familypoints"

var ErrUnsupportedType = errors.New("unsupported file type")

// Storage saves a file and returns the URL clients should use to fetch it.
// Local storage returns server-relative URLs; S3 storage returns absolute
// ones.
type Storage interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// NewKey builds a collision-free object key that keeps the original
// extension.
func NewKey(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return Folder + "/" + uuid.NewString() + ext
}

// DetectType sniffs the first bytes of a file and accepts images, videos,
// audio and PDFs.
func DetectType(head []byte) (string, error) {
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"),
		strings.HasPrefix(ct, "video/"),
		strings.HasPrefix(ct, "audio/"),
		ct == "application/pdf":
		return ct, nil
	}
	return ct, ErrUnsupportedType
}
