package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage writes files under Dir and serves them from URLPrefix.
type LocalStorage struct {
	Dir       string
	URLPrefix string
}

func NewLocalStorage(dir, urlPrefix string) *LocalStorage {
	return &LocalStorage{Dir: dir, URLPrefix: urlPrefix}
}

func (s *LocalStorage) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename upload: %w", err)
	}

	return s.URLPrefix + "/" + key, nil
}
