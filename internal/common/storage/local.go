package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a base directory. Used in development and
// served by the API under PublicBaseURL.
type LocalStore struct {
	baseDir       string
	publicBaseURL string
}

func NewLocal(baseDir, publicBaseURL string) *LocalStore {
	if publicBaseURL == "" {
		publicBaseURL = "/files"
	}
	return &LocalStore{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// BaseDir is the directory the API serves files from.
func (s *LocalStore) BaseDir() string { return s.baseDir }

// MountPath is the URL path PublicURL points under; the API serves BaseDir
// there.
func (s *LocalStore) MountPath() string {
	if u, err := url.Parse(s.publicBaseURL); err == nil && u.Path != "" && u.Path != "/" {
		return u.Path
	}
	return "/files"
}

func (s *LocalStore) Upload(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	clean := filepath.Clean(key)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return 0, fmt.Errorf("invalid storage key %q", key)
	}

	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	return written, nil
}

func (s *LocalStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + escapeKey(filepath.ToSlash(key))
}

var _ ObjectStore = (*LocalStore)(nil)
