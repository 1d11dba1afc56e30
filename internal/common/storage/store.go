// Package storage holds the resume object stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// ObjectStore uploads binary attachments by path and resolves their public
// retrieval URL.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	PublicURL(key string) string
}

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName rejects names with a "." or ".." path segment and maps
// every rune outside [A-Za-z0-9._-] to '_'. Dots inside a segment, as in
// "J.Smith..Resume.pdf", are kept.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", ErrInvalidFileName
	}
	for _, seg := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == "." || seg == ".." {
			return "", ErrInvalidFileName
		}
	}
	s = strings.Join(strings.Fields(s), "_")
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if strings.Trim(s, "_") == "" {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// ResumeKey returns "<prefix>/<unix-millis>-<sanitised name>".
func ResumeKey(prefix string, now time.Time, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, fileName)
	}
	return applyPrefix(prefix, fmt.Sprintf("%d-%s", now.UnixMilli(), name)), nil
}

// escapeKey path-escapes each segment of key for use in a URL.
func escapeKey(key string) string {
	segs := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := normalizePrefix(prefix)
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
