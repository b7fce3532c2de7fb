package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a directory and serves URLs off a static
// base. It is the zero-infrastructure default for single-node deployments.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("media: local dir not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

func (s *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	// Keys come from our own handlers, but a path that cleans differently
	// than it reads never touches the disk.
	if key == "" || path.Clean("/"+key) != "/"+key {
		return "", fmt.Errorf("media: invalid object key %q", key)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("media: mkdir for %q: %w", key, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("media: create %q: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("media: write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("media: flush %q: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}
