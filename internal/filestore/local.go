package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tripwise-ai/tripwise/internal/config"
	appErr "github.com/tripwise-ai/tripwise/internal/pkg/errors"
)

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(cfg config.FileStoreConfig) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: cfg.Dir}, nil
}

func (s *localStore) Save(ctx context.Context, key string, r io.Reader) error {
	_ = ctx
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.dir, key))
}

func validateKey(key string) error {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: file key %q", appErr.ErrInvalid, key)
	}
	return nil
}
