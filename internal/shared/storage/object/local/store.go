package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"callqa-backend/internal/shared/storage/object"
)

// Store implements object.Store on the local filesystem. Buckets map to
// subdirectories under the base directory. Intended for dev and tests.
type Store struct {
	baseDir string
}

// New creates a filesystem-backed object store rooted at baseDir.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		baseDir = "./data"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(bucket, key string) string {
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(key))
}

// Put writes the reader contents to disk, creating parent directories.
func (s *Store) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create object file %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get opens a stored object for reading.
func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("open object %s/%s: %w", bucket, key, err)
	}
	return f, nil
}

// PresignPut is not available for filesystem storage.
func (s *Store) PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	return "", object.ErrPresignUnsupported
}

var _ object.Store = (*Store)(nil)
