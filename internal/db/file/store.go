// Package file implements db.Store on the local filesystem, one file per
// key. It is the default backend: cache entries survive restarts without any
// external service.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kailas-cloud/quizgen/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// keyEncoder maps key characters that are unsafe in filenames. Keys are
// prefix:sha256 strings, so the mapping stays collision-free in practice.
var keyEncoder = strings.NewReplacer(":", "_", "/", "_")

// Store implements db.Store over a directory of flat files.
type Store struct {
	dir string
}

// NewStore creates the directory if needed and returns a file store.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, keyEncoder.Replace(key))
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key. The write goes through a temp file
// and a rename so a crash never leaves a half-written entry behind.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	if _, err = tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return &db.Error{Op: db.OpSet, Err: err}
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return &db.Error{Op: db.OpSet, Err: err}
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Scan returns every key matching a glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	encoded := keyEncoder.Replace(pattern)
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		ok, err := path.Match(encoded, e.Name())
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if ok {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// Ping checks that the store directory is still accessible.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *Store) Close() {}

// WaitForReady reports readiness immediately; the filesystem needs no warmup.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error {
	return s.Ping(context.Background())
}
