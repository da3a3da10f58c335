package objstore

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore implements Store over a directory tree. Object keys map onto
// slash-separated paths relative to the root, so "source/a.txt" lives at
// <root>/source/a.txt. It is the local stand-in for an S3/MinIO bucket.
type FSStore struct {
	root   string
	logger *slog.Logger
}

// NewFSStore creates a store rooted at dir, creating it if necessary.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("objstore: root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{
		root:   abs,
		logger: slog.Default().With("component", "objstore", "root", abs),
	}, nil
}

// Root returns the store's root directory.
func (s *FSStore) Root() string {
	return s.root
}

// List walks the tree and returns objects under prefix, sorted by key.
func (s *FSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	// WalkDir visits entries in lexical order, so objects are already
	// sorted by key.
	return objects, nil
}

// Get returns the object's content.
func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put writes content under key, creating parent directories as needed.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Copy duplicates srcKey's content under dstKey.
func (s *FSStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	data, err := s.Get(ctx, srcKey)
	if err != nil {
		return err
	}
	return s.Put(ctx, dstKey, data)
}

// Delete removes the object.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// resolve maps a key onto an absolute path under the root, rejecting keys
// that would escape it.
func (s *FSStore) resolve(key string) (string, error) {
	if key == "" || path.IsAbs(key) {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
