package store

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mcncl/jsonbrowse/internal/errors"
)

// File stores each document as a file in a directory.
// Files are spread over subdirectories named after the key hash.
type File struct {
	dir string
	ttl time.Duration
}

// NewFile creates a file store in dir, creating the directory if needed.
func NewFile(dir string, ttl time.Duration) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create store directory", err)
	}
	return &File{dir: dir, ttl: ttl}, nil
}

// fileEntry wraps stored data with metadata. The key is kept because the
// file name is a hash.
type fileEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := f.read(f.path(key))
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(entry.Data), true, nil
}

func (f *File) read(path string) (fileEntry, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fileEntry{}, false, nil
	}
	if err != nil {
		return fileEntry{}, false, errors.NewStorageError("failed to read stored document", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A damaged entry is treated as missing.
		_ = os.Remove(path)
		return fileEntry{}, false, nil
	}
	if expired(entry.ExpiresAt) {
		_ = os.Remove(path)
		return fileEntry{}, false, nil
	}
	return entry, true, nil
}

func (f *File) Put(_ context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if !json.Valid(data) {
		return errors.NewStorageError("refusing to store invalid JSON", errors.ErrInvalidJSON)
	}

	entryData, err := json.Marshal(fileEntry{Key: key, Data: data, ExpiresAt: expiry(f.ttl)})
	if err != nil {
		return errors.NewStorageError("failed to encode stored document", err)
	}

	path := f.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewStorageError("failed to create store directory", err)
	}
	if err := os.WriteFile(path, entryData, 0o644); err != nil {
		return errors.NewStorageError("failed to write stored document", err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewStorageError("failed to delete stored document", err)
	}
	return nil
}

func (f *File) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		entry, ok, err := f.read(path)
		if err != nil {
			return err
		}
		if ok {
			keys = append(keys, entry.Key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to list stored documents", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *File) Close() error { return nil }

// path converts a key to a file path. The first two hex characters of the
// hash name the subdirectory.
func (f *File) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(f.dir, hash[:2], hash[2:]+".json")
}

var _ Store = (*File)(nil)
