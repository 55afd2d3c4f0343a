// Package store keeps imported documents under short keys so they can be
// reopened later, by the terminal viewer or through the HTTP server.
//
// Every backend stores the compact JSON text of a document. A missing key
// is reported as found == false, never as an error.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsonbrowse/internal/config"
	"github.com/mcncl/jsonbrowse/internal/errors"
)

// Store is a key/value store of JSON documents. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the stored keys in ascending order.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemory(cfg.TTL), nil
	case config.BackendFile:
		return NewFile(cfg.Dir, cfg.TTL)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath, cfg.TTL)
	case config.BackendRedis:
		return NewRedis(ctx, cfg.Redis, cfg.TTL)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown store backend %q", cfg.Backend), nil)
	}
}

// Slug derives a URL-safe key from a document name: the stem in kebab case
// followed by the lower-cased extension. "My Data.JSON" becomes
// "my-data.json".
func Slug(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	ext := filepath.Ext(base)
	stem := strcase.ToKebab(strings.TrimSuffix(base, ext))
	ext = strings.ToLower(ext)
	if stem == "" {
		return strings.TrimPrefix(ext, ".")
	}
	return stem + ext
}

// ValidateKey rejects keys that cannot be used in a URL path segment.
func ValidateKey(key string) error {
	if key == "" {
		return errors.NewInputError("store key must not be empty", errors.ErrInvalidFilePath)
	}
	if strings.ContainsAny(key, "/\\?#") || strings.TrimSpace(key) != key {
		return errors.NewInputError(fmt.Sprintf("invalid store key %q", key), errors.ErrInvalidFilePath)
	}
	return nil
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func expired(at time.Time) bool {
	return !at.IsZero() && time.Now().After(at)
}
