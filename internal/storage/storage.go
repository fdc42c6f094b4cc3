package storage

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the blob-storage capability the chat core depends on:
// store bytes under a key, get back a retrievable URL, check existence,
// delete. Failures surface as-is; retrying is the caller's business.
type ObjectStore interface {
	// Put uploads the content under key and returns a publicly addressable
	// URL for it. The size parameter is the expected content size (-1 if
	// unknown).
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Exists reports whether the key is present. Absence is a normal false,
	// not an error.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object with the given key.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-limited access URL. It fails when the key
	// does not exist.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ObjectKey builds a collision-resistant storage key for an uploaded file:
// a fresh random token prefixes the original name so same-named files from
// different senders never overwrite each other.
func ObjectKey(filename string) string {
	return uuid.New().String() + "-" + sanitizeName(filename)
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	// Strip any path the client may have sent along.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		name = "file"
	}
	return name
}
