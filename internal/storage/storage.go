package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// Storage is the object store behind audio uploads and transcript artifacts.
type Storage interface {
	// Put writes an object under the given key, overwriting any existing one.
	Put(ctx context.Context, key string, content io.Reader, contentType string) error

	// Retrieve opens the object stored under key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// List returns up to max objects whose keys start with prefix, sorted by
	// object name descending. Names derived from fixed-width timestamps make
	// this ordering chronological-descending as well.
	List(ctx context.Context, prefix string, max int) ([]ObjectInfo, error)

	// Exists checks whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a signed URL (S3) or a serve path (local) for the object.
	GetURL(ctx context.Context, key string, expiration time.Duration) (string, error)
}

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	// Key is the full storage key, Name the last path segment.
	Key          string
	Name         string
	Size         int64
	LastModified time.Time
}

type Config struct {
	Type      string
	LocalPath string
	S3Bucket  string
	S3Region  string
}

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(filename)
}

// SafeObjectName sanitizes a user-supplied filename for use as the last
// segment of a storage key.
func SafeObjectName(filename string) string {
	return sanitizeFilename(filename)
}
