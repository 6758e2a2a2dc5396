// Package core defines the object storage abstractions implemented by the
// infra blob backends and consumed through the blob facade.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// UploadOptions specifies optional parameters for Upload.
type UploadOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // User metadata (small, flat key-value)
}

// Object describes a stored file.
type Object struct {
	Bucket       string            `json:"bucket"`
	Path         string            `json:"path"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the object storage used for media attached to records. Buckets
// are logical namespaces; paths are slash-separated and relative.
type Store interface {
	// Upload stores a new object. Fails with ErrExists when the path is taken.
	Upload(ctx context.Context, bucket, path string, r io.Reader, opts UploadOptions) (Object, error)
	// PublicURL derives the public URL of an object. It does not check that
	// the object exists.
	PublicURL(bucket, path string) string
	// Remove deletes an object. Returns (false, nil) if not found.
	Remove(ctx context.Context, bucket, path string) (bool, error)
	// List returns objects in bucket whose path has prefix, ordered by path.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	// Driver returns the configured backend driver.
	Driver() Driver
}

var (
	// ErrExists is returned when uploading to an occupied path.
	ErrExists = errors.New("blobstore: object already exists")
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blobstore: unsupported operation")
)

// CleanPath validates bucket and object path, rejecting empty segments,
// absolute paths and traversal.
func CleanPath(bucket, p string) (string, error) {
	if err := checkSegment("bucket", bucket); err != nil {
		return "", err
	}
	if strings.Contains(bucket, "/") {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid absolute path")
	}
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("invalid path contains '..'")
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/")), nil
}

func checkSegment(kind, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if strings.Contains(v, "..") {
		return fmt.Errorf("invalid %s contains '..'", kind)
	}
	return nil
}

// JoinURL appends bucket and path to base with single slashes.
func JoinURL(base, bucket, p string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(p, "/")
}
