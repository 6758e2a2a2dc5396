package blob

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"digitalroom/internal/infra/blob/fs"
	memorystore "digitalroom/internal/infra/blob/memory"
	infraS3 "digitalroom/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration.
type S3Config = infraS3.Config

// Config selects and configures a blob backend.
type Config struct {
	Driver        string   `mapstructure:"driver"`
	FSRoot        string   `mapstructure:"fs_root"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	S3            S3Config `mapstructure:"s3"`
}

// Open returns the Store named by cfg.Driver: fs (default), s3 or memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot, cfg.PublicBaseURL)
	case DriverS3:
		s3cfg := cfg.S3
		if s3cfg.PublicBaseURL == "" {
			s3cfg.PublicBaseURL = cfg.PublicBaseURL
		}
		return NewS3(ctx, s3cfg)
	case DriverMemory:
		return NewMemory(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root, publicBaseURL string) (Store, error) {
	return fs.New(root, publicBaseURL)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory(publicBaseURL string) Store { return memorystore.New(publicBaseURL) }

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests exposes the fake-transport S3 store for cross-package tests.
func NewMockS3ForTests(publicBaseURL string) Store { return infraS3.NewMockForTests(publicBaseURL) }

// ObjectName builds a collision-resistant object name for an uploaded file:
// <token>-<unix millis><lowercased extension>.
func ObjectName(filename string, now time.Time) string {
	token := strings.SplitN(uuid.NewString(), "-", 2)[0]
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	return token + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ext
}
