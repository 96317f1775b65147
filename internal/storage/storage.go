package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Storage - блоб-хранилище вложений
type Storage interface {
	// Save stores a blob at the given path
	Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error

	// Delete removes a blob, missing blobs are not an error
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// GetURL returns a public URL for the blob
	GetURL(ctx context.Context, path string) (string, error)

	// GetSignedURL returns a temporary signed URL for private blobs
	GetSignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// Provider - имя драйвера, пишется в files.storage_provider
	Provider() string
}

// Config holds storage configuration
type Config struct {
	Type       string // local, s3, cloudflare_r2
	BasePath   string // For local storage
	BaseURL    string // Public URL base
	Bucket     string // For S3/R2
	Region     string // For S3
	AccessKey  string // For S3/R2
	SecretKey  string // For S3/R2
	Endpoint   string // For R2 or custom S3
	PublicRead bool   // Make files public by default
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(ctx, cfg)
	case "cloudflare_r2":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint is required for Cloudflare R2")
		}
		if cfg.Region == "" {
			cfg.Region = "auto"
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
