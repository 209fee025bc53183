package storage

import "fmt"

// NewStorage builds the configured storage backend.
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket name")
		}
		return NewS3Storage(cfg.S3Bucket, cfg.S3Region)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
