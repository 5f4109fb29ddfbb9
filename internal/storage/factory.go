package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/imgvault/imgvault/internal/b2"
	"github.com/imgvault/imgvault/internal/config"
)

// New builds the configured storage backend. The b2 backend authorizes a
// session during construction and fails fast when the exchange fails.
func New(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (ImageStorage, error) {
	switch cfg.Backend {
	case "b2", "":
		if cfg.B2.KeyID == "" || cfg.B2.ApplicationKey == "" || cfg.B2.BucketID == "" || cfg.B2.BucketName == "" {
			return nil, fmt.Errorf("b2 key_id, application_key, bucket_id and bucket_name are required")
		}
		client, err := b2.Authorize(ctx, b2.Credentials{
			KeyID:          cfg.B2.KeyID,
			ApplicationKey: cfg.B2.ApplicationKey,
			BucketID:       cfg.B2.BucketID,
			BucketName:     cfg.B2.BucketName,
		}, b2.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return NewB2(client), nil
	case "s3":
		if cfg.S3.Endpoint == "" || cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 endpoint and bucket are required")
		}
		return NewS3(cfg.S3)
	case "local":
		return NewLocal(cfg.Local.Path), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
