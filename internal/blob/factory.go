package blob

import (
	"context"
	"fmt"

	"cytocore/internal/config"
	"cytocore/internal/infra/blob/fs"
	"cytocore/internal/infra/blob/memory"
	"cytocore/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation from configuration.
//
//	CYTOCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	CYTOCORE_BLOB_ROOT: directory root when driver=fs (default ./outputs)
//	CYTOCORE_BLOB_BUCKET / _REGION / _ENDPOINT / _ACCESS_KEY / _SECRET_KEY: s3 driver
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch Driver(cfg.BlobDriver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.BlobRoot)
	case DriverS3:
		return NewS3(ctx, s3.Config{
			Region:          cfg.BlobRegion,
			Bucket:          cfg.BlobBucket,
			Endpoint:        cfg.BlobEndpoint,
			AccessKeyID:     cfg.BlobAccessKey,
			SecretAccessKey: cfg.BlobSecretKey,
			PathStyle:       cfg.BlobEndpoint != "",
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.BlobDriver)
	}
}

// NewFilesystem returns the filesystem driver rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewS3 returns the S3 driver for the given configuration.
func NewS3(ctx context.Context, cfg s3.Config) (Store, error) {
	return s3.New(ctx, cfg)
}

// NewMemory returns the in-memory driver.
func NewMemory() Store {
	return memory.New()
}
