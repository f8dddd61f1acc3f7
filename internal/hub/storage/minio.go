// Package storage implements the hub's object-store port on MinIO (or any
// S3-compatible endpoint).
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	"github.com/pitwall-io/pitwall/pkg/log"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

var _ core.Storage = (*minioProvider)(nil)

type minioProvider struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOProvider creates the clip store client.
func NewMinIOProvider(opts *genericoptions.S3Options) (*minioProvider, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioProvider{client: client, bucketName: opts.BucketName}, nil
}

// EnsureBucket creates the clip bucket when missing. Runs once during
// hub startup; restricted production credentials only pay the existence
// check.
func (p *minioProvider) EnsureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("bucket does not exist, creating", "bucket", p.bucketName)
		if err := p.client.MakeBucket(ctx, p.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// PresignedPutURL returns a temporary upload URL for one clip object.
func (p *minioProvider) PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := p.client.PresignedPutObject(ctx, p.bucketName, objectKey, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return presignedURL.String(), nil
}
