package deploy

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/starford/bloggen/internal/apperr"
)

// Bucket is the destination of a deploy.
type Bucket interface {
	// PutObject stores data under key, replacing any existing object.
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	// Endpoint describes where objects land, for reports and logs.
	Endpoint() string
}

// S3Config locates an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Bucket uploads to an S3-compatible object store.
type S3Bucket struct {
	client *minio.Client
	bucket string
}

var _ Bucket = (*S3Bucket)(nil)

// NewS3Bucket creates a client for cfg. It does not contact the server.
func NewS3Bucket(cfg S3Config) (*S3Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("deploy: s3 client: %w", err)
	}
	return &S3Bucket{client: client, bucket: cfg.Bucket}, nil
}

// Check verifies that the bucket exists.
func (b *S3Bucket) Check(ctx context.Context) error {
	ok, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("deploy: check bucket %s: %w", b.bucket, err)
	}
	if !ok {
		return fmt.Errorf("deploy: bucket %s: %w", b.bucket, apperr.ErrNotFound)
	}
	return nil
}

// PutObject uploads data as a single object.
func (b *S3Bucket) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Endpoint returns the bucket URL.
func (b *S3Bucket) Endpoint() string {
	return b.client.EndpointURL().String() + "/" + b.bucket
}
