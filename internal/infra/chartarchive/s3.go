package chartarchive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

// S3Archive stores chart snapshots in an S3-compatible bucket (MinIO, R2, S3).
type S3Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
	mu     sync.Mutex
	ready  bool
}

// NewS3Archive constructs the archive adapter.
func NewS3Archive(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*S3Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	useSSL := strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "https")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archive{client: client, bucket: bucket, logger: logger.With("component", "chartarchive.s3")}, nil
}

func (a *S3Archive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err == nil && exists {
		a.ready = true
		return nil
	}
	err = a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	a.ready = true
	return nil
}

// Put uploads a PNG snapshot and returns its s3:// location.
func (a *S3Archive) Put(ctx context.Context, key string, png []byte) (string, error) {
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{
		ContentType:      "image/png",
		DisableMultipart: true,
	})
	if err != nil {
		return "", err
	}
	a.logger.Debug("snapshot uploaded", "key", key, "size", info.Size, "etag", info.ETag)
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

var _ dashboard.ChartArchive = (*S3Archive)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
