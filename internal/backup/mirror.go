package backup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Mirror receives a copy of each backup, keyed by batch stamp and
// project-relative path.
type Mirror interface {
	Put(ctx context.Context, stamp, relPath string, content []byte) error
}

// MirrorError reports an upload failure after the local copy was written.
type MirrorError struct {
	Path string
	Err  error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror %s: %v", e.Path, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Mirror uploads backup copies to an S3-compatible bucket.
type S3Mirror struct {
	client   *minio.Client
	bucket   string
	region   string
	prefix   string
	initOnce sync.Once
	initErr  error
}

func NewS3Mirror(cfg S3Config) (*S3Mirror, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Mirror{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (m *S3Mirror) ensureBucket(ctx context.Context) error {
	m.initOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.initErr = err
			return
		}
		if exists {
			return
		}
		m.initErr = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
	})
	return m.initErr
}

func (m *S3Mirror) Put(ctx context.Context, stamp, relPath string, content []byte) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mirror is nil")
	}
	if err := m.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := m.client.PutObject(ctx, m.bucket, ObjectKey(m.prefix, stamp, relPath),
		bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: "application/x-yaml",
		})
	return err
}

// ObjectKey joins prefix, stamp and path into a bucket key.
func ObjectKey(prefix, stamp, relPath string) string {
	parts := make([]string, 0, 3)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, stamp, strings.TrimLeft(strings.TrimSpace(relPath), "/"))
	return strings.Join(parts, "/")
}
