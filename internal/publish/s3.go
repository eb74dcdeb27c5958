// Package publish uploads a materialized corpus to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/harrison/paircorpus/internal/fileutil"
)

const defaultRegion = "us-east-1"

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// objectStore is the subset of *minio.Client used for uploads.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Logger receives per-object upload messages.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

type nopLogger struct{}

func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string)  {}

// Upload is one file scheduled for upload.
type Upload struct {
	Path string // Local absolute path
	Key  string // Object key
}

// S3Publisher uploads corpus files under a key prefix.
type S3Publisher struct {
	client objectStore
	bucket string
	region string
	prefix string
	logger Logger

	initOnce sync.Once
	initErr  error
}

// NewS3Publisher creates a publisher for cfg.
func NewS3Publisher(cfg Config) (*S3Publisher, error) {
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
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return newPublisher(client, bucket, region, cfg.Prefix), nil
}

func newPublisher(client objectStore, bucket, region, prefix string) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: bucket,
		region: region,
		prefix: prefix,
		logger: nopLogger{},
	}
}

// SetLogger replaces the publisher's logger. A nil logger disables logging.
func (p *S3Publisher) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	p.logger = l
}

// Bucket returns the target bucket name.
func (p *S3Publisher) Bucket() string {
	return p.bucket
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.logger.LogInfo(fmt.Sprintf("Creating bucket %s", p.bucket))
		p.initErr = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// Plan lists the uploads for every file under root. Hidden directories,
// including the builder's staging area, are skipped.
func Plan(root, prefix string) ([]Upload, error) {
	result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{Recursive: true})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("scan %s: %w", root, result.Errors[0])
	}
	rel, err := result.RelativeFiles(root)
	if err != nil {
		return nil, err
	}

	uploads := make([]Upload, 0, len(rel))
	for i, r := range rel {
		uploads = append(uploads, Upload{Path: result.Files[i], Key: objectKey(prefix, r)})
	}
	return uploads, nil
}

// Publish uploads every file under root and returns the number of objects written.
func (p *S3Publisher) Publish(ctx context.Context, root string) (int, error) {
	uploads, err := Plan(root, p.prefix)
	if err != nil {
		return 0, err
	}
	if err := p.ensureBucket(ctx); err != nil {
		return 0, fmt.Errorf("ensure bucket: %w", err)
	}

	for i, u := range uploads {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		_, err := p.client.FPutObject(ctx, p.bucket, u.Key, u.Path, minio.PutObjectOptions{
			ContentType: contentType(u.Path),
		})
		if err != nil {
			return i, fmt.Errorf("upload %s: %w", u.Key, err)
		}
		p.logger.LogDebug(fmt.Sprintf("Uploaded s3://%s/%s", p.bucket, u.Key))
	}
	return len(uploads), nil
}

func objectKey(prefix, rel string) string {
	normalized := strings.TrimLeft(filepath.ToSlash(strings.TrimSpace(rel)), "/")
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return normalized
	}
	return path.Join(prefix, normalized)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".c", ".h":
		return "text/x-c"
	case ".rs":
		return "text/x-rust"
	default:
		return "application/octet-stream"
	}
}
