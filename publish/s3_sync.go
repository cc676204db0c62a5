// Package publish pushes generated publication artifacts to blob storage
// and invalidates downstream CDN caches. Artifact content generation is
// out of scope; this package only moves what a generator produced.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sigwatch-dev/sigwatch/netutil"
)

// Defaults for the blocked-pages publication target.
const (
	DefaultRegion     = "eu-central-1"
	DefaultBucketName = "amo-blocked-pages"
)

// S3API is the storage surface the syncer needs.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Syncer uploads a generated artifact directory to one S3 bucket.
type S3Syncer struct {
	client S3API
	region string
	bucket string
	logger *slog.Logger
}

// NewS3Syncer creates a syncer. Empty region/bucket fall back to the
// publication defaults.
func NewS3Syncer(client S3API, region, bucket string, logger *slog.Logger) *S3Syncer {
	if region == "" {
		region = DefaultRegion
	}
	if bucket == "" {
		bucket = DefaultBucketName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Syncer{client: client, region: region, bucket: bucket, logger: logger}
}

// Sync uploads every regular file directly under dir as a text/html
// object and returns the uploaded object names. The bucket is created
// when absent; an already-existing bucket is not an error.
func (s *S3Syncer) Sync(ctx context.Context, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact directory %s: not a directory", dir)
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading artifact directory: %w", err)
	}

	var uploaded []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return uploaded, fmt.Errorf("opening %s: %w", name, err)
		}

		size := int64(0)
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		s.logger.Info("uploading artifact", "file", name, "bucket", s.bucket, "size", netutil.FormatSize(size))

		_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(name),
			Body:        f,
			ContentType: aws.String("text/html"),
		})
		f.Close()
		if err != nil {
			return uploaded, fmt.Errorf("uploading %s: %w", name, err)
		}
		uploaded = append(uploaded, name)
	}

	return uploaded, nil
}

func (s *S3Syncer) ensureBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
		CreateBucketConfiguration: &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.region),
		},
	})
	if err == nil {
		return nil
	}

	var owned *s3types.BucketAlreadyOwnedByYou
	var exists *s3types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
}
