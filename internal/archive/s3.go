// Package archive keeps raw copies of fetched listing pages in an
// S3-compatible bucket so manual scrape results can be audited later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/guarzo/axiom/internal/fetch"
)

// Config holds the connection settings for the snapshot bucket. Endpoint
// is only needed for S3-compatible providers (MinIO, R2).
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes page snapshots as individual objects.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archiver builds a client from cfg. Without static keys the default
// AWS credential chain is used.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("archive: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return newArchiver(client, cfg.Bucket, cfg.Prefix), nil
}

func newArchiver(client objectPutter, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Snapshot stores page under <prefix>/<item>/<date>/<uuid>.html and returns
// the object key.
func (a *S3Archiver) Snapshot(ctx context.Context, itemID string, page *fetch.Page) (string, error) {
	if itemID == "" {
		itemID = "unassigned"
	}
	key := path.Join(a.prefix, itemID, a.now().UTC().Format("2006/01/02"), uuid.NewString()+".html")

	contentType := page.ContentType
	if contentType == "" {
		contentType = "text/html"
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(page.Body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"source-url":  url.QueryEscape(page.URL),
			"status-code": strconv.Itoa(page.StatusCode),
			"fetched-at":  page.FetchedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("archive: put object %s: %w", key, err)
	}
	return key, nil
}
