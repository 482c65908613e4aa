// Package archive stores label images of OCR scanned products so the
// product record can link to the original photo.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

const componentName = "archive"

// Store persists an image and returns a URL that resolves to it.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Config configures the S3 archive.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint for S3 compatible services.
	Endpoint string
	// PublicURL is the base URL objects are served from. Defaults to the
	// virtual-hosted bucket URL.
	PublicURL string
	Prefix    string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads images to an S3 bucket.
type S3Store struct {
	api       putObjectAPI
	bucket    string
	prefix    string
	publicURL string
	log       logger.Logger
}

// NewS3Store loads the default AWS credential chain and creates the client.
func NewS3Store(ctx context.Context, cfg Config, log logger.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.Newf("archive bucket is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("unable to load AWS config: %w", err)).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, cfg, awsCfg.Region, log), nil
}

func newS3Store(api putObjectAPI, cfg Config, region string, log logger.Logger) *S3Store {
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		switch {
		case cfg.Endpoint != "":
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		case region != "":
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		default:
			publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
		}
	}
	return &S3Store{
		api:       api,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: publicURL,
		log:       log,
	}
}

// Put uploads data under the configured prefix and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := key
	if s.prefix != "" {
		objectKey = path.Join(s.prefix, key)
	}

	start := time.Now()
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.New(fmt.Errorf("failed to upload label image: %w", err)).
			Component(componentName).
			Category(errors.CategoryArchive).
			Context("bucket", s.bucket).
			Context("key", objectKey).
			Build()
	}

	s.log.Debug("label image archived",
		logger.String("key", objectKey),
		logger.Int("bytes", len(data)),
		logger.Duration("duration", time.Since(start)))

	return s.publicURL + "/" + (&url.URL{Path: objectKey}).EscapedPath(), nil
}

// LabelKey returns a unique object key for a label image of the given MIME type.
func LabelKey(now time.Time, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return path.Join("labels", now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}
