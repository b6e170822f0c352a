// Package s3 provides an S3-compatible implementation of the
// contentstore.BlobStore interface.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/duolang/contentstore/pkg/contentstore"
)

// Config options for the S3 backend.
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // optional; default credential chain when empty
	SecretAccessKey string
	Endpoint        string // optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // path-style addressing (forced on when Endpoint is set)
	PresignDuration int    // seconds presigned URLs stay valid (default: 3600)
	RequestTimeout  int    // seconds per store round trip (default: 30)
}

// Backend is an S3-compatible implementation of contentstore.BlobStore.
type Backend struct {
	client          *s3.Client
	presignClient   *s3.PresignClient
	bucket          string
	presignDuration time.Duration
	requestTimeout  time.Duration
}

// New creates a new S3-compatible storage backend. Missing required
// configuration fails here, at construction, not at first upload.
func New(config Config) (contentstore.BlobStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	if config.PresignDuration == 0 {
		config.PresignDuration = 3600
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		})
	} else if config.UsePathStyle {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &Backend{
		client:          client,
		presignClient:   s3.NewPresignClient(client),
		bucket:          config.Bucket,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
		requestTimeout:  time.Duration(config.RequestTimeout) * time.Second,
	}, nil
}

// Upload writes the object under key.
func (b *Backend) Upload(ctx context.Context, key string, reader io.Reader, mimeType string) error {
	ctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	uploader := manager.NewUploader(b.client)
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   reader,
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := uploader.Upload(ctx, input); err != nil {
		return b.classify("upload", key, err)
	}
	return nil
}

// Download reads the object back.
func (b *Backend) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.classify("download", key, err)
	}
	return result.Body, nil
}

// Delete removes the object. Deleting a non-existent key is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return b.classify("delete", key, err)
	}
	return nil
}

// GetDownloadURL returns a presigned read URL for the object.
func (b *Backend) GetDownloadURL(ctx context.Context, key string) (string, error) {
	result, err := b.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = b.presignDuration
	})
	if err != nil {
		return "", b.classify("presign", key, err)
	}
	return result.URL, nil
}

// classify maps SDK failures onto the store error taxonomy. Timeouts are
// surfaced distinctly from missing objects.
func (b *Backend) classify(op, key string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: %v", contentstore.ErrStoreTimeout, err)
	case isNotFound(err):
		err = fmt.Errorf("%w: %v", contentstore.ErrObjectNotFound, err)
	}
	return &contentstore.StorageError{Op: op, Key: key, Err: err}
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey"
}
