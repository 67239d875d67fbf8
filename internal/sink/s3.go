// Package sink implements the S3 segment sink.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*S3Sink)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// S3Sink implements sink.Sink for AWS S3 and S3-compatible stores.
type S3Sink struct {
	client   *s3.Client
	uploader *manager.Uploader
	config   S3Config
	logger   *slog.Logger
	metrics  MetricsCollector
	mu       sync.Mutex
	closed   bool
}

// NewS3Sink creates a new S3 sink.
func NewS3Sink(cfg S3Config, logger *slog.Logger, metrics MetricsCollector) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	awsConfig, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("S3 sink created",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"sse_enabled", cfg.SSEEnabled,
	)

	return &S3Sink{
		client:   client,
		uploader: manager.NewUploader(client),
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// EnsureDestination checks that the bucket exists, creating it when the
// head request reports it missing.
func (s *S3Sink) EnsureDestination(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSinkClosed
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(s.config.Bucket),
	}
	// us-east-1 rejects an explicit location constraint.
	if s.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.config.Region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("s3", "ensure_destination")
		}
		return &errors.StorageError{
			Backend:   "s3",
			Operation: "ensure_destination",
			Path:      s.config.Bucket,
			Err:       err,
		}
	}

	s.logger.Info("created bucket", "bucket", s.config.Bucket)
	return nil
}

// Upload writes artifact bytes to s3://<bucket>/<path>.
func (s *S3Sink) Upload(ctx context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.ErrSinkClosed
	}

	key := strings.TrimPrefix(path, "/")
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if s.config.SSEEnabled {
		if s.config.SSEKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(s.config.SSEKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("s3", "upload")
		}
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.logger.Debug("uploaded object",
		"bucket", s.config.Bucket,
		"key", key,
		"size_bytes", len(data),
	)
	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}

// Close closes the S3 sink.
func (s *S3Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.logger.Info("S3 sink closed")
	return nil
}
