// Package sink implements the Google Cloud Storage sink.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*GCSSink)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// GCSSink implements sink.Sink for Google Cloud Storage. It supports
// multiple authentication methods (service account file, JSON string,
// application default credentials).
type GCSSink struct {
	client  *storage.Client
	config  GCSConfig
	logger  *slog.Logger
	metrics MetricsCollector
	mu      sync.Mutex
	closed  bool
}

// NewGCSSink creates a new Google Cloud Storage sink.
func NewGCSSink(cfg GCSConfig, logger *slog.Logger, metrics MetricsCollector) (*GCSSink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	ctx := context.Background()

	var clientOpts []option.ClientOption
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	switch {
	case cfg.UseDefaultCredential:
		logger.Info("using default GCP credentials")
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info("using GCP credentials from file", "file", cfg.CredentialsFile)
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS sink created",
		"bucket", cfg.Bucket,
		"project_id", cfg.ProjectID,
	)

	return &GCSSink{
		client:  client,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// EnsureDestination checks that the bucket exists, creating it when the
// attrs lookup reports it missing and a project ID is configured.
func (s *GCSSink) EnsureDestination(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSinkClosed
	}

	bucket := s.client.Bucket(s.config.Bucket)
	_, err := bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if err != storage.ErrBucketNotExist || s.config.ProjectID == "" {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("gcs", "ensure_destination")
		}
		return &errors.StorageError{
			Backend:   "gcs",
			Operation: "ensure_destination",
			Path:      s.config.Bucket,
			Err:       err,
		}
	}

	if err := bucket.Create(ctx, s.config.ProjectID, nil); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("gcs", "ensure_destination")
		}
		return &errors.StorageError{
			Backend:   "gcs",
			Operation: "ensure_destination",
			Path:      s.config.Bucket,
			Err:       err,
		}
	}

	s.logger.Info("created bucket", "bucket", s.config.Bucket)
	return nil
}

// Upload writes artifact bytes to gs://<bucket>/<path>.
func (s *GCSSink) Upload(ctx context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.ErrSinkClosed
	}

	objectPath := strings.TrimPrefix(path, "/")
	obj := s.client.Bucket(s.config.Bucket).Object(objectPath)

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		writer.Close()
		if s.metrics != nil {
			s.metrics.IncSinkErrors("gcs", "upload")
		}
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("gcs", "upload")
		}
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	s.logger.Debug("uploaded object",
		"bucket", s.config.Bucket,
		"object", objectPath,
		"size_bytes", len(data),
	)
	return fmt.Sprintf("gs://%s/%s", s.config.Bucket, objectPath), nil
}

// Close closes the GCS sink.
func (s *GCSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("GCS sink closed")
	return s.client.Close()
}
