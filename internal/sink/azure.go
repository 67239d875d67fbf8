// Package sink implements the Azure Blob Storage sink.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*AzureSink)(nil)

// MetricsCollector defines metrics operations for sinks.
type MetricsCollector interface {
	IncSinkErrors(backend, operation string)
}

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	// ConnectionString takes precedence when set.
	ConnectionString string
	AccountName      string
	AccountKey       string
	Container        string
	Endpoint         string
}

// AzureSink implements sink.Sink for Azure Blob Storage. Artifacts are
// uploaded as blobs under the configured container; "folders" in upload
// paths are virtual via blob path naming, so EnsureDestination only has
// to create the container itself.
type AzureSink struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
	metrics   MetricsCollector
	mu        sync.Mutex
	closed    bool
}

// NewAzureSink creates a new Azure Blob sink.
func NewAzureSink(cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) (*AzureSink, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("azure container is required")
	}

	connectionString := cfg.ConnectionString
	if connectionString == "" {
		if cfg.Endpoint != "" {
			connectionString = fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
				cfg.AccountName, cfg.AccountKey, cfg.Endpoint)
		} else {
			connectionString = fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
				cfg.AccountName, cfg.AccountKey)
		}
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	logger.Info("Azure sink created",
		"container", cfg.Container,
		"account", cfg.AccountName,
	)

	return &AzureSink{
		client:    client,
		container: cfg.Container,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// EnsureDestination creates the target container if it does not exist.
func (s *AzureSink) EnsureDestination(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSinkClosed
	}

	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil
		}
		if s.metrics != nil {
			s.metrics.IncSinkErrors("azure", "ensure_destination")
		}
		return &errors.StorageError{
			Backend:   "azure",
			Operation: "ensure_destination",
			Path:      s.container,
			Err:       err,
		}
	}

	s.logger.Info("created container", "container", s.container)
	return nil
}

// Upload writes artifact bytes to <container>/<path> and returns the blob URL.
func (s *AzureSink) Upload(ctx context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.ErrSinkClosed
	}

	blobPath := strings.TrimPrefix(path, "/")
	if _, err := s.client.UploadBuffer(ctx, s.container, blobPath, data, nil); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("azure", "upload")
		}
		return "", fmt.Errorf("failed to upload to Azure Blob: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.client.URL(), "/"), s.container, blobPath)
	s.logger.Debug("uploaded blob",
		"container", s.container,
		"blob", blobPath,
		"size_bytes", len(data),
	)
	return url, nil
}

// Close closes the Azure sink.
func (s *AzureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.logger.Info("Azure sink closed")
	return nil
}
