// Package sink implements the local filesystem sink.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*FileSink)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileSink implements sink.Sink for local filesystem storage. Segments
// are written under BasePath preserving the segment path layout.
type FileSink struct {
	basePath string
	logger   *slog.Logger
	metrics  MetricsCollector
	mu       sync.Mutex
	closed   bool
}

// NewFileSink creates a new filesystem sink.
func NewFileSink(cfg FileConfig, logger *slog.Logger, metrics MetricsCollector) (*FileSink, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("file base path is required")
	}

	logger.Info("filesystem sink created", "base_path", cfg.BasePath)

	return &FileSink{
		basePath: cfg.BasePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// EnsureDestination creates the base directory.
func (s *FileSink) EnsureDestination(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSinkClosed
	}

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("file", "ensure_destination")
		}
		return &errors.StorageError{
			Backend:   "file",
			Operation: "ensure_destination",
			Path:      s.basePath,
			Err:       err,
		}
	}
	return nil
}

// Upload writes the artifact bytes under the base path.
func (s *FileSink) Upload(ctx context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", errors.ErrSinkClosed
	}

	cleanPath := strings.TrimPrefix(path, "/")
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("file", "upload")
		}
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		if s.metrics != nil {
			s.metrics.IncSinkErrors("file", "upload")
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("wrote segment file",
		"path", fullPath,
		"size_bytes", len(data),
	)
	return "file://" + fullPath, nil
}

// Close closes the filesystem sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("filesystem sink closed")
	return nil
}
