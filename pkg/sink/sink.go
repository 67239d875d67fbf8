// Package sink defines the interface for durable artifact storage.
//
// This package provides the narrow capability the batch writer consumes:
// ensuring the destination exists once per invocation, and uploading
// pre-encoded artifact bytes. Implementations live in internal/sink
// (Azure Blob, S3, GCS, local filesystem); tests use in-memory fakes.
package sink

import "context"

// Sink stores encoded artifacts durably.
type Sink interface {
	// EnsureDestination makes sure the backing container, bucket, or
	// directory exists, creating it when possible. A failure here is
	// invocation-fatal for the pipeline.
	EnsureDestination(ctx context.Context) error

	// Upload writes artifact bytes to the given path below the
	// destination and returns the stored artifact's URL.
	Upload(ctx context.Context, path string, data []byte) (string, error)

	// Close releases any resources held by the sink.
	Close() error
}
