// Package batch splits aggregated tables into bounded, named segments.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/encoder"
	"github.com/jittakal/eventtabstore/pkg/message"
	"github.com/jittakal/eventtabstore/pkg/sink"
)

// segmentKind tags every artifact's metadata for traceability at the sink.
const segmentKind = "decoded_payload"

// timestampLayout renders artifact timestamps as YYYYMMDDHHMMSS.
const timestampLayout = "20060102150405"

// MetricsCollector defines metrics operations for segment writing.
type MetricsCollector interface {
	IncSegmentsWritten(folder, table, format string)
	AddRowsWritten(folder, table string, rows int)
	ObserveSegmentSize(size float64)
	ObserveUploadDuration(backend string, seconds float64)
	IncSinkErrors(backend, operation string)
}

// Config contains batch writer configuration.
type Config struct {
	// MaxRows bounds the row count of a single segment. Required, > 0.
	MaxRows int
	// PathPrefix is prepended to every upload path. Optional.
	PathPrefix string
	// Backend names the sink backend for metrics and logs.
	Backend string
}

// Writer converts one aggregated table into one or more encoded segments
// and hands each to the sink. The writer itself performs no I/O beyond
// delegating uploads.
type Writer struct {
	config  Config
	enc     encoder.Encoder
	sink    sink.Sink
	logger  *slog.Logger
	metrics MetricsCollector
}

// NewWriter creates a batch writer.
func NewWriter(
	config Config,
	enc encoder.Encoder,
	s sink.Sink,
	logger *slog.Logger,
	metrics MetricsCollector,
) (*Writer, error) {
	if config.MaxRows <= 0 {
		return nil, fmt.Errorf("max rows must be positive, got %d", config.MaxRows)
	}
	return &Writer{
		config:  config,
		enc:     enc,
		sink:    s,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Write splits the table into row windows of at most MaxRows, encodes
// each window, and uploads it under the route's folder. A table within
// the bound produces a single unchunked segment named
// {table}_{timestamp}{ext}; larger tables produce consecutive windows
// named {table}_{timestamp}_part{NNNN}{ext} with zero-based part indices.
// A table with columns but zero rows still produces one unchunked
// segment, so the route leaves a schema-bearing artifact at the sink.
//
// The aggregator guarantees tables reaching this point have columns; a
// columnless table is rejected rather than silently skipped because it
// would mean that invariant broke upstream.
func (w *Writer) Write(
	ctx context.Context,
	table *message.ColumnSet,
	key message.RouteKey,
	timestamp time.Time,
) ([]message.Segment, error) {
	if table == nil || table.IsEmpty() {
		return nil, fmt.Errorf("%w: route=%s", errors.ErrEmptyTable, key)
	}

	rows := table.Rows()
	ts := timestamp.UTC().Format(timestampLayout)
	chunked := rows > w.config.MaxRows

	var segments []message.Segment
	for start, index := 0, 0; ; start, index = start+w.config.MaxRows, index+1 {
		end := start + w.config.MaxRows
		if end > rows {
			end = rows
		}

		window, err := table.Slice(start, end)
		if err != nil {
			return segments, fmt.Errorf("failed to slice rows [%d, %d): %w", start, end, err)
		}

		name := fmt.Sprintf("%s_%s%s", key.Table, ts, w.enc.FileExtension())
		if chunked {
			name = fmt.Sprintf("%s_%s_part%04d%s", key.Table, ts, index, w.enc.FileExtension())
		}

		segment, err := w.writeSegment(ctx, window, key, name, index, chunked)
		if err != nil {
			return segments, err
		}
		segments = append(segments, segment)

		if end >= rows {
			break
		}
	}

	w.logger.Info("wrote table",
		"folder", key.Folder,
		"table", key.Table,
		"rows", rows,
		"segments", len(segments),
		"chunked", chunked,
	)
	return segments, nil
}

// writeSegment encodes one window and uploads it.
func (w *Writer) writeSegment(
	ctx context.Context,
	window *message.ColumnSet,
	key message.RouteKey,
	name string,
	index int,
	chunked bool,
) (message.Segment, error) {
	meta := message.SegmentMeta{
		Kind:        segmentKind,
		RowCount:    window.Rows(),
		BatchNumber: index,
		Folder:      key.Folder,
		SourceDB:    key.SourceDB,
		Table:       key.Table,
	}

	encoded, err := w.enc.Encode(window, meta)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncSinkErrors(w.config.Backend, "encode")
		}
		return message.Segment{}, fmt.Errorf("failed to encode segment %s: %w", name, err)
	}

	uploadPath := path.Join(key.Folder, name)
	if w.config.PathPrefix != "" {
		uploadPath = path.Join(w.config.PathPrefix, uploadPath)
	}

	startTime := time.Now()
	url, err := w.sink.Upload(ctx, uploadPath, encoded)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncSinkErrors(w.config.Backend, "upload")
		}
		return message.Segment{}, &errors.StorageError{
			Backend:   w.config.Backend,
			Operation: "upload",
			Path:      uploadPath,
			Err:       err,
		}
	}

	if w.metrics != nil {
		w.metrics.IncSegmentsWritten(key.Folder, key.Table, string(w.enc.Format()))
		w.metrics.AddRowsWritten(key.Folder, key.Table, meta.RowCount)
		w.metrics.ObserveSegmentSize(float64(len(encoded)))
		w.metrics.ObserveUploadDuration(w.config.Backend, time.Since(startTime).Seconds())
	}

	w.logger.Debug("uploaded segment",
		"path", uploadPath,
		"rows", meta.RowCount,
		"batch_number", index,
		"size_bytes", len(encoded),
	)

	return message.Segment{
		Key:         key,
		Name:        name,
		Path:        uploadPath,
		RowCount:    meta.RowCount,
		BatchNumber: index,
		Chunked:     chunked,
		SizeBytes:   int64(len(encoded)),
		URL:         url,
	}, nil
}
