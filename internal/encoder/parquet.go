// Package encoder implements file format encoders.
package encoder

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/encoder"
	"github.com/jittakal/eventtabstore/pkg/message"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*ParquetEncoder)(nil)

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar
// format. Because the table schema is only known at runtime (each segment
// carries whatever columns its payloads contributed), the Parquet schema
// is built dynamically as a flat group of optional UTF-8 string columns.
// Supports multiple compression codecs: SNAPPY (default), GZIP, LZ4, ZSTD.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Encode serializes a table segment to Parquet bytes. Segment metadata is
// embedded as file key-value metadata so the artifact stays traceable at
// the sink. Parquet groups order fields by name; the table's first-seen
// column order is a schema concern upstream, the physical layout only has
// to be deterministic.
func (e *ParquetEncoder) Encode(table *message.ColumnSet, meta message.SegmentMeta) ([]byte, error) {
	if table == nil || table.IsEmpty() {
		return nil, errors.ErrEmptyTable
	}

	fields := parquet.Group{}
	for _, name := range table.Columns() {
		fields[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("segment", fields)

	options := []parquet.WriterOption{
		schema,
		compressionCodec(e.compressionName),
		parquet.CreatedBy("event-tabular-store", "1.0", "0"),
	}
	for k, v := range meta.Pairs() {
		options = append(options, parquet.KeyValueMetadata(k, v))
	}

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[map[string]any](&buf, options...)

	rows := table.Rows()
	batch := make([]map[string]any, 0, rows)
	for i := 0; i < rows; i++ {
		row := make(map[string]any, table.NumColumns())
		for _, name := range table.Columns() {
			if cell := table.Column(name)[i]; cell != nil {
				row[name] = *cell
			}
		}
		batch = append(batch, row)
	}

	if _, err := writer.Write(batch); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Format returns the file format.
func (e *ParquetEncoder) Format() message.FileFormat {
	return message.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
