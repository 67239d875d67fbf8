// Package encoder defines the interface for encoding tabular segments.
//
// The core pipeline treats the physical columnar encoding as opaque: an
// encoder accepts a column set plus segment metadata and returns bytes.
package encoder

import "github.com/jittakal/eventtabstore/pkg/message"

// Encoder serializes one tabular segment to its physical file format.
type Encoder interface {
	// Encode serializes the table and embeds the segment metadata into
	// the file's own metadata section.
	Encode(table *message.ColumnSet, meta message.SegmentMeta) ([]byte, error)

	// Format returns the format identifier this encoder produces.
	Format() message.FileFormat

	// FileExtension returns the file extension (e.g. ".parquet", ".avro").
	FileExtension() string
}
