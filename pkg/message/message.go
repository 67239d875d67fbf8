// Package message defines the core data model for tabular event ingestion.
package message

import (
	"encoding/json"
	"fmt"
)

// RawMessage is one inbound event as delivered by the stream. Only the
// three envelope fields are interpreted; everything else in the original
// JSON object is ignored.
type RawMessage struct {
	// Data holds the payload exactly as it appeared in the envelope,
	// typically a base64 string of optionally compressed JSON. Nil means
	// the field was absent.
	Data json.RawMessage `json:"Data,omitempty"`

	// Source conventionally carries "db.table" naming.
	Source string `json:"Source,omitempty"`

	// Destination selects the output folder; empty falls back to the
	// configured default.
	Destination string `json:"Destination,omitempty"`
}

// HasData reports whether the envelope carried a Data field.
func (m *RawMessage) HasData() bool {
	return len(m.Data) > 0
}

// DataString returns the Data field as text. A JSON string value is
// unquoted; any other JSON value is returned as its raw text, mirroring
// a permissive stringification of the field.
func (m *RawMessage) DataString() string {
	if len(m.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Data, &s); err == nil {
		return s
	}
	return string(m.Data)
}

// Shape tags the decoded form of a payload.
type Shape string

const (
	// ShapeAbsent marks a payload that was missing or not parseable.
	ShapeAbsent Shape = "absent"
	// ShapeRows marks a row-oriented payload (sequence of field objects).
	ShapeRows Shape = "rows"
	// ShapeColumns marks a column-oriented payload (name to value list).
	ShapeColumns Shape = "columns"
)

// Payload is the decoded form of one message's Data field. Exactly one of
// Rows or Columns is populated for the corresponding shape; both are nil
// for ShapeAbsent.
type Payload struct {
	Shape   Shape
	Rows    []*Object
	Columns *ColumnSet
}

// Absent returns the payload used when a message carries no decodable data.
func Absent() Payload {
	return Payload{Shape: ShapeAbsent}
}

// IsAbsent reports whether the payload contributes nothing to aggregation.
func (p Payload) IsAbsent() bool {
	return p.Shape == ShapeAbsent
}

// RouteKey identifies the aggregation group of a message. It is derived
// from envelope metadata only, never from payload content. All components
// are sanitized lowercase tokens.
type RouteKey struct {
	Folder   string
	SourceDB string
	Table    string
}

// String returns a string representation in the format "folder/table".
func (k RouteKey) String() string {
	return fmt.Sprintf("%s/%s", k.Folder, k.Table)
}

// SegmentMeta is the metadata attached to one output artifact.
type SegmentMeta struct {
	Kind        string
	RowCount    int
	BatchNumber int
	Folder      string
	SourceDB    string
	Table       string
}

// Pairs returns the metadata as string key-value pairs in the form the
// physical encoders embed into their file metadata.
func (m SegmentMeta) Pairs() map[string]string {
	return map[string]string{
		"kind":         m.Kind,
		"row_count":    fmt.Sprintf("%d", m.RowCount),
		"batch_number": fmt.Sprintf("%d", m.BatchNumber),
		"folder":       m.Folder,
		"source_db":    m.SourceDB,
		"table":        m.Table,
	}
}

// FileFormat represents the physical artifact format.
type FileFormat string

const (
	FormatParquet FileFormat = "parquet"
	FormatAvro    FileFormat = "avro"
)

// Segment describes one bounded artifact written for a route key.
type Segment struct {
	Key         RouteKey
	Name        string
	Path        string
	RowCount    int
	BatchNumber int
	Chunked     bool
	SizeBytes   int64
	URL         string
}
