// Package encoder implements file format encoders.
package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/eventtabstore/internal/errors"
	"github.com/jittakal/eventtabstore/pkg/encoder"
	"github.com/jittakal/eventtabstore/pkg/message"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Encoder = (*AvroEncoder)(nil)

// AvroEncoder implements encoder.Encoder for Apache Avro binary format.
// Each segment gets its own record schema of ["null","string"] fields
// derived from the table's columns. Produces OCF (Object Container File)
// format compatible with Apache Spark and other Avro readers.
type AvroEncoder struct {
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	switch compression {
	case "", "null", "none", "deflate", "snappy":
	default:
		return nil, fmt.Errorf("unsupported avro compression: %s", compression)
	}
	return &AvroEncoder{compression: compression}, nil
}

// ocfCompression maps the configured codec to an OCF compression name.
func (e *AvroEncoder) ocfCompression() string {
	switch e.compression {
	case "deflate":
		return goavro.CompressionDeflateLabel
	case "snappy":
		return goavro.CompressionSnappyLabel
	default:
		return goavro.CompressionNullLabel
	}
}

// avroField is one field of the generated record schema.
type avroField struct {
	Name    string   `json:"name"`
	Type    []string `json:"type"`
	Default any      `json:"default"`
}

// avroRecord is the generated record schema.
type avroRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace"`
	Fields    []avroField `json:"fields"`
}

// fieldNames maps table columns to Avro-safe field names. Avro names must
// match [A-Za-z_][A-Za-z0-9_]*, so invalid characters become underscores,
// a leading digit gets a prefix, and collisions are suffixed with their
// position to stay deterministic.
func fieldNames(columns []string) map[string]string {
	used := make(map[string]bool, len(columns))
	out := make(map[string]string, len(columns))
	for i, col := range columns {
		name := make([]byte, 0, len(col))
		for j := 0; j < len(col); j++ {
			c := col[j]
			switch {
			case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_':
				name = append(name, c)
			case c >= '0' && c <= '9':
				if j == 0 {
					name = append(name, '_')
				}
				name = append(name, c)
			default:
				name = append(name, '_')
			}
		}
		if len(name) == 0 {
			name = []byte("_")
		}
		candidate := string(name)
		if used[candidate] {
			candidate = fmt.Sprintf("%s_%d", candidate, i)
		}
		used[candidate] = true
		out[col] = candidate
	}
	return out
}

// schemaFor builds the segment's record schema JSON.
func schemaFor(columns []string, names map[string]string) (string, error) {
	record := avroRecord{
		Type:      "record",
		Name:      "TableSegment",
		Namespace: "com.eventtabstore",
	}
	for _, col := range columns {
		record.Fields = append(record.Fields, avroField{
			Name: names[col],
			Type: []string{"null", "string"},
		})
	}
	b, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	return string(b), nil
}

// Encode serializes a table segment to Avro OCF bytes. Segment metadata
// is carried in the OCF file metadata block.
func (e *AvroEncoder) Encode(table *message.ColumnSet, meta message.SegmentMeta) ([]byte, error) {
	if table == nil || table.IsEmpty() {
		return nil, errors.ErrEmptyTable
	}

	columns := table.Columns()
	names := fieldNames(columns)
	schema, err := schemaFor(columns, names)
	if err != nil {
		return nil, err
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	metadata := make(map[string][]byte)
	for k, v := range meta.Pairs() {
		metadata[k] = []byte(v)
	}

	var buf bytes.Buffer
	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               &buf,
		Codec:           codec,
		CompressionName: e.ocfCompression(),
		MetaData:        metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OCF writer: %w", err)
	}

	rows := table.Rows()
	records := make([]interface{}, 0, rows)
	for i := 0; i < rows; i++ {
		record := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			if cell := table.Column(col)[i]; cell != nil {
				record[names[col]] = map[string]interface{}{"string": *cell}
			} else {
				record[names[col]] = nil
			}
		}
		records = append(records, record)
	}

	if err := ocfWriter.Append(records); err != nil {
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	return buf.Bytes(), nil
}

// Format returns the file format.
func (e *AvroEncoder) Format() message.FileFormat {
	return message.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	return ".avro"
}
