// Package encoder implements encoder factory for creating file format encoders.
package encoder

import (
	"fmt"

	"github.com/jittakal/eventtabstore/pkg/encoder"
	"github.com/jittakal/eventtabstore/pkg/message"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      message.FileFormat
	compression string
}

// NewFactory creates a new encoder factory. An empty compression picks
// the format's default codec.
func NewFactory(format message.FileFormat, compression string) *Factory {
	if compression == "" {
		compression = DefaultCompression(format)
	}
	return &Factory{
		format:      format,
		compression: compression,
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	switch f.format {
	case message.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case message.FormatAvro:
		return NewAvroEncoder(f.compression)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", f.format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []message.FileFormat {
	return []message.FileFormat{
		message.FormatParquet,
		message.FormatAvro,
	}
}

// SupportedCompressions returns supported compression codecs for a given format.
func SupportedCompressions(format message.FileFormat) []string {
	switch format {
	case message.FormatParquet:
		return []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	case message.FormatAvro:
		return []string{"null", "deflate", "snappy"}
	default:
		return []string{}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format message.FileFormat) string {
	switch format {
	case message.FormatParquet:
		return "snappy"
	case message.FormatAvro:
		return "deflate"
	default:
		return ""
	}
}
