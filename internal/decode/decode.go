// Package decode turns raw message payloads into classified tabular fragments.
//
// Producers feeding the stream disagree about transport encoding: some send
// clean base64, some pad it badly or interleave whitespace, and the bytes
// underneath may be gzip, raw DEFLATE, zlib, or not compressed at all. The
// decoder therefore never trusts the envelope and instead probes a fixed
// fallback chain, treating every failure as a local result rather than a
// fault. A payload that survives no stage simply drops out of aggregation.
package decode

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/jittakal/eventtabstore/pkg/message"
)

// Decoder decodes and classifies message payloads.
type Decoder struct {
	logger  *slog.Logger
	metrics MetricsCollector
}

// MetricsCollector defines metrics operations for payload decoding.
type MetricsCollector interface {
	IncPayloadsDecoded(shape string)
	IncDecompressMethod(method string)
}

// NewDecoder creates a payload decoder.
func NewDecoder(logger *slog.Logger, metrics MetricsCollector) *Decoder {
	return &Decoder{logger: logger, metrics: metrics}
}

// Decode turns one raw message's Data field into a classified payload.
// Every failure path degrades to an absent payload; Decode never returns
// an error because no decode failure is allowed to abort the batch.
func (d *Decoder) Decode(msg *message.RawMessage) message.Payload {
	if !msg.HasData() {
		return d.done(message.Absent())
	}

	cleaned := CleanBase64(msg.DataString())
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		d.logger.Debug("base64 decode failed, payload dropped", "error", err)
		return d.done(message.Absent())
	}

	decompressed, method := Decompress(raw)
	if d.metrics != nil {
		d.metrics.IncDecompressMethod(method)
	}

	dec := json.NewDecoder(bytes.NewReader(decompressed))
	dec.UseNumber()
	value, err := message.DecodeOrdered(dec)
	if err != nil {
		d.logger.Debug("payload is not JSON, dropped", "method", method, "error", err)
		return d.done(message.Absent())
	}
	// Reject trailing garbage after the first JSON value.
	if _, err := dec.Token(); err != io.EOF {
		d.logger.Debug("payload has trailing data after JSON value, dropped")
		return d.done(message.Absent())
	}

	return d.done(Classify(value))
}

func (d *Decoder) done(p message.Payload) message.Payload {
	if d.metrics != nil {
		d.metrics.IncPayloadsDecoded(string(p.Shape))
	}
	return p
}

// CleanBase64 strips every character outside the base64 alphabet and pads
// the result with '=' to a multiple of four. It never fails; a string that
// was not base64 to begin with simply fails the subsequent decode.
func CleanBase64(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '+', r == '/', r == '=':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if rem := len(cleaned) % 4; rem != 0 {
		cleaned += strings.Repeat("=", 4-rem)
	}
	return cleaned
}

// decompressAttempt is one isolated step of the fallback chain. A failed
// attempt returns an error as a local result, never a fault.
type decompressAttempt struct {
	name string
	fn   func([]byte) ([]byte, error)
}

// attempts is the fixed probe order. Gzip and zlib both wrap DEFLATE with
// different framing, so container formats are probed before raw DEFLATE
// to avoid false negatives.
var attempts = []decompressAttempt{
	{"gzip", func(data []byte) ([]byte, error) {
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}},
	{"deflate", func(data []byte) ([]byte, error) {
		r := flate.NewReader(bytes.NewReader(data))
		defer r.Close()
		return io.ReadAll(r)
	}},
	{"zlib", func(data []byte) ([]byte, error) {
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}},
}

// Decompress tries each decompression scheme in order and returns the
// first successful result along with the method name. If every attempt
// fails the original bytes are returned unchanged with method "none".
func Decompress(data []byte) ([]byte, string) {
	for _, a := range attempts {
		if out, err := a.fn(data); err == nil {
			return out, a.name
		}
	}
	return data, "none"
}
