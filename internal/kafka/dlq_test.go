package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDLQPublisher_Disabled(t *testing.T) {
	publisher, err := NewDLQPublisher(
		[]string{"localhost:9092"},
		ConsumerConfig{SecurityProtocol: "PLAINTEXT"},
		DLQConfig{Enabled: false},
		discardLogger(),
		"processor-1",
	)
	if err != nil {
		t.Fatalf("NewDLQPublisher() error = %v", err)
	}

	batch := &ConsumedBatch{
		Body:      []byte(`{"data":"x"}`),
		Topic:     "events",
		Partition: 0,
		Offset:    42,
	}
	if err := publisher.Publish(context.Background(), batch, "decode_failed"); err != nil {
		t.Errorf("Publish() on disabled DLQ = %v, want nil", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDLQRecord_BodyQuoting(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"valid json object", []byte(`{"data":"abc"}`)},
		{"valid json array", []byte(`[1,2,3]`)},
		{"plain text", []byte("not json at all")},
		{"empty body", []byte("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := json.RawMessage(tt.body)
			if !json.Valid(tt.body) {
				quoted, err := json.Marshal(string(tt.body))
				if err != nil {
					t.Fatalf("failed to quote body: %v", err)
				}
				body = quoted
			}

			record := DLQRecord{
				OriginalBody:      body,
				OriginalTopic:     "events",
				OriginalPartition: 1,
				OriginalOffset:    7,
				FailureReason:     "segment_write_failed",
				FailureTimestamp:  time.Now().UTC(),
				ProcessorID:       "processor-1",
			}

			data, err := json.Marshal(record)
			if err != nil {
				t.Fatalf("record marshal error = %v", err)
			}

			var decoded DLQRecord
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("record must always be valid JSON: %v", err)
			}
			if decoded.OriginalTopic != "events" || decoded.OriginalOffset != 7 {
				t.Errorf("round-trip lost coordinates: %+v", decoded)
			}

			if json.Valid(tt.body) {
				if string(decoded.OriginalBody) != string(tt.body) {
					t.Errorf("valid body should be carried verbatim, got %s", decoded.OriginalBody)
				}
			} else {
				var original string
				if err := json.Unmarshal(decoded.OriginalBody, &original); err != nil {
					t.Fatalf("quoted body should decode as string: %v", err)
				}
				if original != string(tt.body) {
					t.Errorf("quoted body = %q, want %q", original, tt.body)
				}
			}
		})
	}
}

func TestDLQTopicName(t *testing.T) {
	tests := []struct {
		name        string
		sourceTopic string
		suffix      string
		want        string
	}{
		{"standard suffix", "events", "-dlq", "events-dlq"},
		{"dot suffix", "orders", ".dlq", "orders.dlq"},
		{"topic with dots", "domain.service.events", "-dlq", "domain.service.events-dlq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sourceTopic + tt.suffix; got != tt.want {
				t.Errorf("DLQ topic name = %v, want %v", got, tt.want)
			}
		})
	}
}
