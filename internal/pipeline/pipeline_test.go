package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jittakal/eventtabstore/internal/decode"
	"github.com/jittakal/eventtabstore/internal/route"
	"github.com/jittakal/eventtabstore/pkg/message"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingWriter captures every table the pipeline hands to the segment
// writer.
type recordingWriter struct {
	writes []recordedWrite
	failOn map[message.RouteKey]bool
}

type recordedWrite struct {
	key       message.RouteKey
	table     *message.ColumnSet
	timestamp time.Time
}

func (w *recordingWriter) Write(ctx context.Context, table *message.ColumnSet, key message.RouteKey, timestamp time.Time) ([]message.Segment, error) {
	if w.failOn[key] {
		return nil, fmt.Errorf("write failure injected for %s", key)
	}
	w.writes = append(w.writes, recordedWrite{key: key, table: table, timestamp: timestamp})
	return []message.Segment{{Key: key, RowCount: table.Rows()}}, nil
}

func newTestPipeline(writer SegmentWriter) *Pipeline {
	return New(
		decode.NewDecoder(testLogger(), nil),
		route.NewRouter("assorted"),
		writer,
		testLogger(),
		nil,
	)
}

func envelope(t *testing.T, payload, source, destination string) map[string]any {
	t.Helper()
	return map[string]any{
		"Data":        base64.StdEncoding.EncodeToString([]byte(payload)),
		"Source":      source,
		"Destination": destination,
	}
}

func batchBody(t *testing.T, envelopes ...map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(envelopes)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return body
}

func TestParseBatch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLen  int
		wantData bool
	}{
		{"array of envelopes", `[{"Source": "a.b"}, {"Source": "c.d"}]`, 2, false},
		{"single object", `{"Source": "a.b"}`, 1, false},
		{"bare scalar wrapped", `42`, 1, true},
		{"invalid json wrapped", `not json at all`, 1, true},
		{"empty array", `[]`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := ParseBatch([]byte(tt.body))
			if len(msgs) != tt.wantLen {
				t.Fatalf("ParseBatch() len = %d, want %d", len(msgs), tt.wantLen)
			}
			if tt.wantLen == 1 && msgs[0].HasData() != tt.wantData {
				t.Errorf("HasData() = %v, want %v", msgs[0].HasData(), tt.wantData)
			}
		})
	}
}

func TestPipeline_ProcessMergesByRoute(t *testing.T) {
	writer := &recordingWriter{}
	pl := newTestPipeline(writer)

	body := batchBody(t,
		envelope(t, `{"a": ["1", "2"]}`, "SalesDB.Orders", "sales"),
		envelope(t, `{"b": ["x"]}`, "SalesDB.Orders", "sales"),
		envelope(t, `[{"id": 1}]`, "HRDB.People", "hr"),
	)

	result, err := pl.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Messages != 3 {
		t.Errorf("messages = %d, want 3", result.Messages)
	}
	if result.Groups != 2 {
		t.Errorf("groups = %d, want 2", result.Groups)
	}
	if len(writer.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writer.writes))
	}

	sales := writer.writes[0]
	if sales.key != (message.RouteKey{Folder: "sales", SourceDB: "salesdb", Table: "orders"}) {
		t.Errorf("first write key = %v", sales.key)
	}
	if sales.table.Rows() != 3 {
		t.Errorf("sales rows = %d, want 3 (schema-unioned merge)", sales.table.Rows())
	}
	if !sales.table.Has("a") || !sales.table.Has("b") {
		t.Errorf("sales columns = %v, want union of a and b", sales.table.Columns())
	}
}

func TestPipeline_SharedBatchTimestamp(t *testing.T) {
	writer := &recordingWriter{}
	pl := newTestPipeline(writer)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pl.now = func() time.Time { return fixed }

	body := batchBody(t,
		envelope(t, `[{"a": 1}]`, "db.t1", "f"),
		envelope(t, `[{"a": 1}]`, "db.t2", "f"),
	)

	if _, err := pl.Process(context.Background(), body); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(writer.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writer.writes))
	}
	for i, w := range writer.writes {
		if !w.timestamp.Equal(fixed) {
			t.Errorf("write %d timestamp = %v, want shared %v", i, w.timestamp, fixed)
		}
	}
}

func TestPipeline_UndecodablePayloadDoesNotBlockGroup(t *testing.T) {
	writer := &recordingWriter{}
	pl := newTestPipeline(writer)

	body := batchBody(t,
		map[string]any{"Data": "!!!not-base64!!!", "Source": "db.t", "Destination": "f"},
		envelope(t, `[{"a": 1}]`, "db.t", "f"),
	)

	result, err := pl.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Groups != 1 {
		t.Fatalf("groups = %d, want 1", result.Groups)
	}
	if writer.writes[0].table.Rows() != 1 {
		t.Errorf("rows = %d, want only the decodable message's row", writer.writes[0].table.Rows())
	}
}

func TestPipeline_AbsentOnlyGroupNeverReachesSink(t *testing.T) {
	writer := &recordingWriter{}
	pl := newTestPipeline(writer)

	body := batchBody(t,
		map[string]any{"Source": "db.t", "Destination": "f"},
		map[string]any{"Data": "!!!", "Source": "db.t", "Destination": "f"},
	)

	result, err := pl.Process(context.Background(), body)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Groups != 0 {
		t.Errorf("groups = %d, want 0", result.Groups)
	}
	if len(writer.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(writer.writes))
	}
}

func TestPipeline_GroupFailureIsContained(t *testing.T) {
	failKey := message.RouteKey{Folder: "f", SourceDB: "db", Table: "bad"}
	writer := &recordingWriter{failOn: map[message.RouteKey]bool{failKey: true}}
	pl := newTestPipeline(writer)

	body := batchBody(t,
		envelope(t, `[{"a": 1}]`, "db.bad", "f"),
		envelope(t, `[{"a": 1}]`, "db.good", "f"),
	)

	result, err := pl.Process(context.Background(), body)
	if err == nil {
		t.Fatal("expected error reporting the failed group")
	}
	if len(result.Failed) != 1 || result.Failed[0] != failKey {
		t.Errorf("failed = %v, want [%v]", result.Failed, failKey)
	}
	// The healthy group was still written.
	if len(writer.writes) != 1 || writer.writes[0].key.Table != "good" {
		t.Errorf("writes = %v, want the good group only", writer.writes)
	}
	if len(result.Segments) != 1 {
		t.Errorf("segments = %d, want 1", len(result.Segments))
	}
}

func TestPipeline_BareBodyWrapped(t *testing.T) {
	writer := &recordingWriter{}
	pl := newTestPipeline(writer)

	// A bare unparseable body becomes one message with no metadata. It
	// routes to the fallback folder with placeholder names and decodes
	// to absent, so nothing is written, but nothing fails either.
	result, err := pl.Process(context.Background(), []byte("free-form text"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Messages != 1 {
		t.Errorf("messages = %d, want 1", result.Messages)
	}
	if len(writer.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(writer.writes))
	}
}
