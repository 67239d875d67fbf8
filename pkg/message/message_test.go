package message

import (
	"encoding/json"
	"testing"
)

func TestRawMessage_DataString(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"json string unquoted", `"aGVsbG8="`, "aGVsbG8="},
		{"json number kept raw", `42`, "42"},
		{"json object kept raw", `{"a":1}`, `{"a":1}`},
		{"invalid json kept raw", `not json`, "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := RawMessage{Data: json.RawMessage(tt.data)}
			if got := m.DataString(); got != tt.want {
				t.Errorf("DataString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRawMessage_HasData(t *testing.T) {
	m := RawMessage{}
	if m.HasData() {
		t.Error("HasData() = true for empty message")
	}
	m.Data = json.RawMessage(`"x"`)
	if !m.HasData() {
		t.Error("HasData() = false for populated message")
	}
}

func TestRawMessage_EnvelopeUnmarshal(t *testing.T) {
	raw := `{"Data": "cGF5bG9hZA==", "Source": "SalesDB.Orders", "Destination": "sales", "Extra": true}`

	var m RawMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m.Source != "SalesDB.Orders" {
		t.Errorf("Source = %q, want SalesDB.Orders", m.Source)
	}
	if m.Destination != "sales" {
		t.Errorf("Destination = %q, want sales", m.Destination)
	}
	if m.DataString() != "cGF5bG9hZA==" {
		t.Errorf("DataString() = %q", m.DataString())
	}
}

func TestRouteKey_String(t *testing.T) {
	k := RouteKey{Folder: "sales", SourceDB: "salesdb", Table: "orders"}
	if got := k.String(); got != "sales/orders" {
		t.Errorf("String() = %q, want sales/orders", got)
	}
}

func TestSegmentMeta_Pairs(t *testing.T) {
	meta := SegmentMeta{
		Kind:        "decoded_payload",
		RowCount:    120,
		BatchNumber: 2,
		Folder:      "sales",
		SourceDB:    "salesdb",
		Table:       "orders",
	}

	pairs := meta.Pairs()
	want := map[string]string{
		"kind":         "decoded_payload",
		"row_count":    "120",
		"batch_number": "2",
		"folder":       "sales",
		"source_db":    "salesdb",
		"table":        "orders",
	}
	for k, v := range want {
		if pairs[k] != v {
			t.Errorf("Pairs()[%q] = %q, want %q", k, pairs[k], v)
		}
	}
	if len(pairs) != len(want) {
		t.Errorf("Pairs() has %d entries, want %d", len(pairs), len(want))
	}
}

func TestPayload_Absent(t *testing.T) {
	p := Absent()
	if !p.IsAbsent() {
		t.Error("Absent().IsAbsent() = false")
	}
	if p.Rows != nil || p.Columns != nil {
		t.Error("absent payload should carry no data")
	}
}
