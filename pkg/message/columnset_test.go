package message

import (
	"reflect"
	"testing"
)

func str(s string) *string {
	return &s
}

func TestColumnSet_FirstSeenOrder(t *testing.T) {
	cs := NewColumnSet()
	cs.Append("b", str("1"))
	cs.Append("a", str("2"))
	cs.Append("b", str("3"))
	cs.Append("c", str("4"))

	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(cs.Columns(), want) {
		t.Errorf("Columns() = %v, want %v", cs.Columns(), want)
	}
}

func TestColumnSet_Rows(t *testing.T) {
	cs := NewColumnSet()
	if cs.Rows() != 0 {
		t.Errorf("empty set Rows() = %d, want 0", cs.Rows())
	}

	cs.Append("x", str("1"), str("2"), nil)
	if cs.Rows() != 3 {
		t.Errorf("Rows() = %d, want 3", cs.Rows())
	}
}

func TestColumnSet_AddColumnIdempotent(t *testing.T) {
	cs := NewColumnSet()
	cs.Append("x", str("1"))
	cs.AddColumn("x")
	cs.AddColumn("y")

	if cs.NumColumns() != 2 {
		t.Fatalf("NumColumns() = %d, want 2", cs.NumColumns())
	}
	if got := cs.Column("x"); len(got) != 1 {
		t.Errorf("AddColumn on existing column changed values: %v", got)
	}
}

func TestColumnSet_AppendNulls(t *testing.T) {
	cs := NewColumnSet()
	cs.Append("x", str("1"))
	cs.AppendNulls("x", 2)
	cs.AppendNulls("y", 3)

	if got := cs.Column("x"); len(got) != 3 || got[1] != nil || got[2] != nil {
		t.Errorf("Column(x) = %v, want one value followed by two nulls", got)
	}
	if got := cs.Column("y"); len(got) != 3 {
		t.Errorf("Column(y) length = %d, want 3", len(got))
	}
}

func TestColumnSet_Slice(t *testing.T) {
	cs := NewColumnSet()
	cs.Append("a", str("1"), str("2"), str("3"), str("4"))
	cs.Append("b", nil, str("x"), nil, str("y"))

	window, err := cs.Slice(1, 3)
	if err != nil {
		t.Fatalf("Slice(1, 3) error: %v", err)
	}
	if window.Rows() != 2 {
		t.Errorf("window Rows() = %d, want 2", window.Rows())
	}
	if got := window.Column("a"); *got[0] != "2" || *got[1] != "3" {
		t.Errorf("window Column(a) = %v, want [2 3]", got)
	}
	if got := window.Column("b"); got[0] == nil || *got[0] != "x" || got[1] != nil {
		t.Errorf("window Column(b) = %v, want [x nil]", got)
	}
	if !reflect.DeepEqual(window.Columns(), cs.Columns()) {
		t.Errorf("window columns = %v, want %v", window.Columns(), cs.Columns())
	}
}

func TestColumnSet_SliceBounds(t *testing.T) {
	cs := NewColumnSet()
	cs.Append("a", str("1"), str("2"))

	tests := []struct {
		name  string
		start int
		end   int
	}{
		{"negative start", -1, 1},
		{"end before start", 2, 1},
		{"end past rows", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cs.Slice(tt.start, tt.end); err == nil {
				t.Errorf("Slice(%d, %d) expected error", tt.start, tt.end)
			}
		})
	}
}
