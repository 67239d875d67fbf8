package message

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"
)

func decodeOrdered(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	v, err := DecodeOrdered(dec)
	if err != nil {
		t.Fatalf("DecodeOrdered(%q): %v", s, err)
	}
	return v
}

func TestObject_SetPreservesFirstSeenOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", "1")
	o.Set("a", "2")
	o.Set("z", "3")

	if want := []string{"z", "a"}; !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("keys = %v, want %v", o.Keys(), want)
	}
	if v, _ := o.Get("z"); v != "3" {
		t.Errorf("z = %v, want overwritten value 3", v)
	}
	if o.Len() != 2 {
		t.Errorf("len = %d, want 2", o.Len())
	}
}

func TestDecodeOrdered_ObjectKeyOrder(t *testing.T) {
	v := decodeOrdered(t, `{"z": ["1"], "a": ["2"], "m": ["3"]}`)
	o, ok := v.(*Object)
	if !ok {
		t.Fatalf("value = %T, want *Object", v)
	}
	if want := []string{"z", "a", "m"}; !reflect.DeepEqual(o.Keys(), want) {
		t.Errorf("keys = %v, want %v", o.Keys(), want)
	}
}

func TestDecodeOrdered_Values(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, v any)
	}{
		{
			name:  "scalar string",
			input: `"hello"`,
			check: func(t *testing.T, v any) {
				if v != "hello" {
					t.Errorf("value = %v, want hello", v)
				}
			},
		},
		{
			name:  "number kept literal",
			input: `9007199254740993`,
			check: func(t *testing.T, v any) {
				n, ok := v.(json.Number)
				if !ok || n.String() != "9007199254740993" {
					t.Errorf("value = %v (%T), want json.Number literal", v, v)
				}
			},
		},
		{
			name:  "null",
			input: `null`,
			check: func(t *testing.T, v any) {
				if v != nil {
					t.Errorf("value = %v, want nil", v)
				}
			},
		},
		{
			name:  "array of objects",
			input: `[{"b": 1, "a": 2}, {"a": 3}]`,
			check: func(t *testing.T, v any) {
				list, ok := v.([]any)
				if !ok || len(list) != 2 {
					t.Fatalf("value = %v (%T), want two-element list", v, v)
				}
				first := list[0].(*Object)
				if want := []string{"b", "a"}; !reflect.DeepEqual(first.Keys(), want) {
					t.Errorf("first keys = %v, want %v", first.Keys(), want)
				}
			},
		},
		{
			name:  "nested object",
			input: `{"outer": {"y": true, "x": false}}`,
			check: func(t *testing.T, v any) {
				outer, _ := v.(*Object).Get("outer")
				inner := outer.(*Object)
				if want := []string{"y", "x"}; !reflect.DeepEqual(inner.Keys(), want) {
					t.Errorf("inner keys = %v, want %v", inner.Keys(), want)
				}
			},
		},
		{
			name:  "empty array",
			input: `[]`,
			check: func(t *testing.T, v any) {
				list, ok := v.([]any)
				if !ok || len(list) != 0 {
					t.Errorf("value = %v (%T), want empty list", v, v)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, decodeOrdered(t, tt.input))
		})
	}
}

func TestObject_MarshalJSONDocumentOrder(t *testing.T) {
	v := decodeOrdered(t, `{"z": 1, "a": {"m": [2, null], "b": "x"}}`)

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"z":1,"a":{"m":[2,null],"b":"x"}}`; string(out) != want {
		t.Errorf("marshal = %s, want %s", out, want)
	}
}
