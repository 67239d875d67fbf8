package decode

import (
	"encoding/json"
	"time"

	"github.com/jittakal/eventtabstore/pkg/message"
)

// Classify determines whether a decoded JSON value is column-oriented or
// row-oriented and builds the corresponding payload.
//
//   - A non-empty object whose every value is an equal-length list (or
//     all empty) is a column set; its cells are normalized immediately.
//   - A list keeps only its object entries as rows.
//   - A single object that failed the column-set test is one row.
//   - Anything else is absent.
func Classify(value any) message.Payload {
	switch v := value.(type) {
	case *message.Object:
		if isColumnar(v) {
			return message.Payload{
				Shape:   message.ShapeColumns,
				Columns: normalizeColumnar(v),
			}
		}
		return message.Payload{
			Shape: message.ShapeRows,
			Rows:  []*message.Object{v},
		}
	case []any:
		rows := make([]*message.Object, 0, len(v))
		for _, entry := range v {
			if obj, ok := entry.(*message.Object); ok {
				rows = append(rows, obj)
			}
		}
		if len(rows) == 0 {
			return message.Absent()
		}
		return message.Payload{Shape: message.ShapeRows, Rows: rows}
	default:
		return message.Absent()
	}
}

// isColumnar reports whether every value of a non-empty object is a list
// and all lists share one length, or all are empty.
func isColumnar(o *message.Object) bool {
	if o.Len() == 0 {
		return false
	}
	length := -1
	for _, key := range o.Keys() {
		v, _ := o.Get(key)
		list, ok := v.([]any)
		if !ok {
			return false
		}
		if length == -1 {
			length = len(list)
			continue
		}
		if len(list) != length {
			return false
		}
	}
	return true
}

// normalizeColumnar reduces every cell of a columnar object to
// string-or-null. Columns keep the order the keys held in the payload
// document; first-seen order across fragments is the aggregator's
// concern.
func normalizeColumnar(o *message.Object) *message.ColumnSet {
	out := message.NewColumnSet()
	for _, name := range o.Keys() {
		v, _ := o.Get(name)
		list := v.([]any)
		cells := make([]*string, 0, len(list))
		for _, cell := range list {
			cells = append(cells, NormalizeScalar(cell))
		}
		out.AddColumn(name)
		out.Append(name, cells...)
	}
	return out
}

// NormalizeScalar reduces one leaf value to string-or-null. Objects and
// lists are re-serialized to JSON text, time values render as ISO-8601,
// null stays null, and everything else is stringified with its JSON
// literal preserved (json.Number keeps the source text, so no float
// round-tripping distorts large integers).
func NormalizeScalar(v any) *string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return &val
	case json.Number:
		s := val.String()
		return &s
	case bool:
		s := "false"
		if val {
			s = "true"
		}
		return &s
	case time.Time:
		s := val.Format(time.RFC3339Nano)
		return &s
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil
		}
		s := string(b)
		return &s
	}
}
