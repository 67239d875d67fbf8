// Package aggregate merges per-message fragments into per-route tables.
package aggregate

import (
	"github.com/jittakal/eventtabstore/internal/decode"
	"github.com/jittakal/eventtabstore/pkg/message"
)

// Fragment is one message's decoded payload together with its route key.
type Fragment struct {
	Key     message.RouteKey
	Payload message.Payload
}

// Group is the aggregated table for one route key.
type Group struct {
	Key   message.RouteKey
	Table *message.ColumnSet
}

// Aggregate groups fragments by route key, preserving arrival order
// within each group and first-seen order across groups, and merges each
// group into a single schema-unioned table.
//
// Within a group, all row fragments convert to one columnar part and all
// columnar fragments merge into another; when both exist the rows-derived
// part merges first. Absent fragments are discarded, and a group that
// yields no usable part produces no table at all.
func Aggregate(fragments []Fragment) []Group {
	var order []message.RouteKey
	grouped := make(map[message.RouteKey][]message.Payload)

	for _, f := range fragments {
		if _, seen := grouped[f.Key]; !seen {
			order = append(order, f.Key)
		}
		grouped[f.Key] = append(grouped[f.Key], f.Payload)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		table := buildTable(grouped[key])
		if table == nil {
			continue
		}
		groups = append(groups, Group{Key: key, Table: table})
	}
	return groups
}

// buildTable merges one group's payloads, returning nil when the group
// holds nothing aggregatable.
func buildTable(payloads []message.Payload) *message.ColumnSet {
	var rows []*message.Object
	var columnars []*message.ColumnSet

	for _, p := range payloads {
		switch p.Shape {
		case message.ShapeRows:
			rows = append(rows, p.Rows...)
		case message.ShapeColumns:
			if p.Columns != nil && !p.Columns.IsEmpty() {
				columnars = append(columnars, p.Columns)
			}
		}
	}

	var parts []*message.ColumnSet
	if len(rows) > 0 {
		if fromRows := RowsToColumnar(rows); !fromRows.IsEmpty() {
			parts = append(parts, fromRows)
		}
	}
	if len(columnars) > 0 {
		parts = append(parts, MergeColumnSets(columnars...))
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return MergeColumnSets(parts...)
	}
}

// RowsToColumnar converts row objects to a columnar table. Column order
// is first-seen across all rows, following each row's own key order;
// rows are padded with null for columns they lack, and every cell passes
// through scalar normalization.
func RowsToColumnar(rows []*message.Object) *message.ColumnSet {
	out := message.NewColumnSet()
	for _, row := range rows {
		for _, k := range row.Keys() {
			out.AddColumn(k)
		}
	}
	for _, row := range rows {
		for _, name := range out.Columns() {
			v, ok := row.Get(name)
			if !ok {
				out.AppendNulls(name, 1)
				continue
			}
			out.Append(name, decode.NormalizeScalar(v))
		}
	}
	return out
}

// MergeColumnSets concatenates column sets into one. The output columns
// are the ordered union of every input's columns in first-seen order
// across inputs in the order supplied; an input missing a column
// contributes null for each of its rows. The output row count is the sum
// of all input row counts and every output column has exactly that length.
func MergeColumnSets(sets ...*message.ColumnSet) *message.ColumnSet {
	out := message.NewColumnSet()
	for _, set := range sets {
		for _, name := range set.Columns() {
			out.AddColumn(name)
		}
	}
	for _, set := range sets {
		n := set.Rows()
		for _, name := range out.Columns() {
			if set.Has(name) {
				out.Append(name, set.Column(name)...)
			} else {
				out.AppendNulls(name, n)
			}
		}
	}
	return out
}
