package message

import "fmt"

// ColumnSet is an order-preserving mapping from column name to an equal
// length sequence of string-or-null cells. Column order is first-seen
// insertion order, which keeps the output schema deterministic across
// runs regardless of how many fragments contributed columns.
//
// The invariant after any merge is that every column holds exactly Rows()
// values; construction paths that violate it are programming errors.
type ColumnSet struct {
	names  []string
	values map[string][]*string
}

// NewColumnSet creates an empty column set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{
		values: make(map[string][]*string),
	}
}

// Columns returns the column names in first-seen order. The returned
// slice is owned by the set and must not be modified.
func (c *ColumnSet) Columns() []string {
	return c.names
}

// NumColumns returns the number of columns.
func (c *ColumnSet) NumColumns() int {
	return len(c.names)
}

// Has reports whether the named column exists.
func (c *ColumnSet) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Column returns the cell sequence for a column, or nil if absent.
func (c *ColumnSet) Column(name string) []*string {
	return c.values[name]
}

// Rows returns the row count, defined as the length of any column. An
// empty set has zero rows.
func (c *ColumnSet) Rows() int {
	if len(c.names) == 0 {
		return 0
	}
	return len(c.values[c.names[0]])
}

// IsEmpty reports whether the set holds no columns.
func (c *ColumnSet) IsEmpty() bool {
	return len(c.names) == 0
}

// AddColumn registers a column without values, preserving first-seen
// order. Adding an existing column is a no-op.
func (c *ColumnSet) AddColumn(name string) {
	if _, ok := c.values[name]; ok {
		return
	}
	c.names = append(c.names, name)
	c.values[name] = nil
}

// Append appends cells to a column, registering it on first use.
func (c *ColumnSet) Append(name string, cells ...*string) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = append(c.values[name], cells...)
}

// AppendNulls appends n null cells to a column, registering it on first use.
func (c *ColumnSet) AppendNulls(name string, n int) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	col := c.values[name]
	for i := 0; i < n; i++ {
		col = append(col, nil)
	}
	c.values[name] = col
}

// Slice returns a new ColumnSet covering rows [start, end), with every
// column sliced identically so the row invariant holds for the window.
func (c *ColumnSet) Slice(start, end int) (*ColumnSet, error) {
	rows := c.Rows()
	if start < 0 || end < start || end > rows {
		return nil, fmt.Errorf("invalid row window [%d, %d) for %d rows", start, end, rows)
	}
	out := NewColumnSet()
	for _, name := range c.names {
		out.Append(name, c.values[name][start:end]...)
	}
	return out, nil
}
