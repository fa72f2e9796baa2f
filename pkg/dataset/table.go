package dataset

import "fmt"

// Key columns present in every exported view.
const (
	ColumnSubject       = "subjectId"
	ColumnForm          = "formCode"
	ColumnFillTimestamp = "fillTimestamp"
)

// Table is a rectangular export view. Nil cells are nulls.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Column returns the index of name, or -1.
func (t Table) Column(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for column name.
func (t Table) Value(row int, name string) (any, bool) {
	idx := t.Column(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[row][idx], true
}

// Records returns the rows as column -> value maps.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			rec[col] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Validate checks every row has one cell per column.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("dataset: table %s row %d has %d cells for %d columns", t.Name, i, len(row), len(t.Columns))
		}
	}
	return nil
}

// columnSet builds a table column by column, keeping first-seen order.
type columnSet struct {
	names []string
	index map[string]int
}

func newColumnSet(names ...string) *columnSet {
	c := &columnSet{index: make(map[string]int)}
	for _, name := range names {
		c.add(name)
	}
	return c
}

func (c *columnSet) add(name string) int {
	if idx, ok := c.index[name]; ok {
		return idx
	}
	c.index[name] = len(c.names)
	c.names = append(c.names, name)
	return len(c.names) - 1
}

// rowsFrom lays out keyed cell maps in column order.
func rowsFrom(cols *columnSet, cells []map[string]any) [][]any {
	rows := make([][]any, len(cells))
	for i, cell := range cells {
		row := make([]any, len(cols.names))
		for name, value := range cell {
			if idx, ok := cols.index[name]; ok {
				row[idx] = value
			}
		}
		rows[i] = row
	}
	return rows
}
