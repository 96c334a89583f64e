// Package table provides the in-memory tabular dataset passed between pipeline
// stages.
//
// A Dataset is an ordered list of column names and an ordered list of rows.
// Cells hold one of nil, int64, float64, bool, string or time.Time. Datasets
// are immutable: constructors copy their input and accessors return copies, so
// each stage produces a new Dataset rather than mutating one it received.
//
//	ds, err := table.New([]string{"order_id", "region"}, [][]any{
//	    {1, "West"},
//	    {2, nil},
//	})
package table

import (
	"fmt"
	"math"
)

// Dataset is an immutable in-memory table.
type Dataset struct {
	columns []string
	rows    [][]any
	index   map[string]int
}

var empty = &Dataset{index: map[string]int{}}

// Empty returns the dataset with zero rows and zero columns. It is the value
// every failing stage degrades to.
func Empty() *Dataset {
	return empty
}

// New creates a dataset from column names and rows. Column names must be
// unique and non-empty, and every row must have exactly one cell per column.
// Integer and float cells are normalized to int64 and float64.
func New(columns []string, rows [][]any) (*Dataset, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}

	copied := make([][]any, len(rows))
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", r, len(row), len(columns))
		}
		out := make([]any, len(row))
		for c, v := range row {
			out[c] = Normalize(v)
		}
		copied[r] = out
	}

	return &Dataset{
		columns: append([]string(nil), columns...),
		rows:    copied,
		index:   index,
	}, nil
}

// MustNew is like New but panics on invalid input. It is intended for tests
// and static fixtures.
func MustNew(columns []string, rows [][]any) *Dataset {
	ds, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// Columns returns a copy of the column names.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	return len(d.rows)
}

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// IsEmpty reports whether the dataset holds no rows.
func (d *Dataset) IsEmpty() bool {
	return d == nil || len(d.rows) == 0
}

// ColumnIndex returns the position of the named column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) []any {
	return append([]any(nil), d.rows[i]...)
}

// Rows returns a copy of all rows.
func (d *Dataset) Rows() [][]any {
	out := make([][]any, len(d.rows))
	for i := range d.rows {
		out[i] = d.Row(i)
	}
	return out
}

// Value returns the cell at row i of the named column. The second result is
// false if the column does not exist.
func (d *Dataset) Value(i int, column string) (any, bool) {
	c, ok := d.index[column]
	if !ok {
		return nil, false
	}
	return d.rows[i][c], true
}

// Column returns a copy of the named column's cells.
func (d *Dataset) Column(name string) ([]any, bool) {
	c, ok := d.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(d.rows))
	for i, row := range d.rows {
		out[i] = row[c]
	}
	return out, true
}

// String returns a short description such as "dataset(3x4)".
func (d *Dataset) String() string {
	return fmt.Sprintf("dataset(%dx%d)", d.NumRows(), d.NumColumns())
}

// Normalize converts a Go value to its cell representation: integers become
// int64, floats float64 and byte slices strings. Unsigned values above
// math.MaxInt64 become float64.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int64(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return float64(x)
		}
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return v
	}
}
