// Package table provides the public in-memory table types shared by the
// loader, the filter engine and the renderers.
//
// A Table is built once and never modified afterwards. Filtering produces
// derived tables through Subset or Filter, which share row values with their
// source. Filter runs qframe clauses over the table's frame form.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/tobgu/qframe"
)

// PositionColumn is the extra frame column holding each row's position in
// the table. It is not part of Columns and no dataset column may use it.
const PositionColumn = "__position__"

// ColumnType is the inferred type of a column.
type ColumnType string

// Column types.
const (
	// TypeText columns hold string values.
	TypeText ColumnType = "text"
	// TypeNumber columns hold float64 values, or nil for missing cells.
	TypeNumber ColumnType = "number"
)

// Common errors
var (
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrRowShape is returned when a row does not carry exactly the table's columns.
	ErrRowShape = errors.New("row does not match table columns")
	// ErrReservedColumn is returned when a column is named PositionColumn.
	ErrReservedColumn = errors.New("reserved column name")
)

// Column describes one column of a table.
type Column struct {
	// Name is the header name of the column
	Name string `json:"name"`
	// Type is the inferred value type
	Type ColumnType `json:"type"`
}

// Row is a single record of a table.
type Row struct {
	// Index is the zero-based position of the row in the loaded dataset.
	// It survives filtering so derived tables can point back at the source.
	Index int
	// Values maps column name to value (string, float64 or nil for a
	// missing cell).
	// Callers must treat it as read-only.
	Values map[string]interface{}
}

// Value returns the value stored for the named column.
func (r Row) Value(column string) (interface{}, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Text returns the canonical text form of the named column's value.
// Numbers are formatted without trailing zeros; nil values yield "".
func (r Row) Text(column string) string {
	return FormatValue(r.Values[column])
}

// Table is an ordered, immutable sequence of rows sharing one column set.
type Table struct {
	columns []Column
	rows    []Row
	byName  map[string]int

	frameOnce sync.Once
	frame     qframe.QFrame
}

// New builds a table from columns and rows.
// Every row must carry exactly the given columns.
func New(columns []Column, rows []Row) (*Table, error) {
	byName := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == PositionColumn {
			return nil, fmt.Errorf("%w: %q", ErrReservedColumn, c.Name)
		}
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		byName[c.Name] = i
	}

	for i, r := range rows {
		if len(r.Values) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrRowShape, i, len(r.Values), len(columns))
		}
		for name := range r.Values {
			if _, ok := byName[name]; !ok {
				return nil, fmt.Errorf("%w: row %d has unknown column %q", ErrRowShape, i, name)
			}
		}
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)
	rs := make([]Row, len(rows))
	copy(rs, rows)

	return &Table{columns: cols, rows: rs, byName: byName}, nil
}

// Columns returns a copy of the table's column descriptors in header order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in header order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the row at position i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Subset returns a derived table holding the rows at the given positions,
// in the order given. The source table is left untouched.
func (t *Table) Subset(positions []int) *Table {
	rows := make([]Row, len(positions))
	for i, p := range positions {
		rows[i] = t.rows[p]
	}
	return &Table{columns: t.columns, rows: rows, byName: t.byName}
}

// Frame returns the table as a qframe, built on first use. Number columns
// become float columns (NaN for nil), text columns string columns (null for
// nil), and PositionColumn holds each row's position in t.
func (t *Table) Frame() qframe.QFrame {
	t.frameOnce.Do(func() {
		t.frame = buildFrame(t.columns, t.rows)
	})
	return t.frame
}

func buildFrame(columns []Column, rows []Row) qframe.QFrame {
	data := make(map[string]interface{}, len(columns)+1)

	positions := make([]int, len(rows))
	for i := range positions {
		positions[i] = i
	}
	data[PositionColumn] = positions

	for _, c := range columns {
		if c.Type == TypeNumber {
			values := make([]float64, len(rows))
			for i, r := range rows {
				f, ok := r.Values[c.Name].(float64)
				if !ok {
					f = math.NaN()
				}
				values[i] = f
			}
			data[c.Name] = values
			continue
		}

		values := make([]*string, len(rows))
		for i, r := range rows {
			if v := r.Values[c.Name]; v != nil {
				s := FormatValue(v)
				values[i] = &s
			}
		}
		data[c.Name] = values
	}
	return qframe.New(data)
}

// Filter returns the rows of t matched by clause, in table order.
// Clauses address columns by name; PositionColumn is also available.
func (t *Table) Filter(clause qframe.FilterClause) (*Table, error) {
	filtered := t.Frame().Filter(clause)
	if filtered.Err != nil {
		return nil, filtered.Err
	}
	view, err := filtered.IntView(PositionColumn)
	if err != nil {
		return nil, err
	}
	positions := make([]int, view.Len())
	for i := range positions {
		positions[i] = view.ItemAt(i)
	}
	return t.Subset(positions), nil
}

// Distinct returns the distinct text values of a column in first-seen order.
// Empty and missing values are skipped.
func (t *Table) Distinct(column string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		s := r.Text(column)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FormatValue renders a cell value as text.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
