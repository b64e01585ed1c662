package runtime

import (
	"sort"

	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// KindSummary describes the column behind one filter kind.
type KindSummary struct {
	Kind    filter.Kind
	Column  string
	Present bool
	Type    table.ColumnType
	// Values lists distinct values, sorted, for equality kinds
	Values []string
}

// Summary describes a loaded dataset.
type Summary struct {
	Path    string
	Rows    int
	Columns []table.Column
	Kinds   []KindSummary
}

// Inspect summarizes the loaded table and how each filter kind maps onto it.
func (s *Session) Inspect() Summary {
	sum := Summary{
		Path:    s.path,
		Rows:    s.table.Len(),
		Columns: s.table.Columns(),
	}
	for _, k := range filter.Kinds() {
		ks := KindSummary{Kind: k, Column: s.engine.Columns().For(k)}
		if col, ok := s.table.Column(ks.Column); ok {
			ks.Present = true
			ks.Type = col.Type
			if !k.IsRange() {
				ks.Values = s.Values(k)
			}
		}
		sum.Kinds = append(sum.Kinds, ks)
	}
	return sum
}

// Values returns the sorted distinct values of the column behind kind.
func (s *Session) Values(kind filter.Kind) []string {
	column := s.engine.Columns().For(kind)
	if _, ok := s.table.Column(column); !ok {
		return nil
	}
	values := s.table.Distinct(column)
	sort.Strings(values)
	return values
}
