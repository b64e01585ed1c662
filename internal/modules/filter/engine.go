package filter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tobgu/qframe"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Kind identifies one of the supported filter kinds.
type Kind int

// Filter kinds, in the order they are offered to users.
const (
	KindRegion Kind = iota + 1
	KindCategory
	KindSalesRange
	KindProfitRange
	KindState
)

var kindLabels = map[Kind]string{
	KindRegion:      "Region",
	KindCategory:    "Category",
	KindSalesRange:  "Sales Range",
	KindProfitRange: "Profit Range",
	KindState:       "State",
}

// Kinds returns every filter kind in display order.
func Kinds() []Kind {
	return []Kind{KindRegion, KindCategory, KindSalesRange, KindProfitRange, KindState}
}

// String returns the display label of the kind.
func (k Kind) String() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsRange reports whether the kind selects a numeric interval.
func (k Kind) IsRange() bool {
	return k == KindSalesRange || k == KindProfitRange
}

// ParseKind resolves a kind from its label. Matching ignores case, and
// '-', '_' and spaces are interchangeable ("sales-range" == "Sales Range").
func ParseKind(s string) (Kind, error) {
	key := normalizeKind(s)
	for _, k := range Kinds() {
		if normalizeKind(kindLabels[k]) == key {
			return k, nil
		}
	}
	return 0, errhandling.NewInvalidFilterKindError(s)
}

func normalizeKind(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Spec is a fully parsed filter. The set of implementations is closed:
// the unexported methods can only be satisfied inside this package.
type Spec interface {
	Kind() Kind
	// clause builds the qframe filter selecting matching cells of col.
	clause(col table.Column) (qframe.FilterClause, error)
	params() Params
}

// Params are the user-supplied parameters of a spec, for logging and display.
type Params struct {
	Value string
	Min   *float64
	Max   *float64
}

// ParamsOf returns the parameters of spec.
func ParamsOf(spec Spec) Params {
	if isNilSpec(spec) {
		return Params{}
	}
	return spec.params()
}

// Region selects rows whose region equals Value.
type Region struct{ Value string }

// Category selects rows whose category equals Value.
type Category struct{ Value string }

// State selects rows whose state equals Value.
type State struct{ Value string }

// SalesRange selects rows whose sales lie in [Min, Max].
type SalesRange struct{ Min, Max float64 }

// ProfitRange selects rows whose profit lies in [Min, Max].
type ProfitRange struct{ Min, Max float64 }

func (Region) Kind() Kind      { return KindRegion }
func (Category) Kind() Kind    { return KindCategory }
func (State) Kind() Kind       { return KindState }
func (SalesRange) Kind() Kind  { return KindSalesRange }
func (ProfitRange) Kind() Kind { return KindProfitRange }

func (s Region) clause(col table.Column) (qframe.FilterClause, error) {
	return equalClause(col, s.Value), nil
}

func (s Category) clause(col table.Column) (qframe.FilterClause, error) {
	return equalClause(col, s.Value), nil
}

func (s State) clause(col table.Column) (qframe.FilterClause, error) {
	return equalClause(col, s.Value), nil
}

func (s SalesRange) clause(col table.Column) (qframe.FilterClause, error) {
	return rangeClause(s.Kind(), col, s.Min, s.Max)
}

func (s ProfitRange) clause(col table.Column) (qframe.FilterClause, error) {
	return rangeClause(s.Kind(), col, s.Min, s.Max)
}

func (s Region) params() Params   { return Params{Value: s.Value} }
func (s Category) params() Params { return Params{Value: s.Value} }
func (s State) params() Params    { return Params{Value: s.Value} }

func (s SalesRange) params() Params {
	lo, hi := s.Min, s.Max
	return Params{Min: &lo, Max: &hi}
}

func (s ProfitRange) params() Params {
	lo, hi := s.Min, s.Max
	return Params{Min: &lo, Max: &hi}
}

// equalClause matches cells whose text form equals value exactly.
// Number cells are compared through FormatValue, so "10" matches 10.0.
func equalClause(col table.Column, value string) qframe.FilterClause {
	if col.Type == table.TypeNumber {
		return qframe.Filter{
			Column: col.Name,
			Comparator: func(f float64) bool {
				return !math.IsNaN(f) && table.FormatValue(f) == value
			},
		}
	}
	return qframe.Filter{Column: col.Name, Comparator: "=", Arg: value}
}

// rangeClause matches numbers in the closed interval [lo, hi].
// Missing cells are NaN in the frame and never match.
func rangeClause(k Kind, col table.Column, lo, hi float64) (qframe.FilterClause, error) {
	if col.Type != table.TypeNumber {
		return nil, notNumeric(col.Name, k)
	}
	return qframe.And(
		qframe.Filter{Column: col.Name, Comparator: ">=", Arg: lo},
		qframe.Filter{Column: col.Name, Comparator: "<=", Arg: hi},
	), nil
}

// NewSpec builds a spec from the raw string a user typed.
// Range kinds expect "min,max"; other kinds take raw as the value verbatim.
func NewSpec(kind Kind, raw string) (Spec, error) {
	if kind.IsRange() {
		lo, hi, err := ParseRange(raw)
		if err != nil {
			return nil, err
		}
		return NewRangeSpec(kind, lo, hi)
	}

	switch kind {
	case KindRegion:
		return Region{Value: raw}, nil
	case KindCategory:
		return Category{Value: raw}, nil
	case KindState:
		return State{Value: raw}, nil
	default:
		return nil, errhandling.NewInvalidFilterKindError(kind.String())
	}
}

// NewRangeSpec builds a range spec. min > max is accepted and matches nothing.
func NewRangeSpec(kind Kind, lo, hi float64) (Spec, error) {
	switch kind {
	case KindSalesRange:
		return SalesRange{Min: lo, Max: hi}, nil
	case KindProfitRange:
		return ProfitRange{Min: lo, Max: hi}, nil
	default:
		return nil, errhandling.NewInvalidFilterKindError(kind.String())
	}
}

// ParseRange parses "min,max" into two numbers.
func ParseRange(raw string) (lo, hi float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, errhandling.NewParseError(fmt.Sprintf("range %q must have the form min,max", raw), nil)
	}
	lo, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errhandling.NewParseError(fmt.Sprintf("range minimum %q is not a number", parts[0]), err)
	}
	hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errhandling.NewParseError(fmt.Sprintf("range maximum %q is not a number", parts[1]), err)
	}
	return lo, hi, nil
}

// Columns maps each filter kind to a column of the dataset.
type Columns struct {
	Region   string
	Category string
	State    string
	Sales    string
	Profit   string
}

// DefaultColumns returns the Superstore column names.
func DefaultColumns() Columns {
	return Columns{
		Region:   "Region",
		Category: "Category",
		State:    "State",
		Sales:    "Sales",
		Profit:   "Profit",
	}
}

// For returns the column a kind filters on.
func (c Columns) For(k Kind) string {
	switch k {
	case KindRegion:
		return c.Region
	case KindCategory:
		return c.Category
	case KindState:
		return c.State
	case KindSalesRange:
		return c.Sales
	case KindProfitRange:
		return c.Profit
	default:
		return ""
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Region == "" {
		c.Region = d.Region
	}
	if c.Category == "" {
		c.Category = d.Category
	}
	if c.State == "" {
		c.State = d.State
	}
	if c.Sales == "" {
		c.Sales = d.Sales
	}
	if c.Profit == "" {
		c.Profit = d.Profit
	}
	return c
}

// Outcome tells whether a filter selected any rows.
type Outcome int

// Filter outcomes.
const (
	OutcomeMatched Outcome = iota
	OutcomeNoMatch
)

func (o Outcome) String() string {
	if o == OutcomeNoMatch {
		return "no_match"
	}
	return "matched"
}

// Result is the outcome of applying a filter.
// Table is never nil; on OutcomeNoMatch it has the source columns and no rows.
type Result struct {
	Outcome Outcome
	Table   *table.Table
}

// Matched returns the number of selected rows.
func (r Result) Matched() int {
	return r.Table.Len()
}

func resultOf(t *table.Table, positions []int) Result {
	return outcomeOf(t.Subset(positions))
}

func outcomeOf(selected *table.Table) Result {
	if selected.Len() == 0 {
		return Result{Outcome: OutcomeNoMatch, Table: selected}
	}
	return Result{Outcome: OutcomeMatched, Table: selected}
}

// Engine applies filter specs to tables. It holds no mutable state.
type Engine struct {
	columns Columns
}

// NewEngine creates an engine with the given column mapping.
// Empty mapping fields fall back to DefaultColumns.
func NewEngine(columns Columns) *Engine {
	return &Engine{columns: columns.withDefaults()}
}

// Columns returns the engine's column mapping.
func (e *Engine) Columns() Columns {
	return e.columns
}

var defaultEngine = NewEngine(Columns{})

// Apply filters t with the default column mapping.
func Apply(t *table.Table, spec Spec) (Result, error) {
	return defaultEngine.Apply(t, spec)
}

// Apply returns the rows of t selected by spec, in their original order.
// t is never modified.
func (e *Engine) Apply(t *table.Table, spec Spec) (Result, error) {
	if isNilSpec(spec) {
		return Result{}, errhandling.NewInvalidFilterKindError("<nil>")
	}
	if t == nil {
		return Result{}, errhandling.NewSchemaError("no table loaded")
	}

	kind := spec.Kind()
	column := e.columns.For(kind)
	col, ok := t.Column(column)
	if !ok {
		return Result{}, errhandling.NewSchemaError(fmt.Sprintf("column %q required by %s filter is missing", column, kind))
	}

	clause, err := spec.clause(col)
	if err != nil {
		return Result{}, err
	}
	selected, err := t.Filter(clause)
	if err != nil {
		return Result{}, errhandling.NewSchemaError(fmt.Sprintf("%s filter on column %q: %v", kind, column, err))
	}
	return outcomeOf(selected), nil
}

// isNilSpec reports a nil interface or a nil pointer to a variant.
func isNilSpec(spec Spec) bool {
	if spec == nil {
		return true
	}
	v := reflect.ValueOf(spec)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func notNumeric(column string, k Kind) error {
	return errhandling.NewSchemaError(fmt.Sprintf("column %q used by %s filter is not numeric", column, k))
}
