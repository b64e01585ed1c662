package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

func superstore(t *testing.T) *table.Table {
	t.Helper()
	cols := []table.Column{
		{Name: "Region", Type: table.TypeText},
		{Name: "Category", Type: table.TypeText},
		{Name: "State", Type: table.TypeText},
		{Name: "Sales", Type: table.TypeNumber},
		{Name: "Profit", Type: table.TypeNumber},
	}
	data := []struct {
		region, category, state string
		sales, profit           interface{}
	}{
		{"South", "Furniture", "Kentucky", 261.96, 41.9136},
		{"West", "Office Supplies", "California", 114.62, 6.8714},
		{"South", "Furniture", "Florida", 957.5775, -383.031},
		{"East", "Technology", "New York", 10.0, 0.0},
		{"West", "Technology", "California", 20.0, nil},
		{"Central", "Office Supplies", "Texas", 30.0, -5.5},
		{"west", "Furniture", "Oregon", nil, 12.0},
	}
	rows := make([]table.Row, len(data))
	for i, d := range data {
		rows[i] = table.Row{Index: i, Values: map[string]interface{}{
			"Region":   d.region,
			"Category": d.category,
			"State":    d.state,
			"Sales":    d.sales,
			"Profit":   d.profit,
		}}
	}
	tbl, err := table.New(cols, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return tbl
}

func indexes(tbl *table.Table) []int {
	out := make([]int, tbl.Len())
	for i := range out {
		out[i] = tbl.Row(i).Index
	}
	return out
}

func TestApply_EqualityKinds(t *testing.T) {
	tbl := superstore(t)

	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"region", Region{Value: "West"}, []int{1, 4}},
		{"region is case sensitive", Region{Value: "west"}, []int{6}},
		{"category", Category{Value: "Furniture"}, []int{0, 2, 6}},
		{"state", State{Value: "California"}, []int{1, 4}},
		{"no trimming", State{Value: " California"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Apply(tbl, tt.spec)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if tt.want == nil {
				if res.Outcome != OutcomeNoMatch {
					t.Errorf("Outcome = %v, want no_match", res.Outcome)
				}
				return
			}
			if res.Outcome != OutcomeMatched {
				t.Errorf("Outcome = %v, want matched", res.Outcome)
			}
			if got := indexes(res.Table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_EveryRowMatchesItsOwnRegion(t *testing.T) {
	tbl := superstore(t)
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		res, err := Apply(tbl, Region{Value: row.Text("Region")})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		found := false
		for _, idx := range indexes(res.Table) {
			if idx == row.Index {
				found = true
			}
		}
		if !found {
			t.Errorf("row %d not selected by its own region %q", row.Index, row.Text("Region"))
		}
	}
}

func TestApply_SubsetInOrderAndIdempotent(t *testing.T) {
	tbl := superstore(t)
	specs := []Spec{
		Region{Value: "South"},
		Category{Value: "Technology"},
		State{Value: "Texas"},
		SalesRange{Min: 0, Max: 500},
		ProfitRange{Min: -1000, Max: 1000},
	}

	for _, spec := range specs {
		t.Run(spec.Kind().String(), func(t *testing.T) {
			first, err := Apply(tbl, spec)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			second, err := Apply(tbl, spec)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			got := indexes(first.Table)
			if !reflect.DeepEqual(got, indexes(second.Table)) {
				t.Errorf("not idempotent: %v vs %v", got, indexes(second.Table))
			}
			for i := 1; i < len(got); i++ {
				if got[i] <= got[i-1] {
					t.Errorf("order not preserved: %v", got)
				}
			}
			for i, idx := range got {
				if !reflect.DeepEqual(first.Table.Row(i).Values, tbl.Row(idx).Values) {
					t.Errorf("row %d differs from source", idx)
				}
			}
			if tbl.Len() != 7 {
				t.Errorf("source table modified: %d rows", tbl.Len())
			}
		})
	}
}

func TestApply_RangeInclusive(t *testing.T) {
	tbl := superstore(t)

	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"both endpoints", SalesRange{Min: 10, Max: 20}, []int{3, 4}},
		{"midpoint only", SalesRange{Min: 15, Max: 25}, []int{4}},
		{"upper endpoint", SalesRange{Min: 20, Max: 30}, []int{4, 5}},
		{"degenerate interval", SalesRange{Min: 30, Max: 30}, []int{5}},
		{"negative profit", ProfitRange{Min: -400, Max: -5.5}, []int{2, 5}},
		{"nil cells never match", ProfitRange{Min: -1e9, Max: 1e9}, []int{0, 1, 2, 3, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Apply(tbl, tt.spec)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := indexes(res.Table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_MinGreaterThanMaxIsNoMatch(t *testing.T) {
	res, err := Apply(superstore(t), SalesRange{Min: 100, Max: 10})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("Outcome = %v, want no_match", res.Outcome)
	}
}

func TestApply_NoMatch(t *testing.T) {
	tbl := superstore(t)

	res, err := Apply(tbl, Category{Value: "Nonexistent"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("Outcome = %v, want no_match", res.Outcome)
	}
	if res.Matched() != 0 {
		t.Errorf("Matched() = %d, want 0", res.Matched())
	}
	if !reflect.DeepEqual(res.Table.ColumnNames(), tbl.ColumnNames()) {
		t.Errorf("no-match table should keep columns, got %v", res.Table.ColumnNames())
	}
}

func TestApply_PointerVariants(t *testing.T) {
	tbl := superstore(t)

	tests := []struct {
		name string
		spec Spec
		want []int
	}{
		{"region", &Region{Value: "West"}, []int{1, 4}},
		{"category", &Category{Value: "Technology"}, []int{3, 4}},
		{"state", &State{Value: "Texas"}, []int{5}},
		{"sales range", &SalesRange{Min: 10, Max: 30}, []int{3, 4, 5}},
		{"profit range", &ProfitRange{Min: -400, Max: 0}, []int{2, 3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Apply(tbl, tt.spec)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := indexes(res.Table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParamsOf(t *testing.T) {
	if p := ParamsOf(State{Value: "Ohio"}); p.Value != "Ohio" || p.Min != nil {
		t.Errorf("ParamsOf(State) = %+v", p)
	}
	p := ParamsOf(&ProfitRange{Min: -1, Max: 2})
	if p.Min == nil || p.Max == nil || *p.Min != -1 || *p.Max != 2 {
		t.Errorf("ParamsOf(ProfitRange) = %+v", p)
	}
	if p := ParamsOf(nil); p != (Params{}) {
		t.Errorf("ParamsOf(nil) = %+v", p)
	}
}

func TestApply_NumberColumnEquality(t *testing.T) {
	cols := []table.Column{{Name: "Region", Type: table.TypeNumber}}
	rows := []table.Row{
		{Index: 0, Values: map[string]interface{}{"Region": 1.0}},
		{Index: 1, Values: map[string]interface{}{"Region": 2.5}},
		{Index: 2, Values: map[string]interface{}{"Region": nil}},
	}
	tbl, err := table.New(cols, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}

	tests := []struct {
		value string
		want  []int
	}{
		{"1", []int{0}},
		{"2.5", []int{1}},
		{"1.0", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			res, err := Apply(tbl, Region{Value: tt.value})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if tt.want == nil {
				if res.Outcome != OutcomeNoMatch {
					t.Errorf("Outcome = %v, want no_match", res.Outcome)
				}
				return
			}
			if got := indexes(res.Table); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_Errors(t *testing.T) {
	tbl := superstore(t)

	textSales, err := table.New(
		[]table.Column{{Name: "Sales", Type: table.TypeText}},
		[]table.Row{{Values: map[string]interface{}{"Sales": "lots"}}},
	)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}

	tests := []struct {
		name    string
		engine  *Engine
		tbl     *table.Table
		spec    Spec
		wantErr error
	}{
		{"nil spec", defaultEngine, tbl, nil, errhandling.ErrInvalidFilterKind},
		{"nil variant pointer", defaultEngine, tbl, (*Region)(nil), errhandling.ErrInvalidFilterKind},
		{"nil table", defaultEngine, nil, Region{Value: "West"}, errhandling.ErrSchema},
		{"missing column", NewEngine(Columns{Region: "Territory"}), tbl, Region{Value: "West"}, errhandling.ErrSchema},
		{"range over text", defaultEngine, textSales, SalesRange{Min: 0, Max: 1}, errhandling.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.engine.Apply(tt.tbl, tt.spec)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Apply() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_CustomColumns(t *testing.T) {
	cols := []table.Column{{Name: "Zone", Type: table.TypeText}, {Name: "Amount", Type: table.TypeNumber}}
	rows := []table.Row{
		{Index: 0, Values: map[string]interface{}{"Zone": "North", "Amount": 5.0}},
		{Index: 1, Values: map[string]interface{}{"Zone": "South", "Amount": 50.0}},
	}
	tbl, err := table.New(cols, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}

	engine := NewEngine(Columns{Region: "Zone", Sales: "Amount"})
	if engine.Columns().Category != "Category" {
		t.Errorf("unset mapping should default, got %q", engine.Columns().Category)
	}

	res, err := engine.Apply(tbl, SalesRange{Min: 10, Max: 100})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := indexes(res.Table); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("rows = %v, want [1]", got)
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		raw     string
		lo, hi  float64
		wantErr bool
	}{
		{"10,20", 10, 20, false},
		{" 10 , 20.5 ", 10, 20.5, false},
		{"-5,-1", -5, -1, false},
		{"20,10", 20, 10, false},
		{"abc,20", 0, 0, true},
		{"10,xyz", 0, 0, true},
		{"10", 0, 0, true},
		{"1,2,3", 0, 0, true},
		{",", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			lo, hi, err := ParseRange(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, errhandling.ErrParse) {
					t.Errorf("ParseRange(%q) error = %v, want ErrParse", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.raw, err)
			}
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("ParseRange(%q) = %v, %v, want %v, %v", tt.raw, lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestNewSpec(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     string
		want    Spec
		wantErr error
	}{
		{"region", KindRegion, "West", Region{Value: "West"}, nil},
		{"category", KindCategory, "Technology", Category{Value: "Technology"}, nil},
		{"state keeps raw", KindState, " Texas", State{Value: " Texas"}, nil},
		{"sales range", KindSalesRange, "10,20", SalesRange{Min: 10, Max: 20}, nil},
		{"profit range", KindProfitRange, "-5,5", ProfitRange{Min: -5, Max: 5}, nil},
		{"malformed range", KindSalesRange, "abc,20", nil, errhandling.ErrParse},
		{"unknown kind", Kind(42), "x", nil, errhandling.ErrInvalidFilterKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSpec(tt.kind, tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewSpec() error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("NewSpec() = %v, want nil", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSpec() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NewSpec() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNewRangeSpec_RejectsEqualityKinds(t *testing.T) {
	if _, err := NewRangeSpec(KindRegion, 1, 2); !errors.Is(err, errhandling.ErrInvalidFilterKind) {
		t.Errorf("NewRangeSpec(Region) error = %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"Region", KindRegion, false},
		{"category", KindCategory, false},
		{"Sales Range", KindSalesRange, false},
		{"sales-range", KindSalesRange, false},
		{"PROFIT_RANGE", KindProfitRange, false},
		{"  state ", KindState, false},
		{"Colour", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errhandling.ErrInvalidFilterKind) {
					t.Errorf("ParseKind(%q) error = %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKindLabels(t *testing.T) {
	want := []string{"Region", "Category", "Sales Range", "Profit Range", "State"}
	for i, k := range Kinds() {
		if k.String() != want[i] {
			t.Errorf("Kinds()[%d] = %q, want %q", i, k.String(), want[i])
		}
		if k.IsRange() != (k == KindSalesRange || k == KindProfitRange) {
			t.Errorf("%v.IsRange() = %v", k, k.IsRange())
		}
	}
	if Kind(0).String() != "Kind(0)" {
		t.Errorf("zero kind String() = %q", Kind(0).String())
	}
}
