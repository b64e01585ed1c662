package ui

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/internal/runtime"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

type fakeRunner struct {
	calls  int
	spec   filter.Spec
	refine runtime.Refinement
	result *runtime.ExecutionResult
	err    error
}

func (r *fakeRunner) Run(spec filter.Spec, refine runtime.Refinement) (*runtime.ExecutionResult, error) {
	r.calls++
	r.spec, r.refine = spec, refine
	return r.result, r.err
}

func matched(t *testing.T, n, total int) *runtime.ExecutionResult {
	t.Helper()
	rows := make([]table.Row, n)
	for i := range rows {
		rows[i] = table.Row{Index: i, Values: map[string]interface{}{"Region": "West"}}
	}
	tbl, err := table.New([]table.Column{{Name: "Region", Type: table.TypeText}}, rows)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return &runtime.ExecutionResult{Outcome: filter.OutcomeMatched, Table: tbl, Matched: n, Total: total}
}

func noMatch() *runtime.ExecutionResult {
	return &runtime.ExecutionResult{Outcome: filter.OutcomeNoMatch, Total: 9994}
}

func renderCount(t *table.Table) string {
	return t.ColumnNames()[0] + " x" + string(rune('0'+t.Len()))
}

func TestNewForm_Defaults(t *testing.T) {
	f := NewForm(&fakeRunner{}, renderCount)

	if f.Kind() != filter.KindRegion {
		t.Errorf("Kind() = %v, want Region", f.Kind())
	}
	if !reflect.DeepEqual(f.Fields(), []Field{FieldValue}) {
		t.Errorf("Fields() = %v", f.Fields())
	}
	if f.Result() != "" || f.Last() != nil {
		t.Error("new form should have no result")
	}
}

func TestForm_SelectKind(t *testing.T) {
	f := NewForm(&fakeRunner{}, renderCount)
	f.SetValue("West")
	f.SetMin("1")

	if err := f.SelectKind(filter.KindProfitRange); err != nil {
		t.Fatalf("SelectKind() error = %v", err)
	}
	if !reflect.DeepEqual(f.Fields(), []Field{FieldMin, FieldMax}) {
		t.Errorf("Fields() = %v", f.Fields())
	}
	if f.Value() != "West" || f.Min() != "1" {
		t.Error("SelectKind should keep inputs")
	}

	if err := f.SelectKind(filter.Kind(42)); err == nil {
		t.Error("SelectKind(42) should fail")
	}
	if f.Kind() != filter.KindProfitRange {
		t.Errorf("Kind() = %v after invalid select", f.Kind())
	}
}

func TestForm_SubmitInputErrors(t *testing.T) {
	tests := []struct {
		name    string
		kind    filter.Kind
		value   string
		min     string
		max     string
		wantMsg string
		wantErr error
	}{
		{"missing value", filter.KindRegion, "", "", "", MsgMissingValue, errhandling.ErrMissingInput},
		{"blank value", filter.KindState, "   ", "", "", MsgMissingValue, errhandling.ErrMissingInput},
		{"missing max", filter.KindSalesRange, "", "10", "", MsgMissingRange, errhandling.ErrMissingInput},
		{"missing both", filter.KindProfitRange, "", "", "", MsgMissingRange, errhandling.ErrMissingInput},
		{"non-numeric min", filter.KindSalesRange, "", "ten", "20", MsgRangeNotNumber, errhandling.ErrParse},
		{"non-numeric max", filter.KindProfitRange, "", "1", "lots", MsgRangeNotNumber, errhandling.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			f := NewForm(runner, renderCount)
			if err := f.SelectKind(tt.kind); err != nil {
				t.Fatalf("SelectKind() error = %v", err)
			}
			f.SetValue(tt.value)
			f.SetMin(tt.min)
			f.SetMax(tt.max)

			n := f.Submit()
			if n.Level != LevelWarning || n.Title != "Input Error" || n.Message != tt.wantMsg {
				t.Errorf("Submit() = %+v, want warning %q", n, tt.wantMsg)
			}
			if !errors.Is(n.Err, tt.wantErr) {
				t.Errorf("Notice.Err = %v, want %v", n.Err, tt.wantErr)
			}
			if runner.calls != 0 {
				t.Error("runner should not be called on input error")
			}
			if f.Value() != tt.value || f.Min() != tt.min || f.Max() != tt.max || f.Kind() != tt.kind {
				t.Error("input error should leave the form untouched")
			}
		})
	}
}

func TestForm_SubmitMatched(t *testing.T) {
	runner := &fakeRunner{result: matched(t, 3, 9994)}
	f := NewForm(runner, renderCount)
	f.SetValue("  West ")
	f.SetWhere(`  Sales > 100 `)

	n := f.Submit()
	if n.Level != LevelSuccess || n.Title != "Results" {
		t.Fatalf("Submit() = %+v", n)
	}
	if n.Message != "3 of 9,994 rows matched." {
		t.Errorf("Message = %q", n.Message)
	}
	if runner.spec != (filter.Region{Value: "West"}) {
		t.Errorf("spec = %#v", runner.spec)
	}
	if runner.refine.Where != "Sales > 100" {
		t.Errorf("where = %q", runner.refine.Where)
	}
	if f.Result() != "Region x3" {
		t.Errorf("Result() = %q", f.Result())
	}
	if f.Last() != runner.result {
		t.Error("Last() should be the runner result")
	}
}

func TestForm_SubmitRange(t *testing.T) {
	runner := &fakeRunner{result: matched(t, 1, 5)}
	f := NewForm(runner, renderCount)
	if err := f.SelectKind(filter.KindSalesRange); err != nil {
		t.Fatal(err)
	}
	f.SetMin(" 100 ")
	f.SetMax("1e3")

	if n := f.Submit(); n.Level != LevelSuccess {
		t.Fatalf("Submit() = %+v", n)
	}
	if runner.spec != (filter.SalesRange{Min: 100, Max: 1000}) {
		t.Errorf("spec = %#v", runner.spec)
	}

	// min above max still runs; the engine returns no rows.
	runner.result = noMatch()
	f.SetMin("500")
	f.SetMax("10")
	if n := f.Submit(); n.Title != "No Results" {
		t.Errorf("Submit() = %+v, want No Results", n)
	}
	if runner.calls != 2 {
		t.Errorf("calls = %d, want 2", runner.calls)
	}
}

func TestForm_SubmitNoMatchKeepsPreviousResult(t *testing.T) {
	runner := &fakeRunner{result: matched(t, 2, 10)}
	f := NewForm(runner, renderCount)
	f.SetValue("West")
	f.Submit()
	prev, prevLast := f.Result(), f.Last()

	runner.result = noMatch()
	f.SetValue("Atlantis")
	n := f.Submit()

	if n.Level != LevelInfo || n.Title != "No Results" || n.Message != MsgNoResults {
		t.Errorf("Submit() = %+v", n)
	}
	if f.Result() != prev || f.Last() != prevLast {
		t.Error("no-match should keep the previous result")
	}
}

func TestForm_SubmitRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	f := NewForm(runner, renderCount)
	f.SetValue("West")

	n := f.Submit()
	if n.Level != LevelError || n.Title != "Error" || n.Message != "An error occurred: boom" {
		t.Errorf("Submit() = %+v", n)
	}
	if n.Err != runner.err {
		t.Errorf("Notice.Err = %v, want the runner error", n.Err)
	}
	if f.Result() != "" {
		t.Error("error should not set a result")
	}
}

func TestForm_Clear(t *testing.T) {
	runner := &fakeRunner{result: matched(t, 1, 1)}
	f := NewForm(runner, renderCount)
	if err := f.SelectKind(filter.KindCategory); err != nil {
		t.Fatal(err)
	}
	f.SetValue("Furniture")
	f.SetMin("1")
	f.SetMax("2")
	f.SetWhere("Profit > 0")
	f.SetScript("function match(row) { return true }")
	f.Submit()

	f.Clear()

	if f.Kind() != filter.KindRegion {
		t.Errorf("Kind() = %v, want Region", f.Kind())
	}
	if f.Value() != "" || f.Min() != "" || f.Max() != "" || f.Where() != "" {
		t.Error("Clear should empty all inputs")
	}
	if f.Script() != "" || f.ScriptFile() != "" {
		t.Error("Clear should drop the script refinement")
	}
	if f.Result() != "" || f.Last() != nil {
		t.Error("Clear should drop the result")
	}
}

func TestForm_SubmitRefinement(t *testing.T) {
	runner := &fakeRunner{result: matched(t, 1, 5)}
	f := NewForm(runner, renderCount)
	f.SetValue("West")
	f.SetWhere("  Profit > 0 ")
	f.SetScriptFile("losses.js")
	f.SetScript("function match(row) { return row.Sales > 10 }")

	if n := f.Submit(); n.Level != LevelSuccess {
		t.Fatalf("Submit() = %+v", n)
	}
	want := runtime.Refinement{Where: "Profit > 0", Script: "function match(row) { return row.Sales > 10 }"}
	if runner.refine != want {
		t.Errorf("refinement = %+v, want %+v", runner.refine, want)
	}

	f.SetScriptFile("losses.js")
	if f.Script() != "" {
		t.Error("SetScriptFile should clear the inline script")
	}
	f.Submit()
	if runner.refine.ScriptFile != "losses.js" || runner.refine.Script != "" {
		t.Errorf("refinement = %+v", runner.refine)
	}
}
