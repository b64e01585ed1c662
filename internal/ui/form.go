// Package ui models the filter form as an explicit state machine.
//
// The form holds the selected kind, the raw inputs and the last rendered
// result. Submit validates the inputs, runs the filter through a Runner and
// reports the outcome as a Notice; front ends only display state.
package ui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/internal/runtime"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// User-facing messages.
const (
	MsgMissingRange   = "Please enter both min and max values."
	MsgRangeNotNumber = "Min and max values must be numbers."
	MsgMissingValue   = "Please enter a value to filter."
	MsgNoResults      = "No data found matching your criteria."
)

// Level is the severity of a Notice.
type Level string

// Notice levels.
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is the feedback produced by a form action.
type Notice struct {
	Level   Level
	Title   string
	Message string
	// Err is the classified error behind a warning or error notice
	Err error
}

// Field is an input field of the form.
type Field string

// Input fields.
const (
	FieldValue Field = "value"
	FieldMin   Field = "min"
	FieldMax   Field = "max"
)

// Runner executes a filter action.
type Runner interface {
	Run(spec filter.Spec, refine runtime.Refinement) (*runtime.ExecutionResult, error)
}

// RenderFunc turns a result table into display text.
type RenderFunc func(t *table.Table) string

// Form is the state of the filter form.
type Form struct {
	runner Runner
	render RenderFunc

	kind   filter.Kind
	value  string
	min    string
	max    string
	where  string
	script string
	file   string
	result string
	last   *runtime.ExecutionResult
}

// NewForm creates a form with Region selected and empty inputs.
func NewForm(runner Runner, render RenderFunc) *Form {
	return &Form{
		runner: runner,
		render: render,
		kind:   filter.KindRegion,
	}
}

// Kind returns the selected filter kind.
func (f *Form) Kind() filter.Kind { return f.kind }

// Value returns the raw value input.
func (f *Form) Value() string { return f.value }

// Min returns the raw minimum input.
func (f *Form) Min() string { return f.min }

// Max returns the raw maximum input.
func (f *Form) Max() string { return f.max }

// Where returns the refinement expression.
func (f *Form) Where() string { return f.where }

// Script returns the inline script refinement.
func (f *Form) Script() string { return f.script }

// ScriptFile returns the path of the script refinement file.
func (f *Form) ScriptFile() string { return f.file }

// Result returns the text of the last matched result.
func (f *Form) Result() string { return f.result }

// Last returns the last matched execution, or nil.
func (f *Form) Last() *runtime.ExecutionResult { return f.last }

// SelectKind changes the selected kind. Inputs are kept.
func (f *Form) SelectKind(k filter.Kind) error {
	if _, err := filter.ParseKind(k.String()); err != nil {
		return err
	}
	f.kind = k
	return nil
}

// SetValue sets the value input.
func (f *Form) SetValue(s string) { f.value = s }

// SetMin sets the minimum input.
func (f *Form) SetMin(s string) { f.min = s }

// SetMax sets the maximum input.
func (f *Form) SetMax(s string) { f.max = s }

// SetWhere sets the refinement expression applied on submit.
func (f *Form) SetWhere(s string) { f.where = s }

// SetScript sets the inline JavaScript match(row) refinement and clears
// any script file.
func (f *Form) SetScript(s string) {
	f.script = s
	f.file = ""
}

// SetScriptFile sets the script refinement file and clears any inline
// script.
func (f *Form) SetScriptFile(path string) {
	f.file = path
	f.script = ""
}

// Fields returns the input fields shown for the selected kind.
func (f *Form) Fields() []Field {
	if f.kind.IsRange() {
		return []Field{FieldMin, FieldMax}
	}
	return []Field{FieldValue}
}

// Submit validates the inputs and runs the filter.
// Input errors leave the form untouched. A no-match keeps the previous result.
func (f *Form) Submit() Notice {
	spec, notice, ok := f.spec()
	if !ok {
		return notice
	}

	res, err := f.runner.Run(spec, runtime.Refinement{
		Where:      strings.TrimSpace(f.where),
		Script:     f.script,
		ScriptFile: strings.TrimSpace(f.file),
	})
	if err != nil {
		return runError(err)
	}
	if res.Outcome == filter.OutcomeNoMatch {
		return Notice{Level: LevelInfo, Title: "No Results", Message: MsgNoResults}
	}

	f.last = res
	f.result = f.render(res.Table)
	return Notice{
		Level: LevelSuccess,
		Title: "Results",
		Message: fmt.Sprintf("%s of %s rows matched.",
			humanize.Comma(int64(res.Matched)), humanize.Comma(int64(res.Total))),
	}
}

func (f *Form) spec() (filter.Spec, Notice, bool) {
	if !f.kind.IsRange() {
		value := strings.TrimSpace(f.value)
		if value == "" {
			return nil, inputError(MsgMissingValue, errhandling.NewInputError(MsgMissingValue)), false
		}
		spec, err := filter.NewSpec(f.kind, value)
		if err != nil {
			return nil, runError(err), false
		}
		return spec, Notice{}, true
	}

	minText, maxText := strings.TrimSpace(f.min), strings.TrimSpace(f.max)
	if minText == "" || maxText == "" {
		return nil, inputError(MsgMissingRange, errhandling.NewInputError(MsgMissingRange)), false
	}
	lo, errLo := strconv.ParseFloat(minText, 64)
	hi, errHi := strconv.ParseFloat(maxText, 64)
	if errLo != nil || errHi != nil {
		cause := errLo
		if cause == nil {
			cause = errHi
		}
		return nil, inputError(MsgRangeNotNumber, errhandling.NewParseError(MsgRangeNotNumber, cause)), false
	}
	if lo > hi {
		logger.Debug("range minimum exceeds maximum",
			slog.String("kind", f.kind.String()),
			slog.Float64("min", lo),
			slog.Float64("max", hi),
		)
	}

	spec, err := filter.NewRangeSpec(f.kind, lo, hi)
	if err != nil {
		return nil, runError(err), false
	}
	return spec, Notice{}, true
}

func inputError(msg string, err error) Notice {
	return Notice{Level: LevelWarning, Title: "Input Error", Message: msg, Err: err}
}

func runError(err error) Notice {
	return Notice{Level: LevelError, Title: "Error", Message: fmt.Sprintf("An error occurred: %v", err), Err: err}
}

// Clear resets the kind to Region and empties every input, the refinements
// and the result.
func (f *Form) Clear() {
	f.kind = filter.KindRegion
	f.value, f.min, f.max, f.where = "", "", "", ""
	f.script, f.file = "", ""
	f.result = ""
	f.last = nil
}
