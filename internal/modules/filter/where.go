package filter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Error handling modes for row evaluation failures.
const (
	OnErrorFail = "fail"
	OnErrorSkip = "skip"
)

// Where refines a table with a boolean expression evaluated per row.
// Each row's column values are the expression environment; columns whose
// names are not identifiers are reachable through $env["Row ID"].
type Where struct {
	expression string
	onError    string
	program    *vm.Program
}

// NewWhere compiles expression. An empty expression keeps every row.
func NewWhere(expression, onError string) (*Where, error) {
	onError, err := parseOnError(onError)
	if err != nil {
		return nil, err
	}

	w := &Where{expression: strings.TrimSpace(expression), onError: onError}
	if w.expression == "" {
		return w, nil
	}

	// Unknown column names evaluate as nil.
	program, err := expr.Compile(w.expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, errhandling.NewParseError(fmt.Sprintf("invalid where expression %q: %v", w.expression, err), err)
	}
	w.program = program
	return w, nil
}

// String returns the source expression.
func (w *Where) String() string {
	return w.expression
}

// Match evaluates the expression against one row.
func (w *Where) Match(row table.Row) (bool, error) {
	if w.program == nil {
		return true, nil
	}
	out, err := expr.Run(w.program, row.Values)
	if err != nil {
		return false, err
	}
	return truthy(out), nil
}

// Apply returns the rows of t for which the expression holds.
// Evaluation errors fail the whole refinement in "fail" mode and drop the
// row in "skip" mode.
func (w *Where) Apply(t *table.Table) (Result, error) {
	return selectRows(t, "where", w.onError, w.Match)
}

func parseOnError(onError string) (string, error) {
	switch onError {
	case "":
		return OnErrorFail, nil
	case OnErrorFail, OnErrorSkip:
		return onError, nil
	default:
		return "", errhandling.NewConfigError(fmt.Sprintf("invalid onError mode %q (expected %q or %q)", onError, OnErrorFail, OnErrorSkip), nil)
	}
}

// selectRows keeps the rows of t for which match holds. module names the
// caller in errors and logs.
func selectRows(t *table.Table, module, onError string, match func(table.Row) (bool, error)) (Result, error) {
	if t == nil {
		return Result{}, errhandling.NewSchemaError("no table loaded")
	}

	var positions []int
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		ok, err := match(row)
		if err != nil {
			if onError == OnErrorSkip {
				logger.Warn("skipping row due to evaluation error",
					slog.String("module", module),
					slog.Int("row_index", row.Index),
					slog.String("error", err.Error()),
				)
				continue
			}
			return Result{}, errhandling.NewParseError(fmt.Sprintf("%s evaluation failed at row %d: %v", module, row.Index, err), err)
		}
		if ok {
			positions = append(positions, i)
		}
	}
	return resultOf(t, positions), nil
}

// truthy converts an expression result to a boolean.
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
