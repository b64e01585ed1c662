// Package filter implements the filter engine: the closed set of filter
// kinds, their application to tables, and optional expression refinement.
package filter

import (
	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Module produces a filtered view of a table.
type Module interface {
	Apply(t *table.Table) (Result, error)
}

type boundSpec struct {
	engine *Engine
	spec   Spec
}

func (b boundSpec) Apply(t *table.Table) (Result, error) {
	return b.engine.Apply(t, b.spec)
}

// Bind fixes spec to the engine so it can run as a Module.
func (e *Engine) Bind(spec Spec) Module {
	return boundSpec{engine: e, spec: spec}
}

// Chain applies modules in order, each to the previous result.
// It stops at the first error or the first no-match.
func Chain(t *table.Table, modules ...Module) (Result, error) {
	if t == nil {
		return Result{}, errhandling.NewSchemaError("no table loaded")
	}
	res := resultOf(t, allPositions(t))
	for _, m := range modules {
		if m == nil {
			continue
		}
		next, err := m.Apply(res.Table)
		if err != nil {
			return Result{}, err
		}
		res = next
		if res.Outcome == OutcomeNoMatch {
			break
		}
	}
	return res, nil
}

func allPositions(t *table.Table) []int {
	positions := make([]int, t.Len())
	for i := range positions {
		positions[i] = i
	}
	return positions
}
