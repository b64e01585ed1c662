// Package runtime holds a loaded dataset and executes filter actions on it.
// It orchestrates load, filter and refinement, and logs each step.
package runtime

import (
	"fmt"
	"time"

	"github.com/Threestaxx/SalesDateFilter/internal/config"
	"github.com/Threestaxx/SalesDateFilter/internal/dataset"
	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// LoadFunc reads a dataset into a table.
type LoadFunc func(path string, opts dataset.Options) (*table.Table, error)

// Refinement narrows the rows a filter selected. Where is an expr
// expression, Script or ScriptFile a JavaScript match(row) predicate; each
// is skipped when empty. OnError applies to both.
type Refinement struct {
	Where      string
	Script     string
	ScriptFile string
	OnError    string
}

// IsZero reports whether r refines nothing.
func (r Refinement) IsZero() bool {
	return r.Where == "" && r.Script == "" && r.ScriptFile == ""
}

// ExecutionResult describes one filter action.
type ExecutionResult struct {
	// Kind is the filter kind that ran
	Kind filter.Kind
	// Refinement is what narrowed the filter, if anything
	Refinement Refinement
	// Outcome is OutcomeNoMatch when no row was selected
	Outcome filter.Outcome
	// Table holds the selected rows
	Table *table.Table
	// Matched is the number of selected rows
	Matched int
	// Total is the number of rows in the loaded dataset
	Total int
	// StartedAt is when the action started
	StartedAt time.Time
	// Duration is how long the action took
	Duration time.Duration
}

// Session owns a loaded table and the engine that filters it.
// The table is read-only for the life of the session.
type Session struct {
	path   string
	table  *table.Table
	engine *filter.Engine
	config *config.App
}

// Open loads the dataset named by cfg and returns a session over it.
func Open(cfg *config.App) (*Session, error) {
	return OpenWith(cfg, dataset.Load)
}

// OpenWith is Open with a custom loader.
func OpenWith(cfg *config.App, load LoadFunc) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	delimiter, err := dataset.ParseDelimiter(cfg.Dataset.Delimiter)
	if err != nil {
		return nil, errhandling.NewConfigError(err.Error(), err)
	}

	loadCtx := logger.LoadContext{
		Path:      cfg.Dataset.Path,
		Encoding:  cfg.Dataset.Encoding,
		Delimiter: cfg.Dataset.Delimiter,
	}
	logger.LogLoadStart(loadCtx)

	startedAt := time.Now()
	tbl, err := load(cfg.Dataset.Path, dataset.Options{
		Encoding:  cfg.Dataset.Encoding,
		Delimiter: delimiter,
	})
	duration := time.Since(startedAt)
	if err != nil {
		classified := errhandling.ClassifyError(err)
		logger.LogError("dataset load failed", logger.ErrorContext{
			Path:         cfg.Dataset.Path,
			Operation:    "load",
			Category:     string(classified.Category),
			ErrorMessage: classified.Message,
			Err:          err,
			Duration:     duration,
		})
		return nil, err
	}
	logger.LogLoadEnd(loadCtx, tbl.Len(), len(tbl.Columns()), duration)

	s := NewSession(tbl, columnsFrom(cfg.Columns))
	s.path = cfg.Dataset.Path
	s.config = cfg
	return s, nil
}

// NewSession wraps an already loaded table.
func NewSession(tbl *table.Table, columns filter.Columns) *Session {
	return &Session{
		table:  tbl,
		engine: filter.NewEngine(columns),
	}
}

func columnsFrom(c config.Columns) filter.Columns {
	return filter.Columns{
		Region:   c.Region,
		Category: c.Category,
		State:    c.State,
		Sales:    c.Sales,
		Profit:   c.Profit,
	}
}

// Path returns the dataset path, empty for sessions built with NewSession.
func (s *Session) Path() string { return s.path }

// Table returns the loaded table.
func (s *Session) Table() *table.Table { return s.table }

// Presets returns the configured presets.
func (s *Session) Presets() []config.Preset {
	if s.config == nil {
		return nil
	}
	return s.config.Presets
}

// Run applies spec and then the refinement, expression first.
// Refinement errors fail the action unless refine.OnError is "skip".
func (s *Session) Run(spec filter.Spec, refine Refinement) (*ExecutionResult, error) {
	return s.run(spec, refine)
}

// RunPreset runs the named preset.
func (s *Session) RunPreset(name string) (*ExecutionResult, error) {
	if s.config == nil {
		return nil, errhandling.NewInputError(fmt.Sprintf("unknown preset %q", name))
	}
	p, ok := s.config.Preset(name)
	if !ok {
		return nil, errhandling.NewInputError(fmt.Sprintf("unknown preset %q", name))
	}
	spec, err := ResolvePreset(p)
	if err != nil {
		return nil, err
	}
	return s.run(spec, Refinement{
		Where:      p.Where,
		Script:     p.Script,
		ScriptFile: p.ScriptFile,
		OnError:    p.OnError,
	})
}

func (s *Session) run(spec filter.Spec, refine Refinement) (*ExecutionResult, error) {
	if spec == nil {
		return nil, errhandling.NewInvalidFilterKindError("<nil>")
	}

	startedAt := time.Now()
	fctx := s.filterContext(spec, refine)

	modules, err := s.modules(spec, refine)
	if err != nil {
		s.logFailure(fctx, err, time.Since(startedAt))
		return nil, err
	}

	res, err := filter.Chain(s.table, modules...)
	duration := time.Since(startedAt)
	if err != nil {
		s.logFailure(fctx, err, duration)
		return nil, err
	}

	logger.LogFilter(fctx, res.Matched(), s.table.Len(), duration)

	return &ExecutionResult{
		Kind:       spec.Kind(),
		Refinement: refine,
		Outcome:    res.Outcome,
		Table:      res.Table,
		Matched:    res.Matched(),
		Total:      s.table.Len(),
		StartedAt:  startedAt,
		Duration:   duration,
	}, nil
}

// modules builds the chain for one action: the bound spec, then the where
// expression, then the script.
func (s *Session) modules(spec filter.Spec, refine Refinement) ([]filter.Module, error) {
	modules := []filter.Module{s.engine.Bind(spec)}
	if refine.Where != "" {
		w, err := filter.NewWhere(refine.Where, refine.OnError)
		if err != nil {
			return nil, err
		}
		modules = append(modules, w)
	}
	if refine.Script != "" || refine.ScriptFile != "" {
		sc, err := filter.NewScript(filter.ScriptConfig{
			Script:     refine.Script,
			ScriptFile: refine.ScriptFile,
			OnError:    refine.OnError,
		})
		if err != nil {
			return nil, err
		}
		modules = append(modules, sc)
	}
	return modules, nil
}

func (s *Session) logFailure(fctx logger.FilterContext, err error, duration time.Duration) {
	classified := errhandling.ClassifyError(err)
	logger.LogError("filter failed", logger.ErrorContext{
		Path:         s.path,
		Operation:    "filter",
		Kind:         fctx.Kind,
		Category:     string(classified.Category),
		ErrorMessage: classified.Message,
		Err:          err,
		RowCount:     s.table.Len(),
		Duration:     duration,
	})
}

func (s *Session) filterContext(spec filter.Spec, refine Refinement) logger.FilterContext {
	params := filter.ParamsOf(spec)
	return logger.FilterContext{
		Kind:   spec.Kind().String(),
		Column: s.engine.Columns().For(spec.Kind()),
		Value:  params.Value,
		Min:    params.Min,
		Max:    params.Max,
		Where:  refine.Where,
		Script: refine.Script != "" || refine.ScriptFile != "",
	}
}

// ResolvePreset turns a configured preset into a filter spec.
func ResolvePreset(p config.Preset) (filter.Spec, error) {
	kind, err := filter.ParseKind(p.Kind)
	if err != nil {
		return nil, errhandling.NewConfigError(fmt.Sprintf("preset %q: unknown kind %q", p.Name, p.Kind), err)
	}

	if kind.IsRange() {
		if p.Min == nil || p.Max == nil {
			return nil, errhandling.NewConfigError(fmt.Sprintf("preset %q: %s needs both min and max", p.Name, kind), nil)
		}
		return filter.NewRangeSpec(kind, *p.Min, *p.Max)
	}

	if p.Value == "" {
		return nil, errhandling.NewConfigError(fmt.Sprintf("preset %q: %s needs a value", p.Name, kind), nil)
	}
	return filter.NewSpec(kind, p.Value)
}
