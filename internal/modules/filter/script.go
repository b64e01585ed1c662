package filter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dop251/goja"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// MaxScriptLength is the maximum script size in bytes (100KB).
const MaxScriptLength = 100 * 1024

// ScriptEntryPoint is the function a script must define. It receives one
// row object and returns a truthy value to keep the row.
const ScriptEntryPoint = "match"

// ScriptConfig configures a script refinement.
// Exactly one of Script and ScriptFile must be set.
type ScriptConfig struct {
	// Script is inline JavaScript defining match(row)
	Script string
	// ScriptFile is the path of a JavaScript file defining match(row)
	ScriptFile string
	// OnError is "fail" (default) or "skip"
	OnError string
}

// Script refines a table with a JavaScript predicate run by goja.
// Row values are exposed as object properties, so match(row) can read
// row.Sales or row["Row ID"]; missing cells are null. console.log and its
// siblings write to the application log.
//
// A goja runtime is not goroutine-safe; Apply must not run concurrently on
// the same Script.
type Script struct {
	source  string
	onError string
	vm      *goja.Runtime
	console *scriptConsole
	match   goja.Callable
}

// NewScript loads and compiles the script and checks that it defines
// match(row).
func NewScript(cfg ScriptConfig) (*Script, error) {
	onError, err := parseOnError(cfg.OnError)
	if err != nil {
		return nil, err
	}

	source, err := resolveScriptSource(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, errhandling.NewConfigError("script cannot be empty", nil)
	}
	if len(source) > MaxScriptLength {
		return nil, errhandling.NewConfigError(fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(source), MaxScriptLength), nil)
	}

	vm := goja.New()
	console, err := newScriptConsole(vm)
	if err != nil {
		return nil, errhandling.NewConfigError("script console setup failed", err)
	}
	if _, err := vm.RunString(source); err != nil {
		return nil, errhandling.NewParseError(fmt.Sprintf("script compilation failed: %v", err), err)
	}

	match, ok := goja.AssertFunction(vm.Get(ScriptEntryPoint))
	if !ok {
		return nil, errhandling.NewConfigError(fmt.Sprintf("script must define a %s(row) function", ScriptEntryPoint), nil)
	}

	logger.Debug("script refinement initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", cfg.ScriptFile != ""),
	)

	return &Script{source: source, onError: onError, vm: vm, console: console, match: match}, nil
}

func resolveScriptSource(cfg ScriptConfig) (string, error) {
	if cfg.Script != "" && cfg.ScriptFile != "" {
		return "", errhandling.NewConfigError("cannot specify both 'script' and 'scriptFile' - use only one", nil)
	}
	if cfg.ScriptFile == "" {
		return cfg.Script, nil
	}

	file, err := os.Open(cfg.ScriptFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errhandling.NewNotFoundError(fmt.Sprintf("script file %q does not exist", cfg.ScriptFile), err)
		}
		return "", errhandling.NewIOError(fmt.Sprintf("opening script file %q", cfg.ScriptFile), err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", cfg.ScriptFile),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// One byte over the limit is enough to reject the file.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", errhandling.NewIOError(fmt.Sprintf("reading script file %q", cfg.ScriptFile), err)
	}
	return string(content), nil
}

// Match runs match(row) for one row.
func (s *Script) Match(row table.Row) (bool, error) {
	s.console.row = row.Index
	defer func() { s.console.row = -1 }()

	out, err := s.match(goja.Undefined(), s.vm.ToValue(row.Values))
	if err != nil {
		return false, err
	}
	return out.ToBoolean(), nil
}

// Apply returns the rows of t for which match(row) is truthy. Thrown
// exceptions fail the refinement in "fail" mode and drop the row in "skip"
// mode.
func (s *Script) Apply(t *table.Table) (Result, error) {
	return selectRows(t, "script", s.onError, s.Match)
}
