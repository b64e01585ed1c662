package filter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/Threestaxx/SalesDateFilter/internal/logger"
)

// MaxLogMessageLength caps one console message (8KB).
const MaxLogMessageLength = 8 * 1024

// scriptConsole routes console.log/info/warn/error/debug from a script to
// the package logger, tagged with the row being matched.
type scriptConsole struct {
	row int
}

func newScriptConsole(vm *goja.Runtime) (*scriptConsole, error) {
	c := &scriptConsole{row: -1}

	console := vm.NewObject()
	for name, level := range map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"debug": slog.LevelDebug,
	} {
		level := level
		fn := func(call goja.FunctionCall) goja.Value {
			c.write(level, call.Arguments)
			return goja.Undefined()
		}
		if err := console.Set(name, fn); err != nil {
			return nil, fmt.Errorf("console.Set(%q): %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return nil, fmt.Errorf("runtime.Set(console): %w", err)
	}
	return c, nil
}

func (c *scriptConsole) write(level slog.Level, args []goja.Value) {
	message := formatArgs(args)
	if len(message) > MaxLogMessageLength {
		message = message[:MaxLogMessageLength-3] + "..."
	}

	attrs := []any{
		slog.String("source", "javascript"),
		slog.String("module", "script"),
	}
	if c.row >= 0 {
		attrs = append(attrs, slog.Int("row_index", c.row))
	}

	switch level {
	case slog.LevelDebug:
		logger.Debug(message, attrs...)
	case slog.LevelWarn:
		logger.Warn(message, attrs...)
	case slog.LevelError:
		logger.Error(message, attrs...)
	default:
		logger.Info(message, attrs...)
	}
}

// formatArgs joins arguments the way console.log prints them: strings as
// is, objects and arrays as JSON.
func formatArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(val goja.Value) string {
	if val == nil || goja.IsUndefined(val) {
		return "undefined"
	}
	if goja.IsNull(val) {
		return "null"
	}
	switch v := val.Export().(type) {
	case string:
		return v
	case bool, int64, float64:
		return fmt.Sprintf("%v", v)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			// Cycles and functions do not marshal.
			return "[Object]"
		}
		return string(b)
	default:
		return val.String()
	}
}
