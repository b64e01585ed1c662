// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the application.
//
// This package provides context helpers for dataset loading and filter logging.
// All helpers use structured logging with consistent field names (snake_case).
//
// The package supports two output formats:
//   - JSON (default): Machine-readable structured logging
//   - Human: Human-readable console output with colors and prefixes
//
// Console output goes to stderr; stdout is reserved for filter results.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// console is the writer used for console logging.
var console io.Writer = os.Stderr

func init() {
	// Initialize with JSON handler for structured logging
	Logger = slog.New(slog.NewJSONHandler(console, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetLevel configures the logging level.
func SetLevel(level slog.Level) {
	Logger = slog.New(slog.NewJSONHandler(console, &slog.HandlerOptions{
		Level: level,
	}))
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithDataset returns a logger with dataset context.
func WithDataset(path string) *slog.Logger {
	return Logger.With("dataset", path)
}

// ParseLevel converts a level name (debug, info, warn, error) to a slog level.
// Unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Load and Filter Context Types
// =============================================================================

// LoadContext describes a dataset load for logging.
type LoadContext struct {
	// Path is the dataset file path (required)
	Path string
	// Encoding is the configured text encoding
	Encoding string
	// Delimiter is the field delimiter
	Delimiter string
}

// FilterContext describes one filter action for logging.
type FilterContext struct {
	// Kind is the filter kind label (Region, Sales Range, ...)
	Kind string
	// Column is the column the kind maps to
	Column string
	// Value is the equality value, empty for range kinds
	Value string
	// Min and Max bound range kinds
	Min, Max *float64
	// Where is the optional refinement expression
	Where string
	// Script reports whether a script refinement ran
	Script bool
}

// ErrorContext contains structured context for error logging.
// Use this with LogError() for consistent, actionable error logs.
type ErrorContext struct {
	// Dataset context
	Path string
	// Operation is what was being done (load, filter, render, config)
	Operation string
	// Kind is the filter kind, if any
	Kind string

	// Error details
	Category     string
	ErrorMessage string
	Err          error // underlying error (for chain)

	// Contextual information
	Line     int
	RowCount int
	Duration time.Duration

	// Additional context as key-value pairs
	Extra map[string]interface{}
}

// =============================================================================
// Load and Filter Helpers
// =============================================================================

// LogLoadStart logs the start of a dataset load.
func LogLoadStart(ctx LoadContext) {
	Logger.Info("dataset load started", loadAttrs(ctx)...)
}

// LogLoadEnd logs the completion of a dataset load.
func LogLoadEnd(ctx LoadContext, rows, columns int, duration time.Duration) {
	attrs := loadAttrs(ctx)
	attrs = append(attrs,
		slog.Int("rows", rows),
		slog.Int("columns", columns),
		slog.Duration("duration", duration),
	)
	Logger.Info("dataset load completed", attrs...)
}

// LogFilter logs the outcome of a filter action.
// matched is the number of rows selected out of total.
func LogFilter(ctx FilterContext, matched, total int, duration time.Duration) {
	attrs := filterAttrs(ctx)
	attrs = append(attrs,
		slog.Int("matched", matched),
		slog.Int("total", total),
		slog.Duration("duration", duration),
	)
	if matched == 0 {
		Logger.Info("filter matched no rows", attrs...)
		return
	}
	Logger.Info("filter completed", attrs...)
}

// LogError logs an error with full context.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 16)

	if errCtx.Path != "" {
		attrs = append(attrs, slog.String("dataset", errCtx.Path))
	}
	if errCtx.Operation != "" {
		attrs = append(attrs, slog.String("operation", errCtx.Operation))
	}
	if errCtx.Kind != "" {
		attrs = append(attrs, slog.String("kind", errCtx.Kind))
	}

	// Error details
	if errCtx.Category != "" {
		attrs = append(attrs, slog.String("error_category", errCtx.Category))
	}
	if errCtx.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", errCtx.ErrorMessage))
	}
	if errCtx.Err != nil {
		attrs = append(attrs, slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)))

		errorChain := []string{errCtx.Err.Error()}
		currentErr := errCtx.Err
		for {
			unwrapped := errors.Unwrap(currentErr)
			if unwrapped == nil {
				break
			}
			errorChain = append(errorChain, unwrapped.Error())
			currentErr = unwrapped
		}
		if len(errorChain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(errorChain, " -> ")))
		}
	}

	if errCtx.Line > 0 {
		attrs = append(attrs, slog.Int("line", errCtx.Line))
	}
	if errCtx.RowCount > 0 {
		attrs = append(attrs, slog.Int("row_count", errCtx.RowCount))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}

	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

func loadAttrs(ctx LoadContext) []any {
	attrs := make([]any, 0, 8)
	attrs = append(attrs, slog.String("dataset", ctx.Path))
	if ctx.Encoding != "" {
		attrs = append(attrs, slog.String("encoding", ctx.Encoding))
	}
	if ctx.Delimiter != "" {
		attrs = append(attrs, slog.String("delimiter", ctx.Delimiter))
	}
	return attrs
}

func filterAttrs(ctx FilterContext) []any {
	attrs := make([]any, 0, 12)
	attrs = append(attrs, slog.String("kind", ctx.Kind))
	if ctx.Column != "" {
		attrs = append(attrs, slog.String("column", ctx.Column))
	}
	if ctx.Value != "" {
		attrs = append(attrs, slog.String("value", ctx.Value))
	}
	if ctx.Min != nil {
		attrs = append(attrs, slog.Float64("min", *ctx.Min))
	}
	if ctx.Max != nil {
		attrs = append(attrs, slog.Float64("max", *ctx.Max))
	}
	if ctx.Where != "" {
		attrs = append(attrs, slog.String("where", ctx.Where))
	}
	if ctx.Script {
		attrs = append(attrs, slog.Bool("script", true))
	}
	return attrs
}

// =============================================================================
// Human-Readable Log Format Support
// =============================================================================

// OutputFormat represents the log output format
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a human-readable console format with colors and prefixes
	FormatHuman
)

// ParseFormat converts a format name (json, human) to an OutputFormat.
func ParseFormat(name string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(name), "human") {
		return FormatHuman
	}
	return FormatJSON
}

// SetFormat sets the log output format.
func SetFormat(format OutputFormat) {
	SetLevelAndFormat(slog.LevelInfo, format)
}

// SetLevelAndFormat sets both the log level and format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(consoleHandler(level, format))
}

func consoleHandler(level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(console, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(console),
		})
	}
	return slog.NewJSONHandler(console, &slog.HandlerOptions{
		Level: level,
	})
}

// isTerminal returns true if the writer is a terminal (supports colors)
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// HumanHandlerOptions configures the human-readable log handler.
type HumanHandlerOptions struct {
	// Level is the minimum log level to output
	Level slog.Level
	// UseColors enables ANSI color codes (auto-detected by default)
	UseColors bool
}

// HumanHandler is a slog handler that outputs human-readable log messages.
type HumanHandler struct {
	opts   HumanHandlerOptions
	writer io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewHumanHandler creates a new human-readable log handler.
func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{Level: slog.LevelInfo}
	}
	return &HumanHandler{
		opts:   *opts,
		writer: w,
	}
}

// Enabled returns true if the handler is enabled for the given level.
func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle outputs a log record in human-readable format.
func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	sb.WriteString(r.Time.Format("15:04:05"))
	sb.WriteString(" ")

	sb.WriteString(h.levelPrefixWithMessage(r.Level, r.Message))
	sb.WriteString(" ")

	sb.WriteString(r.Message)

	var keyAttrs []string
	r.Attrs(func(a slog.Attr) bool {
		keyAttrs = append(keyAttrs, h.formatAttr(a))
		return true
	})
	for _, a := range h.attrs {
		keyAttrs = append(keyAttrs, h.formatAttr(a))
	}

	// Append important attributes inline (up to 6)
	const maxInline = 6
	if len(keyAttrs) > 0 {
		sb.WriteString(" ")
		n := len(keyAttrs)
		if n > maxInline {
			n = maxInline
		}
		sb.WriteString(strings.Join(keyAttrs[:n], " "))
		if len(keyAttrs) > maxInline {
			sb.WriteString(fmt.Sprintf(" (+%d more)", len(keyAttrs)-maxInline))
		}
	}

	sb.WriteString("\n")
	_, err := h.writer.Write([]byte(sb.String()))
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandler := &HumanHandler{
		opts:   h.opts,
		writer: h.writer,
		attrs:  make([]slog.Attr, len(h.attrs)+len(attrs)),
		groups: h.groups,
	}
	copy(newHandler.attrs, h.attrs)
	copy(newHandler.attrs[len(h.attrs):], attrs)
	return newHandler
}

// WithGroup returns a new handler with the given group name.
func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return &HumanHandler{
		opts:   h.opts,
		writer: h.writer,
		attrs:  h.attrs,
		groups: append(h.groups, name),
	}
}

// levelPrefixWithMessage returns a human-readable prefix for the log level, using ✓ for success messages.
func (h *HumanHandler) levelPrefixWithMessage(level slog.Level, message string) string {
	lower := strings.ToLower(message)
	isSuccess := strings.Contains(lower, "completed") ||
		strings.Contains(lower, "succeeded") ||
		strings.Contains(lower, "success")

	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorYellow = "\033[33m"
		colorGreen  = "\033[32m"
		colorCyan   = "\033[36m"
	)

	var prefix, color string
	switch {
	case level >= slog.LevelError:
		prefix = "✗"
		color = colorRed
	case level >= slog.LevelWarn:
		prefix = "⚠"
		color = colorYellow
	case level >= slog.LevelInfo:
		if isSuccess {
			prefix = "✓"
			color = colorGreen
		} else {
			prefix = "ℹ"
			color = colorCyan
		}
	default:
		prefix = "·"
		color = colorReset
	}

	if h.opts.UseColors {
		return color + prefix + colorReset
	}
	return prefix
}

// formatAttr formats a single attribute for display.
func (h *HumanHandler) formatAttr(a slog.Attr) string {
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	value := a.Value.Any()

	if d, ok := value.(time.Duration); ok {
		return fmt.Sprintf("%s=%s", key, formatDuration(d))
	}
	if f, ok := value.(float64); ok {
		return fmt.Sprintf("%s=%.2f", key, f)
	}

	return fmt.Sprintf("%s=%v", key, value)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// =============================================================================
// Log File Output Support
// =============================================================================

// logFile holds the currently open log file (if any)
var logFile *os.File

const (
	// maxLogFileSize is the maximum size of a log file before rotation (10MB)
	maxLogFileSize = 10 * 1024 * 1024
)

// rotateLogFile renames the log file with a timestamp suffix if it exceeds the maximum size.
func rotateLogFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking log file size: %w", err)
	}

	if info.Size() >= maxLogFileSize {
		rotatedPath := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102-150405"))
		if err := os.Rename(path, rotatedPath); err != nil {
			return fmt.Errorf("rotating log file: %w", err)
		}
	}

	return nil
}

// SetLogFile configures logging to write to both the console and the specified file.
// File logs are always in JSON format (machine-readable).
// The file is rotated if it exceeds 10MB (renamed with timestamp).
func SetLogFile(path string, level slog.Level, consoleFormat OutputFormat) error {
	CloseLogFile()

	if err := rotateLogFile(path); err != nil {
		Warn("log rotation failed", slog.String("error", err.Error()))
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: level,
	})

	Logger = slog.New(&dualHandler{
		console: consoleHandler(level, consoleFormat),
		file:    fileHandler,
	})

	Debug("log file opened",
		slog.String("path", path),
		slog.String("console_format", formatName(consoleFormat)),
	)

	return nil
}

// CloseLogFile closes the current log file if one is open.
func CloseLogFile() {
	if logFile != nil {
		if err := logFile.Sync(); err != nil {
			Warn("failed to sync log file", slog.String("error", err.Error()))
		}
		if err := logFile.Close(); err != nil {
			Warn("failed to close log file", slog.String("error", err.Error()))
		}
		logFile = nil
	}
}

// formatName returns the name of the output format.
func formatName(f OutputFormat) string {
	switch f {
	case FormatHuman:
		return "human"
	default:
		return "json"
	}
}

// dualHandler is a slog.Handler that writes to both console and file handlers.
type dualHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (d *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.console.Enabled(ctx, level) || d.file.Enabled(ctx, level)
}

func (d *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	if d.console.Enabled(ctx, r.Level) {
		if err := d.console.Handle(ctx, r); err != nil {
			return err
		}
	}
	if d.file.Enabled(ctx, r.Level) {
		if err := d.file.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (d *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		console: d.console.WithAttrs(attrs),
		file:    d.file.WithAttrs(attrs),
	}
}

func (d *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		console: d.console.WithGroup(name),
		file:    d.file.WithGroup(name),
	}
}
