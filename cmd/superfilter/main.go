// Package main provides the CLI entry point for superfilter.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Threestaxx/SalesDateFilter/internal/cli"
	"github.com/Threestaxx/SalesDateFilter/internal/config"
	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/internal/persistence"
	"github.com/Threestaxx/SalesDateFilter/internal/runtime"
	"github.com/Threestaxx/SalesDateFilter/internal/ui"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitLoadError       = 4
)

var (
	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries an exit code out of a command. A nil err means the
// message was already printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	logger.CloseLogFile()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "✗ %v\n", ee.err)
		}
		return ee.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitValidationError
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	// Global flags
	configPath string
	dataPath   string
	encoding   string
	delimiter  string
	verbose    bool
	quiet      bool
	logFormat  string
	logFile    string

	// Filter command flags
	kind    string
	value   string
	min     string
	max     string
	where      string
	script     string
	scriptFile string
	preset     string
	format     string
	limit      int
	maxWidth   int
	columns    []string

	// Shell command flags
	stateFile string
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "superfilter",
		Short: "superfilter - filter the Superstore sales dataset",
		Long: `superfilter loads a sales CSV (by default "Sample - Superstore.csv")
and selects the rows matching one filter: Region, Category or State
equality, or an inclusive Sales or Profit range.

Examples:
  # Rows for one region
  superfilter filter --kind Region --value West

  # Sales between 100 and 500, refined by an expression
  superfilter filter --kind "Sales Range" --min 100 --max 500 --where 'Profit < 0'

  # Refine with a JavaScript match(row) function
  superfilter filter --kind Region --value West --script-file losses.js

  # Interactive form
  superfilter shell

  # Check a configuration file
  superfilter validate superfilter.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file (JSON or YAML)")
	pf.StringVarP(&a.dataPath, "data", "d", "", "Dataset CSV path")
	pf.StringVar(&a.encoding, "encoding", "", "Dataset text encoding (default latin1)")
	pf.StringVar(&a.delimiter, "delimiter", "", `Field delimiter (default ",", use "\t" for tab)`)
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	pf.StringVar(&a.logFormat, "log-format", "", "Console log format: human or json")
	pf.StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(a.filterCmd(), a.shellCmd(), a.inspectCmd(), a.validateCmd(), versionCmd(a))
	return root
}

func (a *app) filterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Apply one filter and print the matching rows",
		Long: `Apply one filter to the dataset and print the matching rows.

Use --kind with --value for Region, Category and State, or with --min and
--max for Sales Range and Profit Range. Ranges are inclusive. --preset runs
a filter defined in the configuration file instead.

--where and --script narrow the selected rows further. A script defines
match(row) and keeps the rows for which it returns a truthy value.

When nothing matches, "No data found matching your criteria." is printed
to stderr and the exit code is 0.

Exit codes:
  0 - Filter ran (with or without matches)
  1 - Invalid input or configuration
  2 - Parse errors (configuration syntax, non-numeric --min or --max,
      where expression, script)
  3 - Runtime errors
  4 - Dataset could not be loaded`,
		Args: cobra.NoArgs,
		RunE: a.runFilter,
	}

	f := cmd.Flags()
	f.StringVarP(&a.kind, "kind", "k", "", "Filter kind: Region, Category, Sales Range, Profit Range, State")
	f.StringVar(&a.value, "value", "", "Value for Region, Category and State")
	f.StringVar(&a.min, "min", "", "Range minimum")
	f.StringVar(&a.max, "max", "", "Range maximum")
	f.StringVarP(&a.where, "where", "w", "", "Expression refining the selected rows")
	f.StringVar(&a.script, "script", "", "JavaScript defining match(row), refining the selected rows")
	f.StringVar(&a.scriptFile, "script-file", "", "File with a JavaScript match(row) function")
	f.StringVarP(&a.preset, "preset", "p", "", "Run a preset from the configuration file")
	f.StringVarP(&a.format, "format", "f", "", "Output format: table, csv or json")
	f.IntVarP(&a.limit, "limit", "n", 0, "Print at most this many rows (0 prints all)")
	f.IntVar(&a.maxWidth, "max-width", 0, "Truncate table cells wider than this (0 prints them in full)")
	f.StringSliceVar(&a.columns, "columns", nil, "Columns to print, comma separated")
	return cmd
}

func (a *app) shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive filter form",
		Long: `Start an interactive shell over the loaded dataset.

Select a kind, fill in its fields and run 'filter'. Type 'help' for the
command list. Ctrl-C or Ctrl-D leaves the shell.

With --state-file the form inputs and command history are saved there on
exit and restored on the next start. Without it nothing is written.`,
		Args: cobra.NoArgs,
		RunE: a.runShell,
	}
	cmd.Flags().StringVar(&a.stateFile, "state-file", "", "Save and restore the shell state in this file")
	cmd.Flags().IntVar(&a.maxWidth, "max-width", 0, "Truncate table cells wider than this (0 prints them in full)")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Describe the dataset and the columns behind each filter kind",
		Args:  cobra.NoArgs,
		RunE:  a.runInspect,
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations, bad presets)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: a.runValidate,
	}
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
		},
	}
}

// loadConfig reads --config, or the defaults, and applies flag overrides.
func (a *app) loadConfig(cmd *cobra.Command) (*config.App, error) {
	cfg := config.Default()
	if a.configPath != "" {
		result := config.ParseConfig(a.configPath)
		if len(result.ParseErrors) > 0 {
			cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
			return nil, &exitError{code: ExitParseError}
		}
		if len(result.ValidationErrors) > 0 {
			cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
			return nil, &exitError{code: ExitValidationError}
		}
		converted, err := config.ConvertToApp(result.Data)
		if err != nil {
			return nil, &exitError{code: ExitValidationError, err: fmt.Errorf("%s: %w", a.configPath, err)}
		}
		cfg = converted
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Dataset.Path = a.dataPath
	}
	if flags.Changed("encoding") {
		cfg.Dataset.Encoding = a.encoding
	}
	if flags.Changed("delimiter") {
		cfg.Dataset.Delimiter = a.delimiter
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = a.logFile
	}

	if err := a.setupLogging(cfg.Logging); err != nil {
		return nil, &exitError{code: ExitRuntimeError, err: err}
	}
	return cfg, nil
}

func (a *app) setupLogging(l config.Logging) error {
	level := logger.ParseLevel(l.Level)
	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}
	format := logger.ParseFormat(l.Format)
	if l.File != "" {
		return logger.SetLogFile(l.File, level, format)
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

// openSession loads the dataset, mapping load failures to ExitLoadError.
func (a *app) openSession(cfg *config.App) (*runtime.Session, error) {
	session, err := runtime.Open(cfg)
	if err == nil {
		return session, nil
	}
	switch errhandling.GetErrorCategory(err) {
	case errhandling.CategoryNotFound, errhandling.CategoryEncoding, errhandling.CategoryParse, errhandling.CategoryIO:
		return nil, &exitError{code: ExitLoadError, err: errors.New(cli.DescribeLoadError(cfg.Dataset.Path, err))}
	default:
		return nil, classify(err)
	}
}

// classify maps an error to its exit code.
func classify(err error) error {
	return &exitError{code: exitCode(err), err: err}
}

func exitCode(err error) int {
	switch errhandling.GetErrorCategory(err) {
	case errhandling.CategoryInput, errhandling.CategoryInvalidFilterKind,
		errhandling.CategoryConfig, errhandling.CategorySchema:
		return ExitValidationError
	case errhandling.CategoryParse:
		return ExitParseError
	case errhandling.CategoryNotFound, errhandling.CategoryEncoding:
		return ExitLoadError
	}
	return ExitRuntimeError
}

// tableOptions merges the output configuration with --max-width.
func (a *app) tableOptions(cmd *cobra.Command, out config.Output) cli.TableOptions {
	opts := cli.TableOptions{Limit: out.Limit, Columns: out.Columns, MaxWidth: out.MaxWidth}
	if cmd.Flags().Changed("max-width") {
		opts.MaxWidth = a.maxWidth
	}
	return opts
}

func (a *app) runFilter(cmd *cobra.Command, _ []string) error {
	if a.preset == "" && a.kind == "" {
		return &exitError{code: ExitValidationError, err: errors.New("either --kind or --preset is required")}
	}
	if a.preset != "" && a.kind != "" {
		return &exitError{code: ExitValidationError, err: errors.New("--kind and --preset are mutually exclusive")}
	}
	if a.script != "" && a.scriptFile != "" {
		return &exitError{code: ExitValidationError, err: errors.New("--script and --script-file are mutually exclusive")}
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format = a.format
	}
	opts := a.tableOptions(cmd, cfg.Output)
	if cmd.Flags().Changed("limit") {
		opts.Limit = a.limit
	}
	if cmd.Flags().Changed("columns") {
		opts.Columns = a.columns
	}
	switch format {
	case cli.FormatTable, cli.FormatCSV, cli.FormatJSON:
	default:
		return &exitError{code: ExitValidationError, err: fmt.Errorf("unknown output format %q (want table, csv or json)", format)}
	}

	session, err := a.openSession(cfg)
	if err != nil {
		return err
	}
	if err := cli.ValidateColumns(session.Table(), opts.Columns); err != nil {
		return classify(err)
	}

	var res *runtime.ExecutionResult
	if a.preset != "" {
		res, err = session.RunPreset(a.preset)
		if err != nil {
			return classify(err)
		}
	} else {
		res, err = a.submitForm(session)
		if err != nil {
			return err
		}
	}

	if res.Outcome == filter.OutcomeNoMatch {
		fmt.Fprintln(a.stderr, ui.MsgNoResults)
		return nil
	}
	if err := cli.Render(a.stdout, res.Table, format, opts); err != nil {
		return classify(err)
	}
	if !a.quiet {
		fmt.Fprintln(a.stderr, cli.Summary(res))
	}
	return nil
}

// submitForm drives the filter form from the command-line flags.
func (a *app) submitForm(session *runtime.Session) (*runtime.ExecutionResult, error) {
	kind, err := filter.ParseKind(a.kind)
	if err != nil {
		return nil, classify(err)
	}

	form := ui.NewForm(session, func(*table.Table) string { return "" })
	if err := form.SelectKind(kind); err != nil {
		return nil, classify(err)
	}
	form.SetValue(a.value)
	form.SetMin(a.min)
	form.SetMax(a.max)
	form.SetWhere(a.where)
	switch {
	case a.script != "":
		form.SetScript(a.script)
	case a.scriptFile != "":
		form.SetScriptFile(a.scriptFile)
	}

	notice := form.Submit()
	switch notice.Level {
	case ui.LevelWarning, ui.LevelError:
		if notice.Err == nil {
			return nil, &exitError{code: ExitValidationError, err: errors.New(notice.Message)}
		}
		if notice.Level == ui.LevelWarning {
			return nil, &exitError{code: exitCode(notice.Err), err: errors.New(notice.Message)}
		}
		return nil, classify(notice.Err)
	case ui.LevelInfo:
		return &runtime.ExecutionResult{Kind: kind, Outcome: filter.OutcomeNoMatch}, nil
	}
	return form.Last(), nil
}

func (a *app) runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	session, err := a.openSession(cfg)
	if err != nil {
		return err
	}

	sh := cli.NewShell(session, a.stdout, a.tableOptions(cmd, cfg.Output))
	if a.stateFile != "" {
		sh.SetStore(persistence.NewStateStore(a.stateFile))
	}
	prompter := cli.NewLinePrompter(sh.Complete)
	defer prompter.Close()

	if err := sh.Run(prompter); err != nil {
		return classify(err)
	}
	return nil
}

func (a *app) runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	session, err := a.openSession(cfg)
	if err != nil {
		return err
	}

	sum := session.Inspect()
	w := a.stdout
	fmt.Fprintf(w, "Dataset: %s\n", sum.Path)
	fmt.Fprintf(w, "Rows:    %s\n", humanize.Comma(int64(sum.Rows)))
	fmt.Fprintf(w, "Columns: %d\n", len(sum.Columns))
	if a.verbose {
		for _, col := range sum.Columns {
			fmt.Fprintf(w, "  %-24s %s\n", col.Name, col.Type)
		}
	}

	fmt.Fprintln(w, "Filters:")
	for _, ks := range sum.Kinds {
		if !ks.Present {
			fmt.Fprintf(w, "  %-13s column %q missing\n", ks.Kind, ks.Column)
			continue
		}
		line := fmt.Sprintf("  %-13s %s (%s)", ks.Kind, ks.Column, ks.Type)
		if ks.Kind.IsRange() && ks.Type != table.TypeNumber {
			line += " not numeric"
		}
		if ks.Values != nil {
			line += fmt.Sprintf(": %d values", len(ks.Values))
			if len(ks.Values) <= 8 || a.verbose {
				line += " [" + strings.Join(ks.Values, ", ") + "]"
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func (a *app) runValidate(_ *cobra.Command, args []string) error {
	configPath := args[0]
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating configuration: %s\n", configPath)
	}

	result := config.ParseConfig(configPath)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		return &exitError{code: ExitParseError}
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		return &exitError{code: ExitValidationError}
	}

	cfg, err := config.ConvertToApp(result.Data)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	for _, p := range cfg.Presets {
		if _, err := runtime.ResolvePreset(p); err != nil {
			return classify(err)
		}
		if p.Script != "" {
			if _, err := filter.NewScript(filter.ScriptConfig{Script: p.Script, OnError: p.OnError}); err != nil {
				return classify(fmt.Errorf("preset %q: %w", p.Name, err))
			}
		}
	}

	if !a.quiet {
		fmt.Fprintf(a.stdout, "✓ Configuration is valid (format: %s)\n", result.Format)
		if a.verbose {
			fmt.Fprintf(a.stdout, "  Dataset: %s (%s)\n", cfg.Dataset.Path, cfg.Dataset.Encoding)
			for _, p := range cfg.Presets {
				fmt.Fprintf(a.stdout, "  Preset: %s (%s)\n", p.Name, p.Kind)
			}
		}
	}
	return nil
}
