package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/internal/modules/filter"
	"github.com/Threestaxx/SalesDateFilter/internal/persistence"
	"github.com/Threestaxx/SalesDateFilter/internal/runtime"
	"github.com/Threestaxx/SalesDateFilter/internal/ui"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Prompter reads lines from the user.
type Prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

type linePrompter struct {
	*liner.State
}

// NewLinePrompter returns a terminal prompter with history and tab completion.
// The caller must Close it to restore the terminal.
func NewLinePrompter(complete func(line string) []string) Prompter {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	if complete != nil {
		st.SetCompleter(complete)
	}
	return linePrompter{State: st}
}

type command struct {
	usage string
	help  string
	run   func(sh *Shell, arg string) bool
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"kind":       {"kind <name>", "select the filter kind", (*Shell).cmdKind},
		"kinds":      {"kinds", "list filter kinds", (*Shell).cmdKinds},
		"value":      {"value <text>", "set the value for Region, Category or State", (*Shell).cmdValue},
		"min":        {"min <number>", "set the range minimum", (*Shell).cmdMin},
		"max":        {"max <number>", "set the range maximum", (*Shell).cmdMax},
		"where":      {"where [expr]", "set or clear the refinement expression", (*Shell).cmdWhere},
		"script":     {"script [js]", "set or clear an inline match(row) script", (*Shell).cmdScript},
		"scriptfile": {"scriptfile [path]", "set or clear a match(row) script file", (*Shell).cmdScriptFile},
		"filter":     {"filter", "apply the filter", (*Shell).cmdFilter},
		"clear":      {"clear", "reset the form and the result", (*Shell).cmdClear},
		"show":       {"show", "print the form and the last result", (*Shell).cmdShow},
		"values":     {"values [kind]", "list distinct values for a kind", (*Shell).cmdValues},
		"presets":    {"presets", "list configured presets", (*Shell).cmdPresets},
		"preset":     {"preset <name>", "run a configured preset", (*Shell).cmdPreset},
		"help":       {"help", "show this help", (*Shell).cmdHelp},
		"quit":       {"quit", "leave the shell", (*Shell).cmdQuit},
	}
	commands["run"] = commands["filter"]
	commands["exit"] = commands["quit"]
}

// Shell is an interactive front end over a form and a session.
type Shell struct {
	session *runtime.Session
	form    *ui.Form
	out     io.Writer
	opts    TableOptions
	store   *persistence.StateStore
	history []string
}

// NewShell creates a shell writing to out.
func NewShell(session *runtime.Session, out io.Writer, opts TableOptions) *Shell {
	sh := &Shell{session: session, out: out, opts: opts}
	sh.form = ui.NewForm(session, func(t *table.Table) string {
		return RenderTable(t, sh.opts)
	})
	return sh
}

// Form returns the shell's form.
func (sh *Shell) Form() *ui.Form { return sh.form }

// SetStore enables saving the form and history to store between runs.
// Without a store the shell starts from defaults and saves nothing.
func (sh *Shell) SetStore(store *persistence.StateStore) { sh.store = store }

// Run reads and executes commands until quit, Ctrl-C or end of input.
func (sh *Shell) Run(p Prompter) error {
	sh.restore(p)
	defer sh.save()

	fmt.Fprintf(sh.out, "Loaded %d rows from %s. Type 'help' for commands.\n",
		sh.session.Table().Len(), sh.session.Path())
	for {
		line, err := p.Prompt(sh.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(sh.out)
			return nil
		}
		if err != nil {
			return errhandling.NewIOError("failed to read input", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p.AppendHistory(line)
		sh.history = append(sh.history, line)
		if sh.Execute(line) {
			return nil
		}
	}
}

// restore loads saved history and, for the same dataset, the form inputs.
func (sh *Shell) restore(p Prompter) {
	if sh.store == nil {
		return
	}
	state, err := sh.store.Load()
	if err != nil {
		logger.Warn("ignoring saved shell state", "path", sh.store.Path(), "error", err.Error())
		return
	}
	if state == nil {
		return
	}

	for _, line := range state.History {
		p.AppendHistory(line)
	}
	sh.history = append(sh.history, state.History...)

	if state.Dataset != sh.session.Path() {
		return
	}
	if k, err := filter.ParseKind(state.Kind); err == nil {
		_ = sh.form.SelectKind(k)
	}
	sh.form.SetValue(state.Value)
	sh.form.SetMin(state.Min)
	sh.form.SetMax(state.Max)
	sh.form.SetWhere(state.Where)
	switch {
	case state.Script != "":
		sh.form.SetScript(state.Script)
	case state.ScriptFile != "":
		sh.form.SetScriptFile(state.ScriptFile)
	}
}

func (sh *Shell) save() {
	if sh.store == nil {
		return
	}
	f := sh.form
	err := sh.store.Save(&persistence.State{
		Dataset: sh.session.Path(),
		Kind:    f.Kind().String(),
		Value:   f.Value(),
		Min:     f.Min(),
		Max:     f.Max(),
		Where:      f.Where(),
		Script:     f.Script(),
		ScriptFile: f.ScriptFile(),
		History:    sh.history,
	})
	if err != nil {
		logger.Warn("failed to save shell state", "path", sh.store.Path(), "error", err.Error())
	}
}

func (sh *Shell) prompt() string {
	return fmt.Sprintf("superfilter[%s]> ", sh.form.Kind())
}

// Execute runs one command line. It reports whether the shell should exit.
func (sh *Shell) Execute(line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		fmt.Fprintf(sh.out, "unknown command %q, type 'help'\n", name)
		return false
	}
	return cmd.run(sh, strings.TrimSpace(arg))
}

// Complete suggests completions for a partial command line.
func (sh *Shell) Complete(line string) []string {
	name, arg, hasArg := strings.Cut(line, " ")
	if !hasArg {
		var out []string
		for n := range commands {
			if strings.HasPrefix(n, strings.ToLower(name)) {
				out = append(out, n)
			}
		}
		sort.Strings(out)
		return out
	}

	var candidates []string
	switch strings.ToLower(name) {
	case "kind", "values":
		for _, k := range filter.Kinds() {
			candidates = append(candidates, k.String())
		}
	case "value":
		candidates = sh.session.Values(sh.form.Kind())
	case "preset":
		for _, p := range sh.session.Presets() {
			candidates = append(candidates, p.Name)
		}
	default:
		return nil
	}

	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), strings.ToLower(arg)) {
			out = append(out, name+" "+c)
		}
	}
	return out
}

func (sh *Shell) notice(n ui.Notice) {
	fmt.Fprintf(sh.out, "[%s] %s\n", n.Title, n.Message)
}

func (sh *Shell) cmdKind(arg string) bool {
	if arg == "" {
		fmt.Fprintf(sh.out, "kind: %s\n", sh.form.Kind())
		return false
	}
	k, err := filter.ParseKind(arg)
	if err == nil {
		err = sh.form.SelectKind(k)
	}
	if err != nil {
		fmt.Fprintf(sh.out, "%v\n", err)
		return false
	}
	fmt.Fprintf(sh.out, "kind: %s (fields: %s)\n", k, fieldList(sh.form.Fields()))
	return false
}

func (sh *Shell) cmdKinds(string) bool {
	for _, k := range filter.Kinds() {
		marker := " "
		if k == sh.form.Kind() {
			marker = "*"
		}
		fmt.Fprintf(sh.out, "%s %s\n", marker, k)
	}
	return false
}

func (sh *Shell) cmdValue(arg string) bool {
	sh.form.SetValue(arg)
	return false
}

func (sh *Shell) cmdMin(arg string) bool {
	sh.form.SetMin(arg)
	return false
}

func (sh *Shell) cmdMax(arg string) bool {
	sh.form.SetMax(arg)
	return false
}

func (sh *Shell) cmdWhere(arg string) bool {
	sh.form.SetWhere(arg)
	return false
}

func (sh *Shell) cmdScript(arg string) bool {
	sh.form.SetScript(arg)
	return false
}

func (sh *Shell) cmdScriptFile(arg string) bool {
	sh.form.SetScriptFile(arg)
	return false
}

func (sh *Shell) cmdFilter(string) bool {
	n := sh.form.Submit()
	sh.notice(n)
	if n.Level == ui.LevelSuccess {
		fmt.Fprint(sh.out, sh.form.Result())
	}
	return false
}

func (sh *Shell) cmdClear(string) bool {
	sh.form.Clear()
	fmt.Fprintln(sh.out, "cleared")
	return false
}

func (sh *Shell) cmdShow(string) bool {
	f := sh.form
	fmt.Fprintf(sh.out, "kind:  %s\n", f.Kind())
	for _, field := range f.Fields() {
		switch field {
		case ui.FieldValue:
			fmt.Fprintf(sh.out, "value: %q\n", f.Value())
		case ui.FieldMin:
			fmt.Fprintf(sh.out, "min:   %q\n", f.Min())
		case ui.FieldMax:
			fmt.Fprintf(sh.out, "max:   %q\n", f.Max())
		}
	}
	if f.Where() != "" {
		fmt.Fprintf(sh.out, "where: %s\n", f.Where())
	}
	switch {
	case f.Script() != "":
		fmt.Fprintf(sh.out, "script: %s\n", f.Script())
	case f.ScriptFile() != "":
		fmt.Fprintf(sh.out, "script file: %s\n", f.ScriptFile())
	}
	if f.Last() != nil {
		fmt.Fprintln(sh.out, Summary(f.Last()))
		fmt.Fprint(sh.out, f.Result())
	}
	return false
}

func (sh *Shell) cmdValues(arg string) bool {
	kind := sh.form.Kind()
	if arg != "" {
		k, err := filter.ParseKind(arg)
		if err != nil {
			fmt.Fprintf(sh.out, "%v\n", err)
			return false
		}
		kind = k
	}
	values := sh.session.Values(kind)
	if len(values) == 0 {
		fmt.Fprintf(sh.out, "no values for %s\n", kind)
		return false
	}
	for _, v := range values {
		fmt.Fprintln(sh.out, v)
	}
	return false
}

func (sh *Shell) cmdPresets(string) bool {
	presets := sh.session.Presets()
	if len(presets) == 0 {
		fmt.Fprintln(sh.out, "no presets configured")
		return false
	}
	for _, p := range presets {
		fmt.Fprintf(sh.out, "%s (%s)\n", p.Name, p.Kind)
	}
	return false
}

func (sh *Shell) cmdPreset(arg string) bool {
	if arg == "" {
		fmt.Fprintln(sh.out, "usage: preset <name>")
		return false
	}
	res, err := sh.session.RunPreset(arg)
	if err != nil {
		sh.notice(ui.Notice{Level: ui.LevelError, Title: "Error", Message: fmt.Sprintf("An error occurred: %v", err)})
		return false
	}
	if res.Outcome == filter.OutcomeNoMatch {
		sh.notice(ui.Notice{Level: ui.LevelInfo, Title: "No Results", Message: ui.MsgNoResults})
		return false
	}
	fmt.Fprintln(sh.out, Summary(res))
	fmt.Fprint(sh.out, RenderTable(res.Table, sh.opts))
	return false
}

func (sh *Shell) cmdHelp(string) bool {
	names := make([]string, 0, len(commands))
	for name, cmd := range commands {
		if strings.HasPrefix(cmd.usage, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(sh.out, "  %-18s %s\n", cmd.usage, cmd.help)
	}
	return false
}

func (sh *Shell) cmdQuit(string) bool {
	return true
}

func fieldList(fields []ui.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
