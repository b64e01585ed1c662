package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/runtime"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// TableOptions controls which part of a table is rendered.
type TableOptions struct {
	// Limit caps the number of rows shown; 0 shows all
	Limit int
	// Columns restricts and orders the columns shown; empty shows all
	Columns []string
	// MaxWidth truncates table cells wider than this many terminal columns;
	// 0 prints cells in full
	MaxWidth int
}

// Render writes t to w in the named format.
func Render(w io.Writer, t *table.Table, format string, opts TableOptions) error {
	switch format {
	case "", FormatTable:
		_, err := io.WriteString(w, RenderTable(t, opts))
		return err
	case FormatCSV:
		return WriteCSV(w, t, opts)
	case FormatJSON:
		return WriteJSON(w, t, opts)
	default:
		return errhandling.NewInputError(fmt.Sprintf("unknown output format %q (want table, csv or json)", format))
	}
}

// ValidateColumns reports the first requested column missing from t.
func ValidateColumns(t *table.Table, columns []string) error {
	for _, name := range columns {
		if _, ok := t.Column(name); !ok {
			return errhandling.NewInputError(fmt.Sprintf("unknown column %q", name))
		}
	}
	return nil
}

func selectColumns(t *table.Table, names []string) []table.Column {
	if len(names) == 0 {
		return t.Columns()
	}
	cols := make([]table.Column, 0, len(names))
	for _, name := range names {
		if col, ok := t.Column(name); ok {
			cols = append(cols, col)
		}
	}
	return cols
}

func shownRows(t *table.Table, limit int) int {
	n := t.Len()
	if limit > 0 && limit < n {
		return limit
	}
	return n
}

// RenderTable formats t as an aligned text grid. The first column holds the
// source row index and number cells are right aligned.
func RenderTable(t *table.Table, opts TableOptions) string {
	cols := selectColumns(t, opts.Columns)
	n := shownRows(t, opts.Limit)

	cells := make([][]string, n)
	index := make([]string, n)
	indexWidth := 0
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = runewidth.StringWidth(col.Name)
	}

	for r := 0; r < n; r++ {
		row := t.Row(r)
		index[r] = strconv.Itoa(row.Index)
		indexWidth = max(indexWidth, len(index[r]))
		cells[r] = make([]string, len(cols))
		for c, col := range cols {
			s := row.Text(col.Name)
			if opts.MaxWidth > 0 {
				s = runewidth.Truncate(s, opts.MaxWidth, "...")
			}
			cells[r][c] = s
			widths[c] = max(widths[c], runewidth.StringWidth(s))
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", indexWidth))
	for c, col := range cols {
		b.WriteString("  ")
		b.WriteString(align(col.Name, widths[c], col.Type))
	}
	b.WriteString("\n")

	for r := 0; r < n; r++ {
		b.WriteString(runewidth.FillLeft(index[r], indexWidth))
		for c, col := range cols {
			b.WriteString("  ")
			b.WriteString(align(cells[r][c], widths[c], col.Type))
		}
		b.WriteString("\n")
	}

	if n < t.Len() {
		fmt.Fprintf(&b, "... %s more rows\n", humanize.Comma(int64(t.Len()-n)))
	}
	fmt.Fprintf(&b, "\n[%d rows x %d columns]\n", t.Len(), len(cols))
	return b.String()
}

func align(s string, width int, typ table.ColumnType) string {
	if typ == table.TypeNumber {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

// WriteCSV writes the header and rows of t as CSV.
func WriteCSV(w io.Writer, t *table.Table, opts TableOptions) error {
	cols := selectColumns(t, opts.Columns)
	cw := csv.NewWriter(w)

	record := make([]string, len(cols))
	for i, col := range cols {
		record[i] = col.Name
	}
	if err := cw.Write(record); err != nil {
		return errhandling.NewIOError("failed to write csv", err)
	}

	for r, n := 0, shownRows(t, opts.Limit); r < n; r++ {
		row := t.Row(r)
		for i, col := range cols {
			record[i] = row.Text(col.Name)
		}
		if err := cw.Write(record); err != nil {
			return errhandling.NewIOError("failed to write csv", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errhandling.NewIOError("failed to write csv", err)
	}
	return nil
}

// WriteJSON writes the rows of t as a JSON array of objects. Empty number
// cells are null.
func WriteJSON(w io.Writer, t *table.Table, opts TableOptions) error {
	cols := selectColumns(t, opts.Columns)
	n := shownRows(t, opts.Limit)

	records := make([]map[string]interface{}, n)
	for r := 0; r < n; r++ {
		row := t.Row(r)
		rec := make(map[string]interface{}, len(cols))
		for _, col := range cols {
			v, _ := row.Value(col.Name)
			rec[col.Name] = v
		}
		records[r] = rec
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return errhandling.NewIOError("failed to write json", err)
	}
	return nil
}

// Summary describes an execution in one line.
func Summary(res *runtime.ExecutionResult) string {
	if res == nil {
		return ""
	}
	pct := 0.0
	if res.Total > 0 {
		pct = float64(res.Matched) * 100 / float64(res.Total)
	}
	kind := res.Kind.String()
	if !res.Refinement.IsZero() {
		kind += " (refined)"
	}
	return fmt.Sprintf("%s: %s of %s rows matched (%s%%) in %s",
		kind,
		humanize.Comma(int64(res.Matched)),
		humanize.Comma(int64(res.Total)),
		humanize.FtoaWithDigits(pct, 1),
		res.Duration.Round(time.Microsecond),
	)
}
