// Package dataset loads delimited text files into immutable tables.
//
// The loader is schema-agnostic: it reads the header row, decodes the bytes
// under the configured encoding and infers a type for every column.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tobgu/qframe"
	qcsv "github.com/tobgu/qframe/config/csv"
	"github.com/tobgu/qframe/types"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
	"github.com/Threestaxx/SalesDateFilter/internal/logger"
	"github.com/Threestaxx/SalesDateFilter/pkg/table"
)

// Defaults applied when Options fields are left empty.
const (
	DefaultEncoding  = "latin1"
	DefaultDelimiter = ','
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// missingMarkers are the cell texts read as missing values, the same set
// pandas treats as NaN by default.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Options configures how a dataset file is read.
type Options struct {
	// Encoding names the text encoding of the file. Empty means latin1.
	Encoding string
	// Delimiter separates fields. Zero means comma.
	Delimiter rune
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Encoding) == "" {
		o.Encoding = DefaultEncoding
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	return o
}

// Load reads the file at path and returns it as a table.
//
// Missing files fail with errhandling.ErrFileNotFound, undecodable bytes or
// unknown encodings with errhandling.ErrEncoding, and malformed content with
// errhandling.ErrParse.
func Load(path string, opts Options) (*table.Table, error) {
	opts = opts.withDefaults()
	if !validDelimiter(opts.Delimiter) {
		return nil, errhandling.NewConfigError(fmt.Sprintf("invalid delimiter %q", opts.Delimiter), nil)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errhandling.NewNotFoundError(fmt.Sprintf("dataset %q does not exist", path), err)
		}
		return nil, errhandling.NewIOError(fmt.Sprintf("reading dataset %q", path), err)
	}

	text, err := decode(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	return parse(path, text, opts.Delimiter)
}

// decode converts raw bytes to UTF-8 under the named encoding.
func decode(raw []byte, name string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return nil, errhandling.NewEncodingError(fmt.Sprintf("content is not valid utf-8 (first bad byte at offset %d)", firstInvalid(raw)), nil)
		}
		return raw, nil
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), enc.NewDecoder()))
	if err != nil {
		return nil, errhandling.NewEncodingError(fmt.Sprintf("cannot decode content as %s", name), err)
	}
	return out, nil
}

// lookupEncoding resolves an encoding name. latin1 and iso-8859-1 map to
// strict ISO-8859-1; htmlindex would treat them as windows-1252.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1", "l1":
		return charmap.ISO8859_1, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errhandling.NewEncodingError(fmt.Sprintf("unknown encoding %q", name), err)
	}
	return enc, nil
}

// EncodingSupported reports whether name resolves to a known encoding.
func EncodingSupported(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	_, err := lookupEncoding(name)
	return err == nil
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// ParseDelimiter converts a configured delimiter string to a rune.
// "\t" and "tab" both mean a tab character. Only ASCII delimiters are
// accepted.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case `\t`, "tab", "TAB":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !validDelimiter(r) {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

func validDelimiter(r rune) bool {
	return r > 0 && r < utf8.RuneSelf && r != '"' && r != '\r' && r != '\n'
}

// parse reads the header itself, so names can be made unique, and hands the
// normalized text to qframe. qframe's column types are then mapped onto
// number and text columns.
func parse(path string, text []byte, delimiter rune) (*table.Table, error) {
	names, body, err := splitHeader(text, delimiter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	if err := w.Write(names); err != nil {
		return nil, errhandling.NewParseError("rewriting header", err)
	}
	w.Flush()
	buf.Write(body)

	frame := qframe.ReadCSV(&buf,
		qcsv.Delimiter(byte(delimiter)),
		qcsv.EmptyNull(true),
		qcsv.IgnoreEmptyLines(true),
	)
	if frame.Err != nil {
		return nil, errhandling.NewParseError(frame.Err.Error(), frame.Err)
	}

	columns := make([]table.Column, len(names))
	values := make([][]interface{}, len(names))
	kinds := frame.ColumnTypeMap()
	for i, name := range names {
		typ, cells, err := columnValues(frame, name, kinds[name])
		if err != nil {
			return nil, errhandling.NewParseError(fmt.Sprintf("column %q: %v", name, err), err)
		}
		if typ == table.TypeNumber && kinds[name] == types.String {
			logger.WithDataset(path).Debug("missing-value markers read as empty numbers",
				"column", name,
			)
		}
		columns[i] = table.Column{Name: name, Type: typ}
		values[i] = cells
	}

	rows := make([]table.Row, frame.Len())
	for r := range rows {
		row := make(map[string]interface{}, len(names))
		for i, name := range names {
			row[name] = values[i][r]
		}
		rows[r] = table.Row{Index: r, Values: row}
	}

	tbl, err := table.New(columns, rows)
	if err != nil {
		return nil, errhandling.NewParseError(err.Error(), err)
	}
	return tbl, nil
}

// splitHeader returns the unique header names and the bytes after the
// header record. It also checks that every record has as many fields as the
// header, so malformed rows are reported with their line.
func splitHeader(text []byte, delimiter rune) ([]string, []byte, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delimiter
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, errhandling.NewParseError("no header row", nil)
	}
	if err != nil {
		return nil, nil, csvError(err)
	}
	names := uniqueNames(header)
	body := text[reader.InputOffset():]

	for {
		_, err := reader.Read()
		if err == io.EOF {
			return names, body, nil
		}
		if err != nil {
			return nil, nil, csvError(err)
		}
	}
}

func csvError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return errhandling.NewParseError(fmt.Sprintf("line %d: %v", perr.Line, perr.Err), err)
	}
	return errhandling.NewParseError(err.Error(), err)
}

// uniqueNames makes header names unique. Empty names become "Unnamed: N"
// and repeats get a ".1", ".2" suffix.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for n := 1; used[name]; n++ {
				name = fmt.Sprintf("%s.%d", base, n)
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// columnValues converts one qframe column to table values. Integer and
// float columns are numbers unless every cell is missing. String columns are numbers when every cell is
// a number or a missing-value marker, and at least one is a number.
func columnValues(frame qframe.QFrame, name string, typ types.DataType) (table.ColumnType, []interface{}, error) {
	n := frame.Len()
	out := make([]interface{}, n)

	switch typ {
	case types.Int:
		view, err := frame.IntView(name)
		if err != nil {
			return "", nil, err
		}
		for i := 0; i < n; i++ {
			out[i] = float64(view.ItemAt(i))
		}
		return table.TypeNumber, out, nil

	case types.Float:
		view, err := frame.FloatView(name)
		if err != nil {
			return "", nil, err
		}
		seen := false
		for i := 0; i < n; i++ {
			if f := view.ItemAt(i); !math.IsNaN(f) {
				out[i] = f
				seen = true
			}
		}
		if !seen {
			return table.TypeText, out, nil
		}
		return table.TypeNumber, out, nil

	case types.Bool:
		view, err := frame.BoolView(name)
		if err != nil {
			return "", nil, err
		}
		for i := 0; i < n; i++ {
			out[i] = strconv.FormatBool(view.ItemAt(i))
		}
		return table.TypeText, out, nil

	case types.String:
		view, err := frame.StringView(name)
		if err != nil {
			return "", nil, err
		}
		cells := make([]*string, n)
		for i := 0; i < n; i++ {
			cells[i] = view.ItemAt(i)
		}
		if numbers, ok := asNumbers(cells); ok {
			return table.TypeNumber, numbers, nil
		}
		for i, c := range cells {
			if !isMissing(c) {
				out[i] = *c
			}
		}
		return table.TypeText, out, nil

	default:
		// Columns without data rows have no inferred type.
		return table.TypeText, out, nil
	}
}

// asNumbers parses every non-missing cell as a number. It fails when a cell
// does not parse or when no cell holds a number.
func asNumbers(cells []*string) ([]interface{}, bool) {
	out := make([]interface{}, len(cells))
	seen := false
	for i, c := range cells {
		if isMissing(c) {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(*c), 64)
		if err != nil {
			return nil, false
		}
		if !math.IsNaN(f) {
			out[i] = f
		}
		seen = true
	}
	return out, seen
}

func isMissing(cell *string) bool {
	if cell == nil {
		return true
	}
	_, ok := missingMarkers[strings.TrimSpace(*cell)]
	return ok
}
