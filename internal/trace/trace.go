// Package trace loads raw force-plate CSV exports into sample tables.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// TimeColumn is the canonical name of the time column after normalization.
const TimeColumn = "Time"

const (
	preambleLines = 4
	unitRowMarker = "DataUnit"
	labelColumn   = "DataLabel"
	timeTolerance = 1e-9
)

// renameMap normalizes instrument channel labels. Exact match only.
var renameMap = map[string]string{
	"FY[1]": "Force.Fy.1",
	"FZ[2]": "Force.Fz.2",
}

// FormatError reports an input file that could not be parsed as a trial export.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid trial file: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid trial file: %s", e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Table is an ordered sample table. Row index is positional and stable
// for the lifetime of one loaded file.
type Table struct {
	names []string
	cols  map[string][]float64
	rows  int
}

// NewTable builds a table from named columns of equal length.
// Column order follows names.
func NewTable(names []string, cols map[string][]float64) (*Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("table must have at least one column")
	}
	rows := -1
	kept := make(map[string][]float64, len(names))
	for _, name := range names {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		if rows == -1 {
			rows = len(col)
		} else if len(col) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(col), rows)
		}
		kept[name] = col
	}
	return &Table{names: append([]string(nil), names...), cols: kept, rows: rows}, nil
}

// Len returns the number of sample rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// Column returns the named column, or false if absent.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.cols[name]
	return col, ok
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Times returns the Time column, or false if absent.
func (t *Table) Times() ([]float64, bool) {
	return t.Column(TimeColumn)
}

// IndexForTime maps a time value back to its row index. The match is exact
// within a fixed small tolerance; time values are treated as unique at that
// precision.
func (t *Table) IndexForTime(v float64) (int, bool) {
	times, ok := t.Times()
	if !ok {
		return 0, false
	}
	for i, tv := range times {
		if math.Abs(tv-v) < timeTolerance {
			return i, true
		}
	}
	return 0, false
}

// LoadFile reads and normalizes a trial export from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Reason: "cannot open file", Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()
	return Parse(f)
}

// Parse normalizes a raw instrument export: a fixed 4-line preamble, the
// header row on line 5, an optional unit row, and data rows. The unlabeled
// second column becomes Time, bracket-indexed channels are renamed, and the
// DataLabel column is dropped.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &FormatError{Reason: "cannot parse delimited text", Err: err}
	}
	if len(records) <= preambleLines {
		return nil, &FormatError{Reason: "header row is absent"}
	}
	header := records[preambleLines]
	data := records[preambleLines+1:]

	if len(data) > 0 && len(data[0]) > 0 && strings.HasPrefix(data[0][0], unitRowMarker) {
		data = data[1:]
	}

	type column struct {
		raw  int
		name string
	}
	columns := make([]column, 0, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == labelColumn {
			continue
		}
		if i == 1 && name == "" {
			name = TimeColumn
		} else if renamed, ok := renameMap[name]; ok {
			name = renamed
		}
		columns = append(columns, column{raw: i, name: name})
	}
	if len(columns) == 0 {
		return nil, &FormatError{Reason: "header row has no columns"}
	}

	names := make([]string, len(columns))
	cols := make(map[string][]float64, len(columns))
	for i, c := range columns {
		names[i] = c.name
		cols[c.name] = make([]float64, 0, len(data))
	}

	for rowIdx, row := range data {
		for _, c := range columns {
			if c.raw >= len(row) {
				return nil, &FormatError{Reason: fmt.Sprintf("data row %d is missing column %q", rowIdx+1, c.name)}
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c.raw]), 64)
			if err != nil {
				return nil, &FormatError{Reason: fmt.Sprintf("data row %d has a non-numeric value in column %q", rowIdx+1, c.name), Err: err}
			}
			cols[c.name] = append(cols[c.name], v)
		}
	}

	return &Table{names: names, cols: cols, rows: len(data)}, nil
}
