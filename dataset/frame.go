// Package dataset implements the columnar frame the analyst runs against.
//
// A Frame is parsed from CSV (or an HTML table), infers a kind per column,
// and exposes the operations the analysis planner is allowed to use: filter,
// group-by aggregation, sorting, selection, descriptive statistics and
// correlation. It also implements the data-quality pass: missing values,
// mixed-type columns and IQR outliers are reported, and AutoCorrect produces
// a cleaned copy of the data.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Kind classifies the values of a column.
type Kind int

const (
	// KindString is the fallback kind for free-form text.
	KindString Kind = iota
	// KindNumber covers integer and floating point columns.
	KindNumber
	// KindBool covers true/false columns.
	KindBool
	// KindTime covers date and timestamp columns.
	KindTime
)

// String returns the kind name as used in LLM prompts and API payloads.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "string"
	}
}

var (
	// ErrEmptyDataset is returned when the input has no header row.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrUnknownColumn is returned when an operation references a column the
	// frame does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Frame is an immutable table of raw cells with per-column kind information.
// Cells are kept as strings; numeric access parses on demand. The empty
// string and common NA spellings count as missing.
type Frame struct {
	columns []string
	kinds   []Kind
	rows    [][]string
}

// New builds a frame from a header and rows. Every row must have exactly one
// cell per column. Column kinds are inferred from the cell values.
func New(columns []string, rows [][]string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyDataset
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), len(columns))
		}
	}
	f := &Frame{columns: columns, rows: rows}
	f.inferKinds()
	return f, nil
}

// ReadCSV parses a CSV document with a header row into a frame.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	header := records[0]
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}
	return New(header, records[1:])
}

// WriteCSV writes the frame, including the header row, as CSV.
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range f.rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Kind returns the inferred kind of the named column.
func (f *Frame) Kind(column string) (Kind, error) {
	idx, ok := f.columnIndex(column)
	if !ok {
		return KindString, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return f.kinds[idx], nil
}

// Cell returns the raw cell value at the given row for the named column.
func (f *Frame) Cell(row int, column string) (string, error) {
	idx, ok := f.columnIndex(column)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return f.rows[row][idx], nil
}

// Row returns a copy of the cells of one row.
func (f *Frame) Row(row int) []string {
	out := make([]string, len(f.rows[row]))
	copy(out, f.rows[row])
	return out
}

// Rows returns a copy of all rows.
func (f *Frame) Rows() [][]string {
	out := make([][]string, len(f.rows))
	for i := range f.rows {
		out[i] = f.Row(i)
	}
	return out
}

// Head returns a new frame containing at most n leading rows.
func (f *Frame) Head(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	return f.withRows(f.rows[:n])
}

// NumericColumns returns the names of all number-kinded columns.
func (f *Frame) NumericColumns() []string {
	var out []string
	for i, k := range f.kinds {
		if k == KindNumber {
			out = append(out, f.columns[i])
		}
	}
	return out
}

// Numbers returns the parsed values of a numeric column, missing cells
// excluded.
func (f *Frame) Numbers(column string) ([]float64, error) {
	idx, ok := f.columnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	var out []float64
	for _, row := range f.rows {
		if v, ok := parseNumber(row[idx]); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// withRows creates a frame sharing this frame's schema over the given rows.
// Kinds are kept as-is: a subset of rows never widens a column's kind.
func (f *Frame) withRows(rows [][]string) *Frame {
	columns := make([]string, len(f.columns))
	copy(columns, f.columns)
	kinds := make([]Kind, len(f.kinds))
	copy(kinds, f.kinds)

	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = make([]string, len(row))
		copy(copied[i], row)
	}
	return &Frame{columns: columns, kinds: kinds, rows: copied}
}

func (f *Frame) columnIndex(name string) (int, bool) {
	for i, col := range f.columns {
		if strings.EqualFold(col, name) {
			return i, true
		}
	}
	return 0, false
}

// inferKinds determines the kind of each column from its non-missing cells.
// A column with no values at all stays a string column.
func (f *Frame) inferKinds() {
	f.kinds = make([]Kind, len(f.columns))
	for i := range f.columns {
		f.kinds[i] = f.inferKind(i)
	}
}

func (f *Frame) inferKind(col int) Kind {
	seen := false
	isNumber, isBool, isTime := true, true, true
	for _, row := range f.rows {
		cell := row[col]
		if isMissing(cell) {
			continue
		}
		seen = true
		if _, ok := parseNumber(cell); !ok {
			isNumber = false
		}
		if _, err := strconv.ParseBool(strings.ToLower(cell)); err != nil {
			isBool = false
		}
		if !parsesAsTime(cell) {
			isTime = false
		}
		if !isNumber && !isBool && !isTime {
			return KindString
		}
	}
	// 0/1 columns satisfy both ParseFloat and ParseBool; treat them as
	// numeric so they stay usable in aggregations.
	switch {
	case !seen:
		return KindString
	case isNumber:
		return KindNumber
	case isBool:
		return KindBool
	case isTime:
		return KindTime
	default:
		return KindString
	}
}

func parseNumber(cell string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parsesAsTime(cell string) bool {
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(cell)); err == nil {
			return true
		}
	}
	return false
}

func isMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "na", "n/a", "nan", "null", "none":
		return true
	}
	return false
}
