package dataset

import (
	"fmt"
	"strings"
)

// categoricalNames are column names that are expected to hold text; they are
// never flagged as mixed-type even when some cells look numeric.
var categoricalNames = map[string]bool{
	"customer": true,
	"region":   true,
	"product":  true,
	"category": true,
}

// Report is the outcome of a data-quality pass over a frame.
type Report struct {
	// MissingValues maps column name to the number of missing cells.
	MissingValues map[string]int `json:"missing_values,omitempty"`

	// MixedColumns lists text columns that contain numeric-looking cells and
	// are therefore likely to distort calculations.
	MixedColumns []string `json:"mixed_columns,omitempty"`

	// OutlierColumns lists numeric columns with values outside the IQR
	// bounds.
	OutlierColumns []string `json:"outlier_columns,omitempty"`

	// Issues is the human-readable summary shown to the user.
	Issues []string `json:"issues,omitempty"`
}

// HasIssues reports whether any problem was found.
func (r *Report) HasIssues() bool {
	return len(r.Issues) > 0
}

// Validate checks the frame for missing values, mixed-type columns and IQR
// outliers and returns a report describing what was found.
func (f *Frame) Validate() *Report {
	report := &Report{MissingValues: make(map[string]int)}

	for i, name := range f.columns {
		missing := 0
		for _, row := range f.rows {
			if isMissing(row[i]) {
				missing++
			}
		}
		if missing > 0 {
			report.MissingValues[name] = missing
		}
	}
	if len(report.MissingValues) > 0 {
		var parts []string
		for _, name := range f.columns {
			if n, ok := report.MissingValues[name]; ok {
				parts = append(parts, fmt.Sprintf("%s: %d", name, n))
			}
		}
		report.Issues = append(report.Issues,
			fmt.Sprintf("Missing values detected: %s", strings.Join(parts, ", ")))
	}

	for i, name := range f.columns {
		if f.kinds[i] != KindString || categoricalNames[strings.ToLower(name)] {
			continue
		}
		if f.hasNumericCells(i) {
			report.MixedColumns = append(report.MixedColumns, name)
			report.Issues = append(report.Issues,
				fmt.Sprintf("Column '%s' has non-numeric data that may affect calculations.", name))
		}
	}

	for _, name := range f.NumericColumns() {
		values, _ := f.Numbers(name)
		if len(values) == 0 {
			continue
		}
		lo, hi := iqrBounds(values)
		for _, v := range values {
			if v < lo || v > hi {
				report.OutlierColumns = append(report.OutlierColumns, name)
				break
			}
		}
	}
	if len(report.OutlierColumns) > 0 {
		report.Issues = append(report.Issues,
			fmt.Sprintf("Outliers detected in: %s", strings.Join(report.OutlierColumns, ", ")))
	}

	return report
}

// AutoCorrect returns a cleaned copy of the frame: duplicate rows are
// dropped, numeric-looking columns are re-typed, missing numeric cells are
// filled with the column median, and rows with IQR outliers are removed.
func (f *Frame) AutoCorrect() *Frame {
	out := f.withRows(dedupeRows(f.rows))

	// Re-infer so columns that became cleanly numeric are typed as such.
	out.inferKinds()

	// Median fill per numeric column. A column with no values is left alone.
	for i, kind := range out.kinds {
		if kind != KindNumber {
			continue
		}
		values, _ := out.Numbers(out.columns[i])
		if len(values) == 0 {
			continue
		}
		median := formatNumber(Median(values))
		for _, row := range out.rows {
			if isMissing(row[i]) {
				row[i] = median
			}
		}
	}

	// Remove outlier rows column by column, recomputing bounds over the
	// already-filtered rows as the original cleaning pass does.
	for i, kind := range out.kinds {
		if kind != KindNumber {
			continue
		}
		values, _ := out.Numbers(out.columns[i])
		if len(values) == 0 {
			continue
		}
		lo, hi := iqrBounds(values)

		var kept [][]string
		for _, row := range out.rows {
			v, ok := parseNumber(row[i])
			if ok && (v < lo || v > hi) {
				continue
			}
			kept = append(kept, row)
		}
		out.rows = kept
	}

	return out
}

// iqrBounds returns the interquartile fences [Q1-1.5*IQR, Q3+1.5*IQR].
func iqrBounds(values []float64) (float64, float64) {
	q1 := Quantile(values, 0.25)
	q3 := Quantile(values, 0.75)
	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr
}

func (f *Frame) hasNumericCells(col int) bool {
	for _, row := range f.rows {
		if isMissing(row[col]) {
			continue
		}
		if _, ok := parseNumber(row[col]); ok {
			return true
		}
	}
	return false
}

func dedupeRows(rows [][]string) [][]string {
	seen := make(map[string]bool, len(rows))
	var out [][]string
	for _, row := range rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}
