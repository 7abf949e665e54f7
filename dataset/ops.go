package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrNoNumericColumns is returned by operations that need at least one
// numeric column.
var ErrNoNumericColumns = errors.New("dataset has no numeric columns")

// Comparator names the comparison a filter applies.
type Comparator string

const (
	CmpEq       Comparator = "eq"
	CmpNe       Comparator = "ne"
	CmpGt       Comparator = "gt"
	CmpLt       Comparator = "lt"
	CmpGe       Comparator = "ge"
	CmpLe       Comparator = "le"
	CmpContains Comparator = "contains"
)

// Aggregation names a group-by aggregation function.
type Aggregation string

const (
	AggSum    Aggregation = "sum"
	AggMean   Aggregation = "mean"
	AggCount  Aggregation = "count"
	AggMin    Aggregation = "min"
	AggMax    Aggregation = "max"
	AggMedian Aggregation = "median"
)

// Filter returns the rows for which the named column compares true against
// the value. Numeric columns compare numerically when the value parses as a
// number; anything else compares as (case-insensitive) text.
func (f *Frame) Filter(column string, cmp Comparator, value string) (*Frame, error) {
	idx, ok := f.columnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	target, numericTarget := parseNumber(value)
	numeric := f.kinds[idx] == KindNumber && numericTarget

	var rows [][]string
	for _, row := range f.rows {
		cell := row[idx]
		keep := false
		if numeric {
			v, ok := parseNumber(cell)
			if !ok {
				continue
			}
			keep = compareNumbers(v, cmp, target)
		} else {
			var err error
			keep, err = compareStrings(cell, cmp, value)
			if err != nil {
				return nil, err
			}
		}
		if keep {
			rows = append(rows, row)
		}
	}
	return f.withRows(rows), nil
}

func compareNumbers(v float64, cmp Comparator, target float64) bool {
	switch cmp {
	case CmpEq:
		return v == target
	case CmpNe:
		return v != target
	case CmpGt:
		return v > target
	case CmpLt:
		return v < target
	case CmpGe:
		return v >= target
	case CmpLe:
		return v <= target
	case CmpContains:
		return false
	default:
		return false
	}
}

func compareStrings(cell string, cmp Comparator, value string) (bool, error) {
	a := strings.ToLower(strings.TrimSpace(cell))
	b := strings.ToLower(strings.TrimSpace(value))
	switch cmp {
	case CmpEq:
		return a == b, nil
	case CmpNe:
		return a != b, nil
	case CmpContains:
		return strings.Contains(a, b), nil
	case CmpGt:
		return a > b, nil
	case CmpLt:
		return a < b, nil
	case CmpGe:
		return a >= b, nil
	case CmpLe:
		return a <= b, nil
	default:
		return false, fmt.Errorf("unknown comparator %q", cmp)
	}
}

// SortBy returns the frame sorted by the named column. Numeric columns sort
// numerically with missing values last; other columns sort lexically.
func (f *Frame) SortBy(column string, desc bool) (*Frame, error) {
	idx, ok := f.columnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	rows := make([][]string, len(f.rows))
	copy(rows, f.rows)

	numeric := f.kinds[idx] == KindNumber
	sort.SliceStable(rows, func(i, j int) bool {
		var order int
		if numeric {
			a, oka := parseNumber(rows[i][idx])
			b, okb := parseNumber(rows[j][idx])
			switch {
			case !oka && !okb:
				order = 0
			case !oka:
				// Missing values sort last regardless of direction.
				return false
			case !okb:
				return true
			case a < b:
				order = -1
			case a > b:
				order = 1
			}
		} else {
			order = strings.Compare(strings.ToLower(rows[i][idx]), strings.ToLower(rows[j][idx]))
		}
		if desc {
			return order > 0
		}
		return order < 0
	})
	return f.withRows(rows), nil
}

// Select returns a frame with only the named columns, in the given order.
func (f *Frame) Select(columns []string) (*Frame, error) {
	indices := make([]int, len(columns))
	names := make([]string, len(columns))
	for i, name := range columns {
		idx, ok := f.columnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		indices[i] = idx
		names[i] = f.columns[idx]
	}

	rows := make([][]string, len(f.rows))
	for r, row := range f.rows {
		out := make([]string, len(indices))
		for i, idx := range indices {
			out[i] = row[idx]
		}
		rows[r] = out
	}
	return New(names, rows)
}

// TopN returns at most n leading rows.
func (f *Frame) TopN(n int) *Frame {
	return f.Head(n)
}

// GroupBy groups rows by the "by" column and aggregates the target column.
// Groups appear in first-seen order. Count works on any column; the other
// aggregations require a numeric target.
func (f *Frame) GroupBy(by string, agg Aggregation, target string) (*Frame, error) {
	byIdx, ok := f.columnIndex(by)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, by)
	}

	targetIdx := -1
	if agg != AggCount {
		idx, ok := f.columnIndex(target)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, target)
		}
		if f.kinds[idx] != KindNumber {
			return nil, fmt.Errorf("column %s is not numeric, cannot apply %s", target, agg)
		}
		targetIdx = idx
	}

	var order []string
	groups := make(map[string][]float64)
	counts := make(map[string]int)
	for _, row := range f.rows {
		key := row[byIdx]
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		if targetIdx >= 0 {
			if v, ok := parseNumber(row[targetIdx]); ok {
				groups[key] = append(groups[key], v)
			}
		}
	}

	resultName := string(agg)
	if target != "" {
		resultName = fmt.Sprintf("%s_%s", agg, target)
	}

	rows := make([][]string, 0, len(order))
	for _, key := range order {
		var cell string
		switch agg {
		case AggCount:
			cell = fmt.Sprintf("%d", counts[key])
		case AggSum:
			sum := 0.0
			for _, v := range groups[key] {
				sum += v
			}
			cell = formatNumber(sum)
		case AggMean:
			cell = formatNumber(Mean(groups[key]))
		case AggMedian:
			cell = formatNumber(Median(groups[key]))
		case AggMin:
			cell = formatNumber(minOf(groups[key]))
		case AggMax:
			cell = formatNumber(maxOf(groups[key]))
		default:
			return nil, fmt.Errorf("unknown aggregation %q", agg)
		}
		rows = append(rows, []string{key, cell})
	}
	return New([]string{f.columns[byIdx], resultName}, rows)
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
