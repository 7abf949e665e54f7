package dataset

import (
	"math"
	"sort"
	"strconv"
)

// Quantile computes the q-quantile (0..1) of values using linear
// interpolation between closest ranks, matching the behavior the original
// validation logic relied on. A single value is its own quantile.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Median returns the 0.5 quantile.
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Mean returns the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Describe returns one row of summary statistics per numeric column:
// count, mean, std, min, median and max.
func (f *Frame) Describe() *Frame {
	columns := []string{"column", "count", "mean", "std", "min", "median", "max"}
	var rows [][]string
	for _, name := range f.NumericColumns() {
		values, _ := f.Numbers(name)
		if len(values) == 0 {
			rows = append(rows, []string{name, "0", "", "", "", "", ""})
			continue
		}
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		rows = append(rows, []string{
			name,
			strconv.Itoa(len(values)),
			formatNumber(Mean(values)),
			formatNumber(StdDev(values)),
			formatNumber(sorted[0]),
			formatNumber(Median(values)),
			formatNumber(sorted[len(sorted)-1]),
		})
	}
	out, _ := New(columns, rows)
	return out
}

// Correlation returns the Pearson correlation matrix of the numeric columns.
// Row values are paired per data row; rows missing either value are skipped.
func (f *Frame) Correlation() (*Frame, error) {
	numeric := f.NumericColumns()
	if len(numeric) == 0 {
		return nil, ErrNoNumericColumns
	}

	columns := append([]string{"column"}, numeric...)
	rows := make([][]string, len(numeric))
	for i, a := range numeric {
		row := make([]string, len(numeric)+1)
		row[0] = a
		for j, b := range numeric {
			row[j+1] = formatNumber(f.pearson(a, b))
		}
		rows[i] = row
	}
	return New(columns, rows)
}

func (f *Frame) pearson(a, b string) float64 {
	ai, _ := f.columnIndex(a)
	bi, _ := f.columnIndex(b)

	var xs, ys []float64
	for _, row := range f.rows {
		x, okx := parseNumber(row[ai])
		y, oky := parseNumber(row[bi])
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}

	mx, my := Mean(xs), Mean(ys)
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// formatNumber renders a statistic rounded to six decimal places so float
// noise does not leak into answers. NaN renders as a missing cell.
func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}
