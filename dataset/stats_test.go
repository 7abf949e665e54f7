package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 4.0, Quantile(values, 1))
	assert.Equal(t, 2.5, Quantile(values, 0.5))
	// Linear interpolation between ranks, as pandas computes it.
	assert.InDelta(t, 1.75, Quantile(values, 0.25), 1e-9)
	assert.InDelta(t, 3.25, Quantile(values, 0.75), 1e-9)

	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.5))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMeanMedianStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.Equal(t, 5.0, Mean(values))
	assert.Equal(t, 4.5, Median(values))
	assert.InDelta(t, 2.138, StdDev(values), 0.001)
	assert.True(t, math.IsNaN(StdDev([]float64{1})))
}

func TestDescribe(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	desc := f.Describe()
	assert.Equal(t, []string{"column", "count", "mean", "std", "min", "median", "max"}, desc.Columns())
	assert.Equal(t, 2, desc.Len()) // sales and units

	row := desc.Row(0)
	assert.Equal(t, "sales", row[0])
	assert.Equal(t, "4", row[1])
	assert.Equal(t, "125", row[2])
	assert.Equal(t, "50", row[4])
	assert.Equal(t, "125", row[5])
	assert.Equal(t, "200", row[6])
}

func TestCorrelation(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(salesCSV))
	require.NoError(t, err)

	corr, err := f.Correlation()
	require.NoError(t, err)
	assert.Equal(t, []string{"column", "sales", "units"}, corr.Columns())

	// sales and units are perfectly correlated in the fixture.
	cell, err := corr.Cell(0, "units")
	require.NoError(t, err)
	assert.Equal(t, "1", cell)
}

func TestCorrelation_NoNumericColumns(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a,b\nx,y\n"))
	require.NoError(t, err)

	_, err = f.Correlation()
	assert.ErrorIs(t, err, ErrNoNumericColumns)
}
