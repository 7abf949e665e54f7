package chart

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/smallnest/datalyst/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader("region,sales\nWest,250\nEast,200\nSouth,50\n"))
	require.NoError(t, err)
	return f
}

func TestBuild_Bar(t *testing.T) {
	fig, err := Build(regionFrame(t), KindBar, "region", "sales", "Sales by region")
	require.NoError(t, err)

	require.Len(t, fig.Data, 1)
	assert.Equal(t, "bar", fig.Data[0].Type)
	assert.Equal(t, []string{"West", "East", "South"}, fig.Data[0].X)
	assert.Equal(t, []float64{250, 200, 50}, fig.Data[0].Y)
	assert.Equal(t, "Sales by region", fig.Layout.Title)
	assert.Equal(t, "region", fig.Layout.XAxis.Title)
}

func TestBuild_LineIsScatterWithLinesMode(t *testing.T) {
	fig, err := Build(regionFrame(t), KindLine, "region", "sales", "")
	require.NoError(t, err)
	assert.Equal(t, "scatter", fig.Data[0].Type)
	assert.Equal(t, "lines", fig.Data[0].Mode)
}

func TestBuild_Histogram(t *testing.T) {
	fig, err := Build(regionFrame(t), KindHistogram, "sales", "", "Distribution")
	require.NoError(t, err)
	assert.Equal(t, "histogram", fig.Data[0].Type)
	assert.Equal(t, []string{"250", "200", "50"}, fig.Data[0].X)

	_, err = Build(regionFrame(t), KindHistogram, "region", "", "")
	assert.Error(t, err)
}

func TestBuild_Pie(t *testing.T) {
	fig, err := Build(regionFrame(t), KindPie, "region", "sales", "Share")
	require.NoError(t, err)
	assert.Equal(t, "pie", fig.Data[0].Type)
	assert.Equal(t, []string{"West", "East", "South"}, fig.Data[0].Labels)
	assert.Equal(t, []float64{250, 200, 50}, fig.Data[0].Values)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(regionFrame(t), Kind("sunburst"), "region", "sales", "")
	assert.Error(t, err)

	_, err = Build(regionFrame(t), KindBar, "region", "region", "")
	assert.Error(t, err) // y must be numeric

	_, err = Build(regionFrame(t), KindBar, "missing", "sales", "")
	assert.ErrorIs(t, err, dataset.ErrUnknownColumn)
}

func TestFigure_MarshalsPlotlyShape(t *testing.T) {
	fig, err := Build(regionFrame(t), KindBar, "region", "sales", "t")
	require.NoError(t, err)

	data, err := json.Marshal(fig)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "data")
	assert.Contains(t, decoded, "layout")
}
