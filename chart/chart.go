// Package chart builds Plotly-compatible figure specifications from frames.
//
// A Figure marshals to the JSON shape Plotly.newPlot consumes directly, so
// the front end renders visualization answers without any translation layer.
package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smallnest/datalyst/dataset"
)

// Kind names a supported chart type.
type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
	KindPie       Kind = "pie"
)

// Trace is one data series of a figure.
type Trace struct {
	Type   string    `json:"type"`
	Mode   string    `json:"mode,omitempty"`
	Name   string    `json:"name,omitempty"`
	X      []string  `json:"x,omitempty"`
	Y      []float64 `json:"y,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

// Axis titles one plot axis.
type Axis struct {
	Title string `json:"title,omitempty"`
}

// Layout holds figure-level presentation settings.
type Layout struct {
	Title string `json:"title,omitempty"`
	XAxis *Axis  `json:"xaxis,omitempty"`
	YAxis *Axis  `json:"yaxis,omitempty"`
}

// Figure is a complete renderable chart specification.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Build creates a figure of the given kind from a frame. The x column
// provides categories or positions; the y column must be numeric except for
// histograms, which only use x.
func Build(f *dataset.Frame, kind Kind, x, y, title string) (*Figure, error) {
	switch kind {
	case KindBar, KindLine, KindScatter:
		return buildXY(f, kind, x, y, title)
	case KindHistogram:
		return buildHistogram(f, x, title)
	case KindPie:
		return buildPie(f, x, y, title)
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
}

func buildXY(f *dataset.Frame, kind Kind, x, y, title string) (*Figure, error) {
	xs, ys, err := pairedValues(f, x, y)
	if err != nil {
		return nil, err
	}

	trace := Trace{Type: string(kind), Name: y, X: xs, Y: ys}
	if kind == KindLine {
		trace.Type = "scatter"
		trace.Mode = "lines"
	}
	if kind == KindScatter {
		trace.Mode = "markers"
	}

	return &Figure{
		Data: []Trace{trace},
		Layout: Layout{
			Title: title,
			XAxis: &Axis{Title: x},
			YAxis: &Axis{Title: y},
		},
	}, nil
}

func buildHistogram(f *dataset.Frame, x, title string) (*Figure, error) {
	kind, err := f.Kind(x)
	if err != nil {
		return nil, err
	}
	if kind != dataset.KindNumber {
		return nil, fmt.Errorf("histogram requires a numeric column, %s is %s", x, kind)
	}

	values, err := f.Numbers(x)
	if err != nil {
		return nil, err
	}
	xs := make([]string, len(values))
	for i, v := range values {
		xs[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return &Figure{
		Data:   []Trace{{Type: "histogram", Name: x, X: xs}},
		Layout: Layout{Title: title, XAxis: &Axis{Title: x}},
	}, nil
}

func buildPie(f *dataset.Frame, x, y, title string) (*Figure, error) {
	labels, values, err := pairedValues(f, x, y)
	if err != nil {
		return nil, err
	}
	return &Figure{
		Data:   []Trace{{Type: "pie", Labels: labels, Values: values}},
		Layout: Layout{Title: title},
	}, nil
}

// pairedValues extracts x labels and numeric y values row by row, skipping
// rows whose y cell does not parse.
func pairedValues(f *dataset.Frame, x, y string) ([]string, []float64, error) {
	if _, err := f.Kind(x); err != nil {
		return nil, nil, err
	}
	yKind, err := f.Kind(y)
	if err != nil {
		return nil, nil, err
	}
	if yKind != dataset.KindNumber {
		return nil, nil, fmt.Errorf("column %s is not numeric", y)
	}

	var xs []string
	var ys []float64
	for r := 0; r < f.Len(); r++ {
		xCell, _ := f.Cell(r, x)
		yCell, _ := f.Cell(r, y)
		v, ok := parseFloat(yCell)
		if !ok {
			continue
		}
		xs = append(xs, xCell)
		ys = append(ys, v)
	}
	return xs, ys, nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}
