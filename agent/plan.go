package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/smallnest/datalyst/chart"
	"github.com/smallnest/datalyst/dataset"
)

// ErrBadPlan is returned when a model-written plan is malformed or fails
// validation against the frame. Its message is the retry trigger for the
// plan node.
var ErrBadPlan = errors.New("malformed plan")

// Op names one analysis plan step.
type Op string

const (
	OpFilter      Op = "filter"
	OpGroupBy     Op = "groupby"
	OpSort        Op = "sort"
	OpTopN        Op = "topn"
	OpSelect      Op = "select"
	OpDescribe    Op = "describe"
	OpCorrelation Op = "correlation"
)

// Step is one operation in a plan pipeline. Which fields apply depends on
// the op; Validate enforces the shape.
type Step struct {
	Op Op `json:"op"`

	// filter
	Column string `json:"column,omitempty"`
	Cmp    string `json:"cmp,omitempty"`
	Value  string `json:"value,omitempty"`

	// groupby
	By     string `json:"by,omitempty"`
	Agg    string `json:"agg,omitempty"`
	Target string `json:"target,omitempty"`

	// sort
	Desc bool `json:"desc,omitempty"`

	// topn
	N int `json:"n,omitempty"`

	// select
	Columns []string `json:"columns,omitempty"`
}

// ChartSpec is the visualization part of a plan.
type ChartSpec struct {
	Kind  string `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y,omitempty"`
	Title string `json:"title,omitempty"`
}

// Plan is the structured analysis a model writes in place of code. The
// steps run left to right against the session frame.
type Plan struct {
	Steps []Step     `json:"steps"`
	Chart *ChartSpec `json:"chart,omitempty"`
}

// ParsePlan decodes a model response into a Plan. Markdown fences are
// stripped and broken JSON is repaired before giving up.
func ParsePlan(raw string) (*Plan, error) {
	content := stripFences(raw)

	var plan Plan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPlan, err)
		}
		if err := json.Unmarshal([]byte(repaired), &plan); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPlan, err)
		}
	}

	if len(plan.Steps) == 0 && plan.Chart == nil {
		return nil, fmt.Errorf("%w: plan has no steps", ErrBadPlan)
	}
	return &plan, nil
}

// Validate checks every step against the frame before execution, so a bad
// plan fails with a named column instead of halfway through the pipeline.
// Column checks stop after the first schema-changing step (groupby,
// describe, correlation); later references resolve against intermediate
// results and are reported by the engine at execution time.
func (p *Plan) Validate(f *dataset.Frame) error {
	hasColumn := func(name string) error {
		_, err := f.Kind(name)
		return err
	}
	for _, step := range p.Steps {
		switch step.Op {
		case OpFilter:
			if err := hasColumn(step.Column); err != nil {
				return fmt.Errorf("%w: filter: %v", ErrBadPlan, err)
			}
			if !validComparator(step.Cmp) {
				return fmt.Errorf("%w: unknown comparator %q", ErrBadPlan, step.Cmp)
			}
		case OpGroupBy:
			if err := hasColumn(step.By); err != nil {
				return fmt.Errorf("%w: groupby: %v", ErrBadPlan, err)
			}
			if !validAggregation(step.Agg) {
				return fmt.Errorf("%w: unknown aggregation %q", ErrBadPlan, step.Agg)
			}
			if dataset.Aggregation(step.Agg) != dataset.AggCount {
				if err := hasColumn(step.Target); err != nil {
					return fmt.Errorf("%w: groupby: %v", ErrBadPlan, err)
				}
			}
			hasColumn = func(string) error { return nil }
		case OpSort:
			if err := hasColumn(step.Column); err != nil {
				return fmt.Errorf("%w: sort: %v", ErrBadPlan, err)
			}
		case OpTopN:
			if step.N <= 0 {
				return fmt.Errorf("%w: topn needs a positive n", ErrBadPlan)
			}
		case OpSelect:
			if len(step.Columns) == 0 {
				return fmt.Errorf("%w: select needs columns", ErrBadPlan)
			}
			for _, col := range step.Columns {
				if err := hasColumn(col); err != nil {
					return fmt.Errorf("%w: select: %v", ErrBadPlan, err)
				}
			}
		case OpDescribe, OpCorrelation:
			hasColumn = func(string) error { return nil }
		default:
			return fmt.Errorf("%w: unknown op %q", ErrBadPlan, step.Op)
		}
	}

	if p.Chart != nil {
		if !validChartKind(p.Chart.Kind) {
			return fmt.Errorf("%w: unknown chart kind %q", ErrBadPlan, p.Chart.Kind)
		}
		if p.Chart.X == "" {
			return fmt.Errorf("%w: chart needs an x column", ErrBadPlan)
		}
		if chart.Kind(p.Chart.Kind) != chart.KindHistogram && p.Chart.Y == "" {
			return fmt.Errorf("%w: %s chart needs a y column", ErrBadPlan, p.Chart.Kind)
		}
	}
	return nil
}

// Apply runs the plan's steps against the frame. Column references in the
// later steps resolve against the intermediate result, so a groupby output
// column (e.g. sum_sales) can be sorted on.
func (p *Plan) Apply(f *dataset.Frame) (*dataset.Frame, error) {
	result := f
	var err error
	for _, step := range p.Steps {
		switch step.Op {
		case OpFilter:
			result, err = result.Filter(step.Column, dataset.Comparator(step.Cmp), step.Value)
		case OpGroupBy:
			result, err = result.GroupBy(step.By, dataset.Aggregation(step.Agg), step.Target)
		case OpSort:
			result, err = result.SortBy(step.Column, step.Desc)
		case OpTopN:
			result = result.TopN(step.N)
		case OpSelect:
			result, err = result.Select(step.Columns)
		case OpDescribe:
			result = result.Describe()
		case OpCorrelation:
			result, err = result.Correlation()
		default:
			err = fmt.Errorf("%w: unknown op %q", ErrBadPlan, step.Op)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Render writes the plan as a human-readable pipeline expression, shown to
// users in place of generated code.
func (p *Plan) Render() string {
	parts := make([]string, 0, len(p.Steps)+1)
	for _, step := range p.Steps {
		switch step.Op {
		case OpFilter:
			parts = append(parts, fmt.Sprintf("filter(%s %s %s)", step.Column, step.Cmp, step.Value))
		case OpGroupBy:
			if dataset.Aggregation(step.Agg) == dataset.AggCount && step.Target == "" {
				parts = append(parts, fmt.Sprintf("groupby(%s, count)", step.By))
			} else {
				parts = append(parts, fmt.Sprintf("groupby(%s, %s(%s))", step.By, step.Agg, step.Target))
			}
		case OpSort:
			dir := "asc"
			if step.Desc {
				dir = "desc"
			}
			parts = append(parts, fmt.Sprintf("sort(%s, %s)", step.Column, dir))
		case OpTopN:
			parts = append(parts, fmt.Sprintf("topn(%d)", step.N))
		case OpSelect:
			parts = append(parts, fmt.Sprintf("select(%s)", strings.Join(step.Columns, ", ")))
		case OpDescribe:
			parts = append(parts, "describe()")
		case OpCorrelation:
			parts = append(parts, "correlation()")
		}
	}
	if p.Chart != nil {
		if p.Chart.Y != "" {
			parts = append(parts, fmt.Sprintf("chart(%s, x=%s, y=%s)", p.Chart.Kind, p.Chart.X, p.Chart.Y))
		} else {
			parts = append(parts, fmt.Sprintf("chart(%s, x=%s)", p.Chart.Kind, p.Chart.X))
		}
	}
	return strings.Join(parts, " | ")
}

func validComparator(cmp string) bool {
	switch dataset.Comparator(cmp) {
	case dataset.CmpEq, dataset.CmpNe, dataset.CmpGt, dataset.CmpLt,
		dataset.CmpGe, dataset.CmpLe, dataset.CmpContains:
		return true
	}
	return false
}

func validChartKind(kind string) bool {
	switch chart.Kind(kind) {
	case chart.KindBar, chart.KindLine, chart.KindScatter,
		chart.KindHistogram, chart.KindPie:
		return true
	}
	return false
}

func validAggregation(agg string) bool {
	switch dataset.Aggregation(agg) {
	case dataset.AggSum, dataset.AggMean, dataset.AggCount,
		dataset.AggMin, dataset.AggMax, dataset.AggMedian:
		return true
	}
	return false
}

// stripFences removes a surrounding markdown code fence, which chat models
// add around JSON no matter how firmly told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
