package agent

import (
	"fmt"
	"strings"

	"github.com/smallnest/datalyst/dataset"
)

const classifySystemPrompt = `You are a router for a data-analysis assistant.
Classify the user's question about a dataset into exactly one category:

- analysis: questions answered with numbers or tables (totals, averages, filters, rankings, statistics)
- visualization: requests for a chart, plot or graph
- summary: requests for an overall overview, report or narrative description of the dataset

Respond with the single category word and nothing else.`

const planSystemPrompt = `You are a data analyst. You answer questions about a tabular dataset by writing a JSON analysis plan instead of code. The plan is executed by a query engine.

Respond with a single JSON object, no prose, no markdown fences:

{"steps": [...], "chart": {...}}

Each step is one of:
- {"op":"filter","column":C,"cmp":CMP,"value":V} where CMP is eq|ne|gt|lt|ge|le|contains
- {"op":"groupby","by":C,"agg":AGG,"target":C2} where AGG is sum|mean|count|min|max|median (count needs no target)
- {"op":"sort","column":C,"desc":true|false}
- {"op":"topn","n":N}
- {"op":"select","columns":[C,...]}
- {"op":"describe"} (summary statistics of numeric columns)
- {"op":"correlation"} (correlation matrix of numeric columns)

Steps run in order; later steps see the previous step's output (a groupby produces a column named AGG_target, e.g. sum_sales).

"chart" is only for visualization requests: {"kind":"bar|line|scatter|histogram|pie","x":C,"y":C2,"title":T}. The x and y columns must exist in the final step's output. Omit "chart" otherwise.

Use only the column names from the dataset description below. Keep the plan as short as the question allows.`

const summarySystemPrompt = `You are a data analyst. Write a concise summary of the dataset described below, answering the user's request. Use markdown. Ground every statement in the provided statistics; do not invent values.`

// frameDescription renders the schema and a small sample for a prompt.
func frameDescription(f *dataset.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %d rows, %d columns.\n\nColumns:\n", f.Len(), len(f.Columns()))
	for _, col := range f.Columns() {
		kind, _ := f.Kind(col)
		fmt.Fprintf(&b, "- %s (%s)\n", col, kind)
	}

	head := f.Head(5)
	b.WriteString("\nFirst rows:\n")
	b.WriteString(strings.Join(head.Columns(), ","))
	b.WriteString("\n")
	for _, row := range head.Rows() {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// frameProfile extends the description with summary statistics, used to
// ground dataset summaries.
func frameProfile(f *dataset.Frame) string {
	var b strings.Builder
	b.WriteString(frameDescription(f))

	desc := f.Describe()
	if desc.Len() > 0 {
		b.WriteString("\nNumeric column statistics:\n")
		b.WriteString(strings.Join(desc.Columns(), ","))
		b.WriteString("\n")
		for _, row := range desc.Rows() {
			b.WriteString(strings.Join(row, ","))
			b.WriteString("\n")
		}
	}
	return b.String()
}
