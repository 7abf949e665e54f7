// Package agent runs the analyst pipeline: classify the question, have a
// model write a structured analysis plan, execute the plan against the
// session frame, and answer.
//
// The pipeline is a small state graph. Analysis and visualization questions
// go through plan and execute; summary questions go straight to the
// summarizer. No model-generated code is ever executed; models only write
// plans, and the dataset engine runs them.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/datalyst/chart"
	"github.com/smallnest/datalyst/dataset"
	"github.com/smallnest/datalyst/graph"
	"github.com/smallnest/datalyst/llm"
	"github.com/smallnest/datalyst/log"
)

// Intent classifies what kind of answer a question wants.
type Intent string

const (
	IntentAnalysis      Intent = "analysis"
	IntentVisualization Intent = "visualization"
	IntentSummary       Intent = "summary"
)

// Valid reports whether the intent is one of the three known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentAnalysis, IntentVisualization, IntentSummary:
		return true
	}
	return false
}

// ErrNoFrame is returned when Run is called without a dataset.
var ErrNoFrame = errors.New("no dataset loaded")

// State flows through the pipeline. Callers fill Query, Frame and
// optionally Intent; the nodes fill the rest.
type State struct {
	SessionID string
	Query     string
	Intent    Intent
	Frame     *dataset.Frame

	Plan       *Plan
	Expression string
	Result     *dataset.Frame
	Figure     *chart.Figure
	Answer     string
	ModelUsed  string
}

// Options tune the pipeline.
type Options struct {
	// Temperature for model calls; zero uses the provider default.
	Temperature float64

	// MaxRetries for the planning step when the model writes a malformed
	// plan. Defaults to 2.
	MaxRetries int
}

// Agent is a compiled analyst pipeline, safe for concurrent use.
type Agent struct {
	router      *llm.Router
	runnable    *graph.Runnable[State]
	temperature float64
}

// New builds and compiles the pipeline over the given model router.
func New(router *llm.Router, opts Options) (*Agent, error) {
	a := &Agent{router: router, temperature: opts.Temperature}

	g := graph.NewStateGraph[State]()
	g.AddNode("classify", "determine the question's intent", a.classify)
	g.AddNode("plan", "have a model write the analysis plan", a.plan)
	g.AddNode("execute", "run the plan against the frame", a.execute)
	g.AddNode("summarize", "write a grounded dataset summary", a.summarize)

	g.SetEntryPoint("classify")
	g.AddConditionalEdge("classify", func(ctx context.Context, s State) string {
		if s.Intent == IntentSummary {
			return "summarize"
		}
		return "plan"
	})
	g.AddEdge("plan", "execute")
	g.AddEdge("execute", graph.END)
	g.AddEdge("summarize", graph.END)

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	g.SetRetryPolicy(&graph.RetryPolicy{
		MaxRetries:      retries,
		Backoff:         graph.ExponentialBackoff,
		BaseDelay:       200 * time.Millisecond,
		RetryableErrors: []string{ErrBadPlan.Error()},
	})

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	a.runnable = runnable
	return a, nil
}

// Run executes the pipeline for one question.
func (a *Agent) Run(ctx context.Context, s State) (State, error) {
	if s.Frame == nil {
		return s, ErrNoFrame
	}
	return a.runnable.InvokeWithConfig(ctx, s, &graph.Config{ThreadID: s.SessionID})
}

func (a *Agent) classify(ctx context.Context, s State) (State, error) {
	if s.Intent.Valid() {
		return s, nil
	}

	messages := []llm.Message{
		llm.System(classifySystemPrompt),
		llm.User(s.Query),
	}
	content, model, err := a.router.Generate(ctx, llm.PurposeReasoning, messages, &llm.GenerateOptions{
		Temperature: a.temperature,
		MaxTokens:   8,
	})
	if err != nil {
		log.Warn("intent classification failed (%v), using keyword fallback", err)
		s.Intent = classifyByKeywords(s.Query)
		return s, nil
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(content)))
	if !intent.Valid() {
		intent = classifyByKeywords(s.Query)
	}
	s.Intent = intent
	s.ModelUsed = model
	return s, nil
}

func (a *Agent) plan(ctx context.Context, s State) (State, error) {
	purpose := llm.PurposeReasoning
	if s.Intent == IntentVisualization {
		purpose = llm.PurposeVisualization
	}

	system := planSystemPrompt + "\n\n" + frameDescription(s.Frame)
	messages := []llm.Message{
		llm.System(system),
		llm.User(s.Query),
	}
	content, model, err := a.router.Generate(ctx, purpose, messages, &llm.GenerateOptions{
		Temperature: a.temperature,
		JSONOnly:    true,
	})
	if err != nil {
		return s, fmt.Errorf("plan generation failed: %w", err)
	}
	s.ModelUsed = model

	plan, err := ParsePlan(content)
	if err != nil {
		return s, err
	}
	if err := plan.Validate(s.Frame); err != nil {
		return s, err
	}

	s.Plan = plan
	s.Expression = plan.Render()
	return s, nil
}

func (a *Agent) execute(ctx context.Context, s State) (State, error) {
	result, err := s.Plan.Apply(s.Frame)
	if err != nil {
		return s, err
	}
	s.Result = result

	if s.Intent != IntentVisualization {
		return s, nil
	}

	spec := s.Plan.Chart
	if spec == nil {
		spec = defaultChartSpec(result)
		if spec == nil {
			return s, fmt.Errorf("%w: result has no plottable columns", ErrBadPlan)
		}
	}
	figure, err := chart.Build(result, chart.Kind(spec.Kind), spec.X, spec.Y, spec.Title)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrBadPlan, err)
	}
	s.Figure = figure
	return s, nil
}

func (a *Agent) summarize(ctx context.Context, s State) (State, error) {
	query := s.Query
	if strings.TrimSpace(query) == "" {
		query = "Summarize this dataset."
	}

	messages := []llm.Message{
		llm.System(summarySystemPrompt + "\n\n" + frameProfile(s.Frame)),
		llm.User(query),
	}
	content, model, err := a.router.Generate(ctx, llm.PurposeReasoning, messages, &llm.GenerateOptions{
		Temperature: a.temperature,
	})
	if err != nil {
		return s, fmt.Errorf("summary generation failed: %w", err)
	}
	s.Answer = content
	s.ModelUsed = model
	return s, nil
}

// defaultChartSpec picks a bar chart over the result when the model's plan
// carried no chart section: first column as categories, first numeric
// column as values.
func defaultChartSpec(f *dataset.Frame) *ChartSpec {
	cols := f.Columns()
	if len(cols) == 0 {
		return nil
	}
	numeric := f.NumericColumns()
	if len(numeric) == 0 {
		return nil
	}
	x := cols[0]
	y := numeric[0]
	if x == y && len(cols) > 1 {
		x = cols[1]
	}
	return &ChartSpec{Kind: string(chart.KindBar), X: x, Y: y}
}

func classifyByKeywords(query string) Intent {
	q := strings.ToLower(query)
	for _, kw := range []string{"chart", "plot", "graph", "visuali", "draw", "histogram", "pie"} {
		if strings.Contains(q, kw) {
			return IntentVisualization
		}
	}
	for _, kw := range []string{"summar", "overview", "report", "describe the data", "tell me about"} {
		if strings.Contains(q, kw) {
			return IntentSummary
		}
	}
	return IntentAnalysis
}
