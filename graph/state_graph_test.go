package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testState struct {
	Steps []string
	N     int
}

func TestStateGraph_Linear(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("a", "first", func(ctx context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, "a")
		return s, nil
	})
	g.AddNode("b", "second", func(ctx context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, "b")
		return s, nil
	})
	g.AddEdge("a", "b")
	g.AddEdge("b", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), testState{})
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Steps)
}

func TestStateGraph_ConditionalEdge(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("start", "", func(ctx context.Context, s testState) (testState, error) {
		return s, nil
	})
	g.AddNode("even", "", func(ctx context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, "even")
		return s, nil
	})
	g.AddNode("odd", "", func(ctx context.Context, s testState) (testState, error) {
		s.Steps = append(s.Steps, "odd")
		return s, nil
	})
	g.AddConditionalEdge("start", func(ctx context.Context, s testState) string {
		if s.N%2 == 0 {
			return "even"
		}
		return "odd"
	})
	g.AddEdge("even", END)
	g.AddEdge("odd", END)
	g.SetEntryPoint("start")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	result, err := runnable.Invoke(context.Background(), testState{N: 4})
	assert.NoError(t, err)
	assert.Equal(t, []string{"even"}, result.Steps)

	result, err = runnable.Invoke(context.Background(), testState{N: 3})
	assert.NoError(t, err)
	assert.Equal(t, []string{"odd"}, result.Steps)
}

func TestStateGraph_CompileErrors(t *testing.T) {
	g := NewStateGraph[testState]()
	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)

	g.AddNode("a", "", func(ctx context.Context, s testState) (testState, error) { return s, nil })
	g.AddEdge("a", "missing")
	g.SetEntryPoint("a")
	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStateGraph_NoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("a", "", func(ctx context.Context, s testState) (testState, error) { return s, nil })
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
}

func TestStateGraph_Retry(t *testing.T) {
	attempts := 0
	g := NewStateGraph[testState]()
	g.AddNode("flaky", "", func(ctx context.Context, s testState) (testState, error) {
		attempts++
		if attempts < 3 {
			return s, errors.New("malformed plan")
		}
		return s, nil
	})
	g.AddEdge("flaky", END)
	g.SetEntryPoint("flaky")
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      3,
		Backoff:         FixedBackoff,
		BaseDelay:       time.Millisecond,
		RetryableErrors: []string{"malformed plan"},
	})

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), testState{})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestStateGraph_RetryOnlyMatchingErrors(t *testing.T) {
	attempts := 0
	g := NewStateGraph[testState]()
	g.AddNode("broken", "", func(ctx context.Context, s testState) (testState, error) {
		attempts++
		return s, errors.New("permanent failure")
	})
	g.AddEdge("broken", END)
	g.SetEntryPoint("broken")
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      5,
		BaseDelay:       time.Millisecond,
		RetryableErrors: []string{"malformed plan"},
	})

	runnable, err := g.Compile()
	assert.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), testState{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestConfigFromContext(t *testing.T) {
	var seen *Config
	g := NewStateGraph[testState]()
	g.AddNode("a", "", func(ctx context.Context, s testState) (testState, error) {
		seen = ConfigFromContext(ctx)
		return s, nil
	})
	g.AddEdge("a", END)
	g.SetEntryPoint("a")

	runnable, err := g.Compile()
	assert.NoError(t, err)

	cfg := &Config{ThreadID: "session-1"}
	_, err = runnable.InvokeWithConfig(context.Background(), testState{}, cfg)
	assert.NoError(t, err)
	assert.NotNil(t, seen)
	assert.Equal(t, "session-1", seen.ThreadID)
}
