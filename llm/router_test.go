package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	name     string
	response string
	err      error
	calls    int
}

func (f *fakeModel) Name() string { return f.name }

func (f *fakeModel) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestRouter_RoutesByPurpose(t *testing.T) {
	reasoning := &fakeModel{name: "mistral", response: "analysis"}
	viz := &fakeModel{name: "llama3", response: "chart"}
	router := NewRouter(reasoning, viz)

	content, model, err := router.Generate(context.Background(), PurposeReasoning, []Message{User("q")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "analysis", content)
	assert.Equal(t, "mistral", model)

	content, model, err = router.Generate(context.Background(), PurposeVisualization, []Message{User("q")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "chart", content)
	assert.Equal(t, "llama3", model)
}

func TestRouter_FallbackOnFailure(t *testing.T) {
	reasoning := &fakeModel{name: "mistral", err: errors.New("rate limited")}
	viz := &fakeModel{name: "llama3", response: "rescued"}
	router := NewRouter(reasoning, viz)

	content, model, err := router.Generate(context.Background(), PurposeReasoning, []Message{User("q")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "rescued", content)
	assert.Equal(t, "llama3", model)
	assert.Equal(t, 1, reasoning.calls)
	assert.Equal(t, 1, viz.calls)
}

func TestRouter_FallbackFailureReportsPrimaryError(t *testing.T) {
	primaryErr := errors.New("primary down")
	reasoning := &fakeModel{name: "mistral", err: primaryErr}
	viz := &fakeModel{name: "llama3", err: errors.New("secondary down")}
	router := NewRouter(reasoning, viz)

	_, _, err := router.Generate(context.Background(), PurposeReasoning, []Message{User("q")}, nil)
	assert.ErrorIs(t, err, primaryErr)
}

func TestRouter_MissingSlotUsesOther(t *testing.T) {
	reasoning := &fakeModel{name: "mistral", response: "ok"}
	router := NewRouter(reasoning, nil)

	content, model, err := router.Generate(context.Background(), PurposeVisualization, []Message{User("q")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, "mistral", model)
}

func TestRouter_NoModels(t *testing.T) {
	router := NewRouter(nil, nil)
	_, _, err := router.Generate(context.Background(), PurposeReasoning, []Message{User("q")}, nil)
	assert.ErrorIs(t, err, ErrNoModel)
}
