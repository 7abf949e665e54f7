package llm

import (
	"context"

	"github.com/smallnest/datalyst/log"
)

// Purpose selects which model slot a request should use.
type Purpose string

const (
	// PurposeReasoning covers analysis planning and summarization.
	PurposeReasoning Purpose = "reasoning"

	// PurposeVisualization covers chart planning.
	PurposeVisualization Purpose = "visualization"
)

// Router dispatches generation requests to the model configured for a
// purpose, falling back to the other slot when the primary call fails.
type Router struct {
	reasoning     ChatModel
	visualization ChatModel
}

// NewRouter creates a router over the two model slots. Either slot may be
// nil; requests for a missing slot use the other one.
func NewRouter(reasoning, visualization ChatModel) *Router {
	return &Router{reasoning: reasoning, visualization: visualization}
}

// ModelFor returns the model serving a purpose, or the other slot when the
// preferred one is not configured. It returns nil only when no model is
// configured at all.
func (r *Router) ModelFor(purpose Purpose) ChatModel {
	primary, secondary := r.reasoning, r.visualization
	if purpose == PurposeVisualization {
		primary, secondary = r.visualization, r.reasoning
	}
	if primary != nil {
		return primary
	}
	return secondary
}

// Generate routes the request by purpose. When the primary model fails and a
// second model is configured, it retries once on the fallback. It returns
// the completion and the name of the model that produced it.
func (r *Router) Generate(ctx context.Context, purpose Purpose, messages []Message, opts *GenerateOptions) (string, string, error) {
	primary := r.ModelFor(purpose)
	if primary == nil {
		return "", "", ErrNoModel
	}

	content, err := primary.Generate(ctx, messages, opts)
	if err == nil {
		return content, primary.Name(), nil
	}

	fallback := r.other(primary)
	if fallback == nil || ctx.Err() != nil {
		return "", "", err
	}

	log.Warn("model %s failed (%v), falling back to %s", primary.Name(), err, fallback.Name())
	content, ferr := fallback.Generate(ctx, messages, opts)
	if ferr != nil {
		// Report the primary failure; the fallback error is secondary.
		return "", "", err
	}
	return content, fallback.Name(), nil
}

func (r *Router) other(m ChatModel) ChatModel {
	if m == r.reasoning {
		return r.visualization
	}
	return r.reasoning
}
