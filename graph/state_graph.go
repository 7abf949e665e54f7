package graph

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StateGraph builds a graph whose nodes transform a state of type S.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]Condition[S]
	entryPoint       string
	retryPolicy      *RetryPolicy
}

// NewStateGraph creates an empty state graph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]Condition[S]),
	}
}

// AddNode registers a node with the given name, description and function.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a static edge between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge adds an edge whose target is determined at runtime.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition Condition[S]) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy applied to every node.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// Compile validates the graph and returns a Runnable.
// It fails when the entry point is missing or an edge references an unknown
// node, so wiring mistakes surface at startup rather than mid-request.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.From)
		}
		if e.To == END {
			continue
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.To)
		}
	}
	return &Runnable[S]{graph: g}, nil
}

// Runnable is a compiled state graph ready for invocation.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Invoke executes the graph with the given initial state.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the graph with a per-invocation config.
// Nodes run sequentially; after each node the next node is chosen by the
// node's conditional edge if present, otherwise by its static edge.
func (r *Runnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	state := initialState
	if config != nil {
		ctx = WithConfig(ctx, config)
	}

	current := r.graph.entryPoint
	for current != END {
		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		var err error
		state, err = r.executeWithRetry(ctx, node, state)
		if err != nil {
			return state, fmt.Errorf("node %s: %w", current, err)
		}

		next, err := r.nextNode(ctx, current, state)
		if err != nil {
			return state, err
		}
		current = next
	}
	return state, nil
}

// executeWithRetry runs a node, retrying per the graph's retry policy.
func (r *Runnable[S]) executeWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	policy := r.graph.retryPolicy

	attempts := 1
	if policy != nil {
		attempts = policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := node.Function(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy == nil || attempt == attempts-1 || !policy.retryable(err) {
			break
		}

		select {
		case <-time.After(policy.delay(attempt)):
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
	return state, lastErr
}

func (r *Runnable[S]) nextNode(ctx context.Context, current string, state S) (string, error) {
	if condition, ok := r.graph.conditionalEdges[current]; ok {
		next := condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("conditional edge returned empty next node from %s", current)
		}
		return next, nil
	}
	for _, edge := range r.graph.edges {
		if edge.From == current {
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, current)
}

func (p *RetryPolicy) retryable(err error) bool {
	if len(p.RetryableErrors) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base == 0 {
		base = time.Second
	}
	switch p.Backoff {
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}
