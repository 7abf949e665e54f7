// Package graph provides the state-graph engine that drives the datalyst
// analyst pipeline.
//
// A StateGraph is a set of named nodes connected by static or conditional
// edges. State of type S flows through the graph: each node receives the
// current state and returns an updated one. Compile validates the wiring and
// produces a Runnable that can be invoked per request.
package graph

import (
	"context"
	"errors"
	"time"
)

// END is the sentinel node name that terminates graph execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when execution reaches a node with no
	// outgoing edge and no conditional edge.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")
)

// Node is a processing unit in the graph.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function transforms the state. It receives the current state and
	// returns the updated state and an error.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge connects two nodes.
type Edge struct {
	From string
	To   string
}

// Condition picks the next node name based on the current state.
type Condition[S any] func(ctx context.Context, state S) string

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy int

const (
	FixedBackoff BackoffStrategy = iota
	LinearBackoff
	ExponentialBackoff
)

// RetryPolicy defines how node failures are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Backoff selects the delay growth strategy. The base delay is BaseDelay,
	// or one second when zero.
	Backoff BackoffStrategy

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// RetryableErrors lists substrings; an error is retried only when its
	// message contains one of them. Empty means every error is retryable.
	RetryableErrors []string
}

// Config carries per-invocation settings.
type Config struct {
	// ThreadID identifies the conversation the invocation belongs to.
	ThreadID string

	// Metadata is free-form data available to nodes through the context.
	Metadata map[string]any
}

type configKey struct{}

// WithConfig stores the config in the context so nodes can read it.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// ConfigFromContext returns the config stored by WithConfig, or nil.
func ConfigFromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}
