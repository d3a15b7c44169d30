package graph

import (
	"context"
	"fmt"
	"time"
)

// StateGraph represents a state-based graph whose nodes share a state of
// type S.
type StateGraph[S any] struct {
	nodes map[string]Node[S]

	// order keeps insertion order for deterministic rendering.
	order []string

	edges []Edge

	// conditionalEdges maps a "from" node to a function choosing the next node.
	conditionalEdges map[string]func(ctx context.Context, state S) string
	branchTargets    map[string][]string

	entryPoint  string
	retryPolicy *RetryPolicy
	listeners   []NodeListener[S]
	maxSteps    int
}

// Node represents a node in the graph.
type Node[S any] struct {
	Name        string
	Description string
	Function    func(ctx context.Context, state S) (S, error)
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		branchTargets:    make(map[string][]string),
		maxSteps:         DefaultMaxSteps,
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = Node[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
// The condition returns a node name or END. targets optionally lists the
// nodes the condition may return; they are only used for rendering.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string, targets ...string) {
	g.conditionalEdges[from] = condition
	g.branchTargets[from] = targets
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy for the graph.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetMaxSteps overrides DefaultMaxSteps.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	if n > 0 {
		g.maxSteps = n
	}
}

// AddListener registers a listener notified around every node execution.
func (g *StateGraph[S]) AddListener(l NodeListener[S]) {
	g.listeners = append(g.listeners, l)
}

// Runnable represents a compiled state graph that can be invoked.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Compile compiles the state graph and returns a Runnable instance.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, g.entryPoint)
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge from %s", ErrNodeNotFound, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok && e.To != END {
			return nil, fmt.Errorf("%w: edge to %s", ErrNodeNotFound, e.To)
		}
	}
	return &Runnable[S]{graph: g}, nil
}

// Invoke executes the compiled graph starting at the entry point and returns
// the state produced by the last node.
func (r *Runnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	state := initialState
	current := r.graph.entryPoint

	for steps := 0; current != END; steps++ {
		if steps >= r.graph.maxSteps {
			return state, fmt.Errorf("%w: %d", ErrMaxStepsExceeded, r.graph.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.graph.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		r.notify(ctx, NodeEventStart, current, state, nil)
		next, err := r.executeNodeWithRetry(ctx, node, state)
		if err != nil {
			r.notify(ctx, NodeEventError, current, state, err)
			return state, fmt.Errorf("error in node %s: %w", current, err)
		}
		state = next
		r.notify(ctx, NodeEventComplete, current, state, nil)

		current, err = r.nextNode(ctx, current, state)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

func (r *Runnable[S]) nextNode(ctx context.Context, from string, state S) (string, error) {
	if cond, ok := r.graph.conditionalEdges[from]; ok {
		next := cond(ctx, state)
		if next == "" {
			return END, nil
		}
		return next, nil
	}
	for _, e := range r.graph.edges {
		if e.From == from {
			return e.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *Runnable[S]) executeNodeWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	policy := r.graph.retryPolicy
	attempts := 1
	if policy != nil {
		attempts += policy.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := node.Function(ctx, state)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts-1 || !policy.retryable(err) {
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

func (r *Runnable[S]) notify(ctx context.Context, event NodeEvent, name string, state S, err error) {
	for _, l := range r.graph.listeners {
		l.OnNodeEvent(ctx, event, name, state, err)
	}
}

// Nodes returns node names in insertion order.
func (r *Runnable[S]) Nodes() []string {
	out := make([]string, len(r.graph.order))
	copy(out, r.graph.order)
	return out
}
