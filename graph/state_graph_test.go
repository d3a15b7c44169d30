package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	Count int
	Path  []string
}

func step(name string) func(ctx context.Context, s testState) (testState, error) {
	return func(ctx context.Context, s testState) (testState, error) {
		s.Count++
		s.Path = append(s.Path, name)
		return s, nil
	}
}

func TestStateGraph_Linear(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("research", "search", step("research"))
	g.AddNode("synthesize", "answer", step("synthesize"))
	g.SetEntryPoint("research")
	g.AddEdge("research", "synthesize")
	g.AddEdge("synthesize", END)

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	require.NoError(t, err)
	assert.Equal(t, 2, final.Count)
	assert.Equal(t, []string{"research", "synthesize"}, final.Path)
	assert.Equal(t, []string{"research", "synthesize"}, app.Nodes())
}

func TestStateGraph_ConditionalLoop(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("agent", "answer", step("agent"))
	g.AddNode("evaluate", "score", step("evaluate"))
	g.SetEntryPoint("agent")
	g.AddEdge("agent", "evaluate")
	g.AddConditionalEdge("evaluate", func(ctx context.Context, s testState) string {
		if s.Count < 6 {
			return "agent"
		}
		return END
	}, "agent", END)

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	require.NoError(t, err)
	assert.Equal(t, 6, final.Count)
	assert.Equal(t, "evaluate", final.Path[len(final.Path)-1])
}

func TestStateGraph_CompileErrors(t *testing.T) {
	g := NewStateGraph[testState]()
	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)

	g.SetEntryPoint("missing")
	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)

	g.AddNode("a", "", step("a"))
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	_, err = g.Compile()
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStateGraph_NoOutgoingEdge(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("a", "", step("a"))
	g.SetEntryPoint("a")

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
	assert.Equal(t, 1, final.Count)
}

func TestStateGraph_MaxSteps(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("loop", "", step("loop"))
	g.SetEntryPoint("loop")
	g.AddEdge("loop", "loop")
	g.SetMaxSteps(3)

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, ErrMaxStepsExceeded)
	assert.Equal(t, 3, final.Count)
}

func TestStateGraph_NodeErrorKeepsLastState(t *testing.T) {
	boom := errors.New("llm unavailable")
	g := NewStateGraph[testState]()
	g.AddNode("a", "", step("a"))
	g.AddNode("b", "", func(ctx context.Context, s testState) (testState, error) {
		return s, boom
	})
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", END)

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "error in node b")
	assert.Equal(t, []string{"a"}, final.Path)
}

func TestStateGraph_Retry(t *testing.T) {
	attempts := 0
	g := NewStateGraph[testState]()
	g.AddNode("flaky", "", func(ctx context.Context, s testState) (testState, error) {
		attempts++
		if attempts < 3 {
			return s, errors.New("rate limit reached")
		}
		s.Count = attempts
		return s, nil
	})
	g.SetEntryPoint("flaky")
	g.AddEdge("flaky", END)
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      3,
		BackoffStrategy: FixedBackoff,
		RetryableErrors: []string{"rate limit"},
		BaseDelay:       time.Millisecond,
	})

	app, err := g.Compile()
	require.NoError(t, err)

	final, err := app.Invoke(context.Background(), testState{})
	require.NoError(t, err)
	assert.Equal(t, 3, final.Count)
}

func TestStateGraph_NonRetryableError(t *testing.T) {
	attempts := 0
	g := NewStateGraph[testState]()
	g.AddNode("fail", "", func(ctx context.Context, s testState) (testState, error) {
		attempts++
		return s, errors.New("invalid request")
	})
	g.SetEntryPoint("fail")
	g.AddEdge("fail", END)
	g.SetRetryPolicy(&RetryPolicy{MaxRetries: 3, RetryableErrors: []string{"timeout"}, BaseDelay: time.Millisecond})

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), testState{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := &RetryPolicy{BackoffStrategy: ExponentialBackoff}
	assert.Equal(t, time.Second, p.delay(0))
	assert.Equal(t, 4*time.Second, p.delay(2))

	p.BackoffStrategy = LinearBackoff
	assert.Equal(t, 3*time.Second, p.delay(2))

	p.BackoffStrategy = FixedBackoff
	p.BaseDelay = 10 * time.Millisecond
	assert.Equal(t, 10*time.Millisecond, p.delay(5))
}

func TestStateGraph_Listeners(t *testing.T) {
	var events []string
	g := NewStateGraph[testState]()
	g.AddNode("a", "", step("a"))
	g.SetEntryPoint("a")
	g.AddEdge("a", END)
	g.AddListener(NodeListenerFunc[testState](func(ctx context.Context, event NodeEvent, name string, s testState, err error) {
		events = append(events, name+":"+string(event))
	}))

	app, err := g.Compile()
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), testState{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a:start", "a:complete"}, events)
}

func TestStateGraph_ContextCancelled(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("a", "", step("a"))
	g.SetEntryPoint("a")
	g.AddEdge("a", END)

	app, err := g.Compile()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = app.Invoke(ctx, testState{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrawMermaid(t *testing.T) {
	g := NewStateGraph[testState]()
	g.AddNode("agent", "", step("agent"))
	g.AddNode("evaluate_quality", "", step("evaluate"))
	g.SetEntryPoint("agent")
	g.AddEdge("agent", "evaluate_quality")
	g.AddConditionalEdge("evaluate_quality", func(ctx context.Context, s testState) string { return END }, "agent", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out := app.DrawMermaid()
	assert.Contains(t, out, "START --> agent")
	assert.Contains(t, out, "agent --> evaluate_quality")
	assert.Contains(t, out, "evaluate_quality -.-> agent")
	assert.Contains(t, out, "evaluate_quality -.-> END")
}
