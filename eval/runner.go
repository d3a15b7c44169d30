package eval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/log"
)

// AgentFunc answers one case.
type AgentFunc func(ctx context.Context, c Case) *agents.State

// FromWorkflow adapts a workflow. Cases without a student run as
// defaultStudent; sessions are namespaced by suite run so that repeated
// runs start from empty working memory.
func FromWorkflow(w *agents.Workflow, defaultStudent string) AgentFunc {
	run := time.Now().UnixNano()
	return func(ctx context.Context, c Case) *agents.State {
		student := c.Student
		if student == "" {
			student = defaultStudent
		}
		opts := []agents.RunOption{agents.WithStudent(student)}
		if c.Session != "" {
			opts = append(opts, agents.WithSession(fmt.Sprintf("eval_%s_%d", c.Session, run)))
		}
		return w.Run(ctx, c.Query, opts...)
	}
}

// Result is the outcome of one case.
type Result struct {
	Case     Case
	Passed   bool
	Failures []string
	Response string
	Path     string
	Latency  time.Duration
	LLMCalls int
	Tokens   int
}

// Report aggregates a suite run.
type Report struct {
	Suite   string
	Results []Result
	Passed  int
	Failed  int
}

// PassRate is the share of passing cases.
func (r *Report) PassRate() float64 {
	if len(r.Results) == 0 {
		return 0
	}
	return float64(r.Passed) / float64(len(r.Results))
}

// AverageLatency over all cases.
func (r *Report) AverageLatency() time.Duration {
	if len(r.Results) == 0 {
		return 0
	}
	var total time.Duration
	for _, res := range r.Results {
		total += res.Latency
	}
	return total / time.Duration(len(r.Results))
}

// TotalTokens over all cases.
func (r *Report) TotalTokens() int {
	n := 0
	for _, res := range r.Results {
		n += res.Tokens
	}
	return n
}

// Runner runs suites case by case, in order.
type Runner struct {
	Agent  AgentFunc
	Logger log.Logger
}

// Run executes every case of s.
func (r *Runner) Run(ctx context.Context, s *Suite) (*Report, error) {
	logger := log.OrDefault(r.Logger)
	report := &Report{Suite: s.Name}
	for i, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		logger.Info("[%d/%d] %s: %q", i+1, len(s.Cases), c.Name, c.Query)
		state := r.Agent(ctx, c)
		res := Check(c, state)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
			logger.Warn("%s failed: %s", c.Name, strings.Join(res.Failures, "; "))
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// Check evaluates state against the expectations of c. Text checks ignore
// case. min_iterations counts ReAct iterations, or quality iterations for
// workflows without a ReAct loop.
func Check(c Case, state *agents.State) Result {
	res := Result{Case: c}
	if state == nil {
		res.Failures = []string{"no result"}
		return res
	}
	res.Response = state.FinalResponse
	res.Path = state.Path()
	res.Latency = state.Metrics.TotalLatency
	res.LLMCalls = state.Metrics.TotalLLMCalls()
	res.Tokens = state.Metrics.TokenUsage.Total

	if len(state.ExecutionPath) == 1 && state.ExecutionPath[0] == "failed" {
		res.Failures = append(res.Failures, "workflow failed: "+state.FinalResponse)
	}

	answer := strings.ToLower(state.FinalResponse)
	for _, want := range c.Expect.Contains {
		if !strings.Contains(answer, strings.ToLower(want)) {
			res.Failures = append(res.Failures, fmt.Sprintf("response does not contain %q", want))
		}
	}
	for _, bad := range c.Expect.NotContains {
		if strings.Contains(answer, strings.ToLower(bad)) {
			res.Failures = append(res.Failures, fmt.Sprintf("response contains %q", bad))
		}
	}
	if c.Expect.Intent != "" && !strings.EqualFold(c.Expect.Intent, state.QueryIntent) {
		res.Failures = append(res.Failures, fmt.Sprintf("intent %s, want %s", state.QueryIntent, c.Expect.Intent))
	}
	if c.Expect.MinQuality > 0 && state.QualityScore < c.Expect.MinQuality {
		res.Failures = append(res.Failures, fmt.Sprintf("quality %.2f below %.2f", state.QualityScore, c.Expect.MinQuality))
	}
	if c.Expect.MinIterations > 0 {
		iterations := max(state.ReActIterations, state.IterationCount)
		if iterations < c.Expect.MinIterations {
			res.Failures = append(res.Failures, fmt.Sprintf("%d iterations, want at least %d", iterations, c.Expect.MinIterations))
		}
	}
	res.Passed = len(res.Failures) == 0
	return res
}
