package agents

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/graph"
	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/rag"
)

// Stage selects one of the workflows.
type Stage int

const (
	StageBaseline Stage = iota + 1
	StageEngineered
	StageHierarchical
	StageHybridReAct
	StageWorkingMemory
	StageFullMemory
)

var stageNames = map[Stage]string{
	StageBaseline:      "baseline",
	StageEngineered:    "engineered",
	StageHierarchical:  "hierarchical",
	StageHybridReAct:   "hybrid-react",
	StageWorkingMemory: "working-memory",
	StageFullMemory:    "full-memory",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "stage(" + strconv.Itoa(int(s)) + ")"
}

// loggerName names the default logger. The two pipeline stages log under
// their own names; the agent stages share one.
func (s Stage) loggerName() string {
	switch s {
	case StageBaseline:
		return "stage1-baseline"
	case StageEngineered:
		return "stage2-engineered"
	default:
		return "course-qa-workflow"
	}
}

// UsesMemory reports whether the stage needs a memory.Client.
func (s Stage) UsesMemory() bool {
	return s >= StageWorkingMemory
}

// ParseStage accepts a stage number ("3") or name ("hierarchical").
func ParseStage(v string) (Stage, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if n, err := strconv.Atoi(strings.TrimPrefix(v, "stage")); err == nil {
		if _, ok := stageNames[Stage(n)]; ok {
			return Stage(n), nil
		}
	}
	for s, name := range stageNames {
		if name == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", v)
}

// Deps are the collaborators of a workflow. Memory is only needed from
// StageWorkingMemory on.
type Deps struct {
	Model        llms.Model
	Manager      *rag.CourseManager
	Hierarchical map[string]catalog.HierarchicalCourse
	Memory       memory.Client
	Counter      *cqllms.TokenCounter
	Logger       log.Logger

	// MemoryModelName is sent with working memory calls so the server can
	// size its summarisation window.
	MemoryModelName string

	// Optimize makes the engineered stage render one compact line per course.
	Optimize bool

	MaxReActIterations   int
	MaxQualityIterations int
}

// Workflow is a compiled stage.
type Workflow struct {
	stage    Stage
	runnable *graph.Runnable[*State]
	logger   log.Logger
}

// New compiles the workflow for stage.
func New(stage Stage, d Deps) (*Workflow, error) {
	if d.Model == nil {
		return nil, errors.New("agents: chat model is required")
	}
	if d.Manager == nil {
		return nil, errors.New("agents: course manager is required")
	}
	if stage.UsesMemory() && d.Memory == nil {
		return nil, fmt.Errorf("agents: stage %s requires a memory client", stage)
	}
	if d.Logger == nil {
		d.Logger = log.Named(stage.loggerName())
	}

	var g *graph.StateGraph[*State]
	switch stage {
	case StageBaseline:
		g = newBaselineGraph(d)
	case StageEngineered:
		g = newEngineeredGraph(d)
	case StageHierarchical:
		g = newHierarchicalGraph(d)
	case StageHybridReAct:
		g = newHybridGraph(d)
	case StageWorkingMemory:
		g = newWorkingMemoryGraph(d)
	case StageFullMemory:
		g = newFullMemoryGraph(d)
	default:
		return nil, fmt.Errorf("agents: unknown stage %d", stage)
	}

	logger := d.Logger
	g.AddListener(graph.NodeListenerFunc[*State](func(_ context.Context, event graph.NodeEvent, node string, _ *State, err error) {
		if err != nil {
			logger.Warn("node %s %s: %v", node, event, err)
			return
		}
		logger.Debug("node %s %s", node, event)
	}))

	r, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s workflow: %w", stage, err)
	}
	return &Workflow{stage: stage, runnable: r, logger: logger}, nil
}

// Stage returns the stage the workflow was built for.
func (w *Workflow) Stage() Stage { return w.stage }

// Mermaid renders the workflow graph.
func (w *Workflow) Mermaid() string { return w.runnable.DrawMermaid() }

// Run answers query. It never returns nil: a failed run yields a state whose
// FinalResponse starts with "Error: " and whose path is ["failed"].
func (w *Workflow) Run(ctx context.Context, query string, opts ...RunOption) *State {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if w.stage.UsesMemory() {
		if o.studentID == "" {
			o.studentID = DefaultStudentID
		}
		if o.sessionID == "" {
			o.sessionID = NewSessionID(o.studentID)
		}
	}

	start := time.Now()
	final, err := w.runnable.Invoke(ctx, newState(query, o))
	if err != nil {
		w.logger.Error("workflow failed: %v", err)
		failed := newState(query, o)
		failed.FinalResponse = "Error: " + err.Error()
		failed.ExecutionPath = []string{"failed"}
		failed.Metrics.TotalLatency = time.Since(start)
		return failed
	}
	final.Metrics.TotalLatency = time.Since(start)
	return final
}

func (d Deps) countTokens(text string) int {
	return d.Counter.Count(text)
}

func (d Deps) maxQualityIterations() int {
	if d.MaxQualityIterations > 0 {
		return d.MaxQualityIterations
	}
	return 2
}

// complete issues one counted chat call on behalf of a node.
func (d Deps) complete(ctx context.Context, s *State, key, system, prompt string, opts ...llms.CallOption) (string, error) {
	text, usage, err := cqllms.Complete(ctx, d.Model, system, prompt, opts...)
	if err != nil {
		return "", err
	}
	s.Metrics.countCall(key, usage)
	return text, nil
}
