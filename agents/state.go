// Package agents builds the six course advisor workflows, from a plain
// retrieve-then-answer pipeline up to a ReAct agent with working and
// long-term memory. Every workflow is a graph.StateGraph over *State.
package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/prebuilt"
)

// Keys of Metrics.LLMCalls.
const (
	CallSynthesis = "synthesis_llm"
	CallAnalysis  = "analysis_llm"
	CallAgent     = "agent_llm"
	CallReAct     = "react_llm"
)

// DefaultStudentID is used when a run names no student.
const DefaultStudentID = "student"

// Metrics is collected for every run.
type Metrics struct {
	TotalLatency      time.Duration     `json:"total_latency"`
	LLMCalls          map[string]int    `json:"llm_calls"`
	TokenUsage        cqllms.TokenUsage `json:"token_usage"`
	MemoryLoadLatency time.Duration     `json:"memory_load_latency,omitempty"`
	MemorySaveLatency time.Duration     `json:"memory_save_latency,omitempty"`
	ContextTokens     int               `json:"context_tokens,omitempty"`
}

// TotalLLMCalls sums the per-model call counts.
func (m *Metrics) TotalLLMCalls() int {
	n := 0
	for _, c := range m.LLMCalls {
		n += c
	}
	return n
}

func (m *Metrics) countCall(key string, usage cqllms.TokenUsage) {
	if m.LLMCalls == nil {
		m.LLMCalls = make(map[string]int)
	}
	m.LLMCalls[key]++
	m.TokenUsage.Add(usage)
}

// State flows through the workflow graphs. Nodes mutate it in place.
type State struct {
	Query     string `json:"query"`
	StudentID string `json:"student_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	FinalResponse string   `json:"final_response"`
	ExecutionPath []string `json:"execution_path"`

	// Context is the retrieved course context of the research node.
	Context      string `json:"-"`
	CoursesFound int    `json:"courses_found"`

	QueryIntent    string  `json:"query_intent,omitempty"`
	QualityScore   float64 `json:"quality_score,omitempty"`
	IterationCount int     `json:"iteration_count,omitempty"`

	ReasoningTrace  []prebuilt.ReasoningStep `json:"reasoning_trace,omitempty"`
	ReActIterations int                      `json:"react_iterations,omitempty"`

	ConversationHistory []memory.MemoryMessage `json:"conversation_history,omitempty"`

	Metrics Metrics `json:"metrics"`

	workingMemory *memory.WorkingMemory
}

func newState(query string, o runOptions) *State {
	return &State{
		Query:         query,
		StudentID:     o.studentID,
		SessionID:     o.sessionID,
		ExecutionPath: []string{},
		Metrics:       Metrics{LLMCalls: make(map[string]int)},
	}
}

func (s *State) visit(step string) {
	s.ExecutionPath = append(s.ExecutionPath, step)
}

// Path renders the execution path the way the CLI prints it.
func (s *State) Path() string {
	return strings.Join(s.ExecutionPath, " → ")
}

// NewSessionID returns session_{student}_{8 hex chars}.
func NewSessionID(studentID string) string {
	if studentID == "" {
		studentID = DefaultStudentID
	}
	return fmt.Sprintf("session_%s_%s", studentID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// RunOption configures a single run.
type RunOption func(*runOptions)

type runOptions struct {
	studentID string
	sessionID string
}

// WithStudent sets the student the run acts for.
func WithStudent(id string) RunOption {
	return func(o *runOptions) { o.studentID = id }
}

// WithSession sets the working memory session.
func WithSession(id string) RunOption {
	return func(o *runOptions) { o.sessionID = id }
}
