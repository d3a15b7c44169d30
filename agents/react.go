package agents

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/tools"

	"github.com/smallnest/courseqa/graph"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/prebuilt"
	"github.com/smallnest/courseqa/tool"
)

// reactNode runs a ReActLoop over the tools chosen for the state.
type reactNode struct {
	deps   Deps
	prompt string
	tools  func(s *State) []tools.Tool
}

func (n *reactNode) run(ctx context.Context, s *State) (*State, error) {
	ts := n.tools(s)
	loop := prebuilt.NewReActLoop(n.deps.Model, n.prompt, ts)
	loop.Logger = n.deps.Logger
	if n.deps.MaxReActIterations > 0 {
		loop.MaxIterations = n.deps.MaxReActIterations
	}

	n.deps.Logger.Info("ReAct agent: %q with %d tools", s.Query, len(ts))
	res, err := loop.Run(ctx, s.Query, s.ConversationHistory)
	if res != nil {
		s.ReasoningTrace = res.Steps
		s.ReActIterations = res.Iterations
		s.Metrics.TokenUsage.Add(res.Usage)
		if res.LLMCalls > 0 {
			s.Metrics.LLMCalls[CallReAct] += res.LLMCalls
		}
	}
	if err != nil {
		return s, err
	}
	s.FinalResponse = res.Answer
	s.visit("react_completed")
	return s, nil
}

func newHybridGraph(d Deps) *graph.StateGraph[*State] {
	search := &tool.CourseSearch{Manager: d.Manager, Hierarchical: d.Hierarchical, Logger: d.Logger}
	react := &reactNode{
		deps:   d,
		prompt: prebuilt.HybridSearchReActPrompt,
		tools:  func(*State) []tools.Tool { return []tools.Tool{search} },
	}

	g := graph.NewStateGraph[*State]()
	g.AddNode("react_agent", "ReAct agent with hybrid course search", react.run)
	g.AddEdge("react_agent", graph.END)
	g.SetEntryPoint("react_agent")
	return g
}

// memoryNodes loads the session's conversation before the agent runs and
// appends the new turn afterwards. Memory failures never fail the run.
type memoryNodes struct {
	deps Deps
}

func (m *memoryNodes) load(ctx context.Context, s *State) (*State, error) {
	start := time.Now()
	wm, created, err := m.deps.Memory.GetOrCreateWorkingMemory(ctx, s.SessionID, s.StudentID, m.deps.MemoryModelName)
	s.Metrics.MemoryLoadLatency = time.Since(start)
	if err != nil {
		m.deps.Logger.Warn("Failed to load working memory for %s: %v", s.SessionID, err)
		s.ConversationHistory = nil
		s.visit("memory_load_failed")
		return s, nil
	}

	s.workingMemory = wm
	s.ConversationHistory = append([]memory.MemoryMessage(nil), wm.Messages...)
	if created {
		m.deps.Logger.Info("New session %s", s.SessionID)
	} else {
		m.deps.Logger.Info("Loaded %d messages for session %s", len(wm.Messages), s.SessionID)
	}
	s.visit("memory_loaded")
	return s, nil
}

func (m *memoryNodes) save(ctx context.Context, s *State) (*State, error) {
	start := time.Now()
	defer func() { s.Metrics.MemorySaveLatency = time.Since(start) }()

	wm := s.workingMemory
	if wm == nil {
		wm = &memory.WorkingMemory{
			SessionID: s.SessionID,
			UserID:    s.StudentID,
			Messages:  append([]memory.MemoryMessage(nil), s.ConversationHistory...),
		}
	}
	wm.Messages = append(wm.Messages,
		memory.MemoryMessage{Role: memory.RoleUser, Content: s.Query},
		memory.MemoryMessage{Role: memory.RoleAssistant, Content: s.FinalResponse},
	)

	saved, err := m.deps.Memory.PutWorkingMemory(ctx, wm, m.deps.MemoryModelName)
	if err != nil {
		m.deps.Logger.Warn("Failed to save working memory for %s: %v", s.SessionID, err)
		s.visit("memory_save_failed")
		return s, nil
	}
	if saved != nil {
		s.workingMemory = saved
	}
	m.deps.Logger.Debug("Saved %d messages for session %s", len(wm.Messages), s.SessionID)
	s.visit("memory_saved")
	return s, nil
}

func memoryGraph(m *memoryNodes, react *reactNode) *graph.StateGraph[*State] {
	g := graph.NewStateGraph[*State]()
	g.AddNode("load_working_memory", "Load the session conversation", m.load)
	g.AddNode("react_agent", "ReAct agent", react.run)
	g.AddNode("save_working_memory", "Append this turn to the session", m.save)
	g.SetEntryPoint("load_working_memory")
	g.AddEdge("load_working_memory", "react_agent")
	g.AddEdge("react_agent", "save_working_memory")
	g.AddEdge("save_working_memory", graph.END)
	return g
}

func newWorkingMemoryGraph(d Deps) *graph.StateGraph[*State] {
	search := &tool.CourseSearch{Manager: d.Manager, Hierarchical: d.Hierarchical, Logger: d.Logger}
	return memoryGraph(&memoryNodes{deps: d}, &reactNode{
		deps:   d,
		prompt: prebuilt.HybridSearchReActPrompt,
		tools:  func(*State) []tools.Tool { return []tools.Tool{search} },
	})
}

// ToolGroups builds the keyword-selected tool groups for one student. The
// search group carries the course tools plus store_memory so preferences
// mentioned alongside a search are kept; the memory group carries the
// memory tools plus search_courses.
func ToolGroups(d Deps, studentID string) map[string][]tools.Tool {
	courseTools := tool.NewCourseTools(d.Manager, d.Hierarchical, d.Memory, studentID)
	memoryTools := tool.NewMemoryTools(d.Memory, studentID, d.Model)

	var search, mem []tools.Tool
	search = append(search, courseTools...)
	mem = append(mem, memoryTools...)
	for _, t := range memoryTools {
		if t.Name() == "store_memory" {
			search = append(search, t)
		}
	}
	for _, t := range courseTools {
		if t.Name() == "search_courses" {
			mem = append(mem, t)
		}
	}
	return map[string][]tools.Tool{tool.GroupSearch: search, tool.GroupMemory: mem}
}

func newFullMemoryGraph(d Deps) *graph.StateGraph[*State] {
	return memoryGraph(&memoryNodes{deps: d}, &reactNode{
		deps:   d,
		prompt: prebuilt.MemoryReActPrompt,
		tools: func(s *State) []tools.Tool {
			return tool.SelectToolsByKeywords(s.Query, ToolGroups(d, s.StudentID))
		},
	})
}
