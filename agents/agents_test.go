package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/internal/coursetest"
	"github.com/smallnest/courseqa/llms/scripted"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/memory/memorytest"
	"github.com/smallnest/courseqa/prebuilt"
)

func testDeps(t *testing.T, model llms.Model) Deps {
	return Deps{
		Model:        model,
		Manager:      coursetest.Manager(t),
		Hierarchical: catalog.IndexByCode(coursetest.Hierarchical()),
		Logger:       &log.NoOpLogger{},
	}
}

func mustNew(t *testing.T, stage Stage, d Deps) *Workflow {
	t.Helper()
	w, err := New(stage, d)
	require.NoError(t, err)
	return w
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"1", StageBaseline},
		{"stage3", StageHierarchical},
		{"hybrid-react", StageHybridReAct},
		{" Full-Memory ", StageFullMemory},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseStage("7")
	assert.Error(t, err)
	_, err = ParseStage("advanced")
	assert.Error(t, err)

	assert.Equal(t, "working-memory", StageWorkingMemory.String())
	assert.True(t, StageWorkingMemory.UsesMemory())
	assert.False(t, StageHybridReAct.UsesMemory())
}

func TestNewValidatesDeps(t *testing.T) {
	_, err := New(StageBaseline, Deps{})
	assert.ErrorContains(t, err, "chat model is required")

	_, err = New(StageBaseline, Deps{Model: scripted.Text()})
	assert.ErrorContains(t, err, "course manager is required")

	d := testDeps(t, scripted.Text())
	_, err = New(StageWorkingMemory, d)
	assert.ErrorContains(t, err, "requires a memory client")

	_, err = New(Stage(42), d)
	assert.ErrorContains(t, err, "unknown stage")
}

func TestBaselineAnswersFromRawContext(t *testing.T) {
	model := scripted.New(scripted.Response{
		Content: "  CS001 is the place to start.  ",
		Usage:   &scripted.Usage{Prompt: 900, Completion: 40},
	})
	w := mustNew(t, StageBaseline, testDeps(t, model))

	s := w.Run(context.Background(), "What programming courses are there?")

	assert.Equal(t, "CS001 is the place to start.", s.FinalResponse)
	assert.Equal(t, []string{"research", "synthesize"}, s.ExecutionPath)
	assert.Equal(t, "research → synthesize", s.Path())
	assert.Equal(t, 5, s.CoursesFound)
	assert.Equal(t, 1, s.Metrics.LLMCalls[CallSynthesis])
	assert.Equal(t, 940, s.Metrics.TokenUsage.Total)
	assert.Positive(t, s.Metrics.ContextTokens)
	assert.Positive(t, s.Metrics.TotalLatency)

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 1)
	prompt := calls[0].Prompt()
	assert.Contains(t, prompt, `"course_code": "CS001"`)
	assert.Contains(t, prompt, "Question: What programming courses are there?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestEngineeredUsesCleanedContext(t *testing.T) {
	model := scripted.Text("Try CS001.")
	w := mustNew(t, StageEngineered, testDeps(t, model))

	s := w.Run(context.Background(), "beginner programming")
	assert.Equal(t, "Try CS001.", s.FinalResponse)

	calls := model.Calls()
	require.Len(t, calls, 1)
	msgs := calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, EngineeredSystemInstructions, msgs[0].Parts[0].(llms.TextContent).Text)

	prompt := msgs[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "Course Information (context engineered data):")
	assert.Contains(t, prompt, "CS001: Introduction to Programming\nDepartment: Computer Science")
	assert.Contains(t, prompt, "Student Question: beginner programming")
	assert.NotContains(t, prompt, `"course_code"`)
}

func TestEngineeredOptimizeShrinksContext(t *testing.T) {
	full := mustNew(t, StageEngineered, testDeps(t, scripted.Text("a"))).Run(context.Background(), "databases")

	d := testDeps(t, scripted.Text("b"))
	d.Optimize = true
	compact := mustNew(t, StageEngineered, d).Run(context.Background(), "databases")

	assert.Less(t, compact.Metrics.ContextTokens, full.Metrics.ContextTokens)
}

func TestPipelineWithoutCourses(t *testing.T) {
	model := scripted.Text("Nothing matches.")
	d := testDeps(t, model)
	d.Manager = coursetest.EmptyManager(t)
	s := mustNew(t, StageBaseline, d).Run(context.Background(), "quantum basket weaving")

	assert.Equal(t, 0, s.CoursesFound)
	assert.Equal(t, "No courses found.", s.Context)
	assert.Contains(t, model.Calls()[0].Prompt(), "Context:\nNo courses found.")
}

func TestResearchFailureIsReported(t *testing.T) {
	model := scripted.Text("I could not search the catalog.")
	d := testDeps(t, model)
	d.Manager = coursetest.UnreachableManager(t)
	s := mustNew(t, StageBaseline, d).Run(context.Background(), "databases")

	assert.Equal(t, []string{"research_failed", "synthesize"}, s.ExecutionPath)
	assert.True(t, strings.HasPrefix(s.Context, "Search failed: "))
	assert.Equal(t, 0, s.CoursesFound)
	assert.Equal(t, "I could not search the catalog.", s.FinalResponse)
}

func TestSynthesisFailureIsReported(t *testing.T) {
	model := scripted.New(scripted.Response{Err: errors.New("rate limited")})
	s := mustNew(t, StageEngineered, testDeps(t, model)).Run(context.Background(), "databases")

	assert.Equal(t, "Failed to generate answer: rate limited", s.FinalResponse)
	assert.Equal(t, []string{"research", "synthesize_failed"}, s.ExecutionPath)
	assert.Empty(t, s.Metrics.LLMCalls[CallSynthesis])
}

func TestParseIntent(t *testing.T) {
	assert.Equal(t, "GREETING", ParseIntent("INTENT: GREETING"))
	assert.Equal(t, "ASSIGNMENTS", ParseIntent("Reasoning first.\nINTENT: assignments\n"))
	assert.Equal(t, "GENERAL", ParseIntent("I think it's about prerequisites"))
	assert.Equal(t, "GENERAL", ParseIntent("INTENT:   "))
}

func TestStageLoggerName(t *testing.T) {
	assert.Equal(t, "stage1-baseline", StageBaseline.loggerName())
	assert.Equal(t, "stage2-engineered", StageEngineered.loggerName())
	assert.Equal(t, "course-qa-workflow", StageHierarchical.loggerName())
	assert.Equal(t, "course-qa-workflow", StageFullMemory.loggerName())
}

func TestParseQualityScore(t *testing.T) {
	assert.InDelta(t, 0.85, ParseQualityScore(" 0.85\n"), 1e-9)
	assert.Equal(t, 1.0, ParseQualityScore("1.7"))
	assert.Equal(t, 0.0, ParseQualityScore("-0.2"))
	assert.Equal(t, 0.8, ParseQualityScore("pretty good"))
	assert.Equal(t, 0.8, ParseQualityScore("NaN"))
	assert.Equal(t, 1.0, ParseQualityScore("+Inf"))
}

func TestHierarchicalGreeting(t *testing.T) {
	model := scripted.Text("INTENT: GREETING", "Hi! I'm a course advisor.")
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "hello there")

	assert.Equal(t, IntentGreeting, s.QueryIntent)
	assert.Equal(t, "Hi! I'm a course advisor.", s.FinalResponse)
	assert.Equal(t, []string{"greeting_handled"}, s.ExecutionPath)
	assert.Equal(t, 2, s.Metrics.LLMCalls[CallAnalysis])

	calls := model.Calls()
	assert.Contains(t, calls[0].Prompt(), "Query: hello there")
	assert.Contains(t, calls[1].Prompt(), "The user sent this message: hello there")
}

func TestHierarchicalGreetingFallback(t *testing.T) {
	model := scripted.New(
		scripted.Response{Content: "INTENT: GREETING"},
		scripted.Response{Err: errors.New("timeout")},
	)
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "thanks")

	assert.Equal(t, greetingFallback, s.FinalResponse)
	assert.Equal(t, []string{"greeting_failed"}, s.ExecutionPath)
}

func TestHierarchicalToolCalling(t *testing.T) {
	model := scripted.New(
		scripted.Response{Content: "INTENT: SYLLABUS_OBJECTIVES"},
		scripted.Response{ToolCalls: []llms.ToolCall{
			scripted.ToolCall("call_1", "search_courses", `{"query": "machine learning", "intent": "SYLLABUS_OBJECTIVES"}`),
		}},
		scripted.Response{Content: "CS009 covers neural networks."},
		scripted.Response{Content: "0.9"},
	)
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "What will I learn in machine learning?")

	assert.Equal(t, "SYLLABUS_OBJECTIVES", s.QueryIntent)
	assert.Equal(t, "CS009 covers neural networks.", s.FinalResponse)
	assert.Equal(t, []string{"agent_completed", "quality_evaluated"}, s.ExecutionPath)
	assert.InDelta(t, 0.9, s.QualityScore, 1e-9)
	assert.Equal(t, 1, s.IterationCount)
	assert.Equal(t, 2, s.Metrics.LLMCalls[CallAgent])
	assert.Equal(t, 2, s.Metrics.LLMCalls[CallAnalysis])

	calls := model.Calls()
	require.Len(t, calls, 4)

	first := calls[1]
	require.Len(t, first.Options.Tools, 1)
	assert.Equal(t, "search_courses", first.Options.Tools[0].Function.Name)
	assert.Equal(t, AgentInstructions, first.Messages[0].Parts[0].(llms.TextContent).Text)

	second := calls[2].Messages
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeAI, second[2].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, second[3].Role)
	resp := second[3].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Contains(t, resp.Content, "# Course Search Results for: machine learning")

	assert.Contains(t, calls[3].Prompt(), "Answer: CS009 covers neural networks.")
}

func TestHierarchicalRetriesLowQuality(t *testing.T) {
	model := scripted.Text("INTENT: GENERAL", "Some courses.", "0.3", "CS001 and CS002 teach programming.", "0.9")
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "programming courses")

	assert.Equal(t, "CS001 and CS002 teach programming.", s.FinalResponse)
	assert.Equal(t, []string{"agent_completed", "quality_evaluated", "agent_completed", "quality_evaluated"}, s.ExecutionPath)
	assert.Equal(t, 2, s.IterationCount)
	assert.Zero(t, model.Remaining())
}

func TestHierarchicalStopsAtMaxIterations(t *testing.T) {
	model := scripted.Text("INTENT: GENERAL", "a", "0.2", "b", "0.1", "unused")
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "anything")

	assert.Equal(t, "b", s.FinalResponse)
	assert.Equal(t, 2, s.IterationCount)
	assert.InDelta(t, 0.1, s.QualityScore, 1e-9)
	assert.Equal(t, 1, model.Remaining())
}

func TestHierarchicalAgentAndEvaluatorFailures(t *testing.T) {
	model := scripted.New(
		scripted.Response{Content: "INTENT: PREREQUISITES"},
		scripted.Response{Err: errors.New("boom")},
		scripted.Response{Err: errors.New("evaluator down")},
	)
	s := mustNew(t, StageHierarchical, testDeps(t, model)).Run(context.Background(), "prereqs for CS009?")

	assert.Equal(t, "I encountered an error: boom", s.FinalResponse)
	assert.Equal(t, []string{"agent_failed", "quality_evaluation_failed"}, s.ExecutionPath)
	assert.Equal(t, 0.8, s.QualityScore)
	assert.Equal(t, 1, s.IterationCount)
}

const searchCS002 = "Thought: The user names CS002, so I use exact match.\n" +
	"Action: search_courses\n" +
	`Action Input: {"query": "CS002", "intent": "PREREQUISITES", "search_strategy": "exact_match", "course_codes": ["CS002"]}`

func finish(answer string) string {
	return "Thought: I have enough information to provide a complete answer\nAction: FINISH\nAction Input: " + answer
}

func TestHybridReAct(t *testing.T) {
	model := scripted.Text(searchCS002, finish("CS002 requires CS001."))
	s := mustNew(t, StageHybridReAct, testDeps(t, model)).Run(context.Background(), "What are the prerequisites for CS002?")

	assert.Equal(t, "CS002 requires CS001.", s.FinalResponse)
	assert.Equal(t, []string{"react_completed"}, s.ExecutionPath)
	assert.Equal(t, 2, s.ReActIterations)
	assert.Equal(t, 2, s.Metrics.LLMCalls[CallReAct])

	var action *prebuilt.ReasoningStep
	for i := range s.ReasoningTrace {
		if s.ReasoningTrace[i].Type == prebuilt.StepAction {
			action = &s.ReasoningTrace[i]
		}
	}
	require.NotNil(t, action)
	assert.Equal(t, "search_courses", action.Action)
	assert.Contains(t, action.Observation, "CS002: Data Structures")
	assert.Equal(t, prebuilt.StepFinish, s.ReasoningTrace[len(s.ReasoningTrace)-1].Type)

	assert.Contains(t, model.Calls()[0].Prompt(), "You have access to ONE tool")
}

func TestRunReportsGraphFailure(t *testing.T) {
	model := scripted.New(scripted.Response{Err: errors.New("connection refused")})
	s := mustNew(t, StageHybridReAct, testDeps(t, model)).Run(context.Background(), "anything")

	assert.True(t, strings.HasPrefix(s.FinalResponse, "Error: "), s.FinalResponse)
	assert.Contains(t, s.FinalResponse, "connection refused")
	assert.Equal(t, []string{"failed"}, s.ExecutionPath)
	assert.Equal(t, "anything", s.Query)
}

func memoryDeps(t *testing.T, model llms.Model, client memory.Client) Deps {
	d := testDeps(t, model)
	d.Memory = client
	return d
}

func TestWorkingMemoryCarriesConversation(t *testing.T) {
	client := memorytest.New()
	model := scripted.Text(
		searchCS002, finish("CS002 requires CS001."),
		finish("CS002 is taught in person."),
	)
	w := mustNew(t, StageWorkingMemory, memoryDeps(t, model, client))

	first := w.Run(context.Background(), "What are the prerequisites for CS002?", WithStudent("alice"), WithSession("s1"))
	assert.Equal(t, []string{"memory_loaded", "react_completed", "memory_saved"}, first.ExecutionPath)
	assert.Empty(t, first.ConversationHistory)

	second := w.Run(context.Background(), "Is it online?", WithStudent("alice"), WithSession("s1"))
	assert.Equal(t, "CS002 is taught in person.", second.FinalResponse)
	require.Len(t, second.ConversationHistory, 2)
	assert.Equal(t, memory.RoleUser, second.ConversationHistory[0].Role)
	assert.Equal(t, "CS002 requires CS001.", second.ConversationHistory[1].Content)

	calls := model.Calls()
	last := calls[len(calls)-1].Messages
	require.Len(t, last, 4)
	assert.Equal(t, llms.ChatMessageTypeHuman, last[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, last[2].Role)
	assert.Equal(t, "Is it online?", last[3].Parts[0].(llms.TextContent).Text)

	wm, ok := client.Session("s1")
	require.True(t, ok)
	require.Len(t, wm.Messages, 4)
	assert.Equal(t, "Is it online?", wm.Messages[2].Content)
	assert.Equal(t, memory.RoleAssistant, wm.Messages[3].Role)
}

func TestWorkingMemoryFailuresDoNotFailRun(t *testing.T) {
	client := memorytest.New()
	client.FailWorkingMemory = errors.New("memory server unavailable")
	model := scripted.Text(finish("Hello!"))

	s := mustNew(t, StageWorkingMemory, memoryDeps(t, model, client)).Run(context.Background(), "hi", WithSession("s2"))

	assert.Equal(t, "Hello!", s.FinalResponse)
	assert.Equal(t, []string{"memory_load_failed", "react_completed", "memory_save_failed"}, s.ExecutionPath)
}

func TestRunGeneratesSessionID(t *testing.T) {
	model := scripted.Text(finish("ok"))
	s := mustNew(t, StageWorkingMemory, memoryDeps(t, model, memorytest.New())).Run(context.Background(), "hi")

	assert.Equal(t, DefaultStudentID, s.StudentID)
	assert.True(t, strings.HasPrefix(s.SessionID, "session_student_"), s.SessionID)
	assert.Len(t, s.SessionID, len("session_student_")+8)
}

func TestToolGroups(t *testing.T) {
	d := memoryDeps(t, scripted.Text(), memorytest.New())
	groups := ToolGroups(d, "alice")

	names := func(group string) []string {
		var out []string
		for _, tl := range groups[group] {
			out = append(out, tl.Name())
		}
		return out
	}
	assert.Equal(t, []string{"search_courses", "get_course_details", "check_prerequisites", "get_recommendations", "list_departments", "store_memory"}, names("search"))
	assert.Equal(t, []string{"store_memory", "search_memories", "summarize_user_knowledge", "clear_user_memories", "search_courses"}, names("memory"))
}

func TestFullMemoryStoresPreference(t *testing.T) {
	client := memorytest.New()
	model := scripted.Text(
		"Thought: The student shared a preference worth keeping.\nAction: store_memory\n"+
			`Action Input: {"text": "Prefers online courses", "topics": ["preferences"]}`,
		finish("Got it, I'll keep online courses in mind."),
	)
	s := mustNew(t, StageFullMemory, memoryDeps(t, model, client)).
		Run(context.Background(), "Remember that I prefer online courses", WithStudent("alice"), WithSession("s3"))

	assert.Equal(t, "Got it, I'll keep online courses in mind.", s.FinalResponse)
	assert.Equal(t, []string{"memory_loaded", "react_completed", "memory_saved"}, s.ExecutionPath)

	mems := client.Memories()
	require.Len(t, mems, 1)
	assert.Equal(t, "Prefers online courses", mems[0].Text)
	assert.Equal(t, "alice", mems[0].UserID)

	system := model.Calls()[0].Messages[0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, system, "summarize_user_knowledge")
	assert.NotContains(t, system, "get_course_details")
}

func TestMermaid(t *testing.T) {
	w := mustNew(t, StageHierarchical, testDeps(t, scripted.Text()))
	out := w.Mermaid()
	assert.Contains(t, out, "classify_intent")
	assert.Contains(t, out, "evaluate_quality")
	assert.Equal(t, StageHierarchical, w.Stage())
}
