package agents

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/courseqa/graph"
	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/tool"
)

// IntentGreeting routes to the greeting node; the other intents are the
// search intents of the tool package.
const IntentGreeting = "GREETING"

// QualityThreshold is the score below which the agent answers again.
const QualityThreshold = 0.7

const defaultQualityScore = 0.8

const greetingFallback = "Hello! I'm a course advisor agent. I can help you find courses, view syllabi, check prerequisites, and more. What would you like to know?"

const intentPrompt = `You are a query intent classifier for a course information system.

TASK: Analyze the query and return ONLY the most appropriate intent category.

Query: %s

INTENT CATEGORIES:

1. GREETING
   - Greetings, acknowledgments, pleasantries
   - Examples: "hello", "hi there", "thank you", "thanks"

2. GENERAL
   - Broad course information requests
   - Course descriptions and overviews
   - "What is [course]?" questions
   - Example: "What is CS002?"

3. SYLLABUS_OBJECTIVES
   - Syllabus requests
   - Course structure and topics covered
   - Learning objectives and outcomes
   - Examples: "Show me the syllabus for CS002", "What will I learn?", "What topics are covered?", "Give me details about this course"

4. ASSIGNMENTS
   - Homework, projects, exams
   - Assessment types and workload
   - Grading information
   - Examples: "What are the assignments?", "How many exams?", "What's the workload?"

5. PREREQUISITES
   - Course requirements
   - Prior knowledge needed
   - Examples: "What are the prerequisites?", "What do I need before taking this?"

CLASSIFICATION RULES:
- Choose the MOST SPECIFIC category that matches
- If multiple categories apply, prioritize based on the primary intent
- Default to GENERAL for ambiguous queries
- Ignore filler words and focus on core intent

OUTPUT FORMAT (respond with exactly this structure):
INTENT: <category_name>
`

const qualityPrompt = `Evaluate the quality of this course search answer on a scale of 0.0 to 1.0.

Question: %s
Answer: %s

Criteria:
- Completeness: Does it fully answer the question?
- Accuracy: Is the course information correct and relevant?
- Relevance: Does it directly address what was asked?
- Grounding: Does it provide specific course details and stick to facts?

Respond with ONLY a number between 0.0 and 1.0 (e.g., 0.85)
`

const greetingPrompt = `The user sent this message: %s

Respond naturally and helpfully. If it's a greeting, greet them back and let them know you're a course advisor agent that can help them find courses, view syllabi, check prerequisites, etc.

Keep it brief and friendly (2-3 sentences max).`

// AgentInstructions is sent ahead of the query to the tool-calling agent.
const AgentInstructions = `You are a helpful course advisor assistant. Your job is to help students find and learn about courses.

You have access to a search_courses tool that can search the course catalog. Use this tool to find relevant courses to answer the user's question.

When using the search_courses tool, you need to determine the **intent** - what type of information does the user want?

**Intent Categories:**
- "GENERAL": Just course summaries/overviews (lightweight, ~300 tokens)
- "PREREQUISITES": Prerequisite information (summaries only - prereq codes are included)
- "SYLLABUS_OBJECTIVES": Syllabus and learning objectives (includes full course details)
- "ASSIGNMENTS": Assignment details (includes full course details)

**Examples:**
- "What computer science courses exist?" → intent="GENERAL"
- "What is CS004?" → intent="GENERAL"
- "What are the prerequisites for CS004?" → intent="PREREQUISITES"
- "What will I learn in CS004?" → intent="SYLLABUS_OBJECTIVES"
- "What's the syllabus for CS004?" → intent="SYLLABUS_OBJECTIVES"
- "What assignments are in CS004?" → intent="ASSIGNMENTS"

After calling the tool and getting results, provide a clear, helpful answer to the user.`

type hierarchical struct {
	deps   Deps
	search *tool.HierarchicalSearch
}

func newHierarchicalGraph(d Deps) *graph.StateGraph[*State] {
	h := &hierarchical{
		deps: d,
		search: &tool.HierarchicalSearch{
			Manager:      d.Manager,
			Hierarchical: d.Hierarchical,
			Logger:       d.Logger,
		},
	}
	maxIter := d.maxQualityIterations()

	g := graph.NewStateGraph[*State]()
	g.AddNode("classify_intent", "Classify the query intent", h.classifyIntent)
	g.AddNode("handle_greeting", "Answer greetings without searching", h.handleGreeting)
	g.AddNode("agent", "Tool-calling course advisor", h.agent)
	g.AddNode("evaluate_quality", "Score the answer", h.evaluateQuality)

	g.SetEntryPoint("classify_intent")
	g.AddConditionalEdge("classify_intent", func(_ context.Context, s *State) string {
		if s.QueryIntent == IntentGreeting {
			return "handle_greeting"
		}
		return "agent"
	}, "handle_greeting", "agent")
	g.AddEdge("handle_greeting", graph.END)
	g.AddEdge("agent", "evaluate_quality")
	g.AddConditionalEdge("evaluate_quality", func(_ context.Context, s *State) string {
		if s.QualityScore < QualityThreshold && s.IterationCount < maxIter {
			return "agent"
		}
		return graph.END
	}, "agent", graph.END)
	return g
}

// ParseIntent reads the last "INTENT:" line of a classifier reply. Anything
// else is GENERAL.
func ParseIntent(reply string) string {
	intent := tool.IntentGeneral
	for _, line := range strings.Split(strings.TrimSpace(reply), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "INTENT:"); ok {
			if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
				intent = v
			}
		}
	}
	return intent
}

// ParseQualityScore reads a score clamped to [0, 1]. Unparseable replies
// and NaN score 0.8.
func ParseQualityScore(reply string) float64 {
	score, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil || math.IsNaN(score) {
		return defaultQualityScore
	}
	return max(0, min(1, score))
}

func (h *hierarchical) classifyIntent(ctx context.Context, s *State) (*State, error) {
	h.deps.Logger.Info("Classifying intent for: %q", s.Query)
	reply, err := h.deps.complete(ctx, s, CallAnalysis, "", fmt.Sprintf(intentPrompt, s.Query))
	if err != nil {
		h.deps.Logger.Error("Intent classification failed: %v", err)
		s.QueryIntent = tool.IntentGeneral
		return s, nil
	}
	s.QueryIntent = ParseIntent(reply)
	h.deps.Logger.Info("Intent: %s", s.QueryIntent)
	return s, nil
}

func (h *hierarchical) handleGreeting(ctx context.Context, s *State) (*State, error) {
	reply, err := h.deps.complete(ctx, s, CallAnalysis, "", fmt.Sprintf(greetingPrompt, s.Query))
	if err != nil {
		h.deps.Logger.Error("Greeting handling failed: %v", err)
		s.FinalResponse = greetingFallback
		s.visit("greeting_failed")
		return s, nil
	}
	s.FinalResponse = reply
	s.visit("greeting_handled")
	return s, nil
}

func (h *hierarchical) agent(ctx context.Context, s *State) (*State, error) {
	answer, err := h.answer(ctx, s)
	if err != nil {
		h.deps.Logger.Error("Agent failed: %v", err)
		s.FinalResponse = "I encountered an error: " + err.Error()
		s.visit("agent_failed")
		return s, nil
	}
	s.FinalResponse = answer
	s.visit("agent_completed")
	return s, nil
}

// answer makes the first call with the search tool bound, runs any
// requested searches and makes a second call over their results.
func (h *hierarchical) answer(ctx context.Context, s *State) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, AgentInstructions),
		llms.TextParts(llms.ChatMessageTypeHuman, s.Query),
	}
	withTools := llms.WithTools([]llms.Tool{h.search.Definition()})

	choice, err := h.generate(ctx, s, messages, withTools)
	if err != nil {
		return "", err
	}
	if len(choice.ToolCalls) == 0 {
		return strings.TrimSpace(choice.Content), nil
	}

	h.deps.Logger.Info("LLM requested %d tool call(s)", len(choice.ToolCalls))
	request := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		request.Parts = append(request.Parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		request.Parts = append(request.Parts, tc)
	}
	messages = append(messages, request)

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		result, err := h.search.Call(ctx, tc.FunctionCall.Arguments)
		if err != nil {
			result = "Error: " + err.Error()
		}
		messages = append(messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: tc.ID,
				Name:       tc.FunctionCall.Name,
				Content:    result,
			}},
		})
	}

	final, err := h.generate(ctx, s, messages, withTools)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(final.Content), nil
}

func (h *hierarchical) generate(ctx context.Context, s *State, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := h.deps.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, cqllms.ErrEmptyResponse
	}
	s.Metrics.countCall(CallAgent, cqllms.UsageFromResponse(resp))
	return resp.Choices[0], nil
}

func (h *hierarchical) evaluateQuality(ctx context.Context, s *State) (*State, error) {
	reply, err := h.deps.complete(ctx, s, CallAnalysis, "", fmt.Sprintf(qualityPrompt, s.Query, s.FinalResponse))
	s.IterationCount++
	if err != nil {
		h.deps.Logger.Error("Quality evaluation failed: %v", err)
		s.QualityScore = defaultQualityScore
		s.visit("quality_evaluation_failed")
		return s, nil
	}
	s.QualityScore = ParseQualityScore(reply)
	if s.QualityScore < QualityThreshold {
		h.deps.Logger.Info("Score: %.2f - Needs improvement", s.QualityScore)
	} else {
		h.deps.Logger.Info("Score: %.2f - Adequate", s.QualityScore)
	}
	s.visit("quality_evaluated")
	return s, nil
}
