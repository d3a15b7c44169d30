package agents

import (
	"context"
	"fmt"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/graph"
	"github.com/smallnest/courseqa/rag/assembler"
)

const researchLimit = 5

// EngineeredSystemInstructions is the system prompt of the engineered stage.
const EngineeredSystemInstructions = "You are a helpful course advisor assistant. " +
	"Answer questions using only the course information provided."

// pipeline is the two-node research → synthesize workflow shared by the
// baseline and engineered stages. They differ only in how retrieved courses
// are rendered and how the answer is requested.
type pipeline struct {
	deps   Deps
	render func([]catalog.Course) string
	system string
	prompt func(courses, query string) string
}

func newBaselineGraph(d Deps) *graph.StateGraph[*State] {
	return (&pipeline{
		deps:   d,
		render: assembler.RawContext,
		prompt: func(courses, query string) string {
			return fmt.Sprintf("Use the following course information to answer the question.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:", courses, query)
		},
	}).build()
}

func newEngineeredGraph(d Deps) *graph.StateGraph[*State] {
	return (&pipeline{
		deps:   d,
		render: func(courses []catalog.Course) string {
			return assembler.EngineeredContext(courses, d.Optimize)
		},
		system: EngineeredSystemInstructions,
		prompt: func(courses, query string) string {
			return fmt.Sprintf("Course Information (context engineered data):\n%s\n\nStudent Question: %s\n\nPlease provide a clear, helpful answer based on the course information above.", courses, query)
		},
	}).build()
}

func (p *pipeline) build() *graph.StateGraph[*State] {
	g := graph.NewStateGraph[*State]()
	g.AddNode("research", "Semantic course search", p.research)
	g.AddNode("synthesize", "Answer from the retrieved context", p.synthesize)
	g.AddEdge("research", "synthesize")
	g.AddEdge("synthesize", graph.END)
	g.SetEntryPoint("research")
	return g
}

func (p *pipeline) research(ctx context.Context, s *State) (*State, error) {
	logger := p.deps.Logger
	logger.Info("Searching for courses: %q", s.Query)

	scored, err := p.deps.Manager.SearchCourses(ctx, s.Query, researchLimit, nil)
	if err != nil {
		logger.Error("Research failed: %v", err)
		s.Context = "Search failed: " + err.Error()
		s.CoursesFound = 0
		s.visit("research_failed")
		return s, nil
	}
	s.visit("research")
	if len(scored) == 0 {
		s.Context = "No courses found."
		s.CoursesFound = 0
		return s, nil
	}

	courses := make([]catalog.Course, 0, len(scored))
	for _, sc := range scored {
		courses = append(courses, sc.Course)
	}
	s.Context = p.render(courses)
	s.CoursesFound = len(courses)
	s.Metrics.ContextTokens = p.deps.countTokens(s.Context)
	logger.Info("Found %d courses, context is %d chars (~%d tokens)", len(courses), len(s.Context), s.Metrics.ContextTokens)
	return s, nil
}

func (p *pipeline) synthesize(ctx context.Context, s *State) (*State, error) {
	answer, err := p.deps.complete(ctx, s, CallSynthesis, p.system, p.prompt(s.Context, s.Query))
	if err != nil {
		p.deps.Logger.Error("Synthesis failed: %v", err)
		s.FinalResponse = "Failed to generate answer: " + err.Error()
		s.visit("synthesize_failed")
		return s, nil
	}
	s.visit("synthesize")
	s.FinalResponse = answer
	return s, nil
}
