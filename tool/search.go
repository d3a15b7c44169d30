package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/rag"
	"github.com/smallnest/courseqa/rag/assembler"
	"github.com/smallnest/courseqa/rag/retriever"
	"github.com/smallnest/courseqa/rag/store"
)

// Search strategies accepted by search_courses.
const (
	StrategyExactMatch   = "exact_match"
	StrategyHybrid       = "hybrid"
	StrategySemanticOnly = "semantic_only"
)

// Query intents understood by the hierarchical search.
const (
	IntentGeneral            = "GENERAL"
	IntentPrerequisites      = "PREREQUISITES"
	IntentSyllabusObjectives = "SYLLABUS_OBJECTIVES"
	IntentAssignments        = "ASSIGNMENTS"
)

const (
	defaultTopK    = 5
	maxDetailed    = 3
	notInitialized = "Error: Course search not initialized."
)

// SearchCoursesArgs is the input of search_courses.
type SearchCoursesArgs struct {
	Query           string   `json:"query"`
	Intent          string   `json:"intent,omitempty"`
	SearchStrategy  string   `json:"search_strategy,omitempty"`
	CourseCodes     []string `json:"course_codes,omitempty"`
	InformationType []string `json:"information_type,omitempty"`
	Departments     []string `json:"departments,omitempty"`
}

// CourseSearch is search_courses for the ReAct agents. Named course codes
// are looked up exactly, anything else goes through hybrid or semantic
// search, and matches are rendered with summaries for all and details for
// the top three.
type CourseSearch struct {
	Manager      *rag.CourseManager
	Hierarchical map[string]catalog.HierarchicalCourse
	TopK         int
	Logger       log.Logger
}

var _ tools.Tool = (*CourseSearch)(nil)

// Name implements tools.Tool.
func (s *CourseSearch) Name() string { return "search_courses" }

// Description implements tools.Tool.
func (s *CourseSearch) Description() string {
	return `Search the Redis University course catalog. Input is JSON: {"query": string, "intent": "GENERAL|PREREQUISITES|SYLLABUS_OBJECTIVES|ASSIGNMENTS", "search_strategy": "exact_match|hybrid|semantic_only", "course_codes": [string], "information_type": [string], "departments": [string]}. Use exact_match for specific course codes and hybrid for topic-based searches.`
}

// Call implements tools.Tool.
func (s *CourseSearch) Call(ctx context.Context, input string) (string, error) {
	args := SearchCoursesArgs{Intent: IntentGeneral, SearchStrategy: StrategyHybrid}
	if err := decodeInput(input, &args, func(q string) { args.Query = q }); err != nil {
		return "", err
	}
	return s.Search(ctx, args)
}

// Search runs one search.
func (s *CourseSearch) Search(ctx context.Context, args SearchCoursesArgs) (string, error) {
	if s.Manager == nil {
		return notInitialized, nil
	}
	logger := log.OrDefault(s.Logger)
	topK := s.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	strategy := args.SearchStrategy
	if len(args.CourseCodes) > 0 && strategy != StrategySemanticOnly {
		strategy = StrategyExactMatch
	}
	logger.Info("Searching courses: query=%q, intent=%s, strategy=%s", args.Query, args.Intent, strategy)

	var courses []catalog.Course
	switch {
	case strategy == StrategyExactMatch && len(args.CourseCodes) > 0:
		found, err := s.Manager.ExactMatch(ctx, args.CourseCodes)
		if err != nil {
			return "", fmt.Errorf("exact match: %w", err)
		}
		courses = found
	case strategy == StrategySemanticOnly:
		sem := &retriever.Semantic{Manager: s.Manager}
		if len(args.Departments) == 1 {
			sem.Filters = map[string]string{store.TagDepartment: args.Departments[0]}
		}
		scored, err := sem.Retrieve(ctx, args.Query, topK)
		if err != nil {
			return "", fmt.Errorf("semantic search: %w", err)
		}
		courses = filterDepartments(unscore(scored), args.Departments)
	default:
		scored, err := retriever.NewHybrid(s.Manager).Retrieve(ctx, args.Query, topK)
		if err != nil {
			return "", fmt.Errorf("hybrid search: %w", err)
		}
		courses = filterDepartments(unscore(scored), args.Departments)
	}

	if len(courses) == 0 {
		return fmt.Sprintf("No courses found matching '%s'.", args.Query), nil
	}
	logger.Debug("Found %d courses", len(courses))
	return renderHierarchical(courses, s.Hierarchical, args.Query, args.InformationType, topK), nil
}

// renderHierarchical uses hierarchical data where available and falls back
// to the plain text form otherwise.
func renderHierarchical(courses []catalog.Course, hierarchical map[string]catalog.HierarchicalCourse, query string, infoTypes []string, topK int) string {
	var summaries []catalog.CourseSummary
	var details []catalog.CourseDetails
	for _, c := range courses {
		if hc, ok := hierarchical[c.CourseCode]; ok {
			summaries = append(summaries, hc.Summary)
			details = append(details, hc.Details)
		}
	}

	if len(summaries) > 0 {
		details = assembler.FilterCourseDetails(details, infoTypes)
		if len(details) > maxDetailed {
			details = details[:maxDetailed]
		}
		return assembler.HierarchicalContextAssembler{}.Assemble(summaries, details, query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Course Search Results for: %s\n\n", query)
	for i, c := range courses {
		if i == topK {
			break
		}
		sb.WriteString(catalog.TransformCourseToText(c))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func unscore(scored []store.ScoredCourse) []catalog.Course {
	out := make([]catalog.Course, len(scored))
	for i, sc := range scored {
		out[i] = sc.Course
	}
	return out
}

func filterDepartments(courses []catalog.Course, departments []string) []catalog.Course {
	if len(departments) == 0 {
		return courses
	}
	var out []catalog.Course
	for _, c := range courses {
		for _, d := range departments {
			if strings.EqualFold(c.Department, d) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// HierarchicalSearch is the search_courses tool bound to a tool-calling
// model. The intent decides the disclosure depth: summaries only for
// general and prerequisite questions, full details of the top matches for
// syllabus and assignment questions.
type HierarchicalSearch struct {
	Manager      *rag.CourseManager
	Hierarchical map[string]catalog.HierarchicalCourse
	TopK         int
	Logger       log.Logger
}

var _ tools.Tool = (*HierarchicalSearch)(nil)

// Name implements tools.Tool.
func (s *HierarchicalSearch) Name() string { return "search_courses" }

// Description implements tools.Tool.
func (s *HierarchicalSearch) Description() string {
	return "Search the course catalog. Choose the intent from GENERAL, PREREQUISITES, SYLLABUS_OBJECTIVES or ASSIGNMENTS based on what the user wants to know."
}

// Definition describes the tool for native function calling.
func (s *HierarchicalSearch) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        s.Name(),
			Description: s.Description(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query",
					},
					"intent": map[string]any{
						"type":        "string",
						"enum":        []string{IntentGeneral, IntentPrerequisites, IntentSyllabusObjectives, IntentAssignments},
						"description": "What type of information the user wants",
					},
				},
				"required": []string{"query", "intent"},
			},
		},
	}
}

// Call implements tools.Tool.
func (s *HierarchicalSearch) Call(ctx context.Context, input string) (string, error) {
	args := SearchCoursesArgs{Intent: IntentGeneral}
	if err := decodeInput(input, &args, func(q string) { args.Query = q }); err != nil {
		return "", err
	}
	if s.Manager == nil {
		return notInitialized, nil
	}
	topK := s.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	intent := strings.ToUpper(strings.TrimSpace(args.Intent))
	log.OrDefault(s.Logger).Info("Hierarchical search: query=%q, intent=%s", args.Query, intent)

	scored, err := s.Manager.SearchCourses(ctx, args.Query, topK, nil)
	if err != nil {
		return "", fmt.Errorf("search courses: %w", err)
	}
	if len(scored) == 0 {
		return fmt.Sprintf("No courses found matching '%s'.", args.Query), nil
	}
	courses := unscore(scored)

	var infoTypes []string
	switch intent {
	case IntentSyllabusObjectives:
		infoTypes = []string{"overview", "syllabus", "learning_objectives"}
	case IntentAssignments:
		infoTypes = []string{"overview", "assignments"}
	default:
		var summaries []catalog.CourseSummary
		for _, c := range courses {
			if hc, ok := s.Hierarchical[c.CourseCode]; ok {
				summaries = append(summaries, hc.Summary)
			}
		}
		if len(summaries) > 0 {
			return assembler.HierarchicalContextAssembler{}.AssembleSummaryOnly(summaries, args.Query), nil
		}
	}
	return renderHierarchical(courses, s.Hierarchical, args.Query, infoTypes, topK), nil
}
