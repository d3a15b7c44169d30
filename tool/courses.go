package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/tools"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/memory"
	"github.com/smallnest/courseqa/rag"
)

// NewCourseTools returns search_courses, get_course_details,
// check_prerequisites, get_recommendations and list_departments.
// client may be nil, in which case recommendations are not remembered.
func NewCourseTools(manager *rag.CourseManager, hierarchical map[string]catalog.HierarchicalCourse, client memory.Client, userID string) []tools.Tool {
	return []tools.Tool{
		&CourseSearch{Manager: manager, Hierarchical: hierarchical},
		&CourseDetails{Manager: manager},
		&CheckPrerequisites{Manager: manager},
		&Recommendations{Manager: manager, Memory: client, UserID: userID},
		&ListDepartments{Manager: manager},
	}
}

func prerequisiteLine(p catalog.Prerequisite) string {
	return fmt.Sprintf("%s (min grade: %s)", p.CourseCode, p.MinimumGrade)
}

// CourseDetails is get_course_details.
type CourseDetails struct {
	Manager *rag.CourseManager
}

var _ tools.Tool = (*CourseDetails)(nil)

// Name implements tools.Tool.
func (t *CourseDetails) Name() string { return "get_course_details" }

// Description implements tools.Tool.
func (t *CourseDetails) Description() string {
	return `Get complete information about one course by its code, including description, prerequisites and learning objectives. Input: {"course_code": string}.`
}

// Call implements tools.Tool.
func (t *CourseDetails) Call(ctx context.Context, input string) (string, error) {
	var args struct {
		CourseCode string `json:"course_code"`
	}
	if err := decodeInput(input, &args, func(s string) { args.CourseCode = s }); err != nil {
		return "", err
	}
	c, err := t.Manager.GetCourse(ctx, args.CourseCode)
	if err != nil {
		return "", err
	}
	if c == nil {
		return fmt.Sprintf("Course %s not found.", args.CourseCode), nil
	}

	prereqs := "None"
	if len(c.Prerequisites) > 0 {
		lines := make([]string, len(c.Prerequisites))
		for i, p := range c.Prerequisites {
			lines[i] = prerequisiteLine(p)
		}
		prereqs = strings.Join(lines, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s: %s\n\n", c.CourseCode, c.Title)
	fmt.Fprintf(&sb, "Description: %s\n\n", c.Description)
	sb.WriteString("Details:\n")
	fmt.Fprintf(&sb, "- Credits: %d\n", c.Credits)
	fmt.Fprintf(&sb, "- Department: %s\n", c.Department)
	fmt.Fprintf(&sb, "- Major: %s\n", c.Major)
	fmt.Fprintf(&sb, "- Difficulty: %s\n", c.DifficultyLevel)
	fmt.Fprintf(&sb, "- Format: %s\n", c.Format)
	fmt.Fprintf(&sb, "- Prerequisites: %s\n\n", prereqs)
	sb.WriteString("Learning Objectives:\n")
	objectives := make([]string, len(c.LearningObjectives))
	for i, o := range c.LearningObjectives {
		objectives[i] = "- " + o
	}
	sb.WriteString(strings.Join(objectives, "\n"))
	return sb.String(), nil
}

// CheckPrerequisites is check_prerequisites.
type CheckPrerequisites struct {
	Manager *rag.CourseManager
}

var _ tools.Tool = (*CheckPrerequisites)(nil)

// Name implements tools.Tool.
func (t *CheckPrerequisites) Name() string { return "check_prerequisites" }

// Description implements tools.Tool.
func (t *CheckPrerequisites) Description() string {
	return `Check whether a student meets the prerequisites for a course. Input: {"course_code": string, "completed_courses": [string]}.`
}

// Call implements tools.Tool.
func (t *CheckPrerequisites) Call(ctx context.Context, input string) (string, error) {
	var args struct {
		CourseCode       string   `json:"course_code"`
		CompletedCourses []string `json:"completed_courses"`
	}
	if err := decodeInput(input, &args, nil); err != nil {
		return "", err
	}
	c, err := t.Manager.GetCourse(ctx, args.CourseCode)
	if err != nil {
		return "", err
	}
	if c == nil {
		return fmt.Sprintf("Course %s not found.", args.CourseCode), nil
	}
	if len(c.Prerequisites) == 0 {
		return fmt.Sprintf("✅ %s has no prerequisites. You can take this course!", args.CourseCode), nil
	}

	done := make(map[string]bool, len(args.CompletedCourses))
	for _, code := range args.CompletedCourses {
		done[strings.ToUpper(strings.TrimSpace(code))] = true
	}
	var missing []string
	for _, p := range c.Prerequisites {
		if !done[strings.ToUpper(p.CourseCode)] {
			missing = append(missing, "- "+prerequisiteLine(p))
		}
	}
	if len(missing) == 0 {
		return fmt.Sprintf("✅ You meet all prerequisites for %s!", args.CourseCode), nil
	}
	return fmt.Sprintf("❌ You're missing prerequisites for %s:\n\nMissing:\n%s", args.CourseCode, strings.Join(missing, "\n")), nil
}

// Recommendations is get_recommendations. Interests it is given are also
// remembered for the student.
type Recommendations struct {
	Manager *rag.CourseManager
	Memory  memory.Client
	UserID  string
}

var _ tools.Tool = (*Recommendations)(nil)

// Name implements tools.Tool.
func (t *Recommendations) Name() string { return "get_recommendations" }

// Description implements tools.Tool.
func (t *Recommendations) Description() string {
	return `Generate personalized course recommendations from the student's interests, such as "math and engineering". Input: {"query": string, "limit": int}.`
}

// Call implements tools.Tool.
func (t *Recommendations) Call(ctx context.Context, input string) (string, error) {
	args := struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}{Limit: 3}
	if err := decodeInput(input, &args, func(s string) { args.Query = s }); err != nil {
		return "", err
	}

	var interests []string
	if args.Query != "" {
		if t.Memory != nil {
			err := t.Memory.CreateLongTermMemories(ctx, []memory.MemoryRecord{{
				Text:       "Student expressed interest in: " + args.Query,
				UserID:     t.UserID,
				MemoryType: memory.TypeSemantic,
				Topics:     []string{"interests", "preferences"},
			}})
			if err != nil {
				return "", fmt.Errorf("remember interests: %w", err)
			}
		}
		for _, in := range strings.Split(args.Query, " and ") {
			if in = strings.TrimSpace(in); in != "" {
				interests = append(interests, in)
			}
		}
	}
	if len(interests) == 0 {
		interests = []string{"general"}
	}

	recs, err := t.Manager.RecommendCourses(ctx, interests, nil, args.Limit)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "No recommendations available at this time.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are %d personalized course recommendations:\n\n", len(recs))
	for i, r := range recs {
		met := "No"
		if r.PrerequisitesMet {
			met = "Yes"
		}
		fmt.Fprintf(&sb, "%d. **%s: %s**\n", i+1, r.Course.CourseCode, r.Course.Title)
		fmt.Fprintf(&sb, "   Relevance: %.2f | Credits: %d\n", r.RelevanceScore, r.Course.Credits)
		fmt.Fprintf(&sb, "   Reasoning: %s\n", r.Reasoning)
		fmt.Fprintf(&sb, "   Prerequisites met: %s\n\n", met)
	}
	return sb.String(), nil
}

// ListDepartments is list_departments: every department with its majors
// and number of courses.
type ListDepartments struct {
	Manager *rag.CourseManager
}

var _ tools.Tool = (*ListDepartments)(nil)

// Name implements tools.Tool.
func (t *ListDepartments) Name() string { return "list_departments" }

// Description implements tools.Tool.
func (t *ListDepartments) Description() string {
	return "List the departments and majors of the university with their number of courses. Takes no input."
}

// Call implements tools.Tool.
func (t *ListDepartments) Call(ctx context.Context, _ string) (string, error) {
	courses, err := t.Manager.GetAllCourses(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieve departments: %w", err)
	}

	type dept struct {
		courses int
		majors  map[string]bool
	}
	depts := make(map[string]*dept)
	for _, c := range courses {
		d, ok := depts[c.Department]
		if !ok {
			d = &dept{majors: make(map[string]bool)}
			depts[c.Department] = d
		}
		d.courses++
		if c.Major != "" {
			d.majors[c.Major] = true
		}
	}
	if len(depts) == 0 {
		return "No departments found in the system.", nil
	}

	names := make([]string, 0, len(depts))
	for n := range depts {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Available departments at Redis University (%d total):\n\n", len(names))
	for _, n := range names {
		d := depts[n]
		majors := make([]string, 0, len(d.majors))
		for m := range d.majors {
			majors = append(majors, m)
		}
		sort.Strings(majors)
		fmt.Fprintf(&sb, "**%s**\n", n)
		if len(majors) > 0 {
			fmt.Fprintf(&sb, "Majors: %s\n", strings.Join(majors, ", "))
		}
		fmt.Fprintf(&sb, "Courses: %d\n\n", d.courses)
	}
	return sb.String(), nil
}
