// Package generator produces the synthetic hierarchical course catalog used
// to seed the course index.
package generator

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/courseqa/catalog"
)

//go:embed templates.yaml
var templatesYAML []byte

// JSONFileName is the catalog file written by SaveJSON.
const JSONFileName = "hierarchical_courses.json"

// CatalogFileName is the markdown index written by SaveMarkdown.
const CatalogFileName = "COURSE_CATALOG.md"

// Template describes one course the generator can instantiate.
type Template struct {
	CodePrefix       string                  `yaml:"code_prefix"`
	Department       string                  `yaml:"department"`
	Title            string                  `yaml:"title"`
	ShortDescription string                  `yaml:"short_description"`
	FullDescription  string                  `yaml:"full_description"`
	Difficulty       catalog.DifficultyLevel `yaml:"difficulty"`
	Credits          int                     `yaml:"credits"`
	Weeks            int                     `yaml:"weeks"`
	Tags             []string                `yaml:"tags"`
	Topics           []string                `yaml:"topics"`
}

type templateFile struct {
	Templates     []Template          `yaml:"templates"`
	Prerequisites map[string][]string `yaml:"prerequisites"`
}

// LoadTemplates decodes the embedded templates and the prerequisite table
// keyed by template title.
func LoadTemplates() ([]Template, map[string][]string, error) {
	var f templateFile
	if err := yaml.Unmarshal(templatesYAML, &f); err != nil {
		return nil, nil, fmt.Errorf("decode templates: %w", err)
	}
	return f.Templates, f.Prerequisites, nil
}

// Generator builds hierarchical courses from templates.
type Generator struct {
	rng       *rand.Rand
	faker     *gofakeit.Faker
	templates []Template
	prereqs   map[string][]string
	courses   []catalog.HierarchicalCourse
	year      int
}

// New returns a generator. A zero seed draws a random one.
func New(seed int64) (*Generator, error) {
	templates, prereqs, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no course templates")
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
		faker:     gofakeit.New(seed),
		templates: templates,
		prereqs:   prereqs,
		year:      2025,
	}, nil
}

// Templates returns the loaded templates.
func (g *Generator) Templates() []Template {
	return g.templates
}

// Generate creates count courses, cycling through the templates in order.
// The course number is the 1-based position, so codes are unique per run.
func (g *Generator) Generate(count int) []catalog.HierarchicalCourse {
	for i := 0; i < count; i++ {
		tmpl := g.templates[i%len(g.templates)]
		g.courses = append(g.courses, g.fromTemplate(tmpl, i+1))
	}
	return g.courses
}

// Courses returns every course generated so far.
func (g *Generator) Courses() []catalog.HierarchicalCourse {
	return g.courses
}

func (g *Generator) fromTemplate(t Template, num int) catalog.HierarchicalCourse {
	code := fmt.Sprintf("%s%03d", t.CodePrefix, num)
	instructor := g.faker.Name()

	syllabus := g.syllabus(t)
	assignments := Assignments(t.Weeks)
	prereqs := g.prerequisites(t)

	codes := make([]string, len(prereqs))
	for i, p := range prereqs {
		codes[i] = p.CourseCode
	}

	summary := catalog.CourseSummary{
		CourseCode:        code,
		Title:             t.Title,
		Department:        t.Department,
		Credits:           t.Credits,
		DifficultyLevel:   t.Difficulty,
		Format:            catalog.AllFormats[g.rng.IntN(len(catalog.AllFormats))],
		Instructor:        instructor,
		ShortDescription:  t.ShortDescription,
		PrerequisiteCodes: codes,
		Tags:              t.Tags,
	}
	summary.GenerateEmbeddingText()

	details := catalog.CourseDetails{
		CourseCode:         code,
		Title:              t.Title,
		Department:         t.Department,
		Credits:            t.Credits,
		DifficultyLevel:    t.Difficulty,
		Format:             summary.Format,
		Instructor:         instructor,
		FullDescription:    t.FullDescription,
		Prerequisites:      prereqs,
		LearningObjectives: LearningObjectives(t),
		Syllabus:           syllabus,
		Assignments:        assignments,
		Semester:           catalog.AllSemesters[g.rng.IntN(len(catalog.AllSemesters))],
		Year:               g.year,
		MaxEnrollment:      30 + g.rng.IntN(51),
		Tags:               t.Tags,
	}

	return catalog.HierarchicalCourse{
		ID:        uuid.NewString(),
		Summary:   summary,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

func (g *Generator) syllabus(t Template) catalog.CourseSyllabus {
	weeks := make([]catalog.WeekPlan, 0, t.Weeks)
	for n := 1; n <= t.Weeks; n++ {
		topic := fmt.Sprintf("Week %d Topic", n)
		if n-1 < len(t.Topics) {
			topic = t.Topics[n-1]
		}

		subtopics := make([]string, 2+g.rng.IntN(3))
		for i := range subtopics {
			subtopics[i] = fmt.Sprintf("%s - Part %d", topic, i+1)
		}

		lower := strings.ToLower(topic)
		weeks = append(weeks, catalog.WeekPlan{
			WeekNumber:  n,
			Topic:       topic,
			Subtopics:   subtopics,
			Readings:    []string{fmt.Sprintf("Chapter %d", n), fmt.Sprintf("Research Paper %d", n)},
			Assignments: WeekAssignments(n, t.Weeks),
			LearningObjectives: []string{
				"Understand " + lower,
				"Apply " + lower + " concepts",
				"Implement " + lower + " solutions",
			},
		})
	}
	return catalog.CourseSyllabus{Weeks: weeks, TotalWeeks: t.Weeks}
}

// WeekAssignments lists the assignments due in week n of a total-week course.
func WeekAssignments(n, total int) []string {
	out := []string{}
	if n%2 == 0 && n < total-2 {
		out = append(out, fmt.Sprintf("Homework %d", n/2))
	}
	if n == total/2 {
		out = append(out, "Midterm Exam")
	}
	switch n {
	case total - 4:
		out = append(out, "Project Proposal")
	case total - 2:
		out = append(out, "Project Draft")
	case total:
		out = append(out, "Final Project")
	}
	return out
}

// Assignments builds the graded work of a course lasting weeks weeks.
func Assignments(weeks int) []catalog.Assignment {
	var out []catalog.Assignment
	for i := 1; i < weeks/2; i++ {
		out = append(out, catalog.Assignment{
			Title:            fmt.Sprintf("Homework %d", i),
			Description:      fmt.Sprintf("Problem set covering weeks %d-%d", i*2-1, i*2),
			Type:             catalog.AssignmentHomework,
			DueWeek:          i * 2,
			Points:           100,
			EstimatedHours:   8,
			SubmissionFormat: "PDF or Jupyter Notebook",
		})
	}
	return append(out,
		catalog.Assignment{
			Title:          "Midterm Exam",
			Description:    "Comprehensive exam covering first half of course",
			Type:           catalog.AssignmentExam,
			DueWeek:        weeks / 2,
			Points:         200,
			EstimatedHours: 3,
		},
		catalog.Assignment{
			Title:            "Project Proposal",
			Description:      "1-page proposal for final project",
			Type:             catalog.AssignmentProject,
			DueWeek:          weeks - 4,
			Points:           50,
			EstimatedHours:   4,
			GroupWork:        true,
			SubmissionFormat: "PDF",
		},
		catalog.Assignment{
			Title:            "Project Draft",
			Description:      "Working implementation and preliminary results",
			Type:             catalog.AssignmentProject,
			DueWeek:          weeks - 2,
			Points:           100,
			EstimatedHours:   15,
			GroupWork:        true,
			SubmissionFormat: "GitHub Repository",
		},
		catalog.Assignment{
			Title:            "Final Project",
			Description:      "Complete project with code, report, and presentation",
			Type:             catalog.AssignmentProject,
			DueWeek:          weeks,
			Points:           300,
			EstimatedHours:   25,
			GroupWork:        true,
			SubmissionFormat: "GitHub + Presentation",
		},
	)
}

func (g *Generator) prerequisites(t Template) []catalog.Prerequisite {
	codes := g.prereqs[t.Title]
	out := make([]catalog.Prerequisite, 0, len(codes))
	for _, code := range codes {
		out = append(out, catalog.Prerequisite{
			CourseCode:   code,
			CourseTitle:  "Prerequisite for " + t.Title,
			MinimumGrade: "C",
		})
	}
	return out
}

// LearningObjectives returns the five course-level objectives of t.
func LearningObjectives(t Template) []string {
	title := strings.ToLower(t.Title)
	return []string{
		"Understand core concepts in " + title,
		"Implement " + title + " algorithms and techniques",
		"Apply " + title + " to real-world problems",
		"Analyze and evaluate " + title + " solutions",
		"Design and build complete " + strings.ToLower(t.Department) + " systems",
	}
}

// SaveJSON writes the generated courses to dir/hierarchical_courses.json.
func (g *Generator) SaveJSON(dir string) (string, error) {
	path := filepath.Join(dir, JSONFileName)
	return path, catalog.SaveHierarchical(path, g.courses)
}

// SaveMarkdown writes COURSE_CATALOG.md plus one {code}.md per course.
func (g *Generator) SaveMarkdown(dir string) error {
	return g.save(dir, false)
}

// SaveHTML writes the markdown pages rendered to sanitized HTML.
func (g *Generator) SaveHTML(dir string) error {
	return g.save(dir, true)
}

func (g *Generator) save(dir string, asHTML bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	ext := ".md"
	if asHTML {
		ext = ".html"
	}
	write := func(name string, md []byte) error {
		if asHTML {
			md = catalog.RenderHTML(md)
		}
		return os.WriteFile(filepath.Join(dir, name+ext), md, 0o644)
	}

	var index strings.Builder
	if err := catalog.WriteCatalogMarkdown(&index, g.courses); err != nil {
		return err
	}
	indexText := index.String()
	if asHTML {
		indexText = strings.ReplaceAll(indexText, ".md)", ".html)")
	}
	if err := write(strings.TrimSuffix(CatalogFileName, ".md"), []byte(indexText)); err != nil {
		return err
	}

	for _, c := range g.courses {
		var page strings.Builder
		if err := catalog.WriteCourseMarkdown(&page, c); err != nil {
			return err
		}
		if err := write(c.Summary.CourseCode, []byte(page.String())); err != nil {
			return fmt.Errorf("write %s: %w", c.Summary.CourseCode, err)
		}
	}
	return nil
}

// Stats summarises a generated catalog.
type Stats struct {
	Courses                 int
	TotalAssignments        int
	TotalWeeks              int
	AvgAssignmentsPerCourse float64
	AvgWeeksPerCourse       float64
}

// Stats computes summary statistics over the generated courses.
func (g *Generator) Stats() Stats {
	s := Stats{Courses: len(g.courses)}
	for _, c := range g.courses {
		s.TotalAssignments += c.Details.TotalAssignments()
		s.TotalWeeks += c.Details.Syllabus.TotalWeeks
	}
	if s.Courses > 0 {
		s.AvgAssignmentsPerCourse = float64(s.TotalAssignments) / float64(s.Courses)
		s.AvgWeeksPerCourse = float64(s.TotalWeeks) / float64(s.Courses)
	}
	return s
}
