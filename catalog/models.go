// Package catalog holds the course data model shared by the generator, the
// course index and the agents, plus its text, markdown and HTML renderings.
package catalog

import (
	"strings"
	"time"
)

// DifficultyLevel of a course.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
	DifficultyGraduate     DifficultyLevel = "graduate"
)

// CourseFormat is how a course is delivered.
type CourseFormat string

const (
	FormatInPerson CourseFormat = "in_person"
	FormatOnline   CourseFormat = "online"
	FormatHybrid   CourseFormat = "hybrid"
)

// AllFormats lists every CourseFormat in declaration order.
var AllFormats = []CourseFormat{FormatInPerson, FormatOnline, FormatHybrid}

// Semester a course is offered in.
type Semester string

const (
	SemesterFall   Semester = "fall"
	SemesterSpring Semester = "spring"
	SemesterSummer Semester = "summer"
	SemesterWinter Semester = "winter"
)

// AllSemesters lists every Semester in declaration order.
var AllSemesters = []Semester{SemesterFall, SemesterSpring, SemesterSummer, SemesterWinter}

// AssignmentType categorises graded work.
type AssignmentType string

const (
	AssignmentHomework     AssignmentType = "homework"
	AssignmentProject      AssignmentType = "project"
	AssignmentExam         AssignmentType = "exam"
	AssignmentQuiz         AssignmentType = "quiz"
	AssignmentLab          AssignmentType = "lab"
	AssignmentPaper        AssignmentType = "paper"
	AssignmentPresentation AssignmentType = "presentation"
)

// Prerequisite names a course that must be completed first.
type Prerequisite struct {
	CourseCode      string `json:"course_code"`
	CourseTitle     string `json:"course_title"`
	MinimumGrade    string `json:"minimum_grade,omitempty"`
	CanBeConcurrent bool   `json:"can_be_concurrent"`
}

// Schedule of an in-person or hybrid course.
type Schedule struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Location  string   `json:"location,omitempty"`
}

// Course is the flat record stored in the course index.
type Course struct {
	ID                 string          `json:"id"`
	CourseCode         string          `json:"course_code"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Credits            int             `json:"credits"`
	DifficultyLevel    DifficultyLevel `json:"difficulty_level"`
	Format             CourseFormat    `json:"format"`
	Department         string          `json:"department"`
	Major              string          `json:"major"`
	Prerequisites      []Prerequisite  `json:"prerequisites"`
	Schedule           *Schedule       `json:"schedule"`
	Semester           Semester        `json:"semester"`
	Year               int             `json:"year"`
	Instructor         string          `json:"instructor"`
	MaxEnrollment      int             `json:"max_enrollment"`
	CurrentEnrollment  int             `json:"current_enrollment"`
	Tags               []string        `json:"tags"`
	LearningObjectives []string        `json:"learning_objectives"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PrerequisiteCodes returns the course codes of c's prerequisites.
func (c *Course) PrerequisiteCodes() []string {
	codes := make([]string, 0, len(c.Prerequisites))
	for _, p := range c.Prerequisites {
		codes = append(codes, p.CourseCode)
	}
	return codes
}

// EmbeddingText is the text embedded for semantic search.
func (c *Course) EmbeddingText() string {
	return strings.Join([]string{
		c.CourseCode + ": " + c.Title,
		c.Description,
		"Department: " + c.Department,
		"Level: " + string(c.DifficultyLevel),
		"Tags: " + strings.Join(c.Tags, ", "),
	}, "\n")
}

// WeekPlan is one week of a syllabus.
type WeekPlan struct {
	WeekNumber         int      `json:"week_number"`
	Topic              string   `json:"topic"`
	Subtopics          []string `json:"subtopics"`
	Readings           []string `json:"readings"`
	Assignments        []string `json:"assignments"`
	LearningObjectives []string `json:"learning_objectives"`
}

// CourseSyllabus is the week-by-week plan.
type CourseSyllabus struct {
	Weeks      []WeekPlan `json:"weeks"`
	TotalWeeks int        `json:"total_weeks"`
}

// Assignment is a graded piece of work.
type Assignment struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Type             AssignmentType `json:"type"`
	DueWeek          int            `json:"due_week"`
	Points           int            `json:"points"`
	EstimatedHours   float64        `json:"estimated_hours,omitempty"`
	GroupWork        bool           `json:"group_work"`
	SubmissionFormat string         `json:"submission_format,omitempty"`
}

// CourseSummary is the lightweight tier of a hierarchical course.
type CourseSummary struct {
	CourseCode        string          `json:"course_code"`
	Title             string          `json:"title"`
	Department        string          `json:"department"`
	Credits           int             `json:"credits"`
	DifficultyLevel   DifficultyLevel `json:"difficulty_level"`
	Format            CourseFormat    `json:"format"`
	Instructor        string          `json:"instructor"`
	ShortDescription  string          `json:"short_description"`
	PrerequisiteCodes []string        `json:"prerequisite_codes"`
	Tags              []string        `json:"tags"`
	EmbeddingText     string          `json:"embedding_text,omitempty"`
}

// GenerateEmbeddingText fills EmbeddingText from the other fields.
func (s *CourseSummary) GenerateEmbeddingText() string {
	parts := []string{
		s.CourseCode + ": " + s.Title,
		s.ShortDescription,
		"Department: " + s.Department,
		"Level: " + string(s.DifficultyLevel),
	}
	if len(s.Tags) > 0 {
		parts = append(parts, "Topics: "+strings.Join(s.Tags, ", "))
	}
	s.EmbeddingText = strings.Join(parts, "\n")
	return s.EmbeddingText
}

// CourseDetails is the full tier of a hierarchical course.
type CourseDetails struct {
	CourseCode         string          `json:"course_code"`
	Title              string          `json:"title"`
	Department         string          `json:"department"`
	Credits            int             `json:"credits"`
	DifficultyLevel    DifficultyLevel `json:"difficulty_level"`
	Format             CourseFormat    `json:"format"`
	Instructor         string          `json:"instructor"`
	FullDescription    string          `json:"full_description"`
	Prerequisites      []Prerequisite  `json:"prerequisites"`
	LearningObjectives []string        `json:"learning_objectives"`
	Syllabus           CourseSyllabus  `json:"syllabus"`
	Assignments        []Assignment    `json:"assignments"`
	Semester           Semester        `json:"semester,omitempty"`
	Year               int             `json:"year,omitempty"`
	MaxEnrollment      int             `json:"max_enrollment,omitempty"`
	Tags               []string        `json:"tags"`
}

// TotalPoints sums assignment points.
func (d *CourseDetails) TotalPoints() int {
	total := 0
	for _, a := range d.Assignments {
		total += a.Points
	}
	return total
}

// TotalAssignments counts assignments.
func (d *CourseDetails) TotalAssignments() int {
	return len(d.Assignments)
}

// HierarchicalCourse pairs the summary and details of one course.
type HierarchicalCourse struct {
	ID        string        `json:"id"`
	Summary   CourseSummary `json:"summary"`
	Details   CourseDetails `json:"details"`
	CreatedAt time.Time     `json:"created_at"`
}
