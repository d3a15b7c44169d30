package assembler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/catalog"
)

func sampleDetails() catalog.CourseDetails {
	return catalog.CourseDetails{
		CourseCode:         "CS012",
		Title:              "Machine Learning Fundamentals",
		Department:         "Computer Science",
		Credits:            4,
		DifficultyLevel:    catalog.DifficultyIntermediate,
		Format:             catalog.FormatHybrid,
		FullDescription:    "A full description.",
		Prerequisites:      []catalog.Prerequisite{{CourseCode: "CS002", CourseTitle: "Data Structures", MinimumGrade: "C"}},
		LearningObjectives: []string{"Build models"},
		Syllabus: catalog.CourseSyllabus{TotalWeeks: 1, Weeks: []catalog.WeekPlan{
			{WeekNumber: 1, Topic: "Regression", Subtopics: []string{"OLS"}},
		}},
		Assignments: []catalog.Assignment{{Title: "Homework 1", Type: catalog.AssignmentHomework, DueWeek: 1, Points: 100}},
		Tags:        []string{"ml"},
	}
}

func TestFilterCourseDetails(t *testing.T) {
	d := []catalog.CourseDetails{sampleDetails()}

	assert.Equal(t, d, FilterCourseDetails(d, nil))

	f := FilterCourseDetails(d, []string{"prerequisites"})
	require.Len(t, f, 1)
	assert.Empty(t, f[0].FullDescription)
	assert.Len(t, f[0].Prerequisites, 1)
	assert.Empty(t, f[0].LearningObjectives)
	assert.Empty(t, f[0].Assignments)
	assert.Len(t, f[0].Syllabus.Weeks, 1)
	assert.Equal(t, []string{"ml"}, f[0].Tags)

	f = FilterCourseDetails(d, []string{"syllabus", "assignment", "overview"})
	assert.Equal(t, "A full description.", f[0].FullDescription)
	assert.Empty(t, f[0].Prerequisites)
	assert.Len(t, f[0].LearningObjectives, 1)
	assert.Len(t, f[0].Assignments, 1)

	// The input is not modified.
	assert.Len(t, d[0].Prerequisites, 1)
}

func TestAssembleHierarchical(t *testing.T) {
	summaries := []catalog.CourseSummary{
		{CourseCode: "CS012", Title: "Machine Learning Fundamentals", PrerequisiteCodes: []string{"CS002"}},
		{CourseCode: "CS013", Title: "Deep Learning"},
	}
	out := HierarchicalContextAssembler{}.Assemble(summaries, []catalog.CourseDetails{sampleDetails()}, "ml courses")

	assert.True(t, strings.HasPrefix(out, "# Course Search Results for: ml courses"))
	overview := strings.Index(out, "Overview of All Matches")
	detailed := strings.Index(out, "Detailed Information")
	require.Positive(t, overview)
	assert.Greater(t, detailed, overview)
	assert.Contains(t, out, "2. **CS013: Deep Learning**")
	assert.Contains(t, out, "Week 1: Regression (OLS)")
	assert.Contains(t, out, "Assignments (1 total, 100 points)")
	assert.Contains(t, out, "CS002: Data Structures (minimum grade C)")
}

func TestAssembleSummaryOnly(t *testing.T) {
	out := HierarchicalContextAssembler{}.AssembleSummaryOnly([]catalog.CourseSummary{{CourseCode: "A1", Title: "x"}}, "q")
	assert.Contains(t, out, "Course Search Results")
	assert.Contains(t, out, "Found 1")
	assert.NotContains(t, out, "Overview of All Matches")
	assert.NotContains(t, out, "Detailed Information")
}

func TestRawAndEngineeredContext(t *testing.T) {
	courses := []catalog.Course{
		{CourseCode: "CS001", Title: "Intro", Description: strings.Repeat("d", 150), Prerequisites: []catalog.Prerequisite{{CourseCode: "CS000"}}},
		{CourseCode: "CS002", Title: "Next", Description: "short"},
	}

	raw := RawContext(courses)
	parts := strings.Split(raw, "\n\n")
	require.Len(t, parts, 2)
	var decoded catalog.Course
	require.NoError(t, json.Unmarshal([]byte(parts[0]), &decoded))
	assert.Equal(t, "CS001", decoded.CourseCode)

	full := EngineeredContext(courses, false)
	assert.Contains(t, full, "CS001: Intro\nDepartment:")
	assert.Contains(t, full, "Prerequisites: CS000")

	compact := EngineeredContext(courses, true)
	lines := strings.Split(compact, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "CS001: Intro - "+strings.Repeat("d", 100)+"... (Prereq: CS000)", lines[0])
	assert.Equal(t, "CS002: Next - short...", lines[1])
}
