// Package coursetest provides a small seeded course catalog on miniredis
// for tests of the packages built on top of the course manager.
package coursetest

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/rag"
	"github.com/smallnest/courseqa/rag/store"
)

type fixture struct {
	code, title, dept, major, desc string
	level                          catalog.DifficultyLevel
	format                         catalog.CourseFormat
	prereqs                        []string
	tags                           []string
}

var fixtures = []fixture{
	{"CS001", "Introduction to Programming", "Computer Science", "Computer Science",
		"Learn programming fundamentals with Python variables loops and functions.",
		catalog.DifficultyBeginner, catalog.FormatOnline, nil, []string{"programming", "python"}},
	{"CS002", "Data Structures", "Computer Science", "Computer Science",
		"Arrays linked lists trees and graphs with algorithm analysis.",
		catalog.DifficultyIntermediate, catalog.FormatInPerson, []string{"CS001"}, []string{"algorithms", "programming"}},
	{"CS009", "Machine Learning", "Computer Science", "Data Science",
		"Machine learning algorithms neural networks and model evaluation.",
		catalog.DifficultyAdvanced, catalog.FormatHybrid, []string{"CS002", "MATH010"}, []string{"machine learning", "ai"}},
	{"MATH010", "Linear Algebra", "Mathematics", "Mathematics",
		"Vectors matrices eigenvalues and linear transformations.",
		catalog.DifficultyIntermediate, catalog.FormatOnline, nil, []string{"math", "linear algebra"}},
	{"DS005", "Database Systems", "Data Science", "Data Science",
		"Relational databases SQL query optimization and Redis data modeling.",
		catalog.DifficultyIntermediate, catalog.FormatOnline, []string{"CS001"}, []string{"databases", "redis"}},
}

// Hierarchical returns the hierarchical form of the test catalog.
func Hierarchical() []catalog.HierarchicalCourse {
	out := make([]catalog.HierarchicalCourse, 0, len(fixtures))
	for _, s := range fixtures {
		var prereqs []catalog.Prerequisite
		for _, p := range s.prereqs {
			prereqs = append(prereqs, catalog.Prerequisite{CourseCode: p, CourseTitle: "Prerequisite " + p, MinimumGrade: "C"})
		}
		out = append(out, catalog.HierarchicalCourse{
			ID: "id-" + s.code,
			Summary: catalog.CourseSummary{
				CourseCode:        s.code,
				Title:             s.title,
				Department:        s.dept,
				Credits:           3,
				DifficultyLevel:   s.level,
				Format:            s.format,
				Instructor:        "Dr. Test",
				ShortDescription:  s.desc,
				PrerequisiteCodes: s.prereqs,
				Tags:              s.tags,
			},
			Details: catalog.CourseDetails{
				CourseCode:         s.code,
				Title:              s.title,
				Department:         s.dept,
				Credits:            3,
				DifficultyLevel:    s.level,
				Format:             s.format,
				Instructor:         "Dr. Test",
				FullDescription:    s.desc,
				Prerequisites:      prereqs,
				LearningObjectives: []string{"Understand " + s.title},
				Syllabus: catalog.CourseSyllabus{
					TotalWeeks: 1,
					Weeks:      []catalog.WeekPlan{{WeekNumber: 1, Topic: s.title + " basics"}},
				},
				Assignments: []catalog.Assignment{
					{Title: "Project", Type: catalog.AssignmentProject, DueWeek: 1, Points: 100},
				},
				Semester: catalog.SemesterFall,
				Year:     2025,
				Tags:     s.tags,
			},
		})
	}
	return out
}

// Courses returns the flat form of the test catalog.
func Courses() []catalog.Course {
	hs := Hierarchical()
	out := make([]catalog.Course, len(hs))
	for i, h := range hs {
		out[i] = catalog.HierarchicalToCourse(h)
		out[i].Major = fixtures[i].major
	}
	return out
}

// Manager returns a course manager over miniredis seeded with Courses.
func Manager(t testing.TB) *rag.CourseManager {
	t.Helper()
	m := EmptyManager(t)
	for _, c := range Courses() {
		require.NoError(t, m.StoreCourse(context.Background(), c))
	}
	return m
}

// EmptyManager returns a course manager over an empty miniredis.
func EmptyManager(t testing.TB) *rag.CourseManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return rag.NewCourseManager(store.NewRedisCourseStore(client, "courses_test"), llms.NewMockEmbedder(256))
}

// UnreachableManager returns a course manager whose Redis has shut down, so
// every search fails.
func UnreachableManager(t testing.TB) *rag.CourseManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	return rag.NewCourseManager(store.NewRedisCourseStore(client, "courses_test"), llms.NewMockEmbedder(256))
}
