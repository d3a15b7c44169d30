package catalog

import (
	"fmt"
	"strings"
)

// TransformCourseToText renders a course in the multi-line form the
// context-engineered agents feed to the LLM.
func TransformCourseToText(c Course) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", c.CourseCode, c.Title)
	fmt.Fprintf(&sb, "Department: %s\n", c.Department)
	fmt.Fprintf(&sb, "Credits: %d\n", c.Credits)
	fmt.Fprintf(&sb, "Level: %s\n", c.DifficultyLevel)
	fmt.Fprintf(&sb, "Format: %s\n", c.Format)
	fmt.Fprintf(&sb, "Instructor: %s", c.Instructor)
	if len(c.Prerequisites) > 0 {
		fmt.Fprintf(&sb, "\nPrerequisites: %s", strings.Join(c.PrerequisiteCodes(), ", "))
	}
	fmt.Fprintf(&sb, "\nDescription: %s", c.Description)
	if len(c.LearningObjectives) > 0 {
		sb.WriteString("\nLearning Objectives:")
		for _, obj := range c.LearningObjectives {
			sb.WriteString("\n  - " + obj)
		}
	}
	return sb.String()
}

// OptimizeCourseText renders a course on a single compact line.
func OptimizeCourseText(c Course) string {
	prereqs := ""
	if len(c.Prerequisites) > 0 {
		prereqs = fmt.Sprintf(" (Prereq: %s)", strings.Join(c.PrerequisiteCodes(), ", "))
	}
	return fmt.Sprintf("%s: %s - %s...%s", c.CourseCode, c.Title, Truncate(c.Description, 100), prereqs)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
