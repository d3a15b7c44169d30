// Package assembler renders retrieved courses into LLM context strings.
package assembler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/courseqa/catalog"
)

// FilterCourseDetails keeps only the parts of each course the question asks
// about. Identity fields, the syllabus and tags always survive. An empty
// infoTypes returns details unchanged.
func FilterCourseDetails(details []catalog.CourseDetails, infoTypes []string) []catalog.CourseDetails {
	if len(infoTypes) == 0 {
		return details
	}
	has := func(names ...string) bool {
		for _, n := range names {
			if slices.Contains(infoTypes, n) {
				return true
			}
		}
		return false
	}

	out := make([]catalog.CourseDetails, 0, len(details))
	for _, d := range details {
		f := d
		if !has("overview", "description") {
			f.FullDescription = ""
		}
		if !has("prerequisites", "prerequisite") {
			f.Prerequisites = nil
		}
		if !has("syllabus", "learning_objectives", "objectives") {
			f.LearningObjectives = nil
		}
		if !has("assignments", "assignment") {
			f.Assignments = nil
		}
		out = append(out, f)
	}
	return out
}

// HierarchicalContextAssembler renders summaries of every match followed by
// the full details of the top matches, so the most specific material sits
// closest to the question.
type HierarchicalContextAssembler struct{}

// AssembleSummaryOnly renders summaries alone.
func (HierarchicalContextAssembler) AssembleSummaryOnly(summaries []catalog.CourseSummary, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Course Search Results for: %s\n\n", query)
	fmt.Fprintf(&sb, "Found %d relevant courses.\n\n", len(summaries))
	for i, s := range summaries {
		writeSummary(&sb, i+1, s)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// Assemble renders the overview of all summaries and then the details.
func (HierarchicalContextAssembler) Assemble(summaries []catalog.CourseSummary, details []catalog.CourseDetails, query string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Course Search Results for: %s\n\n", query)
	fmt.Fprintf(&sb, "Found %d relevant courses. Showing summaries for all and full details for the top %d.\n\n", len(summaries), len(details))

	sb.WriteString("## Overview of All Matches\n\n")
	for i, s := range summaries {
		writeSummary(&sb, i+1, s)
	}

	if len(details) > 0 {
		sb.WriteString("## Detailed Information\n\n")
		for _, d := range details {
			writeDetails(&sb, d)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeSummary(sb *strings.Builder, n int, s catalog.CourseSummary) {
	fmt.Fprintf(sb, "%d. **%s: %s**\n", n, s.CourseCode, s.Title)
	fmt.Fprintf(sb, "   %s | %d credits | %s | %s\n", s.Department, s.Credits, s.DifficultyLevel, s.Format)
	if s.Instructor != "" {
		fmt.Fprintf(sb, "   Instructor: %s\n", s.Instructor)
	}
	if s.ShortDescription != "" {
		fmt.Fprintf(sb, "   %s\n", s.ShortDescription)
	}
	if len(s.PrerequisiteCodes) > 0 {
		fmt.Fprintf(sb, "   Prerequisites: %s\n", strings.Join(s.PrerequisiteCodes, ", "))
	}
	sb.WriteString("\n")
}

func writeDetails(sb *strings.Builder, d catalog.CourseDetails) {
	fmt.Fprintf(sb, "### %s: %s\n\n", d.CourseCode, d.Title)
	fmt.Fprintf(sb, "- Department: %s\n- Credits: %d\n- Level: %s\n- Format: %s\n", d.Department, d.Credits, d.DifficultyLevel, d.Format)
	if d.Instructor != "" {
		fmt.Fprintf(sb, "- Instructor: %s\n", d.Instructor)
	}
	if d.Semester != "" {
		fmt.Fprintf(sb, "- Offered: %s %d\n", d.Semester, d.Year)
	}
	sb.WriteString("\n")

	if d.FullDescription != "" {
		fmt.Fprintf(sb, "**Description:** %s\n\n", d.FullDescription)
	}

	if len(d.Prerequisites) > 0 {
		sb.WriteString("**Prerequisites:**\n")
		for _, p := range d.Prerequisites {
			grade := p.MinimumGrade
			if grade == "" {
				grade = "C"
			}
			fmt.Fprintf(sb, "- %s: %s (minimum grade %s)\n", p.CourseCode, p.CourseTitle, grade)
		}
		sb.WriteString("\n")
	}

	if len(d.LearningObjectives) > 0 {
		sb.WriteString("**Learning Objectives:**\n")
		for _, o := range d.LearningObjectives {
			fmt.Fprintf(sb, "- %s\n", o)
		}
		sb.WriteString("\n")
	}

	if len(d.Syllabus.Weeks) > 0 {
		fmt.Fprintf(sb, "**Syllabus (%d weeks):**\n", d.Syllabus.TotalWeeks)
		for _, w := range d.Syllabus.Weeks {
			fmt.Fprintf(sb, "- Week %d: %s", w.WeekNumber, w.Topic)
			if len(w.Subtopics) > 0 {
				fmt.Fprintf(sb, " (%s)", strings.Join(w.Subtopics, ", "))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(d.Assignments) > 0 {
		fmt.Fprintf(sb, "**Assignments (%d total, %d points):**\n", d.TotalAssignments(), d.TotalPoints())
		for _, a := range d.Assignments {
			fmt.Fprintf(sb, "- %s [%s] due week %d, %d points\n", a.Title, a.Type, a.DueWeek, a.Points)
		}
		sb.WriteString("\n")
	}
}

// RawContext dumps each course as JSON, the unprocessed form the baseline
// agent sends to the model.
func RawContext(courses []catalog.Course) string {
	parts := make([]string, 0, len(courses))
	for _, c := range courses {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n\n")
}

// EngineeredContext renders courses as cleaned text, one line per course
// when optimized is set.
func EngineeredContext(courses []catalog.Course, optimized bool) string {
	parts := make([]string, 0, len(courses))
	for _, c := range courses {
		if optimized {
			parts = append(parts, catalog.OptimizeCourseText(c))
		} else {
			parts = append(parts, catalog.TransformCourseToText(c))
		}
	}
	sep := "\n\n"
	if optimized {
		sep = "\n"
	}
	return strings.Join(parts, sep)
}
