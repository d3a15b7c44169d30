package catalog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteCatalogMarkdown writes the COURSE_CATALOG.md index, grouped by
// department and sorted by course code.
func WriteCatalogMarkdown(w io.Writer, courses []HierarchicalCourse) error {
	var sb strings.Builder
	sb.WriteString("# Course Catalog\n\n")
	fmt.Fprintf(&sb, "Generated %d courses with full syllabi and assignments.\n\n", len(courses))
	sb.WriteString("## Courses by Department\n\n")

	byDept := map[string][]HierarchicalCourse{}
	for _, c := range courses {
		byDept[c.Summary.Department] = append(byDept[c.Summary.Department], c)
	}
	depts := make([]string, 0, len(byDept))
	for d := range byDept {
		depts = append(depts, d)
	}
	sort.Strings(depts)

	for _, dept := range depts {
		list := byDept[dept]
		sort.Slice(list, func(i, j int) bool { return list[i].Summary.CourseCode < list[j].Summary.CourseCode })
		fmt.Fprintf(&sb, "\n### %s\n\n", dept)
		for _, c := range list {
			s := c.Summary
			fmt.Fprintf(&sb, "- **%s**: %s\n", s.CourseCode, s.Title)
			fmt.Fprintf(&sb, "  - %s\n", s.ShortDescription)
			fmt.Fprintf(&sb, "  - Credits: %d | Level: %s\n", s.Credits, s.DifficultyLevel)
			fmt.Fprintf(&sb, "  - [View Details](%s.md)\n\n", s.CourseCode)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteCourseMarkdown writes the full page of one course.
func WriteCourseMarkdown(w io.Writer, c HierarchicalCourse) error {
	d := c.Details
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s: %s\n\n", d.CourseCode, d.Title)

	sb.WriteString("## Course Information\n\n")
	fmt.Fprintf(&sb, "- **Department**: %s\n", d.Department)
	fmt.Fprintf(&sb, "- **Credits**: %d\n", d.Credits)
	fmt.Fprintf(&sb, "- **Difficulty Level**: %s\n", d.DifficultyLevel)
	fmt.Fprintf(&sb, "- **Format**: %s\n", d.Format)
	fmt.Fprintf(&sb, "- **Instructor**: %s\n", d.Instructor)
	fmt.Fprintf(&sb, "- **Semester**: %s %d\n", d.Semester, d.Year)
	fmt.Fprintf(&sb, "- **Max Enrollment**: %d\n", d.MaxEnrollment)

	fmt.Fprintf(&sb, "\n## Description\n\n%s\n", d.FullDescription)

	if len(d.Prerequisites) > 0 {
		sb.WriteString("\n## Prerequisites\n\n")
		for _, p := range d.Prerequisites {
			fmt.Fprintf(&sb, "- **%s**: %s", p.CourseCode, p.CourseTitle)
			if p.MinimumGrade != "" {
				fmt.Fprintf(&sb, " (Minimum grade: %s)", p.MinimumGrade)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n## Learning Objectives\n\n")
	for _, obj := range d.LearningObjectives {
		fmt.Fprintf(&sb, "- %s\n", obj)
	}

	sb.WriteString("\n## Assignments\n\n")
	fmt.Fprintf(&sb, "**Total Points**: %d\n\n", d.TotalPoints())

	byType := map[AssignmentType][]Assignment{}
	for _, a := range d.Assignments {
		byType[a.Type] = append(byType[a.Type], a)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		list := byType[AssignmentType(t)]
		sort.SliceStable(list, func(i, j int) bool { return list[i].DueWeek < list[j].DueWeek })
		fmt.Fprintf(&sb, "\n### %ss\n\n", titleCase(t))
		for _, a := range list {
			fmt.Fprintf(&sb, "#### %s (Week %d)\n\n", a.Title, a.DueWeek)
			fmt.Fprintf(&sb, "%s\n\n", a.Description)
			fmt.Fprintf(&sb, "- **Points**: %d\n", a.Points)
			if a.EstimatedHours > 0 {
				fmt.Fprintf(&sb, "- **Estimated Hours**: %s\n", strconv.FormatFloat(a.EstimatedHours, 'f', 1, 64))
			}
			if a.GroupWork {
				sb.WriteString("- **Group Work**: Yes\n")
			}
			if a.SubmissionFormat != "" {
				fmt.Fprintf(&sb, "- **Submission Format**: %s\n", a.SubmissionFormat)
			}
			sb.WriteString("\n")
		}
	}

	fmt.Fprintf(&sb, "\n## Course Syllabus (%d weeks)\n\n", d.Syllabus.TotalWeeks)
	for _, week := range d.Syllabus.Weeks {
		fmt.Fprintf(&sb, "\n### Week %d: %s\n\n", week.WeekNumber, week.Topic)
		writeList(&sb, "Subtopics", week.Subtopics)
		writeList(&sb, "Learning Objectives", week.LearningObjectives)
		writeList(&sb, "Readings", week.Readings)
		writeList(&sb, "Assignments Due", week.Assignments)
	}

	if len(d.Tags) > 0 {
		sb.WriteString("\n## Tags\n\n")
		quoted := make([]string, len(d.Tags))
		for i, tag := range d.Tags {
			quoted[i] = "`" + tag + "`"
		}
		sb.WriteString(strings.Join(quoted, ", "))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "**%s**:\n", heading)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
