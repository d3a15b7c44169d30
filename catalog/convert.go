package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UnmarshalJSON accepts either a full prerequisite object or a bare course
// code, which older catalog files use.
func (p *Prerequisite) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		*p = Prerequisite{
			CourseCode:   code,
			CourseTitle:  "Prerequisite " + code,
			MinimumGrade: "C",
		}
		return nil
	}
	type plain Prerequisite
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Prerequisite(v)
	return nil
}

// DefaultSchedule returns the fixed meeting schedule used for in-person and
// hybrid courses, or nil for online ones.
func DefaultSchedule(format CourseFormat) *Schedule {
	if format == FormatOnline {
		return nil
	}
	return &Schedule{
		Days:      []string{"tuesday", "thursday"},
		StartTime: "10:00",
		EndTime:   "11:30",
		Location:  "Room 101",
	}
}

// HierarchicalToCourse flattens a hierarchical course into the Course record
// stored in the index.
func HierarchicalToCourse(h HierarchicalCourse) Course {
	s, d := h.Summary, h.Details

	department := s.Department
	if department == "" {
		department = "Computer Science"
	}
	description := d.FullDescription
	if description == "" {
		description = s.ShortDescription
	}
	semester := d.Semester
	if semester == "" {
		semester = SemesterFall
	}
	year := d.Year
	if year == 0 {
		year = 2024
	}
	maxEnrollment := d.MaxEnrollment
	if maxEnrollment == 0 {
		maxEnrollment = 30
	}

	tags := make([]string, 0, len(s.Tags)+len(d.Tags))
	tags = append(tags, s.Tags...)
	tags = append(tags, d.Tags...)

	prereqs := make([]Prerequisite, len(d.Prerequisites))
	copy(prereqs, d.Prerequisites)
	objectives := make([]string, len(d.LearningObjectives))
	copy(objectives, d.LearningObjectives)

	now := time.Now().UTC()
	return Course{
		ID:                 uuid.NewString(),
		CourseCode:         s.CourseCode,
		Title:              s.Title,
		Description:        description,
		Credits:            s.Credits,
		DifficultyLevel:    s.DifficultyLevel,
		Format:             s.Format,
		Department:         department,
		Major:              department,
		Prerequisites:      prereqs,
		Schedule:           DefaultSchedule(s.Format),
		Semester:           semester,
		Year:               year,
		Instructor:         s.Instructor,
		MaxEnrollment:      maxEnrollment,
		Tags:               tags,
		LearningObjectives: objectives,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
