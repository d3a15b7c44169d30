package catalog

func sampleHierarchical() HierarchicalCourse {
	summary := CourseSummary{
		CourseCode:        "CS010",
		Title:             "Machine Learning Fundamentals",
		Department:        "Computer Science",
		Credits:           4,
		DifficultyLevel:   DifficultyAdvanced,
		Format:            FormatHybrid,
		Instructor:        "Ada Park",
		ShortDescription:  "Core supervised and unsupervised learning.",
		PrerequisiteCodes: []string{"CS002", "MATH020"},
		Tags:              []string{"machine learning", "ai"},
	}
	details := CourseDetails{
		CourseCode:      "CS010",
		Title:           "Machine Learning Fundamentals",
		Department:      "Computer Science",
		Credits:         4,
		DifficultyLevel: DifficultyAdvanced,
		Format:          FormatHybrid,
		Instructor:      "Ada Park",
		FullDescription: "Core supervised and unsupervised learning with hands-on projects.",
		Prerequisites: []Prerequisite{
			{CourseCode: "CS002", CourseTitle: "Prerequisite for Machine Learning Fundamentals", MinimumGrade: "C"},
			{CourseCode: "MATH020", CourseTitle: "Prerequisite for Machine Learning Fundamentals", MinimumGrade: "C"},
		},
		LearningObjectives: []string{"Understand core concepts in machine learning fundamentals"},
		Syllabus: CourseSyllabus{
			TotalWeeks: 2,
			Weeks: []WeekPlan{
				{WeekNumber: 1, Topic: "Regression", Subtopics: []string{"Regression - Part 1"}, Readings: []string{"Chapter 1"}},
				{WeekNumber: 2, Topic: "Classification", Assignments: []string{"Homework 1"}},
			},
		},
		Assignments: []Assignment{
			{Title: "Homework 1", Description: "Problem set covering weeks 1-2", Type: AssignmentHomework, DueWeek: 2, Points: 100, EstimatedHours: 8},
			{Title: "Final Project", Description: "Complete project", Type: AssignmentProject, DueWeek: 2, Points: 300, GroupWork: true, SubmissionFormat: "GitHub + Presentation"},
		},
		Semester:      SemesterSpring,
		Year:          2025,
		MaxEnrollment: 60,
		Tags:          []string{"python"},
	}
	return HierarchicalCourse{ID: "h-1", Summary: summary, Details: details}
}
