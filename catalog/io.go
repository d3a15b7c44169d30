package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type catalogFile struct {
	Courses []HierarchicalCourse `json:"courses"`
}

// LoadHierarchical reads a {"courses": [...]} catalog file.
func LoadHierarchical(path string) ([]HierarchicalCourse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return f.Courses, nil
}

// SaveHierarchical writes courses as an indented catalog file, creating the
// parent directory when needed.
func SaveHierarchical(path string, courses []HierarchicalCourse) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	for i := range courses {
		if courses[i].CreatedAt.IsZero() {
			courses[i].CreatedAt = time.Now().UTC()
		}
	}
	data, err := json.MarshalIndent(catalogFile{Courses: courses}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// IndexByCode maps course codes to hierarchical courses. Later duplicates
// are ignored.
func IndexByCode(courses []HierarchicalCourse) map[string]HierarchicalCourse {
	out := make(map[string]HierarchicalCourse, len(courses))
	for _, c := range courses {
		if _, seen := out[c.Summary.CourseCode]; !seen {
			out[c.Summary.CourseCode] = c
		}
	}
	return out
}
