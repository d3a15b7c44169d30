// Package loader fills the course index from the hierarchical catalog file.
package loader

import (
	"context"
	"fmt"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/rag"
)

// LoadCoursesIfNeeded loads the catalog at path into manager unless the index
// already holds courses and force is false. It returns the number of courses
// in the index afterwards. A course that fails to store is logged and skipped.
func LoadCoursesIfNeeded(ctx context.Context, manager *rag.CourseManager, path string, force bool) (int, error) {
	logger := log.Named("course-loader")

	existing, err := manager.CourseCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	if existing > 0 && !force {
		logger.Info("Found %d existing courses, skipping load", existing)
		return existing, nil
	}

	if existing > 0 {
		logger.Info("Clearing %d existing courses", existing)
	}
	if err := manager.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear courses: %w", err)
	}

	courses, err := catalog.LoadHierarchical(path)
	if err != nil {
		return 0, err
	}
	logger.Info("Loading %d courses from %s", len(courses), path)

	stored := 0
	for i, h := range courses {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		c := catalog.HierarchicalToCourse(h)
		if err := manager.StoreCourse(ctx, c); err != nil {
			logger.Error("Failed to store course %s: %v", c.CourseCode, err)
			continue
		}
		stored++
		if (i+1)%10 == 0 {
			logger.Info("Loaded %d/%d courses", i+1, len(courses))
		}
	}
	logger.Info("Loaded %d courses", stored)
	return stored, nil
}

// CleanupCourses removes every course from the index.
func CleanupCourses(ctx context.Context, manager *rag.CourseManager) error {
	n, err := manager.CourseCount(ctx)
	if err != nil {
		return err
	}
	if err := manager.Clear(ctx); err != nil {
		return fmt.Errorf("cleanup courses: %w", err)
	}
	log.Named("course-loader").Info("Removed %d courses", n)
	return nil
}
