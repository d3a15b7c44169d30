package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/rag/store"
)

// CourseStore is the course index used by CourseManager.
type CourseStore interface {
	Add(ctx context.Context, course catalog.Course, embedding []float32) error
	Get(ctx context.Context, code string) (*catalog.Course, error)
	All(ctx context.Context) ([]catalog.Course, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	FilterByTag(ctx context.Context, field, value string) ([]catalog.Course, error)
	KNN(ctx context.Context, embedding []float32, k int, filters map[string]string) ([]store.ScoredCourse, error)
}

var _ CourseStore = (*store.RedisCourseStore)(nil)

// CourseManager stores, looks up and searches courses.
type CourseManager struct {
	store    CourseStore
	embedder llms.Embedder
	logger   log.Logger
}

// NewCourseManager wires a store and an embedder together.
func NewCourseManager(s CourseStore, embedder llms.Embedder) *CourseManager {
	return &CourseManager{
		store:    s,
		embedder: embedder,
		logger:   log.Named("course-manager"),
	}
}

// Store returns the underlying course index.
func (m *CourseManager) Store() CourseStore { return m.store }

// StoreCourse embeds and indexes a course.
func (m *CourseManager) StoreCourse(ctx context.Context, c catalog.Course) error {
	vec, err := m.embedder.EmbedQuery(ctx, c.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed course %s: %w", c.CourseCode, err)
	}
	return m.store.Add(ctx, c, vec)
}

// GetCourse returns the course with the given code, or nil when it does not exist.
func (m *CourseManager) GetCourse(ctx context.Context, code string) (*catalog.Course, error) {
	c, err := m.store.Get(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if errors.Is(err, store.ErrCourseNotFound) {
		return nil, nil
	}
	return c, err
}

// GetAllCourses lists the catalog ordered by code.
func (m *CourseManager) GetAllCourses(ctx context.Context) ([]catalog.Course, error) {
	return m.store.All(ctx)
}

// CourseCount returns the number of indexed courses.
func (m *CourseManager) CourseCount(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Clear drops the whole index.
func (m *CourseManager) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// SearchCourses runs a semantic search. Filters are matched against the tag
// fields of the index (department, difficulty_level, format, course_code).
func (m *CourseManager) SearchCourses(ctx context.Context, query string, limit int, filters map[string]string) ([]store.ScoredCourse, error) {
	if limit <= 0 {
		limit = 5
	}
	vec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.store.KNN(ctx, vec, limit, filters)
}

// ExactMatch looks up each code through the course_code tag. Unknown codes
// are skipped; the result keeps the order of codes.
func (m *CourseManager) ExactMatch(ctx context.Context, codes []string) ([]catalog.Course, error) {
	var out []catalog.Course
	seen := make(map[string]bool)
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		matches, err := m.store.FilterByTag(ctx, store.TagCourseCode, code)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			m.logger.Debug("exact match: no course %s", code)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// Recommendation is one suggested course.
type Recommendation struct {
	Course           catalog.Course
	RelevanceScore   float64
	Reasoning        string
	PrerequisitesMet bool
}

// RecommendCourses suggests up to limit courses for a student with the given
// interests. Completed courses are excluded and courses whose prerequisites
// are all completed rank before the others.
func (m *CourseManager) RecommendCourses(ctx context.Context, interests, completed []string, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 3
	}
	query := strings.Join(interests, " ")
	if strings.TrimSpace(query) == "" {
		query = "general"
	}

	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[strings.ToUpper(c)] = true
	}

	matches, err := m.SearchCourses(ctx, query, limit+len(completed)+5, nil)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	for _, sc := range matches {
		if done[sc.Course.CourseCode] {
			continue
		}
		met := true
		for _, p := range sc.Course.Prerequisites {
			if !done[strings.ToUpper(p.CourseCode)] {
				met = false
				break
			}
		}
		recs = append(recs, Recommendation{
			Course:           sc.Course,
			RelevanceScore:   sc.Score,
			Reasoning:        reasoning(sc.Course, interests),
			PrerequisitesMet: met,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].PrerequisitesMet != recs[j].PrerequisitesMet {
			return recs[i].PrerequisitesMet
		}
		return recs[i].RelevanceScore > recs[j].RelevanceScore
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func reasoning(c catalog.Course, interests []string) string {
	haystack := strings.ToLower(c.Title + " " + c.Description + " " + strings.Join(c.Tags, " "))
	var hits []string
	for _, in := range interests {
		in = strings.TrimSpace(in)
		if in != "" && strings.Contains(haystack, strings.ToLower(in)) {
			hits = append(hits, in)
		}
	}
	if len(hits) > 0 {
		return "Matches your interest in " + strings.Join(hits, ", ")
	}
	return fmt.Sprintf("Related %s course in %s", c.DifficultyLevel, c.Department)
}
