// Package retriever implements the course retrieval strategies used by the
// search tools: semantic, keyword, exact code lookup and a hybrid that fuses
// semantic and keyword rankings.
package retriever

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/smallnest/courseqa/rag"
	"github.com/smallnest/courseqa/rag/store"
)

// DefaultRRFConstant is the standard reciprocal-rank-fusion k.
const DefaultRRFConstant = 60.0

// CourseRetriever returns up to k courses for a query, best first.
type CourseRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]store.ScoredCourse, error)
}

var courseCodePattern = regexp.MustCompile(`\b[A-Za-z]{2,4}\d{3}\b`)

// ExtractCourseCodes finds course codes such as CS101 in text, upper-cased
// and de-duplicated in order of appearance.
func ExtractCourseCodes(text string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, m := range courseCodePattern.FindAllString(text, -1) {
		code := strings.ToUpper(m)
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

// Semantic ranks courses by embedding similarity.
type Semantic struct {
	Manager *rag.CourseManager
	Filters map[string]string
}

// Retrieve implements CourseRetriever.
func (s *Semantic) Retrieve(ctx context.Context, query string, k int) ([]store.ScoredCourse, error) {
	return s.Manager.SearchCourses(ctx, query, k, s.Filters)
}

// Keyword ranks courses by the share of query terms found in their code,
// title, description and tags.
type Keyword struct {
	Manager *rag.CourseManager
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true, "courses": true,
	"course": true, "for": true, "in": true, "is": true, "me": true, "of": true,
	"on": true, "or": true, "the": true, "to": true, "what": true, "which": true,
	"with": true, "show": true, "find": true, "tell": true,
}

func terms(text string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

// Retrieve implements CourseRetriever.
func (kw *Keyword) Retrieve(ctx context.Context, query string, k int) ([]store.ScoredCourse, error) {
	qt := terms(query)
	if len(qt) == 0 {
		return []store.ScoredCourse{}, nil
	}
	courses, err := kw.Manager.GetAllCourses(ctx)
	if err != nil {
		return nil, err
	}

	var results []store.ScoredCourse
	for _, c := range courses {
		doc := make(map[string]bool)
		for _, t := range terms(c.CourseCode + " " + c.Title + " " + c.Description + " " + strings.Join(c.Tags, " ")) {
			doc[t] = true
		}
		hits := 0
		for _, t := range qt {
			if doc[t] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		results = append(results, store.ScoredCourse{Course: c, Score: float64(hits) / float64(len(qt))})
	}
	sortScored(results)
	return limit(results, k), nil
}

// Exact looks up the course codes mentioned in the query.
type Exact struct {
	Manager *rag.CourseManager
}

// Retrieve implements CourseRetriever. Every match scores 1.
func (e *Exact) Retrieve(ctx context.Context, query string, k int) ([]store.ScoredCourse, error) {
	codes := ExtractCourseCodes(query)
	if len(codes) == 0 {
		return []store.ScoredCourse{}, nil
	}
	courses, err := e.Manager.ExactMatch(ctx, codes)
	if err != nil {
		return nil, err
	}
	results := make([]store.ScoredCourse, 0, len(courses))
	for _, c := range courses {
		results = append(results, store.ScoredCourse{Course: c, Score: 1})
	}
	return limit(results, k), nil
}

// Hybrid fuses a semantic and a keyword ranking with reciprocal rank fusion.
// Each list contributes weight/(K+rank); SemanticWeight applies to the
// semantic list and 1-SemanticWeight to the keyword list. Courses named by
// code in the query are placed first.
type Hybrid struct {
	Semantic       CourseRetriever
	Keyword        CourseRetriever
	Exact          CourseRetriever
	SemanticWeight float64
	K              float64
}

// NewHybrid builds the default hybrid retriever over manager.
func NewHybrid(manager *rag.CourseManager) *Hybrid {
	return &Hybrid{
		Semantic:       &Semantic{Manager: manager},
		Keyword:        &Keyword{Manager: manager},
		Exact:          &Exact{Manager: manager},
		SemanticWeight: 0.5,
		K:              DefaultRRFConstant,
	}
}

// Retrieve implements CourseRetriever.
func (h *Hybrid) Retrieve(ctx context.Context, query string, k int) ([]store.ScoredCourse, error) {
	rrfK := h.K
	if rrfK <= 0 {
		rrfK = DefaultRRFConstant
	}
	w := h.SemanticWeight
	if w < 0 || w > 1 {
		w = 0.5
	}

	// Retrieve deeper than k so fusion has something to work with.
	depth := k * 2
	if depth < 10 {
		depth = 10
	}

	var exact []store.ScoredCourse
	if h.Exact != nil {
		var err error
		if exact, err = h.Exact.Retrieve(ctx, query, k); err != nil {
			return nil, err
		}
	}
	semantic, err := h.Semantic.Retrieve(ctx, query, depth)
	if err != nil {
		return nil, err
	}
	keyword, err := h.Keyword.Retrieve(ctx, query, depth)
	if err != nil {
		return nil, err
	}

	fused := ReciprocalRankFusion(rrfK,
		WeightedList{Results: semantic, Weight: w},
		WeightedList{Results: keyword, Weight: 1 - w},
	)

	results := make([]store.ScoredCourse, 0, len(exact)+len(fused))
	seen := make(map[string]bool)
	for _, sc := range exact {
		seen[sc.Course.CourseCode] = true
		results = append(results, sc)
	}
	for _, sc := range fused {
		if !seen[sc.Course.CourseCode] {
			results = append(results, sc)
		}
	}
	return limit(results, k), nil
}

// WeightedList is a ranked list and its fusion weight.
type WeightedList struct {
	Results []store.ScoredCourse
	Weight  float64
}

// ReciprocalRankFusion merges ranked lists. A course's fused score is the
// sum of weight/(k+rank) over the lists it appears in, rank starting at 1.
func ReciprocalRankFusion(k float64, lists ...WeightedList) []store.ScoredCourse {
	scores := make(map[string]float64)
	courses := make(map[string]store.ScoredCourse)
	for _, l := range lists {
		for rank, r := range l.Results {
			code := r.Course.CourseCode
			scores[code] += l.Weight / (k + float64(rank+1))
			if _, ok := courses[code]; !ok {
				courses[code] = r
			}
		}
	}

	merged := make([]store.ScoredCourse, 0, len(scores))
	for code, score := range scores {
		sc := courses[code]
		sc.Score = score
		merged = append(merged, sc)
	}
	sortScored(merged)
	return merged
}

func sortScored(results []store.ScoredCourse) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Course.CourseCode < results[j].Course.CourseCode
	})
}

func limit(results []store.ScoredCourse, k int) []store.ScoredCourse {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}
