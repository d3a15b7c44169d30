package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/courseqa/catalog"
	"github.com/smallnest/courseqa/llms"
)

// ErrCourseNotFound is returned when no course has the requested code.
var ErrCourseNotFound = errors.New("course not found")

// Tag fields that can be used as KNN and FilterByTag filters.
const (
	TagCourseCode = "course_code"
	TagDepartment = "department"
	TagDifficulty = "difficulty_level"
	TagFormat     = "format"
)

var tagFields = []string{TagCourseCode, TagDepartment, TagDifficulty, TagFormat}

// ScoredCourse is a KNN match.
type ScoredCourse struct {
	Course catalog.Course
	Score  float64
}

// RedisCourseStore keeps a course index in Redis. Every course is a hash
// holding its JSON and its embedding; an id set and one set per tag value
// make listing and filtering cheap.
type RedisCourseStore struct {
	client redis.UniversalClient
	index  string
}

// RedisOptions configures a connection.
type RedisOptions struct {
	URL   string // redis://host:port/db, takes precedence over Addr
	Addr  string
	Index string // key prefix, default "courses"
}

// NewClient opens a client from opts.
func NewClient(opts RedisOptions) (*redis.Client, error) {
	if opts.URL != "" {
		o, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(o), nil
	}
	return redis.NewClient(&redis.Options{Addr: opts.Addr}), nil
}

// NewRedisCourseStore creates a store over client under the given index name.
func NewRedisCourseStore(client redis.UniversalClient, index string) *RedisCourseStore {
	if index == "" {
		index = "courses"
	}
	return &RedisCourseStore{client: client, index: index}
}

// Index returns the index name.
func (s *RedisCourseStore) Index() string { return s.index }

func (s *RedisCourseStore) courseKey(code string) string {
	return fmt.Sprintf("%s:course:%s", s.index, code)
}

func (s *RedisCourseStore) idsKey() string {
	return s.index + ":ids"
}

func (s *RedisCourseStore) tagKey(field, value string) string {
	return fmt.Sprintf("%s:tag:%s:%s", s.index, field, strings.ToLower(value))
}

func tagValues(c catalog.Course) map[string]string {
	return map[string]string{
		TagCourseCode: c.CourseCode,
		TagDepartment: c.Department,
		TagDifficulty: string(c.DifficultyLevel),
		TagFormat:     string(c.Format),
	}
}

// Add stores course with its embedding, replacing any course with the same code.
func (s *RedisCourseStore) Add(ctx context.Context, course catalog.Course, embedding []float32) error {
	if course.CourseCode == "" {
		return errors.New("course code is required")
	}
	data, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("failed to marshal course: %w", err)
	}

	old, err := s.Get(ctx, course.CourseCode)
	if err != nil && !errors.Is(err, ErrCourseNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if old != nil {
		for field, value := range tagValues(*old) {
			pipe.SRem(ctx, s.tagKey(field, value), old.CourseCode)
		}
	}
	pipe.HSet(ctx, s.courseKey(course.CourseCode),
		"data", data,
		"embedding", encodeVector(embedding),
	)
	pipe.SAdd(ctx, s.idsKey(), course.CourseCode)
	for field, value := range tagValues(course) {
		if value == "" {
			continue
		}
		pipe.SAdd(ctx, s.tagKey(field, value), course.CourseCode)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store course %s: %w", course.CourseCode, err)
	}
	return nil
}

// Get loads the course with the given code.
func (s *RedisCourseStore) Get(ctx context.Context, code string) (*catalog.Course, error) {
	data, err := s.client.HGet(ctx, s.courseKey(code), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
		}
		return nil, fmt.Errorf("failed to load course %s: %w", code, err)
	}
	var c catalog.Course
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal course %s: %w", code, err)
	}
	return &c, nil
}

// All returns every course ordered by code.
func (s *RedisCourseStore) All(ctx context.Context) ([]catalog.Course, error) {
	codes, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return s.load(ctx, codes)
}

// Count returns the number of stored courses.
func (s *RedisCourseStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return int(n), nil
}

// Clear removes every key of the index.
func (s *RedisCourseStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.index+":*", 500).Result()
		if err != nil {
			return fmt.Errorf("failed to scan index %s: %w", s.index, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear index %s: %w", s.index, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// FilterByTag returns the courses whose tag field equals value, case-insensitively.
func (s *RedisCourseStore) FilterByTag(ctx context.Context, field, value string) ([]catalog.Course, error) {
	codes, err := s.client.SMembers(ctx, s.tagKey(field, value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to filter by %s: %w", field, err)
	}
	return s.load(ctx, codes)
}

// KNN returns the k courses closest to embedding by cosine similarity,
// restricted to courses matching every filter. Ties are broken by code.
func (s *RedisCourseStore) KNN(ctx context.Context, embedding []float32, k int, filters map[string]string) ([]ScoredCourse, error) {
	codes, err := s.candidates(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 || k <= 0 {
		return []ScoredCourse{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HMGet(ctx, s.courseKey(code), "data", "embedding")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	results := make([]ScoredCourse, 0, len(codes))
	for _, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) != 2 || vals[0] == nil {
			continue
		}
		data, _ := vals[0].(string)
		raw, _ := vals[1].(string)

		var c catalog.Course
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			continue
		}
		results = append(results, ScoredCourse{
			Course: c,
			Score:  llms.CosineSimilarity(embedding, decodeVector([]byte(raw))),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Course.CourseCode < results[j].Course.CourseCode
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *RedisCourseStore) candidates(ctx context.Context, filters map[string]string) ([]string, error) {
	keys := []string{s.idsKey()}
	for _, field := range tagFields {
		if v, ok := filters[field]; ok && v != "" {
			keys = append(keys, s.tagKey(field, v))
		}
	}
	for field := range filters {
		if !isTagField(field) {
			return nil, fmt.Errorf("unknown filter field %q", field)
		}
	}
	codes, err := s.client.SInter(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve filters: %w", err)
	}
	return codes, nil
}

func isTagField(field string) bool {
	for _, f := range tagFields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *RedisCourseStore) load(ctx context.Context, codes []string) ([]catalog.Course, error) {
	sort.Strings(codes)
	if len(codes) == 0 {
		return []catalog.Course{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(codes))
	for i, code := range codes {
		cmds[i] = pipe.HGet(ctx, s.courseKey(code), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load courses: %w", err)
	}

	courses := make([]catalog.Course, 0, len(codes))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var c catalog.Course
		if err := json.Unmarshal(data, &c); err != nil {
			continue
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
