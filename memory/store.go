package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/smallnest/courseqa/llms"
)

// StoredMemory is a long-term memory together with its embedding.
type StoredMemory struct {
	MemoryRecord
	Embedding []float32
}

// LongTermStore persists long-term memories for the local client.
type LongTermStore interface {
	Put(ctx context.Context, memories []StoredMemory) error
	// Search returns memories matching req's filters. With a query
	// embedding they are ranked by similarity, otherwise newest first.
	Search(ctx context.Context, req SearchRequest, query []float32) (*SearchResult, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Close() error
}

// Matches reports whether r passes the filters of req. Text is ignored.
func (req SearchRequest) Matches(r MemoryRecord) bool {
	if req.UserID != "" && r.UserID != req.UserID {
		return false
	}
	if req.SessionID != "" && r.SessionID != req.SessionID {
		return false
	}
	if req.Namespace != "" && r.Namespace != req.Namespace {
		return false
	}
	if req.MemoryType != "" && !strings.EqualFold(r.MemoryType, req.MemoryType) {
		return false
	}
	if len(req.Topics) > 0 {
		for _, t := range req.Topics {
			if r.HasTopic(t) {
				return true
			}
		}
		return false
	}
	return true
}

// RankMemories filters candidates with req, orders them and applies
// req.Offset and req.Limit. Total counts every match before paging. With a
// query embedding the order is by similarity and Distance is 1-cosine.
func RankMemories(candidates []StoredMemory, req SearchRequest, query []float32) *SearchResult {
	type scored struct {
		rec   MemoryRecord
		score float64
	}
	var matches []scored
	for _, c := range candidates {
		if !req.Matches(c.MemoryRecord) {
			continue
		}
		s := scored{rec: c.MemoryRecord}
		if len(query) > 0 {
			s.score = llms.CosineSimilarity(query, c.Embedding)
			s.rec.Distance = 1 - s.score
		}
		matches = append(matches, s)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if len(query) > 0 && matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if !matches[i].rec.CreatedAt.Equal(matches[j].rec.CreatedAt) {
			return matches[i].rec.CreatedAt.After(matches[j].rec.CreatedAt)
		}
		return matches[i].rec.ID < matches[j].rec.ID
	})

	res := &SearchResult{Total: len(matches), Memories: []MemoryRecord{}}
	start := min(max(req.Offset, 0), len(matches))
	end := len(matches)
	if req.Limit > 0 {
		end = min(start+req.Limit, len(matches))
	}
	for _, m := range matches[start:end] {
		res.Memories = append(res.Memories, m.rec)
	}
	return res
}
