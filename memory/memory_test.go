package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient keeps everything in maps.
type fakeClient struct {
	sessions  map[string]*WorkingMemory
	memories  []StoredMemory
	searchErr error
	searches  []SearchRequest
}

func newFakeClient() *fakeClient {
	return &fakeClient{sessions: map[string]*WorkingMemory{}}
}

func (f *fakeClient) GetOrCreateWorkingMemory(_ context.Context, sessionID, userID, _ string) (*WorkingMemory, bool, error) {
	if sessionID == "broken" {
		return nil, false, errors.New("boom")
	}
	if wm, ok := f.sessions[sessionID]; ok {
		return wm, false, nil
	}
	wm := &WorkingMemory{SessionID: sessionID, UserID: userID}
	f.sessions[sessionID] = wm
	return wm, true, nil
}

func (f *fakeClient) PutWorkingMemory(_ context.Context, wm *WorkingMemory, _ string) (*WorkingMemory, error) {
	f.sessions[wm.SessionID] = wm
	return wm, nil
}

func (f *fakeClient) DeleteWorkingMemory(_ context.Context, sessionID, _ string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeClient) CreateLongTermMemories(_ context.Context, records []MemoryRecord) error {
	for _, r := range records {
		f.memories = append(f.memories, StoredMemory{MemoryRecord: r})
	}
	return nil
}

func (f *fakeClient) SearchLongTermMemory(_ context.Context, req SearchRequest) (*SearchResult, error) {
	f.searches = append(f.searches, req)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return RankMemories(f.memories, req, nil), nil
}

func (f *fakeClient) DeleteLongTermMemories(context.Context, []string) error { return nil }
func (f *fakeClient) Health(context.Context) error                            { return nil }

type charCounter struct{}

func (charCounter) Count(s string) int { return len(s) }

func TestSearchAllPages(t *testing.T) {
	c := newFakeClient()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		c.memories = append(c.memories, StoredMemory{MemoryRecord: MemoryRecord{
			ID: fmt.Sprintf("m%d", i), UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}})
	}
	c.memories = append(c.memories, StoredMemory{MemoryRecord: MemoryRecord{ID: "other", UserID: "u2"}})

	all, err := SearchAll(context.Background(), c, SearchRequest{UserID: "u1"}, 3)
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "m6", all[0].ID)
	assert.Len(t, c.searches, 3)
	assert.Equal(t, 6, c.searches[2].Offset)
}

func TestSearchAllError(t *testing.T) {
	c := newFakeClient()
	c.searchErr = errors.New("down")
	_, err := SearchAll(context.Background(), c, SearchRequest{}, 0)
	assert.ErrorContains(t, err, "down")
}

func TestRankMemories(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []StoredMemory{
		{MemoryRecord: MemoryRecord{ID: "a", UserID: "u", Topics: []string{"Interests"}, CreatedAt: base}, Embedding: []float32{1, 0}},
		{MemoryRecord: MemoryRecord{ID: "b", UserID: "u", Topics: []string{"reset"}, CreatedAt: base.Add(time.Hour)}, Embedding: []float32{0, 1}},
		{MemoryRecord: MemoryRecord{ID: "c", UserID: "v", CreatedAt: base}, Embedding: []float32{1, 0}},
	}

	res := RankMemories(candidates, SearchRequest{UserID: "u"}, nil)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "b", res.Memories[0].ID)

	res = RankMemories(candidates, SearchRequest{UserID: "u"}, []float32{1, 0})
	assert.Equal(t, "a", res.Memories[0].ID)
	assert.InDelta(t, 0.0, res.Memories[0].Distance, 1e-9)

	res = RankMemories(candidates, SearchRequest{Topics: []string{"interests"}}, nil)
	require.Len(t, res.Memories, 1)
	assert.Equal(t, "a", res.Memories[0].ID)

	res = RankMemories(candidates, SearchRequest{Limit: 1, Offset: 1}, nil)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Memories, 1)

	res = RankMemories(candidates, SearchRequest{Offset: 10}, nil)
	assert.Empty(t, res.Memories)
}

func TestTranscriptAndHasTopic(t *testing.T) {
	msgs := []MemoryMessage{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hello"}}
	assert.Equal(t, "user: hi\nassistant: hello", Transcript(msgs))
	assert.Equal(t, "", Transcript(nil))

	r := MemoryRecord{Topics: []string{"Reset", "clear"}}
	assert.True(t, r.HasTopic("reset"))
	assert.False(t, r.HasTopic("fresh_start"))
}

func TestAnalyzeCompression(t *testing.T) {
	c := newFakeClient()
	c.sessions["s1"] = &WorkingMemory{SessionID: "s1", Messages: []MemoryMessage{
		{Role: RoleUser, Content: "What is CS002?"},
		{Role: RoleAssistant, Content: "CS002 is Data Structures and Algorithms."},
	}}
	c.memories = []StoredMemory{{MemoryRecord: MemoryRecord{ID: "1", UserID: "u", Text: "Asked about CS002"}}}

	r := AnalyzeCompression(context.Background(), c, []string{"s1", "broken", "fresh"}, "u", "gpt-4o-mini", charCounter{})
	require.Len(t, r.Sessions, 3)
	assert.Equal(t, 2, r.Sessions[0].Messages)
	assert.Error(t, r.Sessions[1].Err)
	assert.Zero(t, r.Sessions[2].Tokens)

	wm := len("user: What is CS002?\nassistant: CS002 is Data Structures and Algorithms.")
	assert.Equal(t, wm, r.WorkingMemoryTokens)
	assert.Equal(t, len("Asked about CS002"), r.LongTermMemoryTokens)
	assert.Equal(t, 1, r.LongTermFacts)
	assert.InDelta(t, float64(wm)/17, r.Ratio(), 1e-9)
	assert.Equal(t, wm-17, r.TokensSaved())

	last := c.searches[len(c.searches)-1]
	assert.Equal(t, CompressionQuery, last.Text)
	assert.Equal(t, 50, last.Limit)
}

func TestAnalyzeCompressionLongTermFailure(t *testing.T) {
	c := newFakeClient()
	c.searchErr = errors.New("500")
	r := AnalyzeCompression(context.Background(), c, nil, "u", "m", charCounter{})
	assert.Error(t, r.LongTermErr)
	assert.Zero(t, r.Ratio())
	assert.Zero(t, r.Reduction())
}
