package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/memory"
)

type sliceStore struct {
	mu   sync.Mutex
	mems []memory.StoredMemory
}

func (s *sliceStore) Put(_ context.Context, memories []memory.StoredMemory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mems = append(s.mems, memories...)
	return nil
}

func (s *sliceStore) Search(_ context.Context, req memory.SearchRequest, query []float32) (*memory.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memory.RankMemories(s.mems, req, query), nil
}

func (s *sliceStore) Delete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.mems[:0]
	n := 0
	for _, m := range s.mems {
		if drop[m.ID] {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.mems = kept
	return n, nil
}

func (s *sliceStore) Close() error { return nil }

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis, *sliceStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := &sliceStore{}
	c, err := New(rdb, store, llms.NewMockEmbedder(64), Options{Namespace: "redis_university", TTL: time.Hour})
	require.NoError(t, err)
	return c, mr, store
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, &sliceStore{}, llms.NewMockEmbedder(8), Options{})
	assert.Error(t, err)
}

func TestWorkingMemoryLifecycle(t *testing.T) {
	c, mr, _ := newTestClient(t)
	ctx := context.Background()

	wm, created, err := c.GetOrCreateWorkingMemory(ctx, "s1", "alice", "gpt-4o")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "redis_university", wm.Namespace)
	assert.True(t, mr.Exists("courseqa:working_memory:redis_university:s1"))
	assert.Equal(t, time.Hour, mr.TTL("courseqa:working_memory:redis_university:s1"))

	wm.Messages = append(wm.Messages, memory.MemoryMessage{Role: memory.RoleUser, Content: "What is CS101?"})
	_, err = c.PutWorkingMemory(ctx, wm, "gpt-4o")
	require.NoError(t, err)

	loaded, created, err := c.GetOrCreateWorkingMemory(ctx, "s1", "alice", "gpt-4o")
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, loaded.Messages, 1)
	assert.NotEmpty(t, loaded.Messages[0].ID)
	assert.False(t, loaded.Messages[0].CreatedAt.IsZero())

	require.NoError(t, c.DeleteWorkingMemory(ctx, "s1", "alice"))
	assert.False(t, mr.Exists("courseqa:working_memory:redis_university:s1"))
}

func TestLongTermMemory(t *testing.T) {
	c, _, store := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateLongTermMemories(ctx, []memory.MemoryRecord{
		{Text: "Student is interested in machine learning", UserID: "alice", Topics: []string{"interests"}},
		{Text: "Student prefers online courses", UserID: "alice", Topics: []string{"preferences"}},
		{Text: "Student prefers morning classes", UserID: "bob"},
	}))
	require.Len(t, store.mems, 3)
	for _, m := range store.mems {
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, memory.TypeSemantic, m.MemoryType)
		assert.Equal(t, "redis_university", m.Namespace)
		assert.Len(t, m.Embedding, 64)
	}

	res, err := c.SearchLongTermMemory(ctx, memory.SearchRequest{Text: "online courses", UserID: "alice", Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.Equal(t, "Student prefers online courses", res.Memories[0].Text)

	all, err := memory.SearchAll(ctx, c, memory.SearchRequest{UserID: "alice"}, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, c.DeleteLongTermMemories(ctx, []string{all[0].ID, all[1].ID}))
	left, err := c.SearchLongTermMemory(ctx, memory.SearchRequest{UserID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, left.Memories)
}

func TestHealth(t *testing.T) {
	c, mr, _ := newTestClient(t)
	require.NoError(t, c.Health(context.Background()))
	mr.Close()
	assert.Error(t, c.Health(context.Background()))
}
