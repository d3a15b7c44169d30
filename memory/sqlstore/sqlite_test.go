package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/memory"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteOptions{Path: filepath.Join(t.TempDir(), "memories.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_PutSearchDelete(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	memories := []memory.StoredMemory{
		{
			MemoryRecord: memory.MemoryRecord{ID: "1", Text: "interested in machine learning", UserID: "alice", Namespace: "ns", MemoryType: memory.TypeSemantic, Topics: []string{"interests"}, CreatedAt: base},
			Embedding:    []float32{1, 0, 0},
		},
		{
			MemoryRecord: memory.MemoryRecord{ID: "2", Text: "prefers online courses", UserID: "alice", Namespace: "ns", MemoryType: memory.TypeSemantic, Topics: []string{"preferences"}, CreatedAt: base.Add(time.Minute)},
			Embedding:    []float32{0, 1, 0},
		},
		{
			MemoryRecord: memory.MemoryRecord{ID: "3", Text: "bob's note", UserID: "bob", Namespace: "ns", CreatedAt: base},
			Embedding:    []float32{1, 0, 0},
		},
	}
	require.NoError(t, store.Put(ctx, memories))

	res, err := store.Search(ctx, memory.SearchRequest{UserID: "alice"}, []float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.Equal(t, "1", res.Memories[0].ID)
	assert.Equal(t, []string{"interests"}, res.Memories[0].Topics)

	recent, err := store.Search(ctx, memory.SearchRequest{UserID: "alice", Limit: 1}, nil)
	require.NoError(t, err)
	require.Len(t, recent.Memories, 1)
	assert.Equal(t, "2", recent.Memories[0].ID)
	assert.Equal(t, 2, recent.Total)

	byTopic, err := store.Search(ctx, memory.SearchRequest{UserID: "alice", Topics: []string{"preferences"}}, nil)
	require.NoError(t, err)
	require.Len(t, byTopic.Memories, 1)
	assert.Equal(t, "prefers online courses", byTopic.Memories[0].Text)

	memories[1].Text = "prefers in-person courses"
	require.NoError(t, store.Put(ctx, memories[1:2]))
	updated, err := store.Search(ctx, memory.SearchRequest{UserID: "alice", Topics: []string{"preferences"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "prefers in-person courses", updated.Memories[0].Text)

	n, err := store.Delete(ctx, []string{"1", "2", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := store.Search(ctx, memory.SearchRequest{}, nil)
	require.NoError(t, err)
	require.Len(t, left.Memories, 1)
	assert.Equal(t, "bob", left.Memories[0].UserID)
}
