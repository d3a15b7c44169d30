package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/memory"
)

func TestPostgresStore_Put(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "")
	created := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO long_term_memories")).
		WithArgs("m1", "Student prefers online courses", "u1", "", "redis_university", "semantic",
			[]byte(`["preferences"]`), []byte(`[]`), []byte(`[0.5,0.5]`), created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Put(context.Background(), []memory.StoredMemory{{
		MemoryRecord: memory.MemoryRecord{
			ID:         "m1",
			Text:       "Student prefers online courses",
			UserID:     "u1",
			Namespace:  "redis_university",
			MemoryType: memory.TypeSemantic,
			Topics:     []string{"preferences"},
			CreatedAt:  created,
		},
		Embedding: []float32{0.5, 0.5},
	}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutRequiresID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "")
	err = store.Put(context.Background(), []memory.StoredMemory{{MemoryRecord: memory.MemoryRecord{Text: "x"}}})
	assert.Error(t, err)
}

func TestPostgresStore_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "memories")
	older := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	rows := pgxmock.NewRows([]string{"id", "text", "user_id", "session_id", "namespace", "memory_type", "topics", "entities", "embedding", "created_at"}).
		AddRow("m1", "likes databases", "u1", "", "ns", "semantic", []byte(`["interests"]`), []byte(`[]`), []byte(`[1,0]`), older).
		AddRow("m2", "prefers online", "u1", "", "ns", "semantic", []byte(`["preferences"]`), []byte(`[]`), []byte(`[0,1]`), newer)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, text, user_id, session_id, namespace, memory_type, topics, entities, embedding, created_at FROM memories WHERE user_id = $1 AND namespace = $2")).
		WithArgs("u1", "ns").
		WillReturnRows(rows)

	res, err := store.Search(context.Background(), memory.SearchRequest{UserID: "u1", Namespace: "ns", Limit: 10}, []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, "m1", res.Memories[0].ID)
	assert.InDelta(t, 0, res.Memories[0].Distance, 1e-9)
	assert.Equal(t, []string{"interests"}, res.Memories[0].Topics)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "")
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	_, err = store.Search(context.Background(), memory.SearchRequest{}, nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestPostgresStore_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM long_term_memories WHERE id = ANY($1)")).
		WithArgs([]string{"m1", "m2"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := store.Delete(context.Background(), []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InitSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStoreWithPool(mock, "")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS long_term_memories")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
