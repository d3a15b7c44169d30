package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/courseqa/memory"
)

type fakeServer struct {
	mu       sync.Mutex
	sessions map[string]memory.WorkingMemory
	memories []memory.MemoryRecord
	searches []map[string]any
	deleted  []string
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	fs := &fakeServer{sessions: map[string]memory.WorkingMemory{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"now":1}`))
	})
	mux.HandleFunc("GET /v1/working-memory/{sid}", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		wm, ok := fs.sessions[r.PathValue("sid")]
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(wm)
	})
	mux.HandleFunc("PUT /v1/working-memory/{sid}", func(w http.ResponseWriter, r *http.Request) {
		var wm memory.WorkingMemory
		if err := json.NewDecoder(r.Body).Decode(&wm); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.sessions[r.PathValue("sid")] = wm
		fs.mu.Unlock()
		_ = json.NewEncoder(w).Encode(wm)
	})
	mux.HandleFunc("DELETE /v1/working-memory/{sid}", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		delete(fs.sessions, r.PathValue("sid"))
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /v1/long-term-memory/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Memories []memory.MemoryRecord `json:"memories"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.memories = append(fs.memories, body.Memories...)
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("POST /v1/long-term-memory/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.searches = append(fs.searches, body)
		_ = json.NewEncoder(w).Encode(memory.SearchResult{Memories: fs.memories, Total: len(fs.memories)})
	})
	mux.HandleFunc("DELETE /v1/long-term-memory", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.deleted = append(fs.deleted, r.URL.Query()["memory_ids"]...)
		fs.mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, New(WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()), WithNamespace("redis_university"))
}

func TestGetOrCreateWorkingMemory(t *testing.T) {
	fs, c := newFakeServer(t)
	ctx := context.Background()

	wm, created, err := c.GetOrCreateWorkingMemory(ctx, "s1", "u1", "gpt-4o")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s1", wm.SessionID)
	assert.Equal(t, "redis_university", wm.Namespace)
	assert.Empty(t, wm.Messages)

	wm.Messages = append(wm.Messages,
		memory.MemoryMessage{Role: memory.RoleUser, Content: "hi"},
		memory.MemoryMessage{Role: memory.RoleAssistant, Content: "hello"},
	)
	_, err = c.PutWorkingMemory(ctx, wm, "gpt-4o")
	require.NoError(t, err)

	again, created, err := c.GetOrCreateWorkingMemory(ctx, "s1", "u1", "gpt-4o")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, again.Messages, 2)
	assert.Equal(t, "hello", again.Messages[1].Content)

	require.NoError(t, c.DeleteWorkingMemory(ctx, "s1", "u1"))
	fs.mu.Lock()
	assert.Empty(t, fs.sessions)
	fs.mu.Unlock()
}

func TestLongTermMemoryRoundTrip(t *testing.T) {
	fs, c := newFakeServer(t)
	ctx := context.Background()

	require.NoError(t, c.CreateLongTermMemories(ctx, []memory.MemoryRecord{
		{ID: "m1", Text: "Student prefers online courses", UserID: "u1", Topics: []string{"preferences"}},
	}))

	res, err := c.SearchLongTermMemory(ctx, memory.SearchRequest{
		Text:   "online",
		UserID: "u1",
		Topics: []string{"preferences"},
		Limit:  5,
	})
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	assert.Equal(t, "redis_university", res.Memories[0].Namespace)

	fs.mu.Lock()
	body := fs.searches[0]
	fs.mu.Unlock()
	assert.Equal(t, "online", body["text"])
	assert.Equal(t, map[string]any{"eq": "u1"}, body["user_id"])
	assert.Equal(t, map[string]any{"eq": "redis_university"}, body["namespace"])
	assert.Equal(t, map[string]any{"any": []any{"preferences"}}, body["topics"])
	assert.NotContains(t, body, "session_id")
	assert.EqualValues(t, 5, body["limit"])

	require.NoError(t, c.DeleteLongTermMemories(ctx, []string{"m1", "m2"}))
	fs.mu.Lock()
	assert.Equal(t, []string{"m1", "m2"}, fs.deleted)
	fs.mu.Unlock()
}

func TestCreateLongTermMemoriesAssignsIDs(t *testing.T) {
	fs, c := newFakeServer(t)

	require.NoError(t, c.CreateLongTermMemories(context.Background(), []memory.MemoryRecord{
		{Text: "likes ML", UserID: "u1"},
		{Text: "prefers online courses", UserID: "u1"},
		{ID: "kept", Text: "took CS101", UserID: "u1"},
	}))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.Len(t, fs.memories, 3)
	assert.NotEmpty(t, fs.memories[0].ID)
	assert.NotEmpty(t, fs.memories[1].ID)
	assert.NotEqual(t, fs.memories[0].ID, fs.memories[1].ID)
	assert.Equal(t, "kept", fs.memories[2].ID)
}

func TestSearchAllPages(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.memories = []memory.MemoryRecord{{ID: "a"}, {ID: "b"}}

	all, err := memory.SearchAll(context.Background(), c, memory.SearchRequest{UserID: "u1"}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	err := c.Health(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
	assert.False(t, IsNotFound(err))

	_, _, err = c.GetOrCreateWorkingMemory(context.Background(), "s", "u", "")
	require.Error(t, err)
	assert.ErrorAs(t, err, &apiErr)
}

func TestHealth(t *testing.T) {
	_, c := newFakeServer(t)
	assert.NoError(t, c.Health(context.Background()))
}
