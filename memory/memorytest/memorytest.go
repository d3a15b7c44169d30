// Package memorytest provides an in-process memory.Client for tests.
package memorytest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/memory"
)

// Client keeps working and long-term memory in maps. Fail* fields inject
// errors into the matching operations.
type Client struct {
	mu       sync.Mutex
	sessions map[string]memory.WorkingMemory
	memories []memory.StoredMemory
	embedder *llms.MockEmbedder
	seq      int

	FailWorkingMemory error
	FailSearch        error
	FailDelete        error
}

var _ memory.Client = (*Client)(nil)

// New creates an empty Client.
func New() *Client {
	return &Client{
		sessions: make(map[string]memory.WorkingMemory),
		embedder: llms.NewMockEmbedder(64),
	}
}

// GetOrCreateWorkingMemory implements memory.Client.
func (c *Client) GetOrCreateWorkingMemory(_ context.Context, sessionID, userID, _ string) (*memory.WorkingMemory, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWorkingMemory != nil {
		return nil, false, c.FailWorkingMemory
	}
	if wm, ok := c.sessions[sessionID]; ok {
		wm.Messages = append([]memory.MemoryMessage{}, wm.Messages...)
		return &wm, false, nil
	}
	wm := memory.WorkingMemory{SessionID: sessionID, UserID: userID, Messages: []memory.MemoryMessage{}}
	c.sessions[sessionID] = wm
	return &wm, true, nil
}

// PutWorkingMemory implements memory.Client.
func (c *Client) PutWorkingMemory(_ context.Context, wm *memory.WorkingMemory, _ string) (*memory.WorkingMemory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWorkingMemory != nil {
		return nil, c.FailWorkingMemory
	}
	stored := *wm
	stored.Messages = append([]memory.MemoryMessage{}, wm.Messages...)
	c.sessions[wm.SessionID] = stored
	return wm, nil
}

// DeleteWorkingMemory implements memory.Client.
func (c *Client) DeleteWorkingMemory(_ context.Context, sessionID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}

// CreateLongTermMemories implements memory.Client.
func (c *Client) CreateLongTermMemories(ctx context.Context, records []memory.MemoryRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.seq++
		if r.ID == "" {
			r.ID = "mem-" + strconv.Itoa(c.seq)
		}
		if r.MemoryType == "" {
			r.MemoryType = memory.TypeSemantic
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Unix(int64(c.seq), 0)
		}
		vec, _ := c.embedder.EmbedQuery(ctx, r.Text)
		c.memories = append(c.memories, memory.StoredMemory{MemoryRecord: r, Embedding: vec})
	}
	return nil
}

// SearchLongTermMemory implements memory.Client.
func (c *Client) SearchLongTermMemory(ctx context.Context, req memory.SearchRequest) (*memory.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailSearch != nil {
		return nil, c.FailSearch
	}
	var query []float32
	if req.Text != "" {
		query, _ = c.embedder.EmbedQuery(ctx, req.Text)
	}
	return memory.RankMemories(c.memories, req, query), nil
}

// DeleteLongTermMemories implements memory.Client.
func (c *Client) DeleteLongTermMemories(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailDelete != nil {
		return c.FailDelete
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := c.memories[:0]
	for _, m := range c.memories {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	c.memories = kept
	return nil
}

// Health implements memory.Client.
func (c *Client) Health(context.Context) error { return nil }

// Memories returns a copy of every stored long-term memory.
func (c *Client) Memories() []memory.MemoryRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]memory.MemoryRecord, len(c.memories))
	for i, m := range c.memories {
		out[i] = m.MemoryRecord
	}
	return out
}

// Session returns the stored working memory of sessionID.
func (c *Client) Session(sessionID string) (memory.WorkingMemory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wm, ok := c.sessions[sessionID]
	return wm, ok
}
