// Package local implements memory.Client without the Agent Memory Server.
// Working memory lives in Redis and long-term memories go to a
// memory.LongTermStore, embedded with an llms.Embedder.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"

	"github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
)

// Options configures a Client.
type Options struct {
	Prefix    string        // Key prefix, default "courseqa:"
	Namespace string        // Applied to records and searches that have none
	TTL       time.Duration // Expiration of working memory, default 0 (no expiration)
	NodeID    int64         // Snowflake node for memory ids
	Logger    log.Logger
}

// Client is a memory.Client backed by Redis and a LongTermStore.
type Client struct {
	rdb       redis.UniversalClient
	store     memory.LongTermStore
	embedder  llms.Embedder
	prefix    string
	namespace string
	ttl       time.Duration
	ids       *snowflake.Node
	logger    log.Logger
	now       func() time.Time
}

var _ memory.Client = (*Client)(nil)

// New creates a Client.
func New(rdb redis.UniversalClient, store memory.LongTermStore, embedder llms.Embedder, opts Options) (*Client, error) {
	if rdb == nil || store == nil || embedder == nil {
		return nil, errors.New("local memory needs redis, a long-term store and an embedder")
	}
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("create id generator: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "courseqa:"
	}
	return &Client{
		rdb:       rdb,
		store:     store,
		embedder:  embedder,
		prefix:    prefix,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
		ids:       node,
		logger:    log.OrDefault(opts.Logger),
		now:       time.Now,
	}, nil
}

func (c *Client) workingMemoryKey(sessionID string) string {
	return fmt.Sprintf("%sworking_memory:%s:%s", c.prefix, c.namespace, sessionID)
}

func (c *Client) newID() string {
	return c.ids.Generate().String()
}

// GetOrCreateWorkingMemory loads a session, storing an empty one if absent.
func (c *Client) GetOrCreateWorkingMemory(ctx context.Context, sessionID, userID, modelName string) (*memory.WorkingMemory, bool, error) {
	data, err := c.rdb.Get(ctx, c.workingMemoryKey(sessionID)).Bytes()
	if err == nil {
		var wm memory.WorkingMemory
		if err := json.Unmarshal(data, &wm); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal working memory %s: %w", sessionID, err)
		}
		if wm.Messages == nil {
			wm.Messages = []memory.MemoryMessage{}
		}
		return &wm, false, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("failed to load working memory %s: %w", sessionID, err)
	}

	wm, err := c.PutWorkingMemory(ctx, &memory.WorkingMemory{
		SessionID: sessionID,
		UserID:    userID,
		Messages:  []memory.MemoryMessage{},
	}, modelName)
	if err != nil {
		return nil, false, err
	}
	return wm, true, nil
}

// PutWorkingMemory stores wm, stamping messages that lack an id or time.
func (c *Client) PutWorkingMemory(ctx context.Context, wm *memory.WorkingMemory, modelName string) (*memory.WorkingMemory, error) {
	if wm.Namespace == "" {
		wm.Namespace = c.namespace
	}
	now := c.now()
	for i := range wm.Messages {
		if wm.Messages[i].ID == "" {
			wm.Messages[i].ID = c.newID()
		}
		if wm.Messages[i].CreatedAt.IsZero() {
			wm.Messages[i].CreatedAt = now
		}
	}

	data, err := json.Marshal(wm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal working memory: %w", err)
	}
	if err := c.rdb.Set(ctx, c.workingMemoryKey(wm.SessionID), data, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to save working memory %s: %w", wm.SessionID, err)
	}
	c.logger.Debug("Saved working memory %s (%d messages, model %s)", wm.SessionID, len(wm.Messages), modelName)
	return wm, nil
}

// DeleteWorkingMemory removes a session.
func (c *Client) DeleteWorkingMemory(ctx context.Context, sessionID, userID string) error {
	if err := c.rdb.Del(ctx, c.workingMemoryKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete working memory %s: %w", sessionID, err)
	}
	return nil
}

// CreateLongTermMemories embeds and stores records.
func (c *Client) CreateLongTermMemories(ctx context.Context, records []memory.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed memories: %w", err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedder returned %d vectors for %d memories", len(vectors), len(records))
	}

	now := c.now()
	stored := make([]memory.StoredMemory, len(records))
	for i, r := range records {
		if r.ID == "" {
			r.ID = c.newID()
		}
		if r.Namespace == "" {
			r.Namespace = c.namespace
		}
		if r.MemoryType == "" {
			r.MemoryType = memory.TypeSemantic
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		stored[i] = memory.StoredMemory{MemoryRecord: r, Embedding: vectors[i]}
	}
	return c.store.Put(ctx, stored)
}

// SearchLongTermMemory ranks by similarity to req.Text, or by recency when it is empty.
func (c *Client) SearchLongTermMemory(ctx context.Context, req memory.SearchRequest) (*memory.SearchResult, error) {
	if req.Namespace == "" {
		req.Namespace = c.namespace
	}
	var query []float32
	if req.Text != "" {
		var err error
		if query, err = c.embedder.EmbedQuery(ctx, req.Text); err != nil {
			return nil, fmt.Errorf("failed to embed search text: %w", err)
		}
	}
	return c.store.Search(ctx, req, query)
}

// DeleteLongTermMemories deletes memories by id.
func (c *Client) DeleteLongTermMemories(ctx context.Context, ids []string) error {
	n, err := c.store.Delete(ctx, ids)
	if err != nil {
		return err
	}
	c.logger.Debug("Deleted %d of %d long-term memories", n, len(ids))
	return nil
}

// Health pings Redis.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the long-term store. The Redis client belongs to the caller.
func (c *Client) Close() error {
	return c.store.Close()
}
