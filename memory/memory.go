package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMemoryNotFound is returned when a memory or session does not exist.
	ErrMemoryNotFound = errors.New("memory not found")

	// ErrConfirmationRequired is returned when a destructive operation was not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Roles of working-memory messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Memory types.
const (
	TypeSemantic = "semantic"
	TypeEpisodic = "episodic"
	TypeMessage  = "message"
)

// MemoryMessage is one conversation message.
type MemoryMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// WorkingMemory is the conversation state of one session.
type WorkingMemory struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	Namespace string          `json:"namespace,omitempty"`
	Messages  []MemoryMessage `json:"messages"`
	Memories  []MemoryRecord  `json:"memories,omitempty"`
	Context   string          `json:"context,omitempty"`
	Data      map[string]any  `json:"data,omitempty"`
}

// MemoryRecord is one long-term memory.
type MemoryRecord struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Namespace  string    `json:"namespace,omitempty"`
	MemoryType string    `json:"memory_type,omitempty"`
	Topics     []string  `json:"topics,omitempty"`
	Entities   []string  `json:"entities,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	Distance   float64   `json:"dist,omitempty"`
}

// HasTopic reports whether r is tagged with topic, ignoring case.
func (r MemoryRecord) HasTopic(topic string) bool {
	for _, t := range r.Topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

// SearchRequest filters long-term memory. An empty Text returns the most
// recent memories instead of the most similar ones.
type SearchRequest struct {
	Text       string
	UserID     string
	SessionID  string
	Namespace  string
	MemoryType string
	Topics     []string
	Limit      int
	Offset     int
}

// SearchResult is one page of long-term memories.
type SearchResult struct {
	Memories []MemoryRecord `json:"memories"`
	Total    int            `json:"total"`
}

// Client is the memory service used by the agents.
type Client interface {
	// GetOrCreateWorkingMemory returns the session's working memory and
	// whether it had to be created.
	GetOrCreateWorkingMemory(ctx context.Context, sessionID, userID, modelName string) (*WorkingMemory, bool, error)
	PutWorkingMemory(ctx context.Context, wm *WorkingMemory, modelName string) (*WorkingMemory, error)
	DeleteWorkingMemory(ctx context.Context, sessionID, userID string) error

	CreateLongTermMemories(ctx context.Context, records []MemoryRecord) error
	SearchLongTermMemory(ctx context.Context, req SearchRequest) (*SearchResult, error)
	DeleteLongTermMemories(ctx context.Context, ids []string) error

	Health(ctx context.Context) error
}

// SearchAll pages through every memory matching req, batchSize at a time.
// req.Offset is the starting offset.
func SearchAll(ctx context.Context, c Client, req SearchRequest, batchSize int) ([]MemoryRecord, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	var all []MemoryRecord
	req.Limit = batchSize
	for {
		res, err := c.SearchLongTermMemory(ctx, req)
		if err != nil {
			return all, fmt.Errorf("search long-term memory at offset %d: %w", req.Offset, err)
		}
		all = append(all, res.Memories...)
		if len(res.Memories) < batchSize {
			return all, nil
		}
		req.Offset += len(res.Memories)
	}
}

// Transcript renders messages as "role: content" lines.
func Transcript(messages []MemoryMessage) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.Role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
