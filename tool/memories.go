package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/memory"
)

const (
	noStoredInformation = "I don't have any stored information about you yet."
	resetMemoryText     = "User requested to clear/reset all previous information"
	clearBatchSize      = 100
	summaryMemoryLimit  = 50
)

// NewMemoryTools returns store_memory, search_memories,
// summarize_user_knowledge and clear_user_memories scoped to userID.
// model may be nil, in which case summaries are plain bullet lists.
func NewMemoryTools(client memory.Client, userID string, model llms.Model) []tools.Tool {
	return []tools.Tool{
		&StoreMemory{Client: client, UserID: userID},
		&SearchMemories{Client: client, UserID: userID},
		&SummarizeUserKnowledge{Client: client, UserID: userID, Model: model},
		&ClearUserMemories{Client: client, UserID: userID},
	}
}

// StoreMemory is store_memory.
type StoreMemory struct {
	Client memory.Client
	UserID string
}

var _ tools.Tool = (*StoreMemory)(nil)

// Name implements tools.Tool.
func (t *StoreMemory) Name() string { return "store_memory" }

// Description implements tools.Tool.
func (t *StoreMemory) Description() string {
	return `Store important student information (preferences, goals, facts) in long-term memory for future sessions. Input: {"text": string, "memory_type": "semantic|episodic", "topics": [string]}.`
}

// Call implements tools.Tool.
func (t *StoreMemory) Call(ctx context.Context, input string) (string, error) {
	args := struct {
		Text       string   `json:"text"`
		MemoryType string   `json:"memory_type"`
		Topics     []string `json:"topics"`
	}{MemoryType: memory.TypeSemantic}
	if err := decodeInput(input, &args, func(s string) { args.Text = s }); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Text) == "" {
		return "", fmt.Errorf("store_memory: text is required")
	}
	if args.Topics == nil {
		args.Topics = []string{}
	}

	err := t.Client.CreateLongTermMemories(ctx, []memory.MemoryRecord{{
		Text:       args.Text,
		UserID:     t.UserID,
		MemoryType: args.MemoryType,
		Topics:     args.Topics,
	}})
	if err != nil {
		return "", err
	}
	return "Stored in long-term memory: " + args.Text, nil
}

// SearchMemories is search_memories.
type SearchMemories struct {
	Client memory.Client
	UserID string
}

var _ tools.Tool = (*SearchMemories)(nil)

// Name implements tools.Tool.
func (t *SearchMemories) Name() string { return "search_memories" }

// Description implements tools.Tool.
func (t *SearchMemories) Description() string {
	return `Search the student's stored memories to recall preferences or earlier information. Input: {"query": string, "limit": int}.`
}

// Call implements tools.Tool.
func (t *SearchMemories) Call(ctx context.Context, input string) (string, error) {
	args := struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}{Limit: 5}
	if err := decodeInput(input, &args, func(s string) { args.Query = s }); err != nil {
		return "", err
	}
	if t.UserID == "" {
		return "No relevant memories found.", nil
	}

	res, err := t.Client.SearchLongTermMemory(ctx, memory.SearchRequest{
		Text:   args.Query,
		UserID: t.UserID,
		Limit:  args.Limit,
	})
	if err != nil {
		return "", err
	}
	if len(res.Memories) == 0 {
		return "No relevant memories found.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d relevant memories:\n\n", len(res.Memories))
	for i, m := range res.Memories {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, m.Text)
		if len(m.Topics) > 0 {
			fmt.Fprintf(&sb, "   Topics: %s\n", strings.Join(m.Topics, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// SummarizeUserKnowledge is summarize_user_knowledge.
type SummarizeUserKnowledge struct {
	Client memory.Client
	UserID string
	Model  llms.Model
}

var _ tools.Tool = (*SummarizeUserKnowledge)(nil)

// Name implements tools.Tool.
func (t *SummarizeUserKnowledge) Name() string { return "summarize_user_knowledge" }

// Description implements tools.Tool.
func (t *SummarizeUserKnowledge) Description() string {
	return "Summarize everything stored about the student, organized by topic. Takes no input."
}

// Call implements tools.Tool.
func (t *SummarizeUserKnowledge) Call(ctx context.Context, _ string) (string, error) {
	res, err := t.Client.SearchLongTermMemory(ctx, memory.SearchRequest{
		UserID: t.UserID,
		Limit:  summaryMemoryLimit,
	})
	if err != nil {
		return fmt.Sprintf("Error accessing stored information: %v", err), nil
	}
	if len(res.Memories) == 0 {
		return noStoredInformation, nil
	}
	for _, m := range res.Memories {
		if m.HasTopic("reset") {
			return "You previously requested to start fresh. Please share your interests!", nil
		}
	}

	if t.Model != nil {
		summary, _, err := cqllms.Complete(ctx, t.Model, "", summaryPrompt(res.Memories))
		if err == nil && summary != "" {
			return summary, nil
		}
	}
	return bulletSummary(res.Memories), nil
}

func summaryPrompt(memories []memory.MemoryRecord) string {
	lines := make([]string, len(memories))
	for i, m := range memories {
		topics := ""
		if len(m.Topics) > 0 {
			topics = fmt.Sprintf(" (Topics: %s)", strings.Join(m.Topics, ", "))
		}
		lines[i] = "- " + m.Text + topics
	}
	return fmt.Sprintf(`Based on the following stored information about a student, create a well-organized summary:

%s

Create a summary that:
1. Groups related information logically
2. Uses clear headings
3. Is conversational and helpful
4. Uses bullet points for easy reading

Start with "Here's what I know about you:" `, strings.Join(lines, "\n"))
}

func bulletSummary(memories []memory.MemoryRecord) string {
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = "• " + m.Text
	}
	return "Here's what I know about you:\n\n" + strings.Join(lines, "\n")
}

// ClearUserMemories is clear_user_memories. It deletes every memory of the
// student, or leaves a reset marker when there was nothing to delete.
type ClearUserMemories struct {
	Client memory.Client
	UserID string
}

var _ tools.Tool = (*ClearUserMemories)(nil)

// Name implements tools.Tool.
func (t *ClearUserMemories) Name() string { return "clear_user_memories" }

// Description implements tools.Tool.
func (t *ClearUserMemories) Description() string {
	return `Clear all stored information about the student. Only use when the student explicitly asks. Input: {"confirmation": "yes"}.`
}

// Call implements tools.Tool.
func (t *ClearUserMemories) Call(ctx context.Context, input string) (string, error) {
	args := struct {
		Confirmation string `json:"confirmation"`
	}{Confirmation: "yes"}
	if err := decodeInput(input, &args, func(s string) { args.Confirmation = s }); err != nil {
		return "", err
	}
	if !strings.EqualFold(strings.TrimSpace(args.Confirmation), "yes") {
		return "Memory clearing cancelled.", nil
	}

	all, err := memory.SearchAll(ctx, t.Client, memory.SearchRequest{UserID: t.UserID}, clearBatchSize)
	if err != nil {
		return fmt.Sprintf("Error clearing information: %v", err), nil
	}
	var ids []string
	for _, m := range all {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}

	deleted := 0
	for start := 0; start < len(ids); start += clearBatchSize {
		batch := ids[start:min(start+clearBatchSize, len(ids))]
		if err := t.Client.DeleteLongTermMemories(ctx, batch); err != nil {
			continue
		}
		deleted += len(batch)
	}

	if deleted == 0 {
		err := t.Client.CreateLongTermMemories(ctx, []memory.MemoryRecord{{
			Text:       resetMemoryText,
			UserID:     t.UserID,
			MemoryType: memory.TypeSemantic,
			Topics:     []string{"reset", "clear", "fresh_start"},
		}})
		if err != nil {
			return fmt.Sprintf("Error clearing information: %v", err), nil
		}
		return "Marked profile as reset. Starting fresh.", nil
	}
	return fmt.Sprintf("Deleted %d memories. Starting fresh.", deleted), nil
}
