package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/courseqa/llms/scripted"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()

	a, err := e.EmbedQuery(ctx, "machine learning fundamentals")
	require.NoError(t, err)
	b, err := e.EmbedQuery(ctx, "machine learning fundamentals")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-6)

	docs, err := e.EmbedDocuments(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMockEmbedderSharedWordsAreCloser(t *testing.T) {
	e := NewMockEmbedder(128)
	ctx := context.Background()

	q, _ := e.EmbedQuery(ctx, "machine learning")
	related, _ := e.EmbedQuery(ctx, "Introduction to machine learning and data")
	unrelated, _ := e.EmbedQuery(ctx, "Renaissance architecture history")

	assert.Greater(t, CosineSimilarity(q, related), CosineSimilarity(q, unrelated))
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))

	var c *TokenCounter
	assert.Equal(t, 2, c.Count("abcdefgh"))
}

func TestUsageFromResponse(t *testing.T) {
	resp := &llms.ContentResponse{Choices: []*llms.ContentChoice{
		{GenerationInfo: map[string]any{"PromptTokens": 12, "CompletionTokens": 3, "TotalTokens": 15}},
		{GenerationInfo: map[string]any{"PromptTokens": 1.0, "CompletionTokens": int64(1)}},
		nil,
	}}
	u := UsageFromResponse(resp)
	assert.Equal(t, TokenUsage{Input: 13, Output: 4, Total: 15}, u)

	assert.Equal(t, TokenUsage{}, UsageFromResponse(nil))

	var total TokenUsage
	total.Add(u)
	total.Add(TokenUsage{Input: 1, Output: 1, Total: 2})
	assert.Equal(t, TokenUsage{Input: 14, Output: 5, Total: 17}, total)
}

func TestComplete(t *testing.T) {
	m := scripted.New(scripted.Response{Content: "  answer \n", Usage: &scripted.Usage{Prompt: 4, Completion: 2}})

	out, usage, err := Complete(context.Background(), m, "be brief", "question?")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, 6, usage.Total)

	calls := m.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, calls[0].Messages[0].Role)
}

func TestCompleteWithoutSystem(t *testing.T) {
	m := scripted.Text("ok")
	_, _, err := Complete(context.Background(), m, "", "q")
	require.NoError(t, err)
	assert.Len(t, m.Calls()[0].Messages, 1)
}
