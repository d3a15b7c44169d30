package llms

import (
	"context"
	"errors"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyEmbedding is returned when the embedding API answers without data.
var ErrEmptyEmbedding = errors.New("embedding generation failed: no data returned")

// Embedder turns text into vectors. The method set matches langchaingo's
// embeddings.Embedder, so either can be passed where the other is expected.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint through go-openai.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// EmbedderOption configures an OpenAIEmbedder.
type EmbedderOption func(*embedderOptions)

type embedderOptions struct {
	baseURL    string
	model      string
	dimensions int
}

// WithEmbedderBaseURL points the client at an OpenAI-compatible endpoint.
func WithEmbedderBaseURL(url string) EmbedderOption {
	return func(o *embedderOptions) { o.baseURL = url }
}

// WithEmbeddingModel selects the embedding model.
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) { o.model = model }
}

// WithDimensions requests shortened vectors from models that support it.
func WithDimensions(n int) EmbedderOption {
	return func(o *embedderOptions) { o.dimensions = n }
}

// NewOpenAIEmbedder creates an embedder for the given API key.
func NewOpenAIEmbedder(apiKey string, opts ...EmbedderOption) *OpenAIEmbedder {
	o := &embedderOptions{model: string(openai.SmallEmbedding3)}
	for _, opt := range opts {
		opt(o)
	}

	config := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		config.BaseURL = o.baseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(config),
		model:      openai.EmbeddingModel(o.model),
		dimensions: o.dimensions,
	}
}

// EmbedQuery embeds a single text.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments embeds texts in one request. Results follow input order.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      e.model,
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding generation failed: got %d results, expected %d", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}
