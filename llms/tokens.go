package llms

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens the way the chat model's tokenizer does. When
// the encoding cannot be loaded it estimates one token per four bytes.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter for model. Unknown models, including the
// gpt-4o family on older tiktoken tables, fall back to cl100k_base.
func NewTokenCounter(model string) *TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	return &TokenCounter{enc: enc}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.enc == nil {
		return EstimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateTokens is the len/4 heuristic.
func EstimateTokens(text string) int {
	return len(text) / 4
}
