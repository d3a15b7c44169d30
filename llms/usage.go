package llms

import (
	"github.com/tmc/langchaingo/llms"
)

// TokenUsage is the token accounting of one or more LLM calls.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.Input += other.Input
	u.Output += other.Output
	u.Total += other.Total
}

// UsageFromResponse sums the usage reported in the GenerationInfo of every
// choice. Providers that report nothing yield a zero TokenUsage.
func UsageFromResponse(resp *llms.ContentResponse) TokenUsage {
	var u TokenUsage
	if resp == nil {
		return u
	}
	for _, c := range resp.Choices {
		if c == nil || c.GenerationInfo == nil {
			continue
		}
		u.Input += intValue(c.GenerationInfo["PromptTokens"])
		u.Output += intValue(c.GenerationInfo["CompletionTokens"])
		u.Total += intValue(c.GenerationInfo["TotalTokens"])
	}
	if u.Total == 0 {
		u.Total = u.Input + u.Output
	}
	return u
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
