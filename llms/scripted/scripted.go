// Package scripted provides an llms.Model that replays queued responses.
// Agents under test run against it instead of a live chat API.
package scripted

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// ErrExhausted is returned when the model runs out of queued responses and
// no fallback is set.
var ErrExhausted = errors.New("scripted model: no more responses")

// Response is one queued answer. Err takes precedence over the others.
type Response struct {
	Content   string
	ToolCalls []llms.ToolCall
	Err       error
	Usage     *Usage
}

// Usage is reported through GenerationInfo the way the OpenAI backend does.
type Usage struct {
	Prompt     int
	Completion int
}

// Call records one GenerateContent invocation.
type Call struct {
	Messages []llms.MessageContent
	Options  llms.CallOptions
}

// Prompt joins the text parts of every message.
func (c Call) Prompt() string {
	var parts []string
	for _, m := range c.Messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				parts = append(parts, t.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// Model is a scripted llms.Model.
type Model struct {
	mu        sync.Mutex
	responses []Response
	fallback  *Response
	calls     []Call
}

var _ llms.Model = (*Model)(nil)

// New queues the given responses.
func New(responses ...Response) *Model {
	return &Model{responses: responses}
}

// Text is shorthand for a model that answers with each string in turn.
func Text(contents ...string) *Model {
	m := &Model{}
	for _, c := range contents {
		m.responses = append(m.responses, Response{Content: c})
	}
	return m
}

// ToolCall builds a function tool call.
func ToolCall(id, name, arguments string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

// Enqueue appends responses.
func (m *Model) Enqueue(responses ...Response) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// WithFallback answers r once the queue is empty.
func (m *Model) WithFallback(r Response) *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &r
	return m
}

// Calls returns every recorded invocation.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Remaining reports how many queued responses are left.
func (m *Model) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

// GenerateContent pops the next response.
func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Messages: messages, Options: opts})

	var r Response
	switch {
	case len(m.responses) > 0:
		r = m.responses[0]
		m.responses = m.responses[1:]
	case m.fallback != nil:
		r = *m.fallback
	default:
		return nil, ErrExhausted
	}

	if r.Err != nil {
		return nil, r.Err
	}

	choice := &llms.ContentChoice{
		Content:   r.Content,
		ToolCalls: r.ToolCalls,
	}
	if r.Usage != nil {
		choice.GenerationInfo = map[string]any{
			"PromptTokens":     r.Usage.Prompt,
			"CompletionTokens": r.Usage.Completion,
			"TotalTokens":      r.Usage.Prompt + r.Usage.Completion,
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

// Call implements the single-prompt form.
func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
