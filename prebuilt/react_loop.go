package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/log"
	"github.com/smallnest/courseqa/memory"
)

// DefaultMaxIterations bounds the Thought/Action/Observation cycles of a ReActLoop.
const DefaultMaxIterations = 5

// Kinds of reasoning steps.
const (
	StepThought = "thought"
	StepAction  = "action"
	StepFinish  = "finish"
	StepError   = "error"
)

// ReasoningStep is one entry of the reasoning trace.
type ReasoningStep struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// ReActResult is the outcome of ReActLoop.Run.
type ReActResult struct {
	Answer     string
	Steps      []ReasoningStep
	Iterations int
	LLMCalls   int
	Usage      cqllms.TokenUsage
}

// ReActLoop drives a text-format ReAct conversation with a chat model.
type ReActLoop struct {
	Model llms.Model
	Tools []tools.Tool

	// Prompt is the system prompt template. {tools} and {tool_names} are
	// filled from Tools.
	Prompt string

	MaxIterations        int
	MaxObservationLength int
	Logger               log.Logger
}

// NewReActLoop creates a loop with the default limits.
func NewReActLoop(model llms.Model, prompt string, ts []tools.Tool) *ReActLoop {
	return &ReActLoop{
		Model:         model,
		Tools:         ts,
		Prompt:        prompt,
		MaxIterations: DefaultMaxIterations,
	}
}

// Run answers query. history is earlier conversation, oldest first.
func (l *ReActLoop) Run(ctx context.Context, query string, history []memory.MemoryMessage) (*ReActResult, error) {
	if l.Model == nil {
		return nil, errors.New("react loop has no model")
	}
	logger := log.OrDefault(l.Logger)
	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	executor := NewToolExecutor(l.Tools)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, RenderToolPrompt(l.Prompt, l.Tools)),
	}
	for _, m := range history {
		switch m.Role {
		case memory.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case memory.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, query))

	res := &ReActResult{}
	for res.Iterations < maxIter {
		res.Iterations++

		text, err := l.generate(ctx, messages, res)
		if err != nil {
			return res, err
		}
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, text))

		parsed := ParseReActOutput(text)
		if parsed.Thought != "" {
			res.Steps = append(res.Steps, ReasoningStep{Type: StepThought, Content: parsed.Thought})
		}

		if !IsValidReActOutput(text) {
			obs := FormatReActError("Invalid format. Use Thought, Action and Action Input.")
			res.Steps = append(res.Steps, ReasoningStep{Type: StepError, Content: text, Observation: obs})
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, obs))
			logger.Warn("Iteration %d: invalid ReAct output", res.Iterations)
			continue
		}

		if strings.EqualFold(parsed.Action, FinishAction) {
			res.Answer = ExtractFinalAnswer(parsed.ActionInput)
			if res.Answer == "" {
				res.Answer = parsed.Thought
			}
			res.Steps = append(res.Steps, ReasoningStep{Type: StepFinish, Content: res.Answer})
			logger.Debug("Finished after %d iterations", res.Iterations)
			return res, nil
		}

		obs := l.act(ctx, executor, parsed)
		res.Steps = append(res.Steps, ReasoningStep{
			Type:        StepAction,
			Action:      parsed.Action,
			ActionInput: parsed.ActionInput,
			Observation: obs,
		})
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, obs))
		logger.Debug("Iteration %d: %s", res.Iterations, parsed.Action)
	}

	logger.Info("Reached %d iterations, asking for a final answer", maxIter)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, FinalAnswerPrompt))
	text, err := l.generate(ctx, messages, res)
	if err != nil {
		return res, err
	}
	parsed := ParseReActOutput(text)
	if strings.EqualFold(parsed.Action, FinishAction) && parsed.ActionInput != "" {
		res.Answer = ExtractFinalAnswer(parsed.ActionInput)
	} else {
		res.Answer = strings.TrimSpace(text)
	}
	res.Steps = append(res.Steps, ReasoningStep{Type: StepFinish, Content: res.Answer})
	return res, nil
}

// generate calls the model and trims anything it invented after the action.
func (l *ReActLoop) generate(ctx context.Context, messages []llms.MessageContent, res *ReActResult) (string, error) {
	resp, err := l.Model.GenerateContent(ctx, messages)
	res.LLMCalls++
	if err != nil {
		return "", fmt.Errorf("react iteration %d: %w", res.Iterations, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("react iteration %d: %w", res.Iterations, cqllms.ErrEmptyResponse)
	}
	res.Usage.Add(cqllms.UsageFromResponse(resp))

	text := resp.Choices[0].Content
	if i := strings.Index(text, "\nObservation:"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), nil
}

func (l *ReActLoop) act(ctx context.Context, executor *ToolExecutor, parsed ReActOutput) string {
	if !executor.Has(parsed.Action) {
		return FormatReActError(fmt.Sprintf("Unknown action '%s'. Available actions: %s, %s",
			parsed.Action, strings.Join(executor.Names(), ", "), FinishAction))
	}

	input := parsed.ActionInput
	if v := ValidateActionInput(input); v != nil {
		if data, err := json.Marshal(v); err == nil {
			input = string(data)
		}
	}

	out, err := executor.Execute(ctx, ToolInvocation{Tool: parsed.Action, ToolInput: input})
	if err != nil {
		return FormatReActError(err.Error())
	}
	return FormatObservation(out, l.MaxObservationLength)
}
