package prebuilt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FinishAction ends a ReAct loop; its input is the answer.
const FinishAction = "FINISH"

// DefaultMaxObservationLength bounds observations fed back to the model.
const DefaultMaxObservationLength = 8000

// ReActOutput is one parsed model turn. Empty fields were not present.
type ReActOutput struct {
	Thought     string
	Action      string
	ActionInput string
}

var (
	thoughtRe     = regexp.MustCompile(`(?is)Thought:\s*(.+?)(?:\nAction:|\z)`)
	actionRe      = regexp.MustCompile(`(?i)Action:\s*(\w+)`)
	actionInputRe = regexp.MustCompile(`(?is)Action Input:\s*(.+?)(?:\nThought:|\nObservation:|\nAction:|\z)`)
	jsonChunkRe   = regexp.MustCompile(`(?s)(\{.+\}|\[.+\])`)
)

// ParseReActOutput extracts the Thought, Action and Action Input sections.
// Matching is case-insensitive and Action Input may span several lines.
func ParseReActOutput(text string) ReActOutput {
	var out ReActOutput
	if m := thoughtRe.FindStringSubmatch(text); m != nil {
		out.Thought = strings.TrimSpace(m[1])
	}
	if m := actionRe.FindStringSubmatch(text); m != nil {
		out.Action = strings.TrimSpace(m[1])
	}
	if m := actionInputRe.FindStringSubmatch(text); m != nil {
		out.ActionInput = strings.TrimSpace(m[1])
	}
	return out
}

// ValidateActionInput parses input as JSON, falling back to the first
// object or array embedded in it. It returns nil when neither parses.
func ValidateActionInput(input string) any {
	if input == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(input), &v); err == nil {
		return v
	}
	if m := jsonChunkRe.FindString(input); m != "" {
		if err := json.Unmarshal([]byte(m), &v); err == nil {
			return v
		}
	}
	return nil
}

// FormatObservation prefixes a tool result, truncating it to maxLength characters.
func FormatObservation(result string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxObservationLength
	}
	if utf8.RuneCountInString(result) > maxLength {
		result = string([]rune(result)[:maxLength]) + "... [truncated]"
	}
	return "Observation: " + result
}

// ExtractFinalAnswer returns the answer carried by a FINISH action. JSON
// objects contribute their "answer" or "response" key, JSON strings their
// text. Empty or unparsable input falls back to the trimmed raw text.
func ExtractFinalAnswer(input string) string {
	switch v := ValidateActionInput(input).(type) {
	case nil:
		return strings.TrimSpace(input)
	case string:
		if v == "" {
			return strings.TrimSpace(input)
		}
		return v
	case map[string]any:
		if len(v) == 0 {
			return strings.TrimSpace(input)
		}
		for _, key := range []string{"answer", "response"} {
			if s, ok := v[key]; ok {
				return fmt.Sprint(s)
			}
		}
		data, _ := json.Marshal(v)
		return string(data)
	case []any:
		if len(v) == 0 {
			return strings.TrimSpace(input)
		}
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// IsValidReActOutput reports whether text names an action and, unless the
// action is FINISH, carries an input.
func IsValidReActOutput(text string) bool {
	p := ParseReActOutput(text)
	if p.Action == "" {
		return false
	}
	if !strings.EqualFold(p.Action, FinishAction) && p.ActionInput == "" {
		return false
	}
	return true
}

// FormatReActError renders an error as an observation.
func FormatReActError(msg string) string {
	return "Observation: Error - " + msg
}
