package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeInput unmarshals a JSON object into v. When input is not an object
// and bare is non-nil, the trimmed text is handed to bare instead.
func decodeInput(input string, v any, bare func(string)) error {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "{") {
		if err := json.Unmarshal([]byte(input), v); err != nil {
			return fmt.Errorf("invalid tool input: %w", err)
		}
		return nil
	}
	if input == "" {
		return nil
	}
	if bare == nil {
		return fmt.Errorf("invalid tool input: expected a JSON object, got %q", input)
	}
	var s string
	if err := json.Unmarshal([]byte(input), &s); err == nil {
		input = s
	}
	bare(input)
	return nil
}
