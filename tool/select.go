package tool

import (
	"strings"

	"github.com/tmc/langchaingo/tools"
)

// Tool groups understood by SelectToolsByKeywords.
const (
	GroupSearch = "search"
	GroupMemory = "memory"
)

var (
	searchKeywords = []string{"search", "find", "show", "what", "which", "tell me about"}
	memoryKeywords = []string{"remember", "recall", "know about me", "preferences"}
)

// SelectToolsByKeywords picks the search or memory group by the words in
// query. Search keywords win over memory keywords and search is the default.
func SelectToolsByKeywords(query string, groups map[string][]tools.Tool) []tools.Tool {
	q := strings.ToLower(query)
	if containsAny(q, searchKeywords) {
		return groups[GroupSearch]
	}
	if containsAny(q, memoryKeywords) {
		return groups[GroupMemory]
	}
	return groups[GroupSearch]
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
