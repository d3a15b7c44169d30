package memory

import (
	"context"
	"strings"

	"github.com/smallnest/courseqa/log"
)

// CompressionQuery is the long-term search used to collect extracted facts.
const CompressionQuery = "courses student asked about"

// TokenCounter counts tokens. *llms.TokenCounter satisfies it.
type TokenCounter interface {
	Count(text string) int
}

// SessionUsage is the working-memory size of one session.
type SessionUsage struct {
	SessionID string
	Messages  int
	Tokens    int
	Err       error
}

// CompressionReport compares raw conversation size with the extracted facts.
type CompressionReport struct {
	Sessions             []SessionUsage
	WorkingMemoryTokens  int
	LongTermFacts        int
	LongTermMemoryTokens int
	LongTermErr          error
}

// Ratio is working-memory tokens per long-term token, or 0 when either side is empty.
func (r *CompressionReport) Ratio() float64 {
	if r.WorkingMemoryTokens == 0 || r.LongTermMemoryTokens == 0 {
		return 0
	}
	return float64(r.WorkingMemoryTokens) / float64(r.LongTermMemoryTokens)
}

// TokensSaved is the difference between both sides.
func (r *CompressionReport) TokensSaved() int {
	return r.WorkingMemoryTokens - r.LongTermMemoryTokens
}

// Reduction is TokensSaved as a percentage of working-memory tokens.
func (r *CompressionReport) Reduction() float64 {
	if r.WorkingMemoryTokens == 0 {
		return 0
	}
	return float64(r.TokensSaved()) / float64(r.WorkingMemoryTokens) * 100
}

// AnalyzeCompression counts the tokens of each session's transcript and of
// the user's long-term facts. Failures are recorded in the report rather
// than returned so a partial analysis is still printed.
func AnalyzeCompression(ctx context.Context, c Client, sessionIDs []string, userID, modelName string, counter TokenCounter) *CompressionReport {
	logger := log.Named("memory")
	report := &CompressionReport{}

	for _, id := range sessionIDs {
		usage := SessionUsage{SessionID: id}
		wm, _, err := c.GetOrCreateWorkingMemory(ctx, id, userID, modelName)
		if err != nil {
			logger.Warn("Error loading session %s: %v", id, err)
			usage.Err = err
		} else if len(wm.Messages) > 0 {
			usage.Messages = len(wm.Messages)
			usage.Tokens = counter.Count(Transcript(wm.Messages))
			report.WorkingMemoryTokens += usage.Tokens
		}
		report.Sessions = append(report.Sessions, usage)
	}

	res, err := c.SearchLongTermMemory(ctx, SearchRequest{
		Text:   CompressionQuery,
		UserID: userID,
		Limit:  50,
	})
	if err != nil {
		logger.Warn("Error querying long-term memory: %v", err)
		report.LongTermErr = err
		return report
	}
	if len(res.Memories) > 0 {
		texts := make([]string, len(res.Memories))
		for i, m := range res.Memories {
			texts[i] = m.Text
		}
		report.LongTermFacts = len(res.Memories)
		report.LongTermMemoryTokens = counter.Count(strings.Join(texts, "\n"))
	}
	return report
}
