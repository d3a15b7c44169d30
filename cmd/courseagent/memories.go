package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/internal/app"
	cqllms "github.com/smallnest/courseqa/llms"
	"github.com/smallnest/courseqa/memory"
)

var (
	memStudent  string
	memQuery    string
	memTopics   []string
	memLimit    int
	memSessions []string
)

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Search a student's long-term memories and measure compression",
	Long: `List long-term memories of a student. With --session, compare the token
size of those sessions' working memory with the extracted facts.

Examples:
  courseagent memories --student-id alice
  courseagent memories --student-id alice --query "machine learning"
  courseagent memories --student-id alice --session s1 --session s2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, appOptions(), app.Needs{Memory: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		out := cmd.OutOrStdout()
		res, err := a.Memory.SearchLongTermMemory(ctx, memory.SearchRequest{
			Text:   memQuery,
			UserID: memStudent,
			Topics: memTopics,
			Limit:  memLimit,
		})
		if err != nil {
			return fmt.Errorf("search memories: %w", err)
		}
		printMemories(out, memStudent, res)

		if len(memSessions) > 0 {
			counter := cqllms.NewTokenCounter(a.Config.ChatModel)
			report := memory.AnalyzeCompression(ctx, a.Memory, memSessions, memStudent, a.Config.MemoryModelName, counter)
			printCompression(out, report)
		}
		return nil
	},
}

func init() {
	f := memoriesCmd.Flags()
	f.StringVar(&memStudent, "student-id", agents.DefaultStudentID, "student id")
	f.StringVar(&memQuery, "query", "", "semantic query, empty lists the most recent")
	f.StringSliceVar(&memTopics, "topic", nil, "filter by topic")
	f.IntVarP(&memLimit, "limit", "n", 20, "maximum memories")
	f.StringSliceVar(&memSessions, "session", nil, "sessions to include in the compression analysis")
}

func printMemories(w io.Writer, student string, res *memory.SearchResult) {
	printHeader(w, fmt.Sprintf("🧠 Long-term memories of %s (%d of %d)", student, len(res.Memories), res.Total))
	if len(res.Memories) == 0 {
		fmt.Fprintln(w, labelStyle.Render("   none"))
		return
	}
	for i, m := range res.Memories {
		meta := m.MemoryType
		if len(m.Topics) > 0 {
			meta += " · " + strings.Join(m.Topics, ", ")
		}
		fmt.Fprintf(w, "%3d. %s\n", i+1, m.Text)
		if meta != "" {
			fmt.Fprintf(w, "     %s\n", labelStyle.Render(meta))
		}
	}
	fmt.Fprintln(w)
}

func printCompression(w io.Writer, r *memory.CompressionReport) {
	printHeader(w, "📉 Memory Compression")
	for _, s := range r.Sessions {
		if s.Err != nil {
			fmt.Fprintf(w, "   %s: %s\n", s.SessionID, errorStyle.Render(s.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "   %s: %d messages, %d tokens\n", s.SessionID, s.Messages, s.Tokens)
	}
	fmt.Fprintf(w, "   Working memory:   %d tokens\n", r.WorkingMemoryTokens)
	if r.LongTermErr != nil {
		fmt.Fprintf(w, "   Long-term memory: %s\n", errorStyle.Render(r.LongTermErr.Error()))
		return
	}
	fmt.Fprintf(w, "   Long-term memory: %d tokens in %d facts\n", r.LongTermMemoryTokens, r.LongTermFacts)
	if r.Ratio() > 0 {
		fmt.Fprintf(w, "   Compression:      %.1fx, %d tokens saved (%.1f%%)\n", r.Ratio(), r.TokensSaved(), r.Reduction())
	}
}
