package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/prebuilt"
)

const observationPreview = 200

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	answerStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	thoughtStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("13"))
	actionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type renderOptions struct {
	quiet         bool
	showReasoning bool
}

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
}

// printResult writes the answer of one run. Quiet output is the bare answer.
func printResult(w io.Writer, st *agents.State, opts renderOptions) {
	if opts.quiet {
		fmt.Fprintln(w, st.FinalResponse)
		return
	}
	if opts.showReasoning && len(st.ReasoningTrace) > 0 {
		printHeader(w, "🧠 Reasoning Trace")
		printTrace(w, st.ReasoningTrace)
		fmt.Fprintln(w)
	}

	printHeader(w, "📝 Answer")
	fmt.Fprintln(w, answerStyle.Render(st.FinalResponse))
	fmt.Fprintln(w)
	printMetrics(w, st)
}

func printTrace(w io.Writer, steps []prebuilt.ReasoningStep) {
	for _, step := range steps {
		switch step.Type {
		case prebuilt.StepThought:
			fmt.Fprintln(w, thoughtStyle.Render("💭 Thought: "+step.Content))
		case prebuilt.StepAction:
			fmt.Fprintln(w, actionStyle.Render("🔧 Action: "+step.Action))
			fmt.Fprintf(w, "   Input: %s\n", step.ActionInput)
			fmt.Fprintf(w, "👁️  Observation: %s\n", preview(step.Observation, observationPreview))
		case prebuilt.StepFinish:
			fmt.Fprintln(w, okStyle.Render("✅ FINISH"))
		case prebuilt.StepError:
			fmt.Fprintln(w, errorStyle.Render("⚠️  "+step.Content))
		}
	}
}

func printMetrics(w io.Writer, st *agents.State) {
	m := st.Metrics
	row := func(label, format string, v ...any) {
		fmt.Fprintf(w, "   %s %s\n", labelStyle.Render(fmt.Sprintf("%-17s", label+":")), fmt.Sprintf(format, v...))
	}

	printHeader(w, "📊 Performance")
	row("Total Time", "%.2fs", m.TotalLatency.Seconds())
	row("LLM Calls", "%s", formatCalls(m.LLMCalls))
	row("Tokens", "%d (input %d, output %d)", m.TokenUsage.Total, m.TokenUsage.Input, m.TokenUsage.Output)
	if m.ContextTokens > 0 {
		row("Context Tokens", "%d", m.ContextTokens)
	}
	if st.QueryIntent != "" {
		row("Intent", "%s", st.QueryIntent)
		row("Quality", "%.2f after %d iteration(s)", st.QualityScore, st.IterationCount)
	}
	if st.ReActIterations > 0 {
		row("ReAct Iterations", "%d", st.ReActIterations)
		row("Reasoning Steps", "%d", len(st.ReasoningTrace))
	}
	if st.SessionID != "" {
		row("Memory Load", "%.3fs", m.MemoryLoadLatency.Seconds())
		row("Memory Save", "%.3fs", m.MemorySaveLatency.Seconds())
	}
	row("Execution", "%s", st.Path())

	if n := len(st.ConversationHistory); n > 0 {
		fmt.Fprintf(w, "\n💾 Loaded %d previous messages from working memory\n", n)
	}
	fmt.Fprintln(w)
}

func formatCalls(calls map[string]int) string {
	if len(calls) == 0 {
		return "0"
	}
	keys := make([]string, 0, len(calls))
	total := 0
	for k, n := range calls {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, calls[k])
	}
	return fmt.Sprintf("%d (%s)", total, strings.Join(parts, ", "))
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
