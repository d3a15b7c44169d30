// Command courseeval runs an evaluation suite against one of the advisor
// workflows and prints a pass/fail report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/eval"
	"github.com/smallnest/courseqa/internal/app"
)

var (
	stageFlag  string
	configPath string
	student    string
	list       bool
	verbose    bool
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var rootCmd = &cobra.Command{
	Use:   "courseeval [suite]",
	Short: "Run an evaluation suite",
	Long: `Run a YAML suite file or a predefined suite against a workflow stage.
Without --stage the stage named by the suite is used.

Examples:
  courseeval --list
  courseeval intent_classifier
  courseeval multi_turn_memory --stage full-memory
  courseeval ./suites/smoke.yaml --stage 2`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEval,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&stageFlag, "stage", "", "workflow stage, number or name")
	f.StringVar(&configPath, "config", "", "YAML config file")
	f.StringVar(&student, "student-id", "eval", "student id for cases that name none")
	f.BoolVar(&list, "list", false, "list predefined suites")
	f.BoolVarP(&verbose, "verbose", "v", false, "print every response")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("❌ "+err.Error()))
		os.Exit(1)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if list || len(args) == 0 {
		fmt.Fprintln(out, headerStyle.Render("Predefined suites"))
		for _, name := range eval.PredefinedNames() {
			fmt.Fprintln(out, "  "+name)
		}
		return nil
	}

	suite, err := eval.LoadSuite(args[0])
	if err != nil {
		return err
	}
	stage, err := resolveStage(stageFlag, suite.Stage)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, w, err := app.OpenStage(ctx, app.Options{ConfigPath: configPath}, stage)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	runner := &eval.Runner{Agent: eval.FromWorkflow(w, student)}
	report, err := runner.Run(ctx, suite)
	printReport(out, stage, report)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d cases failed", report.Failed, len(report.Results))
	}
	return nil
}

// resolveStage prefers the flag, then the suite's stage, then hybrid-react.
func resolveStage(flag, suiteStage string) (agents.Stage, error) {
	switch {
	case flag != "":
		return agents.ParseStage(flag)
	case suiteStage != "":
		return agents.ParseStage(suiteStage)
	default:
		return agents.StageHybridReAct, nil
	}
}

func printReport(w io.Writer, stage agents.Stage, r *eval.Report) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Suite %s on stage %s", r.Suite, stage)))
	for _, res := range r.Results {
		mark := passStyle.Render("PASS")
		if !res.Passed {
			mark = failStyle.Render("FAIL")
		}
		fmt.Fprintf(w, "%s %-28s %s\n", mark, res.Case.Name, dimStyle.Render(fmt.Sprintf("%.2fs %d calls %d tokens", res.Latency.Seconds(), res.LLMCalls, res.Tokens)))
		for _, f := range res.Failures {
			fmt.Fprintf(w, "     - %s\n", f)
		}
		if verbose || !res.Passed {
			fmt.Fprintf(w, "     %s\n", dimStyle.Render(oneLine(res.Response, 160)))
		}
	}
	fmt.Fprintln(w)
	summary := fmt.Sprintf("%d passed, %d failed (%.0f%%), avg %.2fs, %d tokens",
		r.Passed, r.Failed, r.PassRate()*100, r.AverageLatency().Seconds(), r.TotalTokens())
	if r.Failed > 0 {
		fmt.Fprintln(w, failStyle.Render(summary))
	} else {
		fmt.Fprintln(w, passStyle.Render(summary))
	}
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
