// Command courseagent answers course questions with one of the six advisor
// workflows, manages the course index and serves the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/internal/app"
)

var Version = "dev"

var (
	stageFlag     string
	configPath    string
	debug         bool
	quiet         bool
	cleanupOnExit bool
	optimize      bool
)

var rootCmd = &cobra.Command{
	Use:     "courseagent",
	Short:   "Course Q&A agent",
	Version: Version,
	Long: `Ask questions about the course catalog.

Stages:
  1 baseline        raw course JSON in the prompt
  2 engineered      cleaned course text and a system prompt
  3 hierarchical    intent routing, tool calling and quality retries
  4 hybrid-react    ReAct loop over hybrid course search
  5 working-memory  ReAct with per-session conversation memory
  6 full-memory     ReAct with working and long-term memory

Examples:
  courseagent ask "What is CS002?"
  courseagent --stage 5 chat --student-id alice
  courseagent load --force`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&stageFlag, "stage", agents.StageHybridReAct.String(), "workflow stage, number or name")
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.BoolVar(&debug, "debug", false, "debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "print answers only")
	pf.BoolVar(&cleanupOnExit, "cleanup", false, "remove courses from Redis on exit")
	pf.BoolVar(&optimize, "optimize", false, "compact course text for the engineered stage")

	rootCmd.AddCommand(askCmd, chatCmd, simulateCmd, loadCmd, cleanupCmd, memoriesCmd, serveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("❌ "+err.Error()))
		os.Exit(1)
	}
}

func selectedStage() (agents.Stage, error) {
	return agents.ParseStage(stageFlag)
}

func appOptions() app.Options {
	return app.Options{
		ConfigPath:    configPath,
		Debug:         debug,
		Quiet:         quiet,
		CleanupOnExit: cleanupOnExit,
		Optimize:      optimize,
	}
}
