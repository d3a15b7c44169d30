package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/internal/app"
)

var (
	showReasoning bool
	studentID     string
	sessionID     string
)

// conversations replayed by simulate. Follow-up turns only make sense with
// working memory.
var conversations = [][]string{
	{
		"What is CS004?",
		"What are the prerequisites?",
		"Give me details about it",
	},
	{
		"Show me machine learning courses",
		"What about the first one?",
		"What's the workload like?",
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			s.ask(cmd.Context(), strings.Join(args, " "))
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive multi-turn conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			return s.chat(cmd.Context(), cmd.InOrStdin())
		})
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay the example multi-turn conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			return s.simulate(cmd.Context(), conversations)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, chatCmd, simulateCmd} {
		c.Flags().BoolVar(&showReasoning, "show-reasoning", false, "print the ReAct reasoning trace")
		c.Flags().StringVar(&studentID, "student-id", agents.DefaultStudentID, "student id for memory")
		c.Flags().StringVar(&sessionID, "session-id", "", "session id, generated when empty")
	}
}

func withSession(cmd *cobra.Command, fn func(*session) error) error {
	ctx := cmd.Context()
	stage, err := selectedStage()
	if err != nil {
		return err
	}
	a, w, err := app.OpenStage(ctx, appOptions(), stage)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	s := newSession(w, studentID, sessionID, cmd.OutOrStdout(), renderOptions{quiet: quiet, showReasoning: showReasoning})
	if !quiet {
		printHeader(s.out, fmt.Sprintf("Course Q&A Agent · stage %d %s", w.Stage(), w.Stage()))
		if w.Stage().UsesMemory() {
			fmt.Fprintf(s.out, "👤 Student ID: %s\n🔗 Session ID: %s\n", s.student, s.id)
		}
		if cleanupOnExit {
			fmt.Fprintln(s.out, "🧹 Courses will be cleaned up on exit")
		}
		fmt.Fprintln(s.out)
	}
	return fn(s)
}

// session runs every question of one conversation under the same student
// and session id.
type session struct {
	workflow *agents.Workflow
	student  string
	id       string
	out      io.Writer
	render   renderOptions
}

func newSession(w *agents.Workflow, student, id string, out io.Writer, opts renderOptions) *session {
	if student == "" {
		student = agents.DefaultStudentID
	}
	if id == "" && w.Stage().UsesMemory() {
		id = agents.NewSessionID(student)
	}
	return &session{workflow: w, student: student, id: id, out: out, render: opts}
}

func (s *session) ask(ctx context.Context, query string) *agents.State {
	if !s.render.quiet {
		printHeader(s.out, "❓ Question: "+query)
	}
	opts := []agents.RunOption{agents.WithStudent(s.student)}
	if s.id != "" {
		opts = append(opts, agents.WithSession(s.id))
	}
	st := s.workflow.Run(ctx, query, opts...)
	printResult(s.out, st, s.render)
	return st
}

// chat reads questions line by line until quit or end of input.
func (s *session) chat(ctx context.Context, in io.Reader) error {
	if !s.render.quiet {
		fmt.Fprintln(s.out, labelStyle.Render("Commands: 'quit' or 'exit' to stop, 'help' for help"))
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "\n❓ Your question: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(s.out, "\n👋 Goodbye!")
			return nil
		case "help":
			s.help()
			continue
		}
		fmt.Fprintln(s.out)
		s.ask(ctx, query)
		if err := ctx.Err(); err != nil {
			fmt.Fprintln(s.out, "\n👋 Goodbye!")
			return nil
		}
	}
	return scanner.Err()
}

func (s *session) simulate(ctx context.Context, convs [][]string) error {
	for i, queries := range convs {
		if !s.render.quiet {
			printHeader(s.out, fmt.Sprintf("\nConversation %d/%d", i+1, len(convs)))
		}
		for j, q := range queries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !s.render.quiet {
				fmt.Fprintf(s.out, "\n--- Turn %d/%d ---\n\n", j+1, len(queries))
			}
			s.ask(ctx, q)
		}
	}
	if !s.render.quiet {
		fmt.Fprintln(s.out, okStyle.Render("✅ Simulation complete!"))
	}
	return nil
}

func (s *session) help() {
	fmt.Fprintln(s.out)
	printHeader(s.out, "Help")
	fmt.Fprintln(s.out, "Ask anything about the course catalog.")
	if s.workflow.Stage().UsesMemory() {
		fmt.Fprintln(s.out, "\nExample multi-turn conversation:")
		for i, q := range conversations[0] {
			fmt.Fprintf(s.out, "  Turn %d: %s\n", i+1, q)
		}
		fmt.Fprintln(s.out, "\nThe agent remembers context from previous turns!")
	}
	fmt.Fprintln(s.out, "\nCommands:")
	fmt.Fprintln(s.out, "  help  show this help message")
	fmt.Fprintln(s.out, "  quit  exit the program (also exit, q)")
}
