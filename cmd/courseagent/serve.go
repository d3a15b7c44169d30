package main

import (
	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/agents"
	"github.com/smallnest/courseqa/internal/app"
	"github.com/smallnest/courseqa/server"
)

var (
	serveAddr     string
	serveNoMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve every stage over HTTP. --stage selects the stage used when a
request names none.

Examples:
  courseagent serve --addr :8080
  courseagent serve --stage working-memory`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		def, err := selectedStage()
		if err != nil {
			return err
		}
		a, err := app.New(ctx, appOptions(), app.Needs{LLM: true, Memory: !serveNoMemory, Load: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		workflows := make(map[agents.Stage]*agents.Workflow)
		for s := agents.StageBaseline; s <= agents.StageFullMemory; s++ {
			if s.UsesMemory() && a.Memory == nil {
				continue
			}
			w, err := a.Workflow(s)
			if err != nil {
				return err
			}
			workflows[s] = w
		}

		addr := serveAddr
		if addr == "" {
			addr = a.Config.ListenAddr
		}
		srv := server.New(server.Options{
			Workflows:    workflows,
			DefaultStage: def,
			Manager:      a.Courses,
			Memory:       a.Memory,
		})
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, defaults to listen_addr from the config")
	serveCmd.Flags().BoolVar(&serveNoMemory, "no-memory", false, "serve stages 1 to 4 only")
}
