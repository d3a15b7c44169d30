package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/internal/app"
)

var forceLoad bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the course catalog into Redis",
	Long: `Embed and index the hierarchical catalog into the basic and the
hierarchical course index. Indexes that already hold courses are left alone
unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, appOptions(), app.Needs{LLM: true})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if err := a.LoadCourses(ctx, forceLoad); err != nil {
			return err
		}
		n, err := a.Courses.CourseCount(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("✓ %d courses indexed", n)))
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove every course from Redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx, appOptions(), app.Needs{})
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if err := a.CleanupCourses(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✓ courses removed"))
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&forceLoad, "force", false, "reload even when courses exist")
}
