// Command coursegen writes a synthetic hierarchical course catalog as JSON,
// markdown or HTML.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smallnest/courseqa/catalog/generator"
)

var (
	outputDir string
	count     int
	seed      int64
	format    string
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

var rootCmd = &cobra.Command{
	Use:   "coursegen",
	Short: "Generate a synthetic course catalog",
	Long: `Generate hierarchical courses with syllabi and assignments.

Examples:
  coursegen -o data/hierarchical -c 50
  coursegen -f both -s 42`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runGenerate,
}

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", filepath.Join("data", "hierarchical"), "output directory")
	rootCmd.Flags().IntVarP(&count, "count", "c", 50, "number of courses")
	rootCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "random seed, 0 for time based")
	rootCmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, markdown, html, both)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	writeJSON, writeMarkdown, writeHTML, err := formats(format)
	if err != nil {
		return err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gen, err := generator.New(seed)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Generating %d courses (seed %d)", count, seed)))
	gen.Generate(count)

	if writeJSON {
		path, err := gen.SaveJSON(outputDir)
		if err != nil {
			return fmt.Errorf("save json: %w", err)
		}
		fmt.Fprintln(out, okStyle.Render("✓ "+path))
	}
	if writeMarkdown {
		dir := filepath.Join(outputDir, "markdown")
		if err := gen.SaveMarkdown(dir); err != nil {
			return fmt.Errorf("save markdown: %w", err)
		}
		fmt.Fprintln(out, okStyle.Render("✓ "+filepath.Join(dir, generator.CatalogFileName)))
	}
	if writeHTML {
		dir := filepath.Join(outputDir, "html")
		if err := gen.SaveHTML(dir); err != nil {
			return fmt.Errorf("save html: %w", err)
		}
		fmt.Fprintln(out, okStyle.Render("✓ "+dir))
	}

	st := gen.Stats()
	fmt.Fprintf(out, "\nCourses:      %d\n", st.Courses)
	fmt.Fprintf(out, "Assignments:  %d (%.1f per course)\n", st.TotalAssignments, st.AvgAssignmentsPerCourse)
	fmt.Fprintf(out, "Weeks:        %d (%.1f per course)\n", st.TotalWeeks, st.AvgWeeksPerCourse)
	return nil
}

// formats resolves --format. "both" writes the JSON data and the markdown pages.
func formats(f string) (json, markdown, html bool, err error) {
	switch f {
	case "json":
		return true, false, false, nil
	case "markdown", "md":
		return false, true, false, nil
	case "html":
		return false, false, true, nil
	case "both":
		return true, true, false, nil
	default:
		return false, false, false, fmt.Errorf("unknown format %q", f)
	}
}
