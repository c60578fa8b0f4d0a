package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/template"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check TEMPLATE...",
		Short: "Check templates for syntax errors",
		Long: `Parse each template and report the first syntax error, if any.
Templates that parse are listed with the variables they reference.`,
		Example: `  leapsite check templates/*.html`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}
}

func runCheck(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	styles := output.StylesFor(out)

	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // path is a CLI argument
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		tmpl, err := template.Parse(string(data), path)
		if err != nil {
			failed++
			output.PrintError(cmd.ErrOrStderr(), err)
			continue
		}

		_, _ = fmt.Fprintf(out, "%s %s\n", styles.Success.Render("ok"), path)
		if vars := tmpl.Variables(); len(vars) > 0 {
			_, _ = fmt.Fprintf(out, "  %s\n", styles.Muted.Render("variables: "+strings.Join(vars, ", ")))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed to parse", failed, len(paths))
	}
	return nil
}
