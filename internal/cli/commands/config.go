package commands

import (
	"fmt"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/spf13/cobra"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, leapsite.yaml, LEAPSITE_*
environment variables and flags have been applied, as YAML.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetConfig(cmd.Context())
			out := cmd.OutOrStdout()
			if cfg.ConfigFile != "" {
				_, _ = fmt.Fprintf(out, "# config file: %s\n", cfg.ConfigFile)
			}
			return cfg.Dump(out)
		},
	}
}
