package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapsite/internal/cli/output"
	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/site"
	"github.com/leapstack-labs/leapsite/pkg/core"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Force   bool
	NoState bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the site",
		Long: `Render every source document, the listing pages and the configured
pages into the output directory, then copy the static directory.

Outputs whose content did not change since the previous build are left
alone. Use --force to rewrite everything.`,
		Example: `  # Build the site
  leapsite build

  # Build into another directory, ignoring previous builds
  leapsite build --output-dir /tmp/site --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Rewrite every output")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not read or record build state")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	gen, cleanup, err := newGenerator(cfg, logger, opts.Force, opts.NoState)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := gen.Build(ctx)
	if err != nil {
		return err
	}

	styles := output.StylesFor(cmd.OutOrStdout())
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d documents: %d written, %d unchanged in %s\n",
		styles.Success.Render("Built"),
		result.Documents, len(result.Written), len(result.Skipped),
		result.Duration.Round(time.Millisecond))
	return nil
}

// newGenerator creates a site generator for cfg, backed by the state store
// unless noState is set. The cleanup func closes the store.
func newGenerator(cfg *config.Config, logger *slog.Logger, force, noState bool) (*site.Generator, func(), error) {
	if err := cfg.ValidateDirectories(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var store core.Store
	if !noState {
		s, err := openStore(cfg.StatePath, logger)
		if err != nil {
			return nil, nil, err
		}
		store = s
		cleanup = func() { _ = s.Close() }
	}

	gen, err := site.NewGenerator(site.Options{
		Config: cfg,
		Store:  store,
		Force:  force,
		Logger: logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return gen, cleanup, nil
}
