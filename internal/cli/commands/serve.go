package commands

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leapstack-labs/leapsite/internal/config"
	"github.com/leapstack-labs/leapsite/internal/devserver"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build and serve the site with live reload",
		Long: `Build the site, serve the output directory and rebuild whenever a
source document, template, static file or configured page changes.
Open pages reload automatically after each successful rebuild.`,
		Example: `  leapsite serve
  leapsite serve --port 3000 --host 0.0.0.0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Int("port", config.DefaultServePort, "Port to listen on")
	cmd.Flags().String("host", config.DefaultServeHost, "Host to bind to")
	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	gen, cleanup, err := newGenerator(cfg, logger, false, false)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := devserver.New(devserver.Config{
		Builder:   gen,
		OutputDir: cfg.OutputDir,
		WatchDirs: watchDirs(cfg),
		Host:      cfg.Serve.Host,
		Port:      cfg.Serve.Port,
		Logger:    logger,
	})
	return srv.Serve(ctx)
}

// watchDirs returns the directories whose changes trigger a rebuild.
func watchDirs(cfg *config.Config) []string {
	dirs := []string{cfg.ContentDir, cfg.TemplatesDir, cfg.StaticDir}
	seen := map[string]bool{cfg.ContentDir: true, cfg.TemplatesDir: true, cfg.StaticDir: true}
	for _, page := range cfg.Pages {
		dir := filepath.Dir(page.Source)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
