// Package cmd wires the cobra command tree for the stackdown binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackdown/stackdown/internal/app"
	"github.com/stackdown/stackdown/internal/config"
)

var cfgFile string

// buildApp loads configuration and constructs the service container. It is
// a variable so tests can substitute a fake factory.
var buildApp = func() (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackdown",
		Short: "Archive newsletter articles as searchable markdown.",
		Long: `stackdown discovers, fetches, and converts newsletter articles into
canonical markdown, stores them content-addressably on the filesystem, and
serves relevance-ranked keyword search over the stored corpus.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newSearchCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
