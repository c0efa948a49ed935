package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/estateforge/prospect-engine/internal/config"
	"github.com/estateforge/prospect-engine/internal/observability"
)

type cliOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "prospectctl",
		Short: "Process real-estate brochure PDFs into project pages",
		Long: `prospectctl runs the prospect pipeline against brochure PDFs:
content and image extraction, AI classification and structured mapping,
localization, and materialization of project and mini-site artifacts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newProcessCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))

	return cmd
}

// loadEnvironment builds config and logger for a command invocation.
func loadEnvironment(opts *cliOptions) (*config.Config, *observability.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		ServiceName: "prospectctl",
	})

	return cfg, logger, nil
}
