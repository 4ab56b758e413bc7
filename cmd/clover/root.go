package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "clover",
		Short:         "Import supplier product feeds into the canonical catalog",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Env files to load before reading the environment (default: .env)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	return cmd
}

// load reads the configuration and builds the logger every command shares.
func (o *rootOptions) load() (*config.Config, ectologger.Logger, error) {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
