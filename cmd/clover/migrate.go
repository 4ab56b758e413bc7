package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			return app.New(cfg, logger, app.Options{Version: version}).Migrate(cmd.Context())
		},
	}
}
