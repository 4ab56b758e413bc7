package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/internal/app"
)

type importOptions struct {
	file   string
	memory bool
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run one import and print its report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Feed file to import (default: FEED_PATH)")
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "Use in-memory stores and skip every external integration (dry run)")
	return cmd
}

func runImport(ctx context.Context, root *rootOptions, opts importOptions, out io.Writer) error {
	cfg, logger, err := root.load()
	if err != nil {
		return err
	}

	a := app.New(cfg, logger, app.Options{Memory: opts.memory, Version: version})
	if err := a.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start dependencies")
		return err
	}
	defer func() {
		_ = a.Stop(context.WithoutCancel(ctx))
	}()

	run, runErr := a.Pipeline.Run(ctx, opts.file)
	if run != nil {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(run); err != nil {
			return err
		}
	}
	return runErr
}
