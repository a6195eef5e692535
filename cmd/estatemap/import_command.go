package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"estatemap/internal/processor"
	"estatemap/internal/queue"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import extracted properties from a JSON lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				in = f
			}

			a, err := newApp(cmd.Context(), ctx.cfg, ctx.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			q := queue.NewPropertyQueue(ctx.cfg.BatchProcessing.QueueSize, ctx.logger)
			p := processor.NewBatchProcessor(a.store, q, ctx.cfg, ctx.logger)
			stats, err := p.Import(cmd.Context(), in)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if encErr := enc.Encode(stats); encErr != nil && err == nil {
				err = encErr
			}
			return err
		},
	}
	return cmd
}
