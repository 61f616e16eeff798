package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/index"
	"github.com/notecove/notecove/internal/output"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [corpus...]",
		Short: "Index corpora (all of them when none are named)",
		Long: `Index corpora, bringing the store in line with the notes on disk.

Unchanged files are skipped by fingerprint; changed and new files are
re-chunked and re-embedded; deleted files drop out of the store. Files
that fail are reported and retried on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				if len(args) == 0 {
					results, err := e.IndexAll(ctx)
					if err != nil {
						return err
					}
					if len(results) == 0 {
						out.Status("", "No corpora registered. Use 'notecove corpus add <name> <path>'.")
						return nil
					}
					for name, result := range results {
						printIndexResult(out, name, result)
					}
					return nil
				}

				for _, key := range args {
					result, err := e.IndexCorpus(ctx, key)
					if err != nil {
						return err
					}
					printIndexResult(out, key, result)
				}
				return nil
			})
		},
	}
}

func printIndexResult(out *output.Writer, name string, r *index.Result) {
	out.Statusf("📚", "%s: %d indexed, %d skipped, %d removed in %s",
		name, r.Indexed, r.Skipped, r.Removed, r.Duration.Round(time.Millisecond))
	for path, err := range r.Failed {
		out.Warningf("%s: %v", path, err)
	}
}
