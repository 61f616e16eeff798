package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/output"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage note corpora",
	}
	cmd.AddCommand(newCorpusAddCmd())
	cmd.AddCommand(newCorpusListCmd())
	cmd.AddCommand(newCorpusRemoveCmd())
	return cmd
}

func newCorpusAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Register a directory of notes under a unique name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				c, err := e.CreateCorpus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				out.Successf("Registered corpus %q (id %d) at %s", c.Name, c.ID, c.RootPath)
				out.Statusf("", "Run 'notecove index %s' to make it searchable.", c.Name)
				return nil
			})
		},
	}
}

func newCorpusListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered corpora",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				corpora, err := e.Corpora(ctx)
				if err != nil {
					return err
				}

				if format == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(corpora)
				}

				if len(corpora) == 0 {
					out.Status("", "No corpora registered. Use 'notecove corpus add <name> <path>'.")
					return nil
				}
				for _, c := range corpora {
					chunks, err := e.ChunkCount(ctx, c.ID)
					if err != nil {
						return err
					}
					out.Statusf("", "%d  %s  %s  (%d notes, %d chunks, updated %s)",
						c.ID, c.Name, c.RootPath, c.NoteCount, chunks,
						c.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func newCorpusRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name|id>",
		Short: "Delete a corpus and its indexed chunks",
		Long: `Delete a corpus and its indexed chunks.

The notes on disk are untouched. Sessions that include the corpus
survive; their scope just stops covering it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				if err := e.RemoveCorpus(ctx, args[0]); err != nil {
					return err
				}
				out.Successf("Removed corpus %q", args[0])
				return nil
			})
		},
	}
}
