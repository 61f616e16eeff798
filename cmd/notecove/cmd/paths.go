package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/output"
)

func newPathsCmd() *cobra.Command {
	var (
		format    string
		corpora   []string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "paths [pattern]",
		Short: "List indexed note paths, optionally filtered by pattern",
		Long: `List indexed note paths, optionally filtered by pattern.

A pattern without glob metacharacters names a file or a whole
directory subtree: 'docs' lists docs/a.md and docs/deep/b.md alike.
With metacharacters it is a glob over the relative path, and '*' does
not cross directory separators.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				sess, err := resolveSession(ctx, e, sessionID, corpora)
				if err != nil {
					return err
				}

				matches, err := e.Paths(ctx, sess, pattern)
				if err != nil {
					return err
				}

				if format == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(matches)
				}

				if len(matches) == 0 {
					out.Status("", "No matching paths.")
					return nil
				}
				for _, m := range matches {
					out.Statusf("", "%d  %s", m.CorpusID, m.Path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVarP(&corpora, "corpus", "c", nil, "Restrict scope to a corpus (repeatable)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Use a tracked session's scope")

	return cmd
}
