package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	ncerrors "github.com/notecove/notecove/internal/errors"
	"github.com/notecove/notecove/internal/output"
	"github.com/notecove/notecove/internal/session"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	format    string
	corpora   []string
	sessionID string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed notes by similarity",
		Long: `Search indexed notes by similarity.

The query is embedded and scored against every chunk in scope. Scope
comes from --session, from --corpus flags, or defaults to every corpus.

Examples:
  notecove search "error handling ideas"
  notecove search "garden plans" --corpus personal --limit 5
  notecove search "quarterly goals" --session 7d7e... --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				sess, err := resolveSession(ctx, e, opts.sessionID, opts.corpora)
				if err != nil {
					return err
				}

				results, err := e.Query(ctx, sess, query, opts.limit)
				if err != nil {
					return err
				}

				if opts.format == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(results)
				}

				if len(results) == 0 {
					out.Statusf("", "No results for %q", query)
					return nil
				}
				out.Statusf("🔍", "Found %d results for %q:", len(results), query)
				out.Newline()
				for i, r := range results {
					out.Statusf("", "%d. %s#%d (corpus %d, score %.3f)",
						i+1, r.Path, r.ChunkIndex, r.CorpusID, r.Score)
					out.Indented(snippet(r.Text, 3))
					out.Newline()
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVarP(&opts.corpora, "corpus", "c", nil, "Restrict scope to a corpus (repeatable)")
	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Use a tracked session's scope")

	return cmd
}

// resolveSession picks the query scope: a tracked session by id, an
// ephemeral session over the named corpora, or over every corpus.
func resolveSession(ctx context.Context, e *engine.Engine, sessionID string, corpora []string) (*session.Session, error) {
	if sessionID != "" {
		return e.Session(ctx, sessionID)
	}

	if len(corpora) == 0 {
		all, err := e.Corpora(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, ncerrors.InvalidScope("no corpora registered; use 'notecove corpus add' first")
		}
		for _, c := range all {
			corpora = append(corpora, c.Name)
		}
	}
	return e.NewSession(ctx, corpora, false)
}

// snippet returns the first n lines of a chunk.
func snippet(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
