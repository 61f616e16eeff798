package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/output"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage tracked query sessions",
		Long: `Manage tracked query sessions.

A tracked session pins a scope of corpora under a stable id, usable
with 'search --session' and 'paths --session'. Corpora deleted after
creation silently drop out of the scope; the session keeps working.`,
	}
	cmd.AddCommand(newSessionCreateCmd())
	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionDiscardCmd())
	return cmd
}

func newSessionCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <corpus>...",
		Short: "Create a tracked session over the named corpora",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				sess, err := e.NewSession(ctx, args, true)
				if err != nil {
					return err
				}
				out.Successf("Created session %s over %s", sess.ID, strings.Join(args, ", "))
				return nil
			})
		},
	}
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked session ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				ids, err := e.Sessions(ctx)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					out.Status("", "No tracked sessions.")
					return nil
				}
				for _, id := range ids {
					out.Status("", id)
				}
				return nil
			})
		},
	}
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a tracked session's scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				sess, err := e.Session(ctx, args[0])
				if err != nil {
					return err
				}
				out.Statusf("", "Session %s (created %s)", sess.ID, sess.CreatedAt.Format("2006-01-02 15:04:05"))
				for _, corpusID := range sess.Scope {
					c, err := e.Corpus(ctx, formatID(corpusID))
					if err != nil {
						out.Statusf("", "  corpus %d (deleted)", corpusID)
						continue
					}
					out.Statusf("", "  corpus %d: %s (%s)", c.ID, c.Name, c.RootPath)
				}
				return nil
			})
		},
	}
}

// formatID renders a corpus id for the id-or-name resolver.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newSessionDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Delete a tracked session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				if err := e.DiscardSession(ctx, args[0]); err != nil {
					return err
				}
				out.Successf("Discarded session %s", args[0])
				return nil
			})
		},
	}
}
