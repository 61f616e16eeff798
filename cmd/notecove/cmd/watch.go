package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notecove/notecove/internal/engine"
	"github.com/notecove/notecove/internal/index"
	"github.com/notecove/notecove/internal/output"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <corpus>",
		Short: "Watch a corpus and re-index as notes change",
		Long: `Watch a corpus root and re-index after each burst of changes.

An initial pass catches up with anything that changed while notecove
was not running. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(ctx context.Context, e *engine.Engine, out *output.Writer) error {
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				out.Statusf("👀", "Watching corpus %q (Ctrl-C to stop)", args[0])
				err := e.Watch(ctx, args[0], func(r *index.Result) {
					if r.Indexed == 0 && r.Removed == 0 && len(r.Failed) == 0 {
						return
					}
					out.Statusf("", "%s  %d indexed, %d removed, %d failed",
						time.Now().Format("15:04:05"), r.Indexed, r.Removed, len(r.Failed))
					for path, err := range r.Failed {
						out.Warningf("%s: %v", path, err)
					}
				})
				if errors.Is(err, context.Canceled) {
					out.Status("", "Stopped.")
					return nil
				}
				return err
			})
		},
	}
}
