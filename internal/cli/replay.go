package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/charlesng35/callcache/internal/instrument"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [operation]",
		Short: "Print the recorded call history of an operation",
		Long: `Print how often an operation was called and every recorded input with the
output it produced. Without an argument the value cache's store operation is
replayed.

Examples:
  callcache replay
  callcache replay valuecache.Cache.Store --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withRuntime(cmd.Context(), func(ctx context.Context, stack *runtimeStack) error {
				operation := stack.Values.Operation()
				if len(args) == 1 {
					operation = args[0]
				}

				history, err := instrument.ReadHistory(ctx, stack.Store, operation)
				if err != nil {
					return err
				}
				return rootOpts.formatter(cmd).Print(history, func(w io.Writer) error {
					return instrument.WriteText(w, history)
				})
			})
		},
	}
}
