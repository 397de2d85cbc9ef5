package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/relate"
)

// DisconnectResult is the JSON payload of disconnect.
type DisconnectResult struct {
	Broken []string          `json:"broken"`
	Failed map[string]string `json:"failed,omitempty"`
}

// NewDisconnectCommand creates the disconnect command.
func NewDisconnectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect ID...",
		Short: "Remove spaces from their groups",
		Long: `Remove each space from the store and from the connections of all its peers.

Every id is attempted even if an earlier one fails. Spaces that were removed
stay removed; the failures are reported and the command exits with 1.

Example:
  spacelink disconnect --doc ./tower.rvt S1 S2`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisconnect(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDisconnect(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	return withSession(cmd, opts, 0, func(ctx context.Context, s *Session) error {
		err := s.Engine.BreakGroup(ctx, ids...)
		if err == nil {
			f := opts.formatter(cmd)
			if f.JSON() {
				return f.Success(DisconnectResult{Broken: ids})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Disconnected %d spaces: %s\n", len(ids), strings.Join(ids, ", "))
			return nil
		}

		var batch *relate.BatchError
		if !errors.As(err, &batch) {
			return operationFailed(cmd, opts, "disconnect failed", err)
		}

		result := DisconnectResult{Broken: batch.Broken, Failed: make(map[string]string, len(batch.Failed))}
		if result.Broken == nil {
			result.Broken = []string{}
		}
		for _, failure := range batch.Failed {
			result.Failed[failure.ID] = failure.Err.Error()
		}

		f := opts.formatter(cmd)
		if f.JSON() {
			if encErr := f.Failure(string(batch.Code()), "disconnect incomplete", result); encErr != nil {
				return encErr
			}
		} else {
			w := cmd.OutOrStdout()
			if len(batch.Broken) > 0 {
				fmt.Fprintf(w, "Disconnected %d spaces: %s\n", len(batch.Broken), strings.Join(batch.Broken, ", "))
			}
			for _, failure := range batch.Failed {
				fmt.Fprintf(w, "Failed %s: %s\n", failure.ID, relate.CodeOf(failure.Err))
			}
		}
		return WrapExitError(ExitFailure, "disconnect incomplete", err)
	})
}
