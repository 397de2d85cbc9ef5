package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/relate"
	"github.com/brplusa/spacelink/internal/space"
)

// TrackedResult is the JSON payload of tracked.
type TrackedResult struct {
	ID      string `json:"id"`
	Tracked bool   `json:"tracked"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show ID",
		Short:         "Show a tracked space",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, 0, func(ctx context.Context, s *Session) error {
				rec, found, err := s.Engine.Find(ctx, args[0])
				if err != nil {
					return operationFailed(cmd, rootOpts, "show failed", err)
				}
				if !found {
					return notTracked(cmd, rootOpts, args[0])
				}

				f := rootOpts.formatter(cmd)
				if f.JSON() {
					return f.Success(rec)
				}
				writeRecord(cmd.OutOrStdout(), rec)
				return nil
			})
		},
	}
}

// NewPeersCommand creates the peers command.
func NewPeersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "peers ID",
		Short:         "List the spaces connected to a space",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, 0, func(ctx context.Context, s *Session) error {
				peers, err := s.Engine.FindPeers(ctx, args[0])
				if relate.IsNotFound(err) {
					return notTracked(cmd, rootOpts, args[0])
				}
				if err != nil {
					return operationFailed(cmd, rootOpts, "peers failed", err)
				}

				f := rootOpts.formatter(cmd)
				if f.JSON() {
					return f.Success(peers)
				}
				w := cmd.OutOrStdout()
				if len(peers) == 0 {
					fmt.Fprintf(w, "%s has no peers\n", args[0])
					return nil
				}
				for _, peer := range peers {
					fmt.Fprintln(w, recordTitle(peer))
				}
				return nil
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every tracked space and its peers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, 0, func(ctx context.Context, s *Session) error {
				records, err := s.Store.All(ctx)
				if err != nil {
					return operationFailed(cmd, rootOpts, "list failed", err)
				}

				f := rootOpts.formatter(cmd)
				if f.JSON() {
					return f.Success(records)
				}
				w := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(w, "No spaces tracked.")
					return nil
				}
				for _, rec := range records {
					fmt.Fprintf(w, "%s -> %s\n", recordTitle(rec), peerList(rec))
				}
				return nil
			})
		},
	}
}

// NewTrackedCommand creates the tracked command.
func NewTrackedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tracked ID",
		Short: "Report whether a space is tracked",
		Long: `Report whether a space is tracked. Connect rejects selections that contain
tracked spaces, so hosts check this first to route those selections elsewhere.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, 0, func(ctx context.Context, s *Session) error {
				tracked, err := s.Engine.IsTracked(ctx, args[0])
				if err != nil {
					return operationFailed(cmd, rootOpts, "tracked failed", err)
				}

				f := rootOpts.formatter(cmd)
				if f.JSON() {
					return f.Success(TrackedResult{ID: args[0], Tracked: tracked})
				}
				if tracked {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is tracked\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not tracked\n", args[0])
				}
				return nil
			})
		},
	}
}

// recordTitle renders "ID (number name)", or just the id when unlabeled.
func recordTitle(rec space.Record) string {
	if label := rec.Label(); label != "" {
		return fmt.Sprintf("%s (%s)", rec.ID, label)
	}
	return rec.ID
}

func peerList(rec space.Record) string {
	if len(rec.ConnectedIDs) == 0 {
		return "(none)"
	}
	return strings.Join(rec.ConnectedIDs, ", ")
}

func writeRecord(w io.Writer, rec space.Record) {
	fmt.Fprintln(w, recordTitle(rec))
	fmt.Fprintf(w, "  group:   %s\n", rec.GroupID)
	fmt.Fprintf(w, "  peers:   %s\n", peerList(rec))
	fmt.Fprintf(w, "  supply:  %g\n", rec.Specified.Supply)
	fmt.Fprintf(w, "  return:  %g\n", rec.Specified.Return)
	fmt.Fprintf(w, "  exhaust: %g\n", rec.Specified.Exhaust)
}
