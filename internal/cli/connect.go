package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/space"
)

// ConnectOptions holds flags for the connect command.
type ConnectOptions struct {
	*RootOptions
	Spaces string // input file
}

// ConnectResult is the JSON payload of a successful connect.
type ConnectResult struct {
	GroupID   string   `json:"group_id"`
	Connected []string `json:"connected"`
}

// NewConnectCommand creates the connect command.
func NewConnectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConnectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "connect --spaces FILE",
		Short: "Connect spaces into a new group",
		Long: `Connect every space in the input file to every other one.

None of the spaces may already be tracked: connecting a tracked space to new
ones would merge groups, which is rejected with GROUP_MERGE_UNSUPPORTED and
leaves the store unchanged.

Example:
  spacelink connect --doc ./tower.rvt --spaces selection.yaml
  spacelink connect --db ./SpatialData.db --spaces selection.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Spaces, "spaces", "", "space input file (.yaml, .yml, .json, .cue) (required)")
	_ = cmd.MarkFlagRequired("spaces")

	return cmd
}

func runConnect(opts *ConnectOptions, cmd *cobra.Command) error {
	spaces, err := loadSpaces(opts.RootOptions, opts.Spaces, cmd)
	if err != nil {
		return err
	}

	return withSession(cmd, opts.RootOptions, 0, func(ctx context.Context, s *Session) error {
		if err := s.Engine.CreateGroup(ctx, spaces); err != nil {
			return operationFailed(cmd, opts.RootOptions, "connect failed", err)
		}

		ids := externalIDs(spaces)
		rec, _, err := s.Engine.Find(ctx, ids[0])
		if err != nil {
			return operationFailed(cmd, opts.RootOptions, "connect failed", err)
		}

		f := opts.formatter(cmd)
		if f.JSON() {
			return f.Success(ConnectResult{GroupID: rec.GroupID, Connected: ids})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Connected %d spaces: %s\n", len(ids), strings.Join(ids, ", "))
		f.VerboseLog("group %s", rec.GroupID)
		return nil
	})
}

// loadSpaces loads an input file, reporting failures as command errors.
func loadSpaces(opts *RootOptions, path string, cmd *cobra.Command) ([]space.External, error) {
	spaces, err := LoadSpaces(path)
	if err != nil {
		f := opts.formatter(cmd)
		if f.JSON() {
			if encErr := f.Error(ErrCodeInput, "failed to load spaces", err.Error()); encErr != nil {
				return nil, encErr
			}
		}
		return nil, WrapExitError(ExitCommandError, "failed to load spaces", err)
	}
	return spaces, nil
}

func externalIDs(spaces []space.External) []string {
	ids := make([]string, len(spaces))
	for i, sp := range spaces {
		ids[i] = sp.ID
	}
	return ids
}
