package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/drift"
	"github.com/brplusa/spacelink/internal/space"
)

// DriftOptions holds flags for the drift and sync commands.
type DriftOptions struct {
	*RootOptions
	Spaces    string  // input file with current design values
	Tolerance float64 // absolute tolerance; 0 means exact
}

// DriftResult is the JSON payload of drift and sync.
type DriftResult struct {
	Reports   []drift.Report `json:"reports"`
	Drifted   []string       `json:"drifted"`
	Updated   []string       `json:"updated,omitempty"`
	Untracked []string       `json:"untracked"`
}

// NewDriftCommand creates the drift command.
func NewDriftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drift --spaces FILE",
		Short: "Report spaces whose design airflows changed",
		Long: `Compare the cached specified airflows of each space in the input file with
the design values in the file. Nothing is written.

Exit codes:
  0 - No tracked space drifted
  1 - At least one tracked space drifted
  2 - Command error

Example:
  spacelink drift --doc ./tower.rvt --spaces current.yaml
  spacelink drift --doc ./tower.rvt --spaces current.yaml --tolerance 0.01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(opts, false, cmd)
		},
	}

	addDriftFlags(cmd, opts)
	return cmd
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync --spaces FILE",
		Short: "Refresh cached airflows of drifted spaces",
		Long: `Overwrite the cached specified airflows of every drifted space in the input
file with its design values. Connections are left untouched.

Example:
  spacelink sync --doc ./tower.rvt --spaces current.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(opts, true, cmd)
		},
	}

	addDriftFlags(cmd, opts)
	return cmd
}

func addDriftFlags(cmd *cobra.Command, opts *DriftOptions) {
	cmd.Flags().StringVar(&opts.Spaces, "spaces", "", "space input file with current design values (required)")
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", 0, "absolute tolerance for comparing airflows (0 = exact)")
	_ = cmd.MarkFlagRequired("spaces")
}

func runDrift(opts *DriftOptions, apply bool, cmd *cobra.Command) error {
	if opts.Tolerance < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid tolerance %g: must be non-negative", opts.Tolerance))
	}

	spaces, err := loadSpaces(opts.RootOptions, opts.Spaces, cmd)
	if err != nil {
		return err
	}

	return withSession(cmd, opts.RootOptions, opts.Tolerance, func(ctx context.Context, s *Session) error {
		result, err := compareAll(ctx, s.Detector, spaces)
		if err != nil {
			return operationFailed(cmd, opts.RootOptions, "drift check failed", err)
		}

		if apply {
			for _, report := range result.Reports {
				if !report.NeedsUpdate() {
					continue
				}
				if err := s.Detector.ApplyUpdate(ctx, report.ID, report.Design); err != nil {
					return operationFailed(cmd, opts.RootOptions, "sync failed", err)
				}
				result.Updated = append(result.Updated, report.ID)
			}
		}

		f := opts.formatter(cmd)
		drifted := !apply && len(result.Drifted) > 0
		message := fmt.Sprintf("%d space(s) drifted", len(result.Drifted))

		if f.JSON() {
			if drifted {
				if err := f.Failure(ErrCodeDrift, message, result); err != nil {
					return err
				}
			} else if err := f.Success(result); err != nil {
				return err
			}
		} else {
			writeDriftText(cmd.OutOrStdout(), result, apply)
		}

		if drifted {
			return NewExitError(ExitFailure, message)
		}
		return nil
	})
}

// compareAll compares every space. Untracked spaces are listed, not failed.
func compareAll(ctx context.Context, d *drift.Detector, spaces []space.External) (DriftResult, error) {
	result := DriftResult{
		Reports:   []drift.Report{},
		Drifted:   []string{},
		Untracked: []string{},
	}
	for _, sp := range spaces {
		report, err := d.Compare(ctx, sp.ID, sp.Design)
		if errors.Is(err, drift.ErrNotTracked) {
			result.Untracked = append(result.Untracked, sp.ID)
			continue
		}
		if err != nil {
			return result, err
		}
		result.Reports = append(result.Reports, report)
		if report.NeedsUpdate() {
			result.Drifted = append(result.Drifted, sp.ID)
		}
	}
	return result, nil
}

func writeDriftText(w io.Writer, result DriftResult, apply bool) {
	for _, report := range result.Reports {
		if !report.NeedsUpdate() {
			fmt.Fprintf(w, "%s in sync\n", report.ID)
			continue
		}
		verb := "drifted"
		if apply {
			verb = "updated"
		}
		fmt.Fprintf(w, "%s %s: %s\n", report.ID, verb, strings.Join(changes(report), ", "))
	}
	for _, id := range result.Untracked {
		fmt.Fprintf(w, "%s not tracked\n", id)
	}

	total := len(result.Reports)
	if apply {
		fmt.Fprintf(w, "Updated %d of %d tracked spaces\n", len(result.Updated), total)
		return
	}
	fmt.Fprintf(w, "%d of %d tracked spaces drifted\n", len(result.Drifted), total)
}

// changes renders each drifted field as "field cached -> design".
func changes(r drift.Report) []string {
	var out []string
	if r.Supply {
		out = append(out, fmt.Sprintf("supply %g -> %g", r.Specified.Supply, r.Design.Supply))
	}
	if r.Return {
		out = append(out, fmt.Sprintf("return %g -> %g", r.Specified.Return, r.Design.Return))
	}
	if r.Exhaust {
		out = append(out, fmt.Sprintf("exhaust %g -> %g", r.Specified.Exhaust, r.Design.Exhaust))
	}
	return out
}
