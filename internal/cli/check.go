package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brplusa/spacelink/internal/relate"
)

// CheckResult is the JSON payload of check.
type CheckResult struct {
	Spaces     int                `json:"spaces"`
	Violations []relate.Violation `json:"violations"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the connection graph",
		Long: `Scan the store for self-loops, one-way connections and connections to
spaces that do not exist.

Exit codes:
  0 - No violations
  1 - Violations found
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, 0, func(ctx context.Context, s *Session) error {
				return runCheck(ctx, rootOpts, s, cmd)
			})
		},
	}
}

func runCheck(ctx context.Context, opts *RootOptions, s *Session, cmd *cobra.Command) error {
	violations, err := s.Engine.Verify(ctx)
	if err != nil {
		return operationFailed(cmd, opts, "check failed", err)
	}
	records, err := s.Store.All(ctx)
	if err != nil {
		return operationFailed(cmd, opts, "check failed", err)
	}

	result := CheckResult{Spaces: len(records), Violations: violations}
	if result.Violations == nil {
		result.Violations = []relate.Violation{}
	}
	message := fmt.Sprintf("%d violation(s) found", len(violations))

	f := opts.formatter(cmd)
	switch {
	case f.JSON() && len(violations) > 0:
		if err := f.Failure(ErrCodeViolations, message, result); err != nil {
			return err
		}
	case f.JSON():
		return f.Success(result)
	case len(violations) > 0:
		w := cmd.OutOrStdout()
		for _, v := range violations {
			fmt.Fprintln(w, v.String())
		}
		fmt.Fprintf(w, "%d spaces, %s\n", result.Spaces, message)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%d spaces, no violations\n", result.Spaces)
		return nil
	}

	return NewExitError(ExitFailure, message)
}
