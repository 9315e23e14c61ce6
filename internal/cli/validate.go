package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quarrel/internal/relplan"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fixture.yaml>",
		Short: "Validate a fixture's query plan without evaluating it",
		Long: `Check a YAML fixture: decode it, build the query plan and run the
structural validation the evaluator would run before any row flows.
No rows are read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	fx, err := LoadFixture(path)
	if err != nil {
		formatter.Error("E_USAGE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading fixture", err)
	}
	formatter.VerboseLog("Loaded %d table(s) from %s", len(fx.Tables), path)

	plan, _, err := fx.BuildPlan()
	if err != nil {
		formatter.Error("E_USAGE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "building plan", err)
	}

	if err := relplan.Validate(plan); err != nil {
		formatter.Error(EvalErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	return formatter.Success(fmt.Sprintf("Plan valid (%d tables)", len(fx.Tables)))
}
