package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/quarrel/internal/releng"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "eval <fixture.yaml>",
		Short: "Evaluate a fixture's query and print the result table",
		Long: `Evaluate the query described in a YAML fixture against its tables.

The result prints as an aligned text table, or as JSON with --format json.
Evaluation failures exit 1 with the structured error code; malformed
fixtures exit 2.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, args[0], maxIterations, cmd)
		},
	}

	cmd.Flags().IntVar(&maxIterations, "max-iterations", releng.DefaultMaxIterations,
		"recursive CTE iteration cap")

	return cmd
}

func runEval(opts *RootOptions, path string, maxIterations int, cmd *cobra.Command) error {
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

	plan, coll, err := fx.BuildPlan()
	if err != nil {
		formatter.Error("E_USAGE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "building plan", err)
	}

	eval := releng.New(
		releng.WithCollation(coll),
		releng.WithMaxIterations(maxIterations),
	)
	formatter.VerboseLog("Evaluation %s starting", eval.ID())
	result, err := eval.Evaluate(cmd.Context(), plan)
	if err != nil {
		formatter.Error(EvalErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	return formatter.Success(NewTableResult(result))
}
