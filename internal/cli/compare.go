package cli

import (
	"os"

	"pyrediff/internal/output"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare incremental check output against a full check",
	Long: `Compare incremental check output against a from-scratch full check.

For every specification in the spec file, pyrediff:
  1. materializes a sandbox of the old repository state
  2. restarts the checker server in it (no saved state, profiling enabled)
  3. applies the new state's update steps in order, waiting after each one
     until the checker's incremental_updates profile log records it
  4. runs the incremental check and stops the server
  5. runs a timed full check of the same final state
  6. diffs both error lists exactly (order matters, no sorting)

Specification file:
	A JSON object or array of objects. Each object names an old_state (kind
	"local" or "github"), a new_state update (kind "file", "batch", or
	"command"), and optional per-subcommand checker options.

Exit codes:
	0 = every specification was consistent
	1 = at least one discrepancy detected
	3 = fatal error (a run did not finish; no partial result is written)

Examples:
  # Compare a single spec file, human-readable verdicts
  pyrediff compare --spec specs/rename.json

  # Machine-readable aggregate, no console
  pyrediff compare --spec specs/all.json --no-console --out results.json

  # Bounded waiting instead of the default poll-forever behavior
  pyrediff compare --spec specs/all.json --poll-max-attempts 600
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runSpecifications(output.KindCompare))
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addRunFlags(compareCmd)
}
