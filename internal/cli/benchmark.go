package cli

import (
	"os"

	"pyrediff/internal/output"

	"github.com/spf13/cobra"
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Measure incremental update latency without a full check",
	Long: `Measure incremental update latency without running a full check.

Runs the same protocol as "compare" through the incremental check and
server stop, then reports the profile logs directly: one timing record per
update step plus the server's cold-start phases. No correctness verdict is
produced.

Exit codes:
	0 = every specification finished
	3 = fatal error (a run did not finish; no partial result is written)

Examples:
  pyrediff benchmark --spec specs/rename.json --out timings.json
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runSpecifications(output.KindBenchmark))
	},
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	addRunFlags(benchmarkCmd)
}
