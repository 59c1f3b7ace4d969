package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pyrediff",
	Short: "Validate and benchmark incremental Pyre checks against full checks",
	Long: `Pyrediff drives a Pyre server through scripted repository mutations and
verifies that its incremental output matches a from-scratch full check of
the same final state.

Pyrediff does not judge which output is correct: it only detects divergence
between two runs of the same checker, and measures how long incremental
updates take.

Examples:
	# Show available commands and global flags
	pyrediff --help

	# Compare incremental output against a full check
	pyrediff compare --spec specs/rename.json

	# Measure update latency only
	pyrediff benchmark --spec specs/rename.json

	# Print build info
	pyrediff version

Output:
	By default, commands write a human-readable verdict per specification to
	stdout. Structured JSON can be written via --console-format json and/or
	--out (see each command's --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every checker command and protocol progress to stderr)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
