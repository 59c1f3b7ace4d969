package flags

// Package flags defines canonical CLI flag names shared across the CLI.
// Keeping these as constants helps avoid drift between Cobra flag wiring
// and other code paths that reference flags (e.g. error messages).
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Run
	FlagSpec            = "spec"
	FlagPyreClient      = "pyre-client"
	FlagPyreBinary      = "pyre-binary"
	FlagTypeshed        = "typeshed"
	FlagPollInterval    = "poll-interval"
	FlagPollMaxAttempts = "poll-max-attempts"

	// Output
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagConsoleFormat       = "console-format"
	FlagNoConsole           = "no-console"
	FlagSuppressDiscrepancy = "suppress-discrepancy"

	// Runtime
	FlagJobs    = "jobs"
	FlagTimeout = "timeout"
)
