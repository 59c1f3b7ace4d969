package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Run     Run
	Output  Output
	Runtime Runtime
}

type Run struct {
	// Spec is the path to the specification file (see --spec). Required.
	Spec string

	// Client overrides the checker executable for every specification in
	// the file (see --pyre-client). Empty keeps each spec's own value.
	Client string

	// Binary overrides the checker backend binary path (see --pyre-binary).
	Binary string

	// Typeshed overrides the typeshed path (see --typeshed).
	Typeshed string

	// PollInterval is the wait between profile-log polls while an update
	// settles (see --poll-interval).
	PollInterval time.Duration

	// PollMaxAttempts caps polls per update step; 0 polls forever, which is
	// the reference behavior (see --poll-max-attempts).
	PollMaxAttempts int
}

type Output struct {
	// Out writes an aggregate of per-specification results to this path
	// (see --out).
	Out string

	// OutFormat is the structured format for --out: json or ndjson.
	// Empty infers from the file extension.
	OutFormat string

	// ConsoleFormat controls stdout: text or json (see --console-format).
	ConsoleFormat string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// SuppressDiscrepancy omits the discrepancy key from structured results
	// (see --suppress-discrepancy).
	SuppressDiscrepancy bool
}

type Runtime struct {
	// Jobs is the number of specifications run concurrently (see --jobs).
	// Each specification still runs its own protocol strictly sequentially
	// against its own sandbox and server.
	Jobs int

	// Timeout bounds the whole invocation (see --timeout). Zero disables it.
	Timeout time.Duration

	// Verbose prints every gateway command and protocol progress to stderr.
	Verbose bool
}

func New() *Config {
	return &Config{
		Run: Run{
			PollInterval: time.Second,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Jobs: 1,
		},
	}
}

func (c *Config) Validate() error {
	if c.Run.Spec == "" {
		return errors.New("a specification file is required (--spec)")
	}
	if c.Run.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Run.PollInterval)
	}
	if c.Run.PollMaxAttempts < 0 {
		return fmt.Errorf("poll max attempts must be >= 0, got %d", c.Run.PollMaxAttempts)
	}
	if c.Runtime.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", c.Runtime.Jobs)
	}
	if c.Runtime.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Runtime.Timeout)
	}
	switch c.Output.ConsoleFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported console format: %s", c.Output.ConsoleFormat)
	}
	switch c.Output.OutFormat {
	case "", "json", "ndjson":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
	}
	if c.Output.OutFormat != "" && c.Output.Out == "" {
		return errors.New("--out-format requires --out")
	}
	return nil
}
