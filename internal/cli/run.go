package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"pyrediff/internal/config"
	"pyrediff/internal/environment"
	"pyrediff/internal/flags"
	"pyrediff/internal/output"
	"pyrediff/internal/pyre"
	"pyrediff/internal/state"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cfg = config.New()

// addRunFlags wires the flags shared by compare and benchmark.
func addRunFlags(cmd *cobra.Command) {
	// Run
	cmd.Flags().StringVar(&cfg.Run.Spec, flags.FlagSpec, "", "Path to the specification file (required)")
	cmd.Flags().StringVar(&cfg.Run.Client, flags.FlagPyreClient, "", "Checker client executable override for all specifications (default: per-spec, falling back to \"pyre\")")
	cmd.Flags().StringVar(&cfg.Run.Binary, flags.FlagPyreBinary, "", "Checker backend binary override, passed as --binary")
	cmd.Flags().StringVar(&cfg.Run.Typeshed, flags.FlagTypeshed, "", "Typeshed path override, passed as --typeshed")
	cmd.Flags().DurationVar(&cfg.Run.PollInterval, flags.FlagPollInterval, cfg.Run.PollInterval, "Wait between profile-log polls while an update settles (default: 1s)")
	cmd.Flags().IntVar(&cfg.Run.PollMaxAttempts, flags.FlagPollMaxAttempts, 0, "Maximum polls per update step; 0 polls forever (default: 0)")

	// Output
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write aggregate structured results to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json (default: text)")
	cmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")
	cmd.Flags().BoolVar(&cfg.Output.SuppressDiscrepancy, flags.FlagSuppressDiscrepancy, false, "Omit the discrepancy key from structured results")

	// Runtime
	cmd.Flags().IntVar(&cfg.Runtime.Jobs, flags.FlagJobs, 1, "Specifications run concurrently; each runs its own sandbox and server (default: 1)")
	cmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, 0, "Global timeout; 0 disables (default: 0)")
}

// runSpecifications is the shared body of compare and benchmark: load the
// spec file, run the protocol per specification (bounded by --jobs), route
// records to the sinks, and map outcomes to an exit code.
//
// Exit codes:
//
//	0 = all runs finished (compare: no discrepancy)
//	1 = compare found at least one discrepancy
//	3 = fatal error (a run did not finish)
func runSpecifications(kind output.Kind) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}

	specs, err := state.LoadFile(cfg.Run.Spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}
	applyOverrides(specs)

	sinks, err := buildSinks()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}

	ctx := context.Background()
	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}

	env := environment.NewSubprocess(environment.WithVerbose(cfg.Runtime.Verbose, os.Stderr))
	runCfg := pyre.RunConfig{
		Poll: pyre.PollPolicy{
			Interval:    cfg.Run.PollInterval,
			MaxAttempts: cfg.Run.PollMaxAttempts,
		},
		Progress: progressWriter(),
	}

	records := make([]output.Record, len(specs))
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Runtime.Jobs)
	for i, spec := range specs {
		g.Go(func() error {
			record, err := runOne(runCtx, env, spec, runCfg, kind)
			if err != nil {
				return fmt.Errorf("specification %q: %w", specLabel(spec, i), err)
			}
			record.Name = specLabel(spec, i)
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}

	discrepancies := 0
	for _, record := range records {
		if record.Discrepant {
			discrepancies++
		}
		for _, sink := range sinks {
			if err := sink.Write(record); err != nil {
				fmt.Fprintf(os.Stderr, "Error: writing output: %v\n", err)
				return 3
			}
		}
	}
	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: closing output: %v\n", err)
			return 3
		}
	}

	if kind == output.KindCompare && discrepancies > 0 {
		return 1
	}
	return 0
}

func runOne(ctx context.Context, env environment.Environment, spec pyre.Specification, runCfg pyre.RunConfig, kind output.Kind) (output.Record, error) {
	switch kind {
	case output.KindBenchmark:
		logs, err := pyre.BenchmarkServer(ctx, env, spec, runCfg)
		if err != nil {
			return output.Record{}, err
		}
		return output.Record{Kind: kind, Result: logs.ToJSON()}, nil
	default:
		comparison, err := pyre.CompareServerToFull(ctx, env, spec, runCfg)
		if err != nil {
			return output.Record{}, err
		}
		result, err := comparison.ToJSON(cfg.Output.SuppressDiscrepancy)
		if err != nil {
			return output.Record{}, err
		}
		return output.Record{
			Kind:       kind,
			Discrepant: comparison.Discrepancy != nil,
			Result:     result,
		}, nil
	}
}

func applyOverrides(specs []pyre.Specification) {
	for i := range specs {
		if cfg.Run.Client != "" {
			specs[i].Client = cfg.Run.Client
		}
		if cfg.Run.Binary != "" {
			specs[i].BinaryOverride = cfg.Run.Binary
		}
		if cfg.Run.Typeshed != "" {
			specs[i].TypeshedOverride = cfg.Run.Typeshed
		}
	}
}

func buildSinks() ([]output.Sink, error) {
	var sinks []output.Sink
	if !cfg.Output.NoConsole {
		sinks = append(sinks, output.NewConsoleSink(os.Stdout, cfg.Output.ConsoleFormat))
	}
	if cfg.Output.Out != "" {
		fileSink, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}
	return sinks, nil
}

// progressWriter routes protocol progress lines. They go to stderr only in
// verbose mode: with --jobs > 1 interleaved progress is noise, and stdout
// must stay clean for structured output either way.
func progressWriter() io.Writer {
	if cfg.Runtime.Verbose {
		return os.Stderr
	}
	return nil
}

func specLabel(spec pyre.Specification, index int) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("spec-%d", index)
}
