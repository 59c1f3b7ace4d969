package pyre

import (
	"context"
	"fmt"
	"io"
	"time"

	"pyrediff/internal/environment"
)

// RunConfig carries the knobs shared by both protocol entry points.
type RunConfig struct {
	Poll PollPolicy
	// Progress receives human-readable protocol progress lines; nil
	// discards them. Structured results never go here.
	Progress io.Writer
}

func (c RunConfig) logf(format string, args ...any) {
	if c.Progress != nil {
		_, _ = fmt.Fprintf(c.Progress, format+"\n", args...)
	}
}

// incrementalPhase is the shared body of both entry points: start the
// server, drive all update steps, run the incremental check, stop the
// server.
type incrementalPhase struct {
	profileLogs ProfileLogs
	errors      []Error
}

func runIncrementalPhase(ctx context.Context, session *Session, cfg RunConfig) (incrementalPhase, error) {
	cfg.logf("Starting pyre server...")
	coldStartLog, err := session.Start(ctx)
	if err != nil {
		return incrementalPhase{}, err
	}

	cfg.logf("Applying repository updates...")
	driver := NewUpdateDriver(session, cfg.Poll)
	updateLogs, err := driver.Drive(ctx, session.spec.NewState.UpdateSteps())
	if err != nil {
		return incrementalPhase{}, err
	}

	cfg.logf("Running pyre incremental check...")
	incrementalErrors, err := session.Incremental(ctx)
	if err != nil {
		return incrementalPhase{}, err
	}
	if err := session.Stop(ctx); err != nil {
		return incrementalPhase{}, err
	}
	cfg.logf("Pyre incremental check finished with %d errors.", len(incrementalErrors))

	return incrementalPhase{
		profileLogs: ProfileLogs{IncrementalUpdateLogs: updateLogs, ColdStartLog: coldStartLog},
		errors:      incrementalErrors,
	}, nil
}

// withSession activates the old-state sandbox, hands a session bound to it
// to fn, and releases the sandbox on every exit path.
func withSession(ctx context.Context, env environment.Environment, spec Specification, cfg RunConfig, fn func(*Session) error) (err error) {
	cfg.logf("Preparing base repository state...")
	root, release, err := spec.OldState.ActivateSandbox(ctx, env)
	if err != nil {
		return fmt.Errorf("activating sandbox: %w", err)
	}
	defer func() {
		if releaseErr := release(); releaseErr != nil && err == nil {
			err = fmt.Errorf("releasing sandbox: %w", releaseErr)
		}
	}()
	return fn(NewSession(env, spec, root))
}

// CompareServerToFull runs the full consistency protocol: incremental phase
// against the mutated sandbox, then a timed from-scratch check of the same
// final state, then an exact diff of the two error sequences.
func CompareServerToFull(ctx context.Context, env environment.Environment, spec Specification, cfg RunConfig) (ResultComparison, error) {
	var result ResultComparison
	err := withSession(ctx, env, spec, cfg, func(session *Session) error {
		phase, err := runIncrementalPhase(ctx, session, cfg)
		if err != nil {
			return err
		}

		cfg.logf("Running pyre full check...")
		start := time.Now()
		fullErrors, err := session.Check(ctx)
		if err != nil {
			return err
		}
		fullCheckTime := int(time.Since(start).Milliseconds())
		cfg.logf("Pyre full check finished with %d errors.", len(fullErrors))

		var discrepancy *InconsistentOutput
		if !equalErrors(phase.errors, fullErrors) {
			discrepancy = &InconsistentOutput{
				FullCheckOutput:        fullErrors,
				IncrementalCheckOutput: phase.errors,
			}
		}
		result = ResultComparison{
			Discrepancy:     discrepancy,
			FullCheckTimeMS: fullCheckTime,
			ProfileLogs:     phase.profileLogs,
		}
		return nil
	})
	if err != nil {
		return ResultComparison{}, err
	}
	return result, nil
}

// BenchmarkServer runs only the incremental phase and returns its timing
// telemetry. Used when update latency, not correctness, is the question.
func BenchmarkServer(ctx context.Context, env environment.Environment, spec Specification, cfg RunConfig) (ProfileLogs, error) {
	var logs ProfileLogs
	err := withSession(ctx, env, spec, cfg, func(session *Session) error {
		phase, err := runIncrementalPhase(ctx, session, cfg)
		if err != nil {
			return err
		}
		logs = phase.profileLogs
		return nil
	})
	if err != nil {
		return ProfileLogs{}, err
	}
	return logs, nil
}
