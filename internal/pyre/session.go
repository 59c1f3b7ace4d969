package pyre

import (
	"context"
	"encoding/json"
	"fmt"

	"pyrediff/internal/command"
	"pyrediff/internal/environment"
)

// Session owns one live checker server bound to one sandbox directory.
// It is created after the sandbox is activated and must be stopped before
// the sandbox is released. Methods are strictly sequential; a Session is
// not safe for concurrent use and never needs to be.
type Session struct {
	env     environment.Environment
	builder *command.Builder
	spec    Specification
	workdir string
}

func NewSession(env environment.Environment, spec Specification, workingDirectory string) *Session {
	return &Session{
		env:     env,
		builder: command.NewBuilder(spec.Client, spec.BinaryOverride, spec.TypeshedOverride),
		spec:    spec,
		workdir: workingDirectory,
	}
}

// Start brings the server up and returns its cold-start phase timings.
//
// It issues `restart` rather than `start`: restart kills any stale server
// left over from a previous run and forces the initial full check to finish
// before returning, so every later measurement starts from a settled state.
// Saved-state reuse is disabled and profiling enabled for the same reason.
func (s *Session) Start(ctx context.Context) (ProfileRecord, error) {
	argv := s.builder.Build("restart",
		s.spec.StartPyreOptions,
		[]string{"--no-saved-state", "--enable-profiling"},
		s.spec.StartOptions,
	)
	if _, err := s.env.Run(ctx, s.workdir, argv); err != nil {
		return nil, fmt.Errorf("starting pyre server: %w", err)
	}
	return s.ProfileColdStart(ctx)
}

// Check runs a one-shot full check of the repository from scratch.
func (s *Session) Check(ctx context.Context) ([]Error, error) {
	return s.runCheck(ctx, "check", s.spec.CheckPyreOptions, s.spec.CheckOptions)
}

// Incremental asks the running server to recheck what changed.
func (s *Session) Incremental(ctx context.Context) ([]Error, error) {
	return s.runCheck(ctx, "incremental", s.spec.IncrementalPyreOptions, s.spec.IncrementalOptions)
}

// runCheck issues a checking subcommand with JSON output. Exit 0 means no
// errors, exit 1 means errors were reported on stdout; anything else is
// fatal via the environment's expected-code contract.
func (s *Session) runCheck(ctx context.Context, subcommand string, globalOptions, options []string) ([]Error, error) {
	argv := s.builder.Build(subcommand,
		globalOptions,
		[]string{"--output=json", "--noninteractive"},
		options,
	)
	output, err := s.env.Run(ctx, s.workdir, argv, 0, 1)
	if err != nil {
		return nil, fmt.Errorf("running pyre %s: %w", subcommand, err)
	}
	if output.ReturnCode == 0 {
		return nil, nil
	}
	return parseErrors(output.Stdout)
}

// Stop shuts the server down. Fatal on unexpected exit code.
func (s *Session) Stop(ctx context.Context) error {
	argv := s.builder.Build("stop", nil, nil, nil)
	if _, err := s.env.Run(ctx, s.workdir, argv); err != nil {
		return fmt.Errorf("stopping pyre server: %w", err)
	}
	return nil
}

// ProfileIncrementalUpdates reads the per-update timing log: one record per
// completed incremental update, in completion order.
func (s *Session) ProfileIncrementalUpdates(ctx context.Context) ([]ProfileRecord, error) {
	stdout, err := s.runProfile(ctx, profileIncrementalUpdates)
	if err != nil {
		return nil, err
	}
	var records []ProfileRecord
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid %s profile output: %v", profileIncrementalUpdates, err)}
	}
	return records, nil
}

// ProfileColdStart reads the phase timings of the most recent server start.
func (s *Session) ProfileColdStart(ctx context.Context) (ProfileRecord, error) {
	stdout, err := s.runProfile(ctx, profileColdStartPhases)
	if err != nil {
		return nil, err
	}
	var record ProfileRecord
	if err := json.Unmarshal([]byte(stdout), &record); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid %s profile output: %v", profileColdStartPhases, err)}
	}
	return record, nil
}

func (s *Session) runProfile(ctx context.Context, kind profileKind) (string, error) {
	argv := s.builder.Build("profile", nil, nil, []string{"--output=" + string(kind)})
	output, err := s.env.Run(ctx, s.workdir, argv)
	if err != nil {
		return "", fmt.Errorf("reading %s profile: %w", kind, err)
	}
	return output.Stdout, nil
}
