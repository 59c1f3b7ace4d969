package pyre

import (
	"context"

	"pyrediff/internal/environment"
)

// RepositoryState supplies the "old" side of a run: a sandboxed directory
// tree the checker is pointed at. Implementations live outside this
// package; the protocol only needs activation and guaranteed release.
type RepositoryState interface {
	// ActivateSandbox materializes the state and returns the sandbox root
	// plus a release function. Release must be safe to call exactly once on
	// every exit path, including mid-protocol failures.
	ActivateSandbox(ctx context.Context, env environment.Environment) (root string, release func() error, err error)
}

// UpdateStep is one repository mutation. Steps are applied strictly in
// order; a step may depend on the sandbox state left by its predecessors.
type UpdateStep interface {
	Apply(ctx context.Context, env environment.Environment, workingDirectory string) error
}

// RepositoryUpdate supplies the "new" side of a run as an ordered mutation
// sequence.
type RepositoryUpdate interface {
	UpdateSteps() []UpdateStep
}

// Specification is everything one comparison or benchmark run needs: the
// two repository states and the per-subcommand option lists appended to the
// checker invocations.
type Specification struct {
	// Name labels the run in output; it carries no semantics.
	Name string

	OldState RepositoryState
	NewState RepositoryUpdate

	// Client is the checker executable (default "pyre").
	Client string
	// BinaryOverride and TypeshedOverride, when set, are passed to every
	// invocation as --binary / --typeshed before the subcommand.
	BinaryOverride   string
	TypeshedOverride string

	// Options before ("PyreOptions") and after the respective subcommand.
	CheckPyreOptions       []string
	CheckOptions           []string
	StartPyreOptions       []string
	StartOptions           []string
	IncrementalPyreOptions []string
	IncrementalOptions     []string
}
