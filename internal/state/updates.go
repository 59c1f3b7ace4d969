package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pyrediff/internal/environment"
	"pyrediff/internal/pyre"
)

// FileUpdate is one mutation step: write or overwrite the given files, then
// remove the given paths. Paths are sandbox-relative; escaping the sandbox
// is rejected.
type FileUpdate struct {
	Changes  map[string]string
	Removals []string
}

func (u FileUpdate) UpdateSteps() []pyre.UpdateStep {
	return []pyre.UpdateStep{u}
}

func (u FileUpdate) Apply(ctx context.Context, env environment.Environment, workingDirectory string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for path, contents := range u.Changes {
		target, err := resolveInside(workingDirectory, path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %q: %w", path, err)
		}
		if err := os.WriteFile(target, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("writing %q: %w", path, err)
		}
	}
	for _, path := range u.Removals {
		target, err := resolveInside(workingDirectory, path)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("removing %q: %w", path, err)
		}
	}
	return nil
}

// BatchUpdate groups sub-updates into one ordered sequence; its steps are
// the concatenation of theirs, in order.
type BatchUpdate struct {
	Updates []pyre.RepositoryUpdate
}

func (u BatchUpdate) UpdateSteps() []pyre.UpdateStep {
	var steps []pyre.UpdateStep
	for _, update := range u.Updates {
		steps = append(steps, update.UpdateSteps()...)
	}
	return steps
}

// CommandUpdate mutates the sandbox by running an arbitrary command in it
// through the process gateway (e.g. a VCS checkout).
type CommandUpdate struct {
	Argv []string
	// ExpectedCodes defaults to exit 0 only.
	ExpectedCodes []int
}

func (u CommandUpdate) UpdateSteps() []pyre.UpdateStep {
	return []pyre.UpdateStep{u}
}

func (u CommandUpdate) Apply(ctx context.Context, env environment.Environment, workingDirectory string) error {
	if len(u.Argv) == 0 {
		return fmt.Errorf("command update: empty argv")
	}
	if _, err := env.Run(ctx, workingDirectory, u.Argv, u.ExpectedCodes...); err != nil {
		return fmt.Errorf("command update: %w", err)
	}
	return nil
}

func resolveInside(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path %q must be sandbox-relative", path)
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the sandbox", path)
	}
	return filepath.Join(root, clean), nil
}
