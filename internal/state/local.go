// Package state implements repository states and update sequences for the
// consistency protocol: where the "old" tree comes from and how it mutates
// into the "new" one.
package state

import (
	"context"
	"fmt"
	"os"

	"pyrediff/internal/environment"
)

// LocalState materializes a sandbox by copying a local directory tree into
// a fresh temporary directory. The copy is disposable; release deletes it.
type LocalState struct {
	Path string
}

func (s LocalState) ActivateSandbox(ctx context.Context, env environment.Environment) (string, func() error, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", nil, fmt.Errorf("local state %q: %w", s.Path, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("local state %q is not a directory", s.Path)
	}

	root, err := os.MkdirTemp("", "pyrediff-sandbox-")
	if err != nil {
		return "", nil, fmt.Errorf("creating sandbox: %w", err)
	}
	if err := os.CopyFS(root, os.DirFS(s.Path)); err != nil {
		_ = os.RemoveAll(root)
		return "", nil, fmt.Errorf("copying %q into sandbox: %w", s.Path, err)
	}
	return root, func() error { return os.RemoveAll(root) }, nil
}
