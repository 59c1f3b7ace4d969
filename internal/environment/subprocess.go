package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// Subprocess is the real Environment: it spawns one process per Run call
// and blocks until it exits. Calls are synchronous; the caller decides
// sequencing.
type Subprocess struct {
	verbose bool
	// writer receives verbose command logs (typically stderr) so structured
	// output on stdout stays clean and tests can capture logs.
	writer io.Writer
}

type Option func(*Subprocess)

func WithVerbose(enabled bool, writer io.Writer) Option {
	return func(s *Subprocess) {
		s.verbose = enabled
		s.writer = writer
	}
}

func NewSubprocess(opts ...Option) *Subprocess {
	s := &Subprocess{}
	for _, apply := range opts {
		if apply != nil {
			apply(s)
		}
	}
	if s.verbose && s.writer == nil {
		s.writer = os.Stderr
	}
	return s
}

func (s *Subprocess) Run(ctx context.Context, workingDirectory string, argv []string, expectedCodes ...int) (Output, error) {
	if ctx == nil {
		return Output{}, errors.New("subprocess: ctx is nil")
	}
	if len(argv) == 0 {
		return Output{}, errors.New("subprocess: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workingDirectory

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	s.logf("[verbose] run: %v (in %s)", argv, workingDirectory)

	err := cmd.Run()
	dur := time.Since(start).Truncate(time.Millisecond)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		// exit 0
	case errors.As(err, &exitErr):
		// Non-zero exit; expectedness is decided below.
	default:
		s.logf("[verbose] run: spawn error after %s: %v", dur, err)
		return Output{}, fmt.Errorf("subprocess: failed to run %q: %w", argv[0], err)
	}

	code := cmd.ProcessState.ExitCode()
	s.logf("[verbose] run: exit %d (%s)", code, dur)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Output{}, fmt.Errorf("subprocess: %q interrupted: %w", argv[0], ctxErr)
	}
	if !codeExpected(code, expectedCodes) {
		return Output{}, &UnexpectedReturnCodeError{
			Argv:     argv,
			Code:     code,
			Expected: normalizeExpected(expectedCodes),
			Stderr:   stderr.String(),
		}
	}
	return Output{ReturnCode: code, Stdout: stdout.String()}, nil
}

func (s *Subprocess) logf(format string, args ...any) {
	if s.writer != nil {
		_, _ = fmt.Fprintf(s.writer, format+"\n", args...)
	}
}

func normalizeExpected(expected []int) []int {
	if len(expected) == 0 {
		return []int{0}
	}
	return expected
}
