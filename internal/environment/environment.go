package environment

import (
	"context"
	"fmt"
	"strings"
)

// Output is what a finished command leaves behind: its exit code and
// captured standard output. Standard error is not part of the contract;
// implementations may surface it in error messages.
type Output struct {
	ReturnCode int
	Stdout     string
}

// Environment runs commands inside a working directory and enforces that
// the exit code belongs to an expected set.
//
// Run returns a non-nil error when the process could not be spawned or when
// its exit code is outside expectedCodes; in the latter case the error is an
// *UnexpectedReturnCodeError. An empty expectedCodes means only exit 0 is
// accepted.
type Environment interface {
	Run(ctx context.Context, workingDirectory string, argv []string, expectedCodes ...int) (Output, error)
}

// UnexpectedReturnCodeError reports a process that exited with a code
// outside the caller's expected set. Runs fail fatally on it; there is no
// retry path.
type UnexpectedReturnCodeError struct {
	Argv     []string
	Code     int
	Expected []int
	Stderr   string
}

func (e *UnexpectedReturnCodeError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d (expected %v)", strings.Join(e.Argv, " "), e.Code, e.Expected)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func codeExpected(code int, expected []int) bool {
	if len(expected) == 0 {
		return code == 0
	}
	for _, c := range expected {
		if c == code {
			return true
		}
	}
	return false
}
