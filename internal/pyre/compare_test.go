package pyre

import (
	"context"
	"slices"
	"strings"
	"testing"

	"pyrediff/internal/environment"
)

type fakeState struct {
	root     string
	released *bool
}

func (s fakeState) ActivateSandbox(ctx context.Context, env environment.Environment) (string, func() error, error) {
	return s.root, func() error {
		*s.released = true
		return nil
	}, nil
}

type fakeUpdate struct {
	steps []UpdateStep
}

func (u fakeUpdate) UpdateSteps() []UpdateStep { return u.steps }

type countingStep struct {
	applied *int
}

func (s countingStep) Apply(ctx context.Context, env environment.Environment, workingDirectory string) error {
	*s.applied++
	return nil
}

// protocolEnv scripts a whole run: the incremental_updates profile log
// grows with each applied step, simulating a server that settles instantly.
func protocolEnv(applied *int, incrementalOut, fullOut fakeResponse) *fakeEnv {
	env := &fakeEnv{responses: map[string]fakeResponse{
		"restart":                            {code: 0},
		"profile --output=cold_start_phases": {code: 0, stdout: `{"total": 500}`},
		"incremental":                        incrementalOut,
		"stop":                               {code: 0},
		"check":                              fullOut,
	}}
	env.hook = func(key string) (fakeResponse, bool) {
		if key != "profile --output=incremental_updates" {
			return fakeResponse{}, false
		}
		entries := make([]string, *applied)
		for i := range entries {
			entries[i] = `{"total": 10}`
		}
		return fakeResponse{code: 0, stdout: "[" + strings.Join(entries, ",") + "]"}, true
	}
	return env
}

func protocolSpec(t *testing.T, steps int, applied *int, released *bool) Specification {
	t.Helper()
	update := fakeUpdate{}
	for range steps {
		update.steps = append(update.steps, countingStep{applied})
	}
	spec := testSpec()
	spec.OldState = fakeState{root: t.TempDir(), released: released}
	spec.NewState = update
	return spec
}

func TestCompareServerToFull_Consistent(t *testing.T) {
	applied := 0
	released := false
	errorsJSON := `[{"line": 1, "column": 2, "path": "a.py", "description": "x"}]`
	env := protocolEnv(&applied,
		fakeResponse{code: 1, stdout: errorsJSON},
		fakeResponse{code: 1, stdout: errorsJSON},
	)
	spec := protocolSpec(t, 2, &applied, &released)

	comparison, err := CompareServerToFull(context.Background(), env, spec, RunConfig{})
	if err != nil {
		t.Fatalf("CompareServerToFull returned error: %v", err)
	}
	if comparison.Discrepancy != nil {
		t.Fatalf("expected no discrepancy, got %+v", comparison.Discrepancy)
	}
	if applied != 2 {
		t.Fatalf("applied %d steps, want 2", applied)
	}
	if !released {
		t.Fatal("sandbox was not released")
	}
	if len(comparison.ProfileLogs.IncrementalUpdateLogs) != 2 {
		t.Fatalf("update logs = %v, want 2 records", comparison.ProfileLogs.IncrementalUpdateLogs)
	}
	if comparison.ProfileLogs.ColdStartLog["total"] != 500 {
		t.Fatalf("cold start log = %v", comparison.ProfileLogs.ColdStartLog)
	}
	if comparison.FullCheckTimeMS < 0 {
		t.Fatalf("negative full check time %d", comparison.FullCheckTimeMS)
	}

	// The protocol must run strictly in order: start, per-step profile
	// polls, incremental, stop, and only then the full check.
	subcommands := env.subcommands()
	want := []string{
		"restart",
		"profile --output=cold_start_phases",
		"profile --output=incremental_updates",
		"profile --output=incremental_updates",
		"incremental",
		"stop",
		"check",
	}
	if !slices.Equal(subcommands, want) {
		t.Fatalf("protocol order mismatch:\n got %v\nwant %v", subcommands, want)
	}
}

func TestCompareServerToFull_Discrepancy(t *testing.T) {
	applied := 0
	released := false
	incremental := `[{"line": 1, "column": 2, "path": "a.py", "description": "incremental only"}]`
	env := protocolEnv(&applied,
		fakeResponse{code: 1, stdout: incremental},
		fakeResponse{code: 0},
	)
	spec := protocolSpec(t, 1, &applied, &released)

	comparison, err := CompareServerToFull(context.Background(), env, spec, RunConfig{})
	if err != nil {
		t.Fatalf("CompareServerToFull returned error: %v", err)
	}
	if comparison.Discrepancy == nil {
		t.Fatal("expected a discrepancy")
	}
	if len(comparison.Discrepancy.FullCheckOutput) != 0 {
		t.Fatalf("full output = %v, want empty", comparison.Discrepancy.FullCheckOutput)
	}
	wantIncremental := Error{Line: 1, Column: 2, Path: "a.py", Description: "incremental only"}
	if len(comparison.Discrepancy.IncrementalCheckOutput) != 1 || comparison.Discrepancy.IncrementalCheckOutput[0] != wantIncremental {
		t.Fatalf("incremental output = %v", comparison.Discrepancy.IncrementalCheckOutput)
	}
	if !released {
		t.Fatal("sandbox was not released")
	}
}

func TestCompareServerToFull_ReleasesSandboxOnFailure(t *testing.T) {
	applied := 0
	released := false
	env := protocolEnv(&applied, fakeResponse{code: 0}, fakeResponse{code: 0})
	env.responses["restart"] = fakeResponse{code: 7}
	spec := protocolSpec(t, 1, &applied, &released)

	_, err := CompareServerToFull(context.Background(), env, spec, RunConfig{})
	if err == nil {
		t.Fatal("expected start failure")
	}
	if !released {
		t.Fatal("sandbox must be released on every exit path")
	}
	if applied != 0 {
		t.Fatalf("no steps should apply after a failed start, applied %d", applied)
	}
}

func TestBenchmarkServer_SkipsFullCheck(t *testing.T) {
	applied := 0
	released := false
	env := protocolEnv(&applied, fakeResponse{code: 0}, fakeResponse{code: 0})
	spec := protocolSpec(t, 3, &applied, &released)

	logs, err := BenchmarkServer(context.Background(), env, spec, RunConfig{})
	if err != nil {
		t.Fatalf("BenchmarkServer returned error: %v", err)
	}
	if len(logs.IncrementalUpdateLogs) != 3 {
		t.Fatalf("update logs = %v, want 3 records", logs.IncrementalUpdateLogs)
	}
	for _, argv := range env.calls {
		if responseKey(argv) == "check" {
			t.Fatal("benchmark must not run a full check")
		}
	}
	if !released {
		t.Fatal("sandbox was not released")
	}
}

func TestCompareServerToFull_ProgressLines(t *testing.T) {
	applied := 0
	released := false
	env := protocolEnv(&applied, fakeResponse{code: 0}, fakeResponse{code: 0})
	spec := protocolSpec(t, 1, &applied, &released)

	var progress strings.Builder
	if _, err := CompareServerToFull(context.Background(), env, spec, RunConfig{Progress: &progress}); err != nil {
		t.Fatalf("CompareServerToFull returned error: %v", err)
	}
	for _, want := range []string{"incremental check", "full check"} {
		if !strings.Contains(progress.String(), want) {
			t.Fatalf("progress output missing %q:\n%s", want, progress.String())
		}
	}
}
