package state

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"pyrediff/internal/environment"
	"pyrediff/internal/pyre"
)

type recordingEnv struct {
	workdirs []string
	argvs    [][]string
}

func (e *recordingEnv) Run(ctx context.Context, workingDirectory string, argv []string, expectedCodes ...int) (environment.Output, error) {
	e.workdirs = append(e.workdirs, workingDirectory)
	e.argvs = append(e.argvs, argv)
	return environment.Output{}, nil
}

func TestFileUpdateApply(t *testing.T) {
	sandbox := t.TempDir()
	if err := os.WriteFile(filepath.Join(sandbox, "old.py"), []byte("gone"), 0o644); err != nil {
		t.Fatal(err)
	}

	update := FileUpdate{
		Changes: map[string]string{
			"a.py":        "x: int = 1\n",
			"pkg/deep.py": "y = 2\n",
		},
		Removals: []string{"old.py", "never-existed.py"},
	}
	if err := update.Apply(context.Background(), nil, sandbox); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(sandbox, "pkg", "deep.py"))
	if err != nil {
		t.Fatalf("nested file not written: %v", err)
	}
	if string(got) != "y = 2\n" {
		t.Fatalf("nested file contents = %q", got)
	}
	if _, err := os.Stat(filepath.Join(sandbox, "old.py")); !os.IsNotExist(err) {
		t.Fatal("old.py should be removed")
	}
}

func TestFileUpdateRejectsEscapingPaths(t *testing.T) {
	tests := []struct {
		name   string
		update FileUpdate
	}{
		{name: "absolute_change", update: FileUpdate{Changes: map[string]string{"/etc/x": ""}}},
		{name: "dotdot_change", update: FileUpdate{Changes: map[string]string{"../x.py": ""}}},
		{name: "dotdot_removal", update: FileUpdate{Removals: []string{"a/../../x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.update.Apply(context.Background(), nil, t.TempDir()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestBatchUpdateFlattensInOrder(t *testing.T) {
	first := FileUpdate{Changes: map[string]string{"a.py": ""}}
	second := CommandUpdate{Argv: []string{"touch", "b.py"}}
	third := FileUpdate{Removals: []string{"a.py"}}
	batch := BatchUpdate{Updates: []pyre.RepositoryUpdate{
		BatchUpdate{Updates: []pyre.RepositoryUpdate{first, second}},
		third,
	}}

	steps := batch.UpdateSteps()
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	if _, ok := steps[0].(FileUpdate); !ok {
		t.Fatalf("step 0 has type %T", steps[0])
	}
	if _, ok := steps[1].(CommandUpdate); !ok {
		t.Fatalf("step 1 has type %T", steps[1])
	}
}

func TestCommandUpdateRunsThroughGateway(t *testing.T) {
	env := &recordingEnv{}
	update := CommandUpdate{Argv: []string{"hg", "update", "abc"}}

	if err := update.Apply(context.Background(), env, "/sandbox"); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if len(env.argvs) != 1 || !slices.Equal(env.argvs[0], update.Argv) {
		t.Fatalf("gateway calls = %v", env.argvs)
	}
	if env.workdirs[0] != "/sandbox" {
		t.Fatalf("command ran in %q, want /sandbox", env.workdirs[0])
	}
}
