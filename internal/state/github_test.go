package state

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func buildArchive(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, contents := range entries {
		var header *tar.Header
		if contents == "" && name[len(name)-1] == '/' {
			header = &tar.Header{Name: name, Typeflag: tar.TypeDir, Mode: 0o755}
		} else {
			header = &tar.Header{Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(contents))}
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatal(err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(contents)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestUntarIntoStripsTopLevelDirectory(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"acme-widgets-abc123/":            "",
		"acme-widgets-abc123/a.py":        "x = 1\n",
		"acme-widgets-abc123/pkg/":        "",
		"acme-widgets-abc123/pkg/deep.py": "y = 2\n",
	})

	root := t.TempDir()
	if err := untarInto(root, archive); err != nil {
		t.Fatalf("untarInto returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "a.py"))
	if err != nil {
		t.Fatalf("top-level file missing: %v", err)
	}
	if string(got) != "x = 1\n" {
		t.Fatalf("contents = %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "pkg", "deep.py")); err != nil {
		t.Fatalf("nested file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "acme-widgets-abc123")); !os.IsNotExist(err) {
		t.Fatal("archive prefix directory should be stripped")
	}
}

func TestUntarIntoRejectsTraversal(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"prefix/../../escape": "boom",
	})
	if err := untarInto(t.TempDir(), archive); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestStripTopLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "acme-widgets-abc/a.py", want: "a.py"},
		{input: "acme-widgets-abc/", want: ""},
		{input: "./acme-widgets-abc/b/c.py", want: "b/c.py"},
		{input: "toplevel", want: ""},
	}
	for _, tt := range tests {
		if got := stripTopLevel(tt.input); got != tt.want {
			t.Errorf("stripTopLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGitHubStateRequiresOwnerAndRepository(t *testing.T) {
	_, _, err := GitHubState{}.ActivateSandbox(t.Context(), nil)
	if err == nil {
		t.Fatal("expected error for missing owner/repository")
	}
}
