package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spoj/mq-mcp/internal/qerr"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	rel, abs, err := Resolve(root, "sub/a.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rel != "sub/a.txt" {
		t.Errorf("rel = %q, want %q", rel, "sub/a.txt")
	}
	if _, err := os.Stat(abs); err != nil {
		t.Errorf("abs path %q not readable: %v", abs, err)
	}
}

func TestResolveNonexistentStillResolves(t *testing.T) {
	root := t.TempDir()

	// Missing files resolve fine; reading them fails later at dispatch.
	rel, _, err := Resolve(root, "no/such/file.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rel != "no/such/file.txt" {
		t.Errorf("rel = %q, want %q", rel, "no/such/file.txt")
	}
}

func TestResolveRejectsEscapes(t *testing.T) {
	root := t.TempDir()

	tests := []string{
		"../outside.txt",
		"sub/../../outside.txt",
		"/etc/passwd",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Resolve(root, name)
			if err == nil {
				t.Fatalf("Resolve(%q) should fail", name)
			}
			var qe *qerr.QueryError
			if !errors.As(err, &qe) || qe.Code != qerr.PathEscapesRoot {
				t.Errorf("Resolve(%q) error = %v, want PATH_ESCAPES_ROOT", name, err)
			}
		})
	}
}

func TestResolveRejectsSymlinkOut(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("s"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, _, err := Resolve(root, "link.txt")
	if err == nil {
		t.Fatal("Resolve should reject a symlink pointing outside the root")
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRoot(filepath.Join(root, "a", "b.txt"), root) {
		t.Error("path under root should be within root")
	}
	if IsWithinRoot(filepath.Join(root, ".."), root) {
		t.Error("parent of root should not be within root")
	}
}

func TestCanonicalizePathSlashes(t *testing.T) {
	root := t.TempDir()
	got, err := CanonicalizePath(filepath.Join(root, "a", "b", "c.txt"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "a/b/c.txt" {
		t.Errorf("CanonicalizePath = %q, want %q", got, "a/b/c.txt")
	}
}
