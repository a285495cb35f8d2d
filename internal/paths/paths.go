// Package paths resolves request paths against the served root and
// detects attempts to escape it.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spoj/mq-mcp/internal/qerr"
)

// CanonicalizePath converts a path to a root-relative canonical path
// - Resolves symlinks to real paths
// - Makes path relative to the served root
// - Converts backslashes to forward slashes
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path is within the served root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}

	// Path is outside the root if it starts with ..
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinRootPath joins the served root with a canonical relative path
func JoinRootPath(root string, canonicalPath string) string {
	normalized := strings.ReplaceAll(canonicalPath, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}

// Resolve resolves a caller-supplied name against the root. Returns the
// canonical relative path and the absolute path for reading. Absolute
// inputs and inputs that traverse outside the root are rejected with a
// PATH_ESCAPES_ROOT error.
func Resolve(root string, name string) (rel string, abs string, err error) {
	if filepath.IsAbs(name) {
		return "", "", qerr.Newf(qerr.PathEscapesRoot, "absolute path %q not allowed", name)
	}

	abs = JoinRootPath(root, name)
	if !IsWithinRoot(abs, root) {
		return "", "", qerr.Newf(qerr.PathEscapesRoot, "path %q escapes the served root", name)
	}

	rel, cerr := CanonicalizePath(abs, root)
	if cerr != nil {
		return "", "", qerr.New(qerr.PathEscapesRoot, "cannot canonicalize "+name, cerr)
	}
	return rel, abs, nil
}
