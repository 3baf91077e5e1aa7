// Package fsops implements the sandboxed filesystem operations backing the
// file tools. Every call re-validates the sandbox boundary from scratch so a
// later call with a different working directory can never reuse a stale
// boundary.
package fsops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"goa.design/clue/log"
)

// ErrPathTraversal marks a path resolution that escaped the sandbox base
// directory. Callers surface it verbatim in tool envelopes.
var ErrPathTraversal = errors.New("attempted path traversal")

// fixedIgnores are directory and file names skipped by listings regardless of
// .gitignore contents.
var fixedIgnores = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"coverage":     true,
}

// TreeNode is one entry in a directory listing. Directories carry a Children
// slice (possibly empty), files do not.
type TreeNode struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Children []TreeNode `json:"children,omitempty"`
}

// ValidatePath resolves filePath against basePath and verifies the result
// stays inside basePath. It fails closed: any resolution that cannot be
// proven to land inside the base directory is rejected.
func ValidatePath(basePath, filePath string) (string, error) {
	if basePath == "" {
		return "", errors.New("a working directory must be specified")
	}
	base, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %s", basePath)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("invalid base path: %s", basePath)
	}

	target := filePath
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target, err = resolveSymlinks(filepath.Clean(target))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, filePath)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, filePath)
	}
	return target, nil
}

// resolveSymlinks resolves the deepest existing ancestor of path so the
// containment check sees the real filesystem location, not a symlink alias.
// Trailing components that do not exist yet (a file about to be written) are
// re-joined onto the resolved ancestor.
func resolveSymlinks(path string) (string, error) {
	suffix := ""
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Clean(filepath.Join(resolved, suffix)), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(path), suffix)
		path = parent
	}
}

// ReadFile returns the contents of filePath resolved inside basePath.
func ReadFile(basePath, filePath string) (string, error) {
	full, err := ValidatePath(basePath, filePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// WriteFile writes content to filePath resolved inside basePath, creating
// parent directories as needed.
func WriteFile(basePath, filePath, content string) error {
	full, err := ValidatePath(basePath, filePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// ListDirectory returns the recursive tree of path, skipping entries matched
// by the fixed ignore set, hidden files other than .env, log and temp files,
// and any .gitignore found at the listing root.
func ListDirectory(ctx context.Context, path string) ([]TreeNode, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %s", path)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("invalid directory: %s", path)
	}
	spec := loadGitignore(root)
	return listTree(ctx, root, root, spec), nil
}

func listTree(ctx context.Context, root, dir string, spec *gitignore.GitIgnore) []TreeNode {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debugf(ctx, "listing %s: %v", dir, err)
		return []TreeNode{}
	}
	tree := make([]TreeNode, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		if ignored(name, relPath(root, full), entry.IsDir(), spec) {
			continue
		}
		if entry.IsDir() {
			tree = append(tree, TreeNode{
				Name:     name,
				Type:     "directory",
				Children: listTree(ctx, root, full, spec),
			})
		} else if entry.Type().IsRegular() {
			tree = append(tree, TreeNode{Name: name, Type: "file"})
		}
	}
	return tree
}

func ignored(name, rel string, isDir bool, spec *gitignore.GitIgnore) bool {
	if strings.HasPrefix(name, ".") && name != ".env" {
		return true
	}
	if fixedIgnores[name] {
		return true
	}
	for _, suffix := range []string{".log", ".tmp", ".temp"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	if spec != nil {
		if isDir {
			rel += "/"
		}
		if spec.MatchesPath(rel) {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *gitignore.GitIgnore {
	spec, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return spec
}

func relPath(root, full string) string {
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}
