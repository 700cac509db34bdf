// Package fsutil provides file system utility functions, chiefly the lookup
// of installed packages across an ordered list of install prefixes.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPackageNotFound is returned when no prefix contains the package.
var ErrPackageNotFound = errors.New("package not found")

// PrefixPath is an ordered list of install prefixes. A package "pkg" is
// installed under a prefix when <prefix>/share/<pkg> exists; its executables
// live in <prefix>/lib/<pkg>.
type PrefixPath []string

// ParsePrefixPath splits a list-separated string (":" on unix) into a
// PrefixPath, dropping empty entries.
func ParsePrefixPath(raw string) PrefixPath {
	var out PrefixPath
	for _, p := range filepath.SplitList(raw) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Prefix returns the first prefix that contains the package.
func (pp PrefixPath) Prefix(pkg string) (string, error) {
	if pkg == "" || strings.ContainsRune(pkg, filepath.Separator) {
		return "", fmt.Errorf("invalid package name %q", pkg)
	}
	for _, prefix := range pp {
		info, err := os.Stat(filepath.Join(prefix, "share", pkg))
		if err == nil && info.IsDir() {
			return prefix, nil
		}
	}
	return "", fmt.Errorf("%w: %q (searched %d prefixes)", ErrPackageNotFound, pkg, len(pp))
}

// Share returns <prefix>/share/<pkg> for the first prefix containing pkg.
func (pp PrefixPath) Share(pkg string) (string, error) {
	prefix, err := pp.Prefix(pkg)
	if err != nil {
		return "", err
	}
	return filepath.Join(prefix, "share", pkg), nil
}

// Executable returns the path of an executable installed by pkg. The file
// must exist and be executable.
func (pp PrefixPath) Executable(pkg, name string) (string, error) {
	prefix, err := pp.Prefix(pkg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(prefix, "lib", pkg, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("executable %q of package %q: %w", name, pkg, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("executable %q of package %q is not executable: %s", name, pkg, path)
	}
	return path, nil
}
