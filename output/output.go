// Package output allocates file paths for newly produced documents.
//
// Paths have the form <dir>/<base>_<tag>_<yyyyMMdd_HHmmss>.pdf. Two
// allocations for the same base and tag within one second return the same
// path; the later write replaces the earlier file.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lvillar/pagekit"
)

// TimestampLayout is the time format embedded in output names.
const TimestampLayout = "20060102_150405"

// Allocator builds output paths.
type Allocator struct {
	Dirs pagekit.DirectoryProvider // nil means SourceDir
	Now  func() time.Time          // nil means time.Now
}

// Allocate returns the output path for a document derived from sourcePath.
// The target directory is created if needed.
func (a Allocator) Allocate(sourcePath, tag string) (string, error) {
	return a.allocate(sourcePath, BaseName(sourcePath), tag)
}

// AllocateNamed returns an output path for an explicitly named document,
// as produced by merging. The directory provider receives base.
func (a Allocator) AllocateNamed(base, tag string) (string, error) {
	return a.allocate(base, BaseName(base), tag)
}

func (a Allocator) allocate(key, base, tag string) (string, error) {
	dirs := a.Dirs
	if dirs == nil {
		dirs = SourceDir{}
	}
	dir, err := dirs.OutputDir(key)
	if err != nil {
		return "", fmt.Errorf("output: resolving directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: creating %s: %w", dir, err)
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	name := fmt.Sprintf("%s_%s_%s.pdf", base, tag, now().Format(TimestampLayout))
	return filepath.Join(dir, name), nil
}

// BaseName returns the file name of path without a trailing ".pdf"
// extension, compared case-insensitively.
func BaseName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return base
}

// SourceDir places outputs next to their source document.
type SourceDir struct{}

// OutputDir implements pagekit.DirectoryProvider.
func (SourceDir) OutputDir(sourcePath string) (string, error) {
	dir := filepath.Dir(sourcePath)
	if dir == "" {
		dir = "."
	}
	return dir, nil
}

// Dir places every output in one fixed directory.
type Dir string

// OutputDir implements pagekit.DirectoryProvider.
func (d Dir) OutputDir(string) (string, error) {
	if d == "" {
		return "", fmt.Errorf("output: empty directory")
	}
	return string(d), nil
}

// DocumentsDir places outputs in the user's Documents folder.
type DocumentsDir struct{}

// OutputDir implements pagekit.DirectoryProvider.
func (DocumentsDir) OutputDir(string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents"), nil
}
