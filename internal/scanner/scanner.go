// Package scanner renders a directory as an indented tree listing.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileIcon = "📄 "
	dirIcon  = "📁 "
	indent   = "  "
	header   = "Project Structure:\n"
)

// ErrNotFound is returned when the directory to scan does not exist.
var ErrNotFound = errors.New("directory not found")

// Skip reports whether an entry is left out of the listing: dot-entries and
// Python bytecode caches.
func Skip(name string) bool {
	return strings.HasPrefix(name, ".") || name == "__pycache__"
}

// Lines walks dir depth-first in name order and returns one line per entry.
// Files are listed as "<prefix>📄 name", directories as "<prefix>📁 name/"
// followed by their children with two more spaces of prefix.
func Lines(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, err
	}
	return walk(dir, "")
}

func walk(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if Skip(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Stat follows symlinks; dangling links are neither file nor dir.
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			out = append(out, prefix+fileIcon+e.Name())
		case info.IsDir():
			out = append(out, prefix+dirIcon+e.Name()+"/")
			children, err := walk(path, prefix+indent)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
		}
	}
	return out, nil
}

// Render returns "Project Structure:\n" followed by the tree lines.
func Render(dir string) (string, error) {
	lines, err := Lines(dir)
	if err != nil {
		return "", err
	}
	return header + strings.Join(lines, "\n"), nil
}
