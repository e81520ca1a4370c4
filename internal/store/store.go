// Package store reads the on-disk rule and snippet collections.
//
// Layout under the root directory:
//
//	rules/<name>.txt                        rule text
//	rules/<name>.yaml                       optional rule metadata
//	snippets/<language>/<category>/<name>.txt
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	rulesDir    = "rules"
	snippetsDir = "snippets"
	textExt     = ".txt"
	metaExt     = ".yaml"
)

// ErrNotFound is returned when a rule, snippet or language does not exist.
var ErrNotFound = errors.New("not found")

// RuleMeta is the optional sidecar describing a rule.
type RuleMeta struct {
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires"`  // e.g. [username, database]
	Databases   []string `yaml:"databases"` // supported database options
}

// Category groups the snippet names of one category directory.
type Category struct {
	Name     string
	Snippets []string
}

// Store resolves rule and snippet files relative to a root directory.
type Store struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Store {
	if root == "" {
		root = "."
	}
	return &Store{root: root, logger: logger}
}

func (s *Store) Root() string { return s.root }

// ReadRule returns the contents of rules/<name>.txt.
func (s *Store) ReadRule(name string) (string, error) {
	if !safeRelative(name) {
		return "", fmt.Errorf("rule %q: %w", name, ErrNotFound)
	}
	return s.readText(filepath.Join(s.root, rulesDir, name+textExt))
}

// ReadSnippet returns the contents of snippets/<path>.txt, where path is
// "language/category/name".
func (s *Store) ReadSnippet(path string) (string, error) {
	if !safeRelative(path) {
		return "", fmt.Errorf("snippet %q: %w", path, ErrNotFound)
	}
	return s.readText(filepath.Join(s.root, snippetsDir, filepath.FromSlash(path)+textExt))
}

func (s *Store) readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// ListRules returns the sorted stems of every rules/*.txt file. A missing
// rules directory yields an empty list.
func (s *Store) ListRules() ([]string, error) {
	names, err := stems(filepath.Join(s.root, rulesDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return names, err
}

// ListSnippets returns the categories of a language that hold at least one
// snippet, sorted by name. ErrNotFound is returned when the language directory
// is missing or holds no snippets.
func (s *Store) ListSnippets(language string) ([]Category, error) {
	if !safeRelative(language) || strings.Contains(language, "/") {
		return nil, fmt.Errorf("language %q: %w", language, ErrNotFound)
	}
	langDir := filepath.Join(s.root, snippetsDir, language)
	entries, err := os.ReadDir(langDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("language %q: %w", language, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", langDir, err)
	}

	var cats []Category
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names, err := stems(filepath.Join(langDir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping snippet category", "dir", e.Name(), "err", err)
			continue
		}
		if len(names) == 0 {
			continue
		}
		cats = append(cats, Category{Name: e.Name(), Snippets: names})
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("language %q: %w", language, ErrNotFound)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

// RuleMeta loads rules/<name>.yaml. It returns ErrNotFound when the sidecar
// does not exist.
func (s *Store) RuleMeta(name string) (*RuleMeta, error) {
	if !safeRelative(name) {
		return nil, fmt.Errorf("rule %q: %w", name, ErrNotFound)
	}
	path := filepath.Join(s.root, rulesDir, name+metaExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var meta RuleMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &meta, nil
}

func stems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != textExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), textExt))
	}
	sort.Strings(names)
	return names, nil
}

// safeRelative rejects empty, absolute and parent-escaping names.
func safeRelative(name string) bool {
	if strings.TrimSpace(name) == "" || filepath.IsAbs(name) {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	return clean != ".." && !strings.HasPrefix(clean, ".."+string(filepath.Separator))
}
