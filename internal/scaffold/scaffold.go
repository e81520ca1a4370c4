// Package scaffold implements the project-creation and snippet-application
// delegates behind the create_project and apply_snippet tools.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"scaffai/internal/domain"
	"scaffai/internal/store"
)

// Source is the subset of the store the scaffolder reads from.
type Source interface {
	ReadRule(name string) (string, error)
	ReadSnippet(path string) (string, error)
}

// Scaffolder writes projects and snippets to disk.
type Scaffolder struct {
	src    Source
	logger *slog.Logger
	now    func() time.Time
}

func New(src Source, logger *slog.Logger) *Scaffolder {
	return &Scaffolder{src: src, logger: logger, now: time.Now}
}

var (
	_ domain.ProjectCreator = (*Scaffolder)(nil)
	_ domain.SnippetApplier = (*Scaffolder)(nil)
)

// CreateProject makes <output_dir>/<name>/ containing the rule text of the
// chosen template and a manifest. The target directory must not exist yet.
func (s *Scaffolder) CreateProject(ctx context.Context, req domain.ProjectRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(req.Name, `/\`) || req.Name == "." || req.Name == ".." {
		return fmt.Errorf("invalid project name %q", req.Name)
	}

	rule, err := s.src.ReadRule(req.Template)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("template '%s' not found", req.Template)
		}
		return err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	dir := filepath.Join(outputDir, req.Name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory '%s' already exists", dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "RULES.md"), []byte(rule), 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme(req)), 0o644); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}

	m := &Manifest{
		Name:      req.Name,
		Template:  req.Template,
		Username:  req.Username,
		Database:  req.DB,
		CreatedAt: s.now().UTC(),
	}
	if err := saveManifest(dir, m); err != nil {
		return err
	}

	s.logger.Info("project created", "name", req.Name, "template", req.Template, "dir", dir)
	return nil
}

func readme(req domain.ProjectRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\nGenerated from the %s template.\n", req.Name, req.Template)
	if req.Username != "" {
		fmt.Fprintf(&sb, "\nRepository: github.com/%s/%s\n", req.Username, req.Name)
	}
	if req.DB != "" {
		fmt.Fprintf(&sb, "\nDatabase: %s\n", req.DB)
	}
	return sb.String()
}

// ApplySnippet copies a stored snippet into projectDir and records it in the
// project manifest. The snippet may be given as "category/name" relative to
// the template, or as a full "language/category/name" path.
func (s *Scaffolder) ApplySnippet(ctx context.Context, req domain.SnippetRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(req.ProjectDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("project directory '%s' not found", req.ProjectDir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("'%s' is not a directory", req.ProjectDir)
	}

	snippetPath, err := resolveSnippet(req.Template, req.Snippet)
	if err != nil {
		return err
	}
	body, err := s.src.ReadSnippet(snippetPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("snippet '%s' not found", snippetPath)
		}
		return err
	}

	rel := targetFile(req.Template, snippetPath)
	target := filepath.Join(req.ProjectDir, rel)
	if !within(req.ProjectDir, target) {
		return fmt.Errorf("snippet '%s' resolves outside the project directory", req.Snippet)
	}
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("file '%s' already exists", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write snippet: %w", err)
	}

	m, err := LoadManifest(req.ProjectDir)
	if err != nil {
		return err
	}
	if m == nil {
		m = &Manifest{
			Name:      filepath.Base(filepath.Clean(req.ProjectDir)),
			Template:  req.Template,
			CreatedAt: s.now().UTC(),
		}
	}
	m.Snippets = append(m.Snippets, AppliedSnippet{
		Snippet:   snippetPath,
		File:      filepath.ToSlash(rel),
		AppliedAt: s.now().UTC(),
	})
	if err := saveManifest(req.ProjectDir, m); err != nil {
		return err
	}

	s.logger.Info("snippet applied", "snippet", snippetPath, "file", target)
	return nil
}

// resolveSnippet returns the cleaned "language/category/name" path of a
// snippet. Parent references are refused outright.
func resolveSnippet(template, snippet string) (string, error) {
	snippet = strings.Trim(filepath.ToSlash(snippet), "/")
	for _, seg := range strings.Split(snippet, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid snippet path '%s'", snippet)
		}
	}
	snippet = path.Clean(snippet)
	if snippet == "." {
		return "", fmt.Errorf("invalid snippet path '%s'", snippet)
	}
	if template == "" || strings.HasPrefix(snippet, template+"/") {
		return snippet, nil
	}
	return path.Join(template, snippet), nil
}

// within reports whether target lies strictly inside dir.
func within(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

var extensions = map[string]string{
	"python":     ".py",
	"golang":     ".go",
	"go":         ".go",
	"javascript": ".js",
	"node":       ".js",
	"typescript": ".ts",
	"rust":       ".rs",
	"java":       ".java",
	"ruby":       ".rb",
}

// targetFile maps "language/category/name" to "category/name<ext>".
func targetFile(template, snippetPath string) string {
	rel := snippetPath
	if i := strings.Index(rel, "/"); i >= 0 {
		rel = rel[i+1:]
	}
	ext, ok := extensions[strings.ToLower(template)]
	if !ok {
		ext = ".txt"
	}
	return filepath.FromSlash(path.Clean(rel) + ext)
}
