package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scaffai/internal/domain"
	"scaffai/internal/scanner"
	"scaffai/internal/store"
)

// Library is the read side of the rule and snippet collections.
type Library interface {
	ReadRule(name string) (string, error)
	ReadSnippet(path string) (string, error)
	ListRules() ([]string, error)
	ListSnippets(language string) ([]store.Category, error)
}

// --- read_rule ---

type ReadRuleTool struct{ lib Library }

func NewReadRuleTool(lib Library) *ReadRuleTool { return &ReadRuleTool{lib: lib} }

func (t *ReadRuleTool) Name() string { return "read_rule" }

func (t *ReadRuleTool) Description() string {
	return "Read a project rule template. Input should be the rule name (e.g., 'python', 'golang')"
}

func (t *ReadRuleTool) Parameters() map[string]any {
	return InputParameters("Rule name, e.g. 'python' or 'golang'", true)
}

func (t *ReadRuleTool) Execute(_ context.Context, input string) domain.ToolResult {
	name := strings.TrimSpace(input)
	text, err := t.lib.ReadRule(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Fail(domain.ResultNotFound, fmt.Sprintf("Rule '%s' not found", name), err)
		}
		return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to read rule '%s': %s", name, err), err)
	}
	return domain.OK(text)
}

// --- read_snippet ---

type ReadSnippetTool struct{ lib Library }

func NewReadSnippetTool(lib Library) *ReadSnippetTool { return &ReadSnippetTool{lib: lib} }

func (t *ReadSnippetTool) Name() string { return "read_snippet" }

func (t *ReadSnippetTool) Description() string {
	return "Read a code snippet. Input should be 'language/category/name' (e.g., 'golang/auth/jwt')"
}

func (t *ReadSnippetTool) Parameters() map[string]any {
	return InputParameters("Snippet path as language/category/name, e.g. 'golang/auth/jwt'", true)
}

func (t *ReadSnippetTool) Execute(_ context.Context, input string) domain.ToolResult {
	path := strings.TrimSpace(input)
	text, err := t.lib.ReadSnippet(path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Fail(domain.ResultNotFound, fmt.Sprintf("Snippet '%s' not found", path), err)
		}
		return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to read snippet '%s': %s", path, err), err)
	}
	return domain.OK(text)
}

// --- list_rules ---

type ListRulesTool struct{ lib Library }

func NewListRulesTool(lib Library) *ListRulesTool { return &ListRulesTool{lib: lib} }

func (t *ListRulesTool) Name() string { return "list_rules" }

func (t *ListRulesTool) Description() string {
	return "List available project rules"
}

func (t *ListRulesTool) Parameters() map[string]any {
	return InputParameters("Ignored", false)
}

func (t *ListRulesTool) Execute(_ context.Context, _ string) domain.ToolResult {
	names, err := t.lib.ListRules()
	if err != nil {
		return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to list rules: %s", err), err)
	}
	return domain.OK("Available rules: " + strings.Join(names, ", "))
}

// --- list_snippets ---

type ListSnippetsTool struct{ lib Library }

func NewListSnippetsTool(lib Library) *ListSnippetsTool { return &ListSnippetsTool{lib: lib} }

func (t *ListSnippetsTool) Name() string { return "list_snippets" }

func (t *ListSnippetsTool) Description() string {
	return "List available snippets for a language. Input should be the language name"
}

func (t *ListSnippetsTool) Parameters() map[string]any {
	return InputParameters("Language name, e.g. 'golang'", true)
}

func (t *ListSnippetsTool) Execute(_ context.Context, input string) domain.ToolResult {
	language := strings.TrimSpace(input)
	cats, err := t.lib.ListSnippets(language)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Fail(domain.ResultNotFound, fmt.Sprintf("No snippets found for %s", language), err)
		}
		return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to list snippets: %s", err), err)
	}
	lines := make([]string, 0, len(cats))
	for _, c := range cats {
		lines = append(lines, c.Name+": "+strings.Join(c.Snippets, ", "))
	}
	return domain.OK(strings.Join(lines, "\n"))
}

// --- analyze_project ---

type AnalyzeProjectTool struct{}

func NewAnalyzeProjectTool() *AnalyzeProjectTool { return &AnalyzeProjectTool{} }

func (t *AnalyzeProjectTool) Name() string { return "analyze_project" }

func (t *AnalyzeProjectTool) Description() string {
	return "Analyze current project structure. Input should be the project directory path"
}

func (t *AnalyzeProjectTool) Parameters() map[string]any {
	return InputParameters("Project directory path", true)
}

func (t *AnalyzeProjectTool) Execute(_ context.Context, input string) domain.ToolResult {
	dir := strings.TrimSpace(input)
	if dir == "" {
		dir = "."
	}
	tree, err := scanner.Render(dir)
	if err != nil {
		if errors.Is(err, scanner.ErrNotFound) {
			return domain.Fail(domain.ResultNotFound, fmt.Sprintf("Directory '%s' not found", dir), err)
		}
		return domain.Fail(domain.ResultInternal, fmt.Sprintf("Failed to analyze project: %s", err), err)
	}
	return domain.OK(tree)
}
