package commands

import (
	"fmt"
	"strings"

	"scaffai/internal/domain"
)

const defaultDir = "."

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// NewProjectInstruction renders the agent instruction for the new command.
func NewProjectInstruction(p *domain.Params) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a new project named '%s' using the %s template. Output directory: %s",
		p.Get("name"), p.Get("template"), orDefault(p.Get("output_dir"), defaultDir))
	if p.Has("username") {
		fmt.Fprintf(&sb, ", GitHub username: %s", p.Get("username"))
	}
	if p.Has("db") {
		fmt.Fprintf(&sb, ", database: %s", p.Get("db"))
	}
	return sb.String()
}

// AddSnippetInstruction renders the agent instruction for add-snippet.
func AddSnippetInstruction(p *domain.Params) string {
	return fmt.Sprintf("Add the %s snippet for %s to the project in %s",
		p.Get("snippet"), p.Get("template"), orDefault(p.Get("project_dir"), defaultDir))
}

// AnalyzeInstruction renders the agent instruction for analyze.
func AnalyzeInstruction(p *domain.Params) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the project in %s", orDefault(p.Get("project_dir"), defaultDir))
	if focus := p.List("focus_areas"); len(focus) > 0 {
		fmt.Fprintf(&sb, " focusing on: %s", strings.Join(focus, ", "))
	}
	sb.WriteString(" and suggest improvements")
	return sb.String()
}
