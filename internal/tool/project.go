package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"scaffai/internal/domain"
)

// --- create_project ---

type CreateProjectTool struct {
	creator domain.ProjectCreator
}

func NewCreateProjectTool(creator domain.ProjectCreator) *CreateProjectTool {
	return &CreateProjectTool{creator: creator}
}

func (t *CreateProjectTool) Name() string { return "create_project" }

func (t *CreateProjectTool) Description() string {
	return "Create a new project from a rule. Input should be a JSON string with: name, template, output_dir, username (optional), db (optional)"
}

func (t *CreateProjectTool) Parameters() map[string]any {
	return InputParameters(`JSON object, e.g. {"name":"demo","template":"python","output_dir":"."}`, true)
}

func (t *CreateProjectTool) Execute(ctx context.Context, input string) domain.ToolResult {
	input = strings.TrimSpace(input)
	if err := validateJSON("create_project.schema.json", input); err != nil {
		return domain.Fail(domain.ResultInvalidInput, "Failed to create project: "+err.Error(), err)
	}

	var req domain.ProjectRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return domain.Fail(domain.ResultInvalidInput, "Failed to create project: "+err.Error(), err)
	}
	if req.OutputDir == "" {
		req.OutputDir = "."
	}

	if err := t.creator.CreateProject(ctx, req); err != nil {
		return domain.Fail(domain.ResultDelegateFailed, "Failed to create project: "+err.Error(), err)
	}
	return domain.OK(fmt.Sprintf("Project '%s' created successfully", req.Name))
}

// --- apply_snippet ---

type ApplySnippetTool struct {
	applier domain.SnippetApplier
}

func NewApplySnippetTool(applier domain.SnippetApplier) *ApplySnippetTool {
	return &ApplySnippetTool{applier: applier}
}

func (t *ApplySnippetTool) Name() string { return "apply_snippet" }

func (t *ApplySnippetTool) Description() string {
	return "Apply a snippet to an existing project. Input should be a JSON string with: snippet, template, project_dir"
}

func (t *ApplySnippetTool) Parameters() map[string]any {
	return InputParameters(`JSON object, e.g. {"snippet":"auth/jwt","template":"golang","project_dir":"./demo"}`, true)
}

func (t *ApplySnippetTool) Execute(ctx context.Context, input string) domain.ToolResult {
	input = strings.TrimSpace(input)
	if err := validateJSON("apply_snippet.schema.json", input); err != nil {
		return domain.Fail(domain.ResultInvalidInput, "Failed to apply snippet: "+err.Error(), err)
	}

	var req domain.SnippetRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return domain.Fail(domain.ResultInvalidInput, "Failed to apply snippet: "+err.Error(), err)
	}

	if err := t.applier.ApplySnippet(ctx, req); err != nil {
		return domain.Fail(domain.ResultDelegateFailed, "Failed to apply snippet: "+err.Error(), err)
	}
	return domain.OK(fmt.Sprintf("Snippet '%s' applied successfully", req.Snippet))
}
