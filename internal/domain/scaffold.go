package domain

import "context"

// ProjectRequest describes a project to create.
type ProjectRequest struct {
	Name      string `json:"name"`
	Template  string `json:"template"`
	OutputDir string `json:"output_dir,omitempty"`
	Username  string `json:"username,omitempty"`
	DB        string `json:"db,omitempty"`
}

// SnippetRequest describes a snippet to apply to an existing project.
type SnippetRequest struct {
	Snippet    string `json:"snippet"`
	Template   string `json:"template"`
	ProjectDir string `json:"project_dir"`
}

// ProjectCreator materialises a new project on disk.
type ProjectCreator interface {
	CreateProject(ctx context.Context, req ProjectRequest) error
}

// SnippetApplier inserts a stored snippet into a project.
type SnippetApplier interface {
	ApplySnippet(ctx context.Context, req SnippetRequest) error
}
