package tool

import (
	"fmt"

	"scaffai/internal/domain"
)

// Deps carries the collaborators the built-in tools are bound to.
type Deps struct {
	Library Library
	Creator domain.ProjectCreator
	Applier domain.SnippetApplier
	Runner  *CommandRunner
	Guard   domain.CommandGuard // optional
}

// RegisterBuiltins installs the fixed dispatch table, in the order the tools
// are presented to the model.
func RegisterBuiltins(r *Registry, d Deps) error {
	tools := []domain.Tool{
		NewReadRuleTool(d.Library),
		NewReadSnippetTool(d.Library),
		NewCreateProjectTool(d.Creator),
		NewApplySnippetTool(d.Applier),
		NewListRulesTool(d.Library),
		NewListSnippetsTool(d.Library),
		NewAnalyzeProjectTool(),
		NewRunCommandTool(d.Runner, d.Guard, r.logger),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("register builtins: %w", err)
		}
	}
	return nil
}
