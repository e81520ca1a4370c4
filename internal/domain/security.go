package domain

import "context"

type SecurityAction string

const (
	ActionAllow   SecurityAction = "allow"
	ActionBlock   SecurityAction = "block"
	ActionConfirm SecurityAction = "confirm"
)

// CommandGuard decides whether a shell command may run.
type CommandGuard interface {
	Check(ctx context.Context, toolName string, command string) (SecurityAction, error)
	RequestConfirmation(ctx context.Context, toolName string, command string) (bool, error)
}

type AuditEntry struct {
	Action   string // tool_exec | command_blocked | confirm_yes | confirm_no
	ToolName string
	Command  string
	Result   string // allowed | blocked | confirmed | denied
	Details  string
}
