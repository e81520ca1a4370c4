package domain

import "context"

// Tool is a capability the agent can invoke by name. Every tool takes a single
// free-form string argument and reports a structured result.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, input string) ToolResult
}

// ResultKind classifies the outcome of a tool invocation.
type ResultKind string

const (
	ResultOK             ResultKind = "ok"
	ResultNotFound       ResultKind = "not_found"
	ResultInvalidInput   ResultKind = "invalid_input"
	ResultDelegateFailed ResultKind = "delegate_failed"
	ResultExecFailed     ResultKind = "exec_failed"
	ResultBlocked        ResultKind = "blocked"
	ResultInternal       ResultKind = "internal"
)

// ToolResult is what a tool hands back to the registry. Text is the message
// the model will read; Err carries the underlying cause for logging.
type ToolResult struct {
	Kind ResultKind
	Text string
	Err  error
}

// OK wraps a successful result.
func OK(text string) ToolResult {
	return ToolResult{Kind: ResultOK, Text: text}
}

// Fail builds a non-ok result.
func Fail(kind ResultKind, text string, err error) ToolResult {
	return ToolResult{Kind: kind, Text: text, Err: err}
}

func (r ToolResult) Failed() bool {
	return r.Kind != ResultOK
}
