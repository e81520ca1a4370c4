package domain

import (
	"context"
	"encoding/json"
)

// Provider is the interface all LLM backends implement.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Models() []string
	SupportsToolCalling() bool
}

type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Model       string
	MaxTokens   int
	Temperature float64
}

type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string // stop | tool_calls | length
	Usage        Usage
	LatencyMs    int64
}

func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string     `json:"role"` // system | user | assistant | tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall is a model request to run one tool. Input is the single string
// argument every tool accepts.
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// InputKey is the single argument name every tool declares.
const InputKey = "input"

// ToolInput flattens decoded tool-call arguments to the string a tool expects.
// Models sometimes send the JSON payload as an object, or skip the "input"
// wrapper and put the fields at the top level; both are re-encoded as JSON.
func ToolInput(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	v, ok := args[InputKey]
	if !ok {
		b, _ := json.Marshal(args)
		return string(b)
	}
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// ToolArguments is the inverse of ToolInput, used when replaying a call to a
// provider that wants structured arguments.
func ToolArguments(input string) map[string]any {
	return map[string]any{InputKey: input}
}
