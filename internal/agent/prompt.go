package agent

import (
	"strings"

	"scaffai/internal/domain"
)

// SystemPrompt frames every conversation.
const SystemPrompt = `You are an AI-powered command-line agent that assists users in managing project structures, running commands, and applying predefined rules and snippets. Your role is to understand the project directory, access configuration files, and execute actions based on user requests. Follow best practices, maintain efficiency, and provide recommendations when necessary. If a file or rule is missing, suggest a fix or a suitable alternative. You can execute commands, analyze code, and automate tasks efficiently.

You have access to the following tools:
1. read_rule - Read a project rule template
2. read_snippet - Read a code snippet
3. create_project - Create a new project from a rule
4. apply_snippet - Apply a snippet to an existing project
5. list_rules - List available project rules
6. list_snippets - List available snippets
7. analyze_project - Analyze current project structure
8. run_command - Run a shell command

Always think step by step:
1. Understand the user's request
2. Check available rules/snippets if needed
3. Plan the necessary actions
4. Execute actions one by one
5. Verify the results
6. Provide helpful feedback

Remember to:
- Use proper error handling
- Suggest improvements when applicable
- Follow project-specific best practices
- Keep the user informed of progress
`

type PromptBuilder struct {
	systemPromptExtra string
}

func NewPromptBuilder(systemPromptExtra string) *PromptBuilder {
	return &PromptBuilder{systemPromptExtra: strings.TrimSpace(systemPromptExtra)}
}

func (p *PromptBuilder) BuildSystemPrompt() string {
	if p.systemPromptExtra == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n## Custom Instructions\n" + p.systemPromptExtra + "\n"
}

// BuildMessages constructs [system + history + user message] for an LLM call.
func (p *PromptBuilder) BuildMessages(history []domain.Message, currentMessage string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: p.BuildSystemPrompt()})
	messages = append(messages, history...)
	return append(messages, domain.Message{Role: domain.RoleUser, Content: currentMessage})
}

func (p *PromptBuilder) AddAssistantMessage(messages []domain.Message, content string, toolCalls []domain.ToolCall) []domain.Message {
	return append(messages, domain.Message{Role: domain.RoleAssistant, Content: content, ToolCalls: toolCalls})
}

func (p *PromptBuilder) AddToolResult(messages []domain.Message, toolCallID, toolName, result string) []domain.Message {
	return append(messages, domain.Message{
		Role:       domain.RoleTool,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Content:    result,
	})
}
