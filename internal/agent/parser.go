package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"scaffai/internal/domain"
)

// finalAnswerAction is the action name ReAct-style models use for their reply.
const finalAnswerAction = "Final Answer"

// embeddedCall is the loosest shape a model uses to write a tool call as text:
// {"name": ..., "arguments": ...}, {"name": ..., "parameters": ...} or the
// ReAct form {"action": ..., "action_input": ...}.
type embeddedCall struct {
	Name        string          `json:"name"`
	Arguments   json.RawMessage `json:"arguments"`
	Parameters  json.RawMessage `json:"parameters"`
	Action      string          `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

func (c embeddedCall) toolName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Action
}

func (c embeddedCall) input() string {
	for _, raw := range []json.RawMessage{c.Arguments, c.Parameters, c.ActionInput} {
		if len(raw) > 0 && string(raw) != "null" {
			return rawToInput(raw)
		}
	}
	return ""
}

// rawToInput accepts a JSON string or object and returns the tool's string input.
func rawToInput(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var args map[string]any
	if json.Unmarshal(raw, &args) == nil {
		return domain.ToolInput(args)
	}
	return string(raw)
}

// extractToolCallsFromContent attempts to parse tool calls from LLM content text.
// Some models return tool calls as JSON in the content instead of using the
// structured tool_calls field. Handles several patterns:
//   - Pure JSON: `{"name":"list_rules","arguments":{}}`
//   - ReAct JSON: `{"action":"read_rule","action_input":"python"}`
//   - Code-fenced: ```json\n{...}\n```
//   - Prefixed or suffixed text around a single JSON object or array.
//
// Only calls whose name satisfies known are returned, so prose that happens to
// contain JSON is left alone.
func extractToolCallsFromContent(content string, known func(string) bool) []domain.ToolCall {
	candidate, ok := jsonCandidate(content)
	if !ok {
		return nil
	}
	calls := tryParseToolJSON(candidate)
	out := calls[:0]
	for _, c := range calls {
		if known(c.Name) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// unwrapFinalAnswer returns the text of a ReAct final answer blob, or content
// unchanged.
func unwrapFinalAnswer(content string) string {
	candidate, ok := jsonCandidate(content)
	if !ok {
		return content
	}
	var c embeddedCall
	if err := json.Unmarshal([]byte(sanitizeJSONEscapes(candidate)), &c); err != nil {
		return content
	}
	if strings.EqualFold(c.Action, finalAnswerAction) {
		return c.input()
	}
	return content
}

// jsonCandidate strips code fences and role prefixes and returns the first
// top-level JSON value in content.
func jsonCandidate(content string) (string, bool) {
	content = stripRolePrefix(strings.TrimSpace(content))

	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 3 && strings.HasPrefix(lines[len(lines)-1], "```") {
			content = strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
		}
	}

	start, end := findJSONBounds(content)
	if start < 0 || end <= start {
		return "", false
	}
	return content[start:end], true
}

// findJSONBounds locates the first top-level JSON object ({}) or array ([]) in s.
// Returns the start index and end+1 index, or (-1, -1) if not found.
func findJSONBounds(s string) (int, int) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return -1, -1
	}

	openChar := s[start]
	var closeChar byte
	if openChar == '{' {
		closeChar = '}'
	} else {
		closeChar = ']'
	}

	depth := 0
	inStr := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inStr {
			if ch == '\\' {
				i++ // skip escaped character
				continue
			}
			if ch == '"' {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return start, i + 1
			}
		}
	}
	return -1, -1
}

// tryParseToolJSON parses raw as a single tool call object or an array of them.
func tryParseToolJSON(raw string) []domain.ToolCall {
	text := sanitizeJSONEscapes(raw)

	var single embeddedCall
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		name := single.toolName()
		if name == "" || strings.EqualFold(name, finalAnswerAction) {
			return nil
		}
		return []domain.ToolCall{{
			ID:    "extracted_0",
			Name:  normalizeToolName(name),
			Input: single.input(),
		}}
	}

	var multi []embeddedCall
	if err := json.Unmarshal([]byte(text), &multi); err != nil {
		return nil
	}
	var calls []domain.ToolCall
	for i, tc := range multi {
		name := tc.toolName()
		if name == "" || strings.EqualFold(name, finalAnswerAction) {
			continue
		}
		calls = append(calls, domain.ToolCall{
			ID:    fmt.Sprintf("extracted_%d", i),
			Name:  normalizeToolName(name),
			Input: tc.input(),
		})
	}
	return calls
}

// normalizeToolName maps hyphenated or squashed names ("read-rule", "readrule")
// to the registered snake_case form.
func normalizeToolName(name string) string {
	aliases := map[string]string{
		"readrule":       "read_rule",
		"readsnippet":    "read_snippet",
		"createproject":  "create_project",
		"applysnippet":   "apply_snippet",
		"listrules":      "list_rules",
		"listsnippets":   "list_snippets",
		"analyzeproject": "analyze_project",
		"runcommand":     "run_command",
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := aliases[strings.ReplaceAll(strings.ReplaceAll(lower, "-", ""), "_", "")]; ok {
		return mapped
	}
	return name
}

// stripRolePrefix removes role-name prefixes that some LLMs leak into their
// content, e.g. "assistant\nHello" or "Assistant: Hello".
func stripRolePrefix(content string) string {
	prefixes := []string{
		"assistant\n",
		"Assistant\n",
		"assistant:\n",
		"Assistant:\n",
		"assistant: ",
		"Assistant: ",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(content, p) {
			return strings.TrimSpace(content[len(p):])
		}
	}
	return content
}

// sanitizeJSONEscapes fixes invalid JSON escape sequences produced by some LLMs.
// Valid JSON escapes: \", \\, \/, \b, \f, \n, \r, \t, \uXXXX.
// Invalid ones (e.g. \% or \Y) are corrected by dropping the backslash.
func sanitizeJSONEscapes(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' {
			inString = !inString
			buf.WriteByte(ch)
			continue
		}
		if inString && ch == '\\' && i+1 < len(s) {
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				buf.WriteByte(ch)
				buf.WriteByte(next)
				i++
			default:
				continue // invalid escape, drop the backslash
			}
		} else {
			buf.WriteByte(ch)
		}
	}
	return buf.String()
}
