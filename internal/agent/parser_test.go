package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownTools(names ...string) func(string) bool {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

var allKnown = knownTools("read_rule", "list_rules", "run_command", "create_project")

func TestExtractToolCalls_NameArguments(t *testing.T) {
	calls := extractToolCallsFromContent(`{"name": "read_rule", "arguments": {"input": "python"}}`, allKnown)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_rule", calls[0].Name)
	assert.Equal(t, "python", calls[0].Input)
}

func TestExtractToolCalls_ObjectArgumentsBecomeJSON(t *testing.T) {
	calls := extractToolCallsFromContent(`{"name": "create_project", "parameters": {"name": "demo", "template": "python"}}`, allKnown)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"name":"demo","template":"python"}`, calls[0].Input)
}

func TestExtractToolCalls_ReActForm(t *testing.T) {
	calls := extractToolCallsFromContent("assistant\n{\"action\": \"run_command\", \"action_input\": \"ls -la\"}", allKnown)
	require.Len(t, calls, 1)
	assert.Equal(t, "run_command", calls[0].Name)
	assert.Equal(t, "ls -la", calls[0].Input)
}

func TestExtractToolCalls_Array(t *testing.T) {
	calls := extractToolCallsFromContent(`[{"name": "list_rules"}, {"name": "read_rule", "arguments": "golang"}]`, allKnown)
	require.Len(t, calls, 2)
	assert.Equal(t, "extracted_1", calls[1].ID)
	assert.Equal(t, "golang", calls[1].Input)
}

func TestExtractToolCalls_NormalizesName(t *testing.T) {
	calls := extractToolCallsFromContent(`{"name": "list-rules"}`, allKnown)
	require.Len(t, calls, 1)
	assert.Equal(t, "list_rules", calls[0].Name)
}

func TestExtractToolCalls_Ignored(t *testing.T) {
	for _, in := range []string{
		"",
		"Sure, let me help you with that!",
		`{"name": "", "arguments": {}}`,
		`{"name": "web_search", "arguments": {"q": "go"}}`,
		`{"action": "Final Answer", "action_input": "done"}`,
		`{"unclosed": `,
	} {
		assert.Empty(t, extractToolCallsFromContent(in, allKnown), in)
	}
}

func TestUnwrapFinalAnswer(t *testing.T) {
	assert.Equal(t, "All set.", unwrapFinalAnswer("```json\n{\"action\": \"Final Answer\", \"action_input\": \"All set.\"}\n```"))
	assert.Equal(t, "plain text", unwrapFinalAnswer("plain text"))
	assert.Equal(t, `{"action": "read_rule"}`, unwrapFinalAnswer(`{"action": "read_rule"}`))
}

func TestSanitizeJSONEscapes(t *testing.T) {
	assert.Equal(t, `{"a":"50%"}`, sanitizeJSONEscapes(`{"a":"50\%"}`))
	assert.Equal(t, `{"a":"line\nnext \\ \"q\""}`, sanitizeJSONEscapes(`{"a":"line\nnext \\ \"q\""}`))
}

func TestStripRolePrefix(t *testing.T) {
	assert.Equal(t, "Hello", stripRolePrefix("Assistant: Hello"))
	assert.Equal(t, "Hello", stripRolePrefix("assistant\nHello"))
	assert.Equal(t, "Hello", stripRolePrefix("Hello"))
}
