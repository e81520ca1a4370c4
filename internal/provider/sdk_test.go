package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scaffai/internal/domain"
)

var readRuleDef = domain.ToolDefinition{
	Name:        "read_rule",
	Description: "Read a project rule template",
	Parameters: map[string]any{
		"type":       "object",
		"properties": map[string]any{"input": map[string]any{"type": "string"}},
		"required":   []string{"input"},
	},
}

func transcript() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "make a project"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "c1", Name: "list_rules", Input: ""},
			{ID: "c2", Name: "read_rule", Input: "python"},
		}},
		{Role: domain.RoleTool, ToolCallID: "c1", ToolName: "list_rules", Content: "python"},
		{Role: domain.RoleTool, ToolCallID: "c2", ToolName: "read_rule", Content: "# rules"},
	}
}

// capture serves body for every request and records the last request body.
func capture(t *testing.T, body string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		*got = map[string]any{}
		_ = json.Unmarshal(raw, got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_ChatToolCalls(t *testing.T) {
	var sent map[string]any
	srv := capture(t, `{
		"id":"x","object":"chat.completion","model":"gpt-4o",
		"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
			"tool_calls":[{"id":"call_9","type":"function","function":{"name":"read_snippet","arguments":"{\"input\":\"python/api/fastapi\"}"}}]}}],
		"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`, &sent)

	p := NewOpenAI(OpenAIConfig{APIKey: "k", APIBase: srv.URL + "/v1", Logger: testLogger()})
	resp, err := p.Chat(context.Background(), domain.ChatRequest{Messages: transcript(), Tools: []domain.ToolDefinition{readRuleDef}})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, domain.ToolCall{ID: "call_9", Name: "read_snippet", Input: "python/api/fastapi"}, resp.ToolCalls[0])
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	msgs := sent["messages"].([]any)
	require.Len(t, msgs, 5)
	toolMsg := msgs[3].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "c1", toolMsg["tool_call_id"])
	assert.Equal(t, "gpt-4o", sent["model"])
	assert.Len(t, sent["tools"], 1)
}

func TestAnthropic_ChatToolUse(t *testing.T) {
	var sent map[string]any
	srv := capture(t, `{
		"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
		"content":[{"type":"text","text":"Checking."},{"type":"tool_use","id":"tu_1","name":"list_rules","input":{"input":""}}],
		"stop_reason":"tool_use","stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":5}}`, &sent)

	p := NewAnthropic(AnthropicConfig{APIKey: "k", APIBase: srv.URL, Logger: testLogger()})
	resp, err := p.Chat(context.Background(), domain.ChatRequest{Messages: transcript(), Tools: []domain.ToolDefinition{readRuleDef}})
	require.NoError(t, err)

	assert.Equal(t, "Checking.", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "tu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "", resp.ToolCalls[0].Input)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	// System prompt is lifted out and both tool results share one user turn.
	msgs := sent["messages"].([]any)
	require.Len(t, msgs, 3)
	last := msgs[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Len(t, last["content"], 2)
	assert.NotEmpty(t, sent["system"])
}

func TestOllama_ChatToolCalls(t *testing.T) {
	// The client reads NDJSON, so the response must stay on one line.
	var sent map[string]any
	srv := capture(t, `{"model":"llama3.1:8b","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"read_rule","arguments":{"input":"python"}}}]},"done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":3}`+"\n", &sent)

	p, err := NewOllama(OllamaConfig{APIBase: srv.URL, Logger: testLogger()})
	require.NoError(t, err)
	resp, err := p.Chat(context.Background(), domain.ChatRequest{Messages: transcript(), Tools: []domain.ToolDefinition{readRuleDef}})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, domain.ToolCall{ID: "call_0", Name: "read_rule", Input: "python"}, resp.ToolCalls[0])
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.Equal(t, false, sent["stream"])
	assert.Equal(t, "llama3.1:8b", sent["model"])
}

func TestOllama_StringArguments(t *testing.T) {
	var c ollamaToolCall
	require.NoError(t, json.Unmarshal([]byte(`{"function":{"name":"run_command","arguments":"ls -la"}}`), &c))
	assert.Equal(t, "ls -la", convertOllamaCall(0, c).Input)

	require.NoError(t, json.Unmarshal([]byte(`{"function":{"name":"read_rule","arguments":"{\"input\":\"go\"}"}}`), &c))
	assert.Equal(t, "go", convertOllamaCall(1, c).Input)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents(transcript())
	assert.Equal(t, "sys", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	assert.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "user", contents[2].Role)
	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "read_rule", contents[2].Parts[1].FunctionResponse.Name)
}

func TestDecodeToolInput(t *testing.T) {
	cases := map[string]string{
		``:                               "",
		`{"input":"python"}`:             "python",
		`{"name":"demo","template":"x"}`: `{"name":"demo","template":"x"}`,
		`not json`:                       "not json",
	}
	for raw, want := range cases {
		assert.Equal(t, want, decodeToolInput(json.RawMessage(raw)), raw)
	}
}
