package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"scaffai/internal/domain"
)

const (
	ollamaDefaultBase  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.1:8b"
)

// Ollama implements domain.Provider for a local or remote Ollama server.
type Ollama struct {
	client       *api.Client
	defaultModel string
	logger       *slog.Logger
}

type OllamaConfig struct {
	APIBase      string
	DefaultModel string
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	if cfg.APIBase == "" {
		cfg.APIBase = ollamaDefaultBase
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = ollamaDefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(defaultHTTPTimeout)
	}
	u, err := url.Parse(cfg.APIBase)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama api_base %q: %w", cfg.APIBase, err)
	}
	return &Ollama{
		client:       api.NewClient(u, cfg.HTTPClient),
		defaultModel: cfg.DefaultModel,
		logger:       cfg.Logger,
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

// Models returns common defaults; the full list would need /api/tags.
func (o *Ollama) Models() []string {
	return []string{o.defaultModel, "llama3.1:70b", "qwen2.5-coder", "mistral"}
}

func (o *Ollama) SupportsToolCalling() bool { return true }

// Wire shapes shared with the api package through JSON, so the request does
// not depend on the exact Go types of a given client release.
type ollamaMsg struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function ollamaFuncCall `json:"function"`
}

type ollamaFuncCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type ollamaTool struct {
	Type     string     `json:"type"`
	Function ollamaFunc `json:"function"`
}

type ollamaFunc struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func (o *Ollama) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	chatReq, err := o.buildRequest(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	return withRetry(ctx, o.logger, o.Name(), func() (*domain.ChatResponse, error) {
		var last api.ChatResponse
		var content strings.Builder
		var calls []api.ToolCall
		err := o.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
			content.WriteString(r.Message.Content)
			calls = append(calls, r.Message.ToolCalls...)
			last = r
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}

		out := &domain.ChatResponse{
			Content:      content.String(),
			FinishReason: last.DoneReason,
			LatencyMs:    time.Since(start).Milliseconds(),
			Usage: domain.Usage{
				PromptTokens:     last.PromptEvalCount,
				CompletionTokens: last.EvalCount,
				TotalTokens:      last.PromptEvalCount + last.EvalCount,
			},
		}
		out.ToolCalls, err = fromOllamaToolCalls(calls)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (o *Ollama) buildRequest(req domain.ChatRequest) (*api.ChatRequest, error) {
	model := req.Model
	if model == "" {
		model = o.defaultModel
	}

	msgs := make([]ollamaMsg, 0, len(req.Messages))
	for _, m := range req.Messages {
		om := ollamaMsg{Role: m.Role, Content: m.Content}
		if m.Role == domain.RoleTool {
			om.ToolName = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(domain.ToolArguments(tc.Input))
			om.ToolCalls = append(om.ToolCalls, ollamaToolCall{
				Function: ollamaFuncCall{Name: tc.Name, Arguments: args},
			})
		}
		msgs = append(msgs, om)
	}

	tools := make([]ollamaTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, ollamaTool{
			Type: "function",
			Function: ollamaFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	stream := false
	out := &api.ChatRequest{
		Model:   model,
		Stream:  &stream,
		Options: map[string]any{"temperature": req.Temperature},
	}
	if req.MaxTokens > 0 {
		out.Options["num_predict"] = req.MaxTokens
	}
	if err := roundTrip(msgs, &out.Messages); err != nil {
		return nil, fmt.Errorf("ollama messages: %w", err)
	}
	if len(tools) > 0 {
		if err := roundTrip(tools, &out.Tools); err != nil {
			return nil, fmt.Errorf("ollama tools: %w", err)
		}
	}
	return out, nil
}

func fromOllamaToolCalls(calls []api.ToolCall) ([]domain.ToolCall, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	var wire []ollamaToolCall
	if err := roundTrip(calls, &wire); err != nil {
		return nil, fmt.Errorf("ollama tool calls: %w", err)
	}
	out := make([]domain.ToolCall, 0, len(wire))
	for i, c := range wire {
		out = append(out, convertOllamaCall(i, c))
	}
	return out, nil
}

// convertOllamaCall assigns a positional ID, since Ollama calls carry none.
func convertOllamaCall(i int, c ollamaToolCall) domain.ToolCall {
	input := decodeToolInput(c.Function.Arguments)
	// Some models send the arguments as a JSON string.
	var s string
	if json.Unmarshal(c.Function.Arguments, &s) == nil {
		input = s
		var args map[string]any
		if json.Unmarshal([]byte(s), &args) == nil {
			input = domain.ToolInput(args)
		}
	}
	return domain.ToolCall{
		ID:    fmt.Sprintf("call_%d", i),
		Name:  c.Function.Name,
		Input: input,
	}
}

func roundTrip(from, to any) error {
	b, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, to)
}
