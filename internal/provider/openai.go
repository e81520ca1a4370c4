package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"scaffai/internal/domain"
)

const openaiDefaultModel = "gpt-4o"

// OpenAI implements domain.Provider for OpenAI and any OpenAI-compatible API.
type OpenAI struct {
	client *openai.Client
	name   string
	model  string
	logger *slog.Logger
}

type OpenAIConfig struct {
	Name       string // reported by Name(), defaults to "openai"
	APIKey     string
	APIBase    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openaiDefaultModel
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		oc.BaseURL = cfg.APIBase
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(oc),
		name:   cfg.Name,
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (o *OpenAI) Name() string              { return o.name }
func (o *OpenAI) Models() []string          { return []string{o.model, "gpt-4o-mini", "gpt-4.1"} }
func (o *OpenAI) SupportsToolCalling() bool { return true }

func (o *OpenAI) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	body := o.buildRequest(req)

	start := time.Now()
	return withRetry(ctx, o.logger, o.name, func() (*domain.ChatResponse, error) {
		resp, err := o.client.CreateChatCompletion(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.name, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("%s: empty response", o.name)
		}
		out := fromOpenAIResponse(resp)
		out.LatencyMs = time.Since(start).Milliseconds()
		return out, nil
	})
}

func (o *OpenAI) buildRequest(req domain.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}

	body := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return body
}

func toOpenAIMessages(in []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		om := openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		if m.Role == domain.RoleTool {
			om.ToolCallID = m.ToolCallID
			om.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(domain.ToolArguments(tc.Input))
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, om)
	}
	return out
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) *domain.ChatResponse {
	choice := resp.Choices[0]
	out := &domain.ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: decodeToolInput(json.RawMessage(tc.Function.Arguments)),
		})
	}
	return out
}
