package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scaffai/internal/domain"
	"scaffai/internal/metrics"
	"scaffai/internal/tool"
)

const (
	defaultMaxIterations = 20
	defaultMaxTokens     = 4096
	emptyReply           = "I've completed processing but have no additional response."
)

// ErrNoProvider is returned when the agent has no model to talk to.
var ErrNoProvider = errors.New("no LLM provider configured")

// Agent is the conversational engine: send transcript to the model, run the
// tools it asks for one at a time, repeat until it answers in text.
type Agent struct {
	provider      domain.Provider
	tools         *tool.Registry
	session       *Session
	prompt        *PromptBuilder
	logger        *slog.Logger
	model         string
	maxIterations int
	maxTokens     int
	temperature   float64
}

// Config holds all dependencies and tuning parameters for the agent.
type Config struct {
	Provider          domain.Provider
	Tools             *tool.Registry
	Session           *Session // optional, a store-less session is created when nil
	Logger            *slog.Logger
	Model             string // overrides the provider's default model
	MaxIterations     int
	MaxTokens         int
	Temperature       float64
	SystemPromptExtra string
}

func New(cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Tools == nil {
		cfg.Tools = tool.NewRegistry(cfg.Logger)
	}
	if cfg.Session == nil {
		name := ""
		if cfg.Provider != nil {
			name = cfg.Provider.Name()
		}
		cfg.Session = NewSession(nil, name, cfg.Model, cfg.Logger)
	}
	return &Agent{
		provider:      cfg.Provider,
		tools:         cfg.Tools,
		session:       cfg.Session,
		prompt:        NewPromptBuilder(cfg.SystemPromptExtra),
		logger:        cfg.Logger,
		model:         cfg.Model,
		maxIterations: cfg.MaxIterations,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
	}
}

// Session exposes the transcript.
func (a *Agent) Session() *Session { return a.session }

// Chat sends one user message and returns the agent's final text. It never
// fails: any error becomes "Error: <description>".
func (a *Agent) Chat(ctx context.Context, message string) string {
	reply, err := a.run(ctx, message)
	if err != nil {
		a.logger.Warn("chat failed", "error", err)
		return fmt.Sprintf("Error: %s", err)
	}
	return reply
}

func (a *Agent) run(ctx context.Context, message string) (string, error) {
	if a.provider == nil {
		return "", ErrNoProvider
	}

	messages := a.prompt.BuildMessages(a.session.History(), message)
	toolDefs := a.tools.Definitions()
	if !a.provider.SupportsToolCalling() {
		toolDefs = nil
	}

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		metrics.AgentIterations.Inc()
		a.logger.Debug("agent iteration", "iteration", iteration+1, "messages", len(messages))

		resp, err := a.complete(ctx, messages, toolDefs)
		if err != nil {
			return "", err
		}

		// Fallback: some models embed tool calls as JSON in the content field.
		if !resp.HasToolCalls() && resp.Content != "" {
			known := func(name string) bool { return a.tools.Get(name) != nil }
			if extracted := extractToolCallsFromContent(resp.Content, known); len(extracted) > 0 {
				resp.ToolCalls = extracted
				resp.Content = ""
				a.logger.Info("extracted tool calls from content text", "count", len(extracted))
			}
		}

		if !resp.HasToolCalls() {
			final := stripRolePrefix(unwrapFinalAnswer(resp.Content))
			if final == "" {
				final = emptyReply
			}
			a.session.Append(ctx,
				domain.Message{Role: domain.RoleUser, Content: message},
				domain.Message{Role: domain.RoleAssistant, Content: final},
			)
			return final, nil
		}

		messages = a.prompt.AddAssistantMessage(messages, resp.Content, resp.ToolCalls)
		for _, tc := range resp.ToolCalls {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			a.logger.Info("executing tool", "tool", tc.Name)
			a.logger.Debug("tool input", "tool", tc.Name, "input", tc.Input)

			res := a.tools.Execute(ctx, tc.Name, tc.Input)
			a.logger.Debug("tool completed", "tool", tc.Name, "kind", res.Kind, "result_len", len(res.Text))
			messages = a.prompt.AddToolResult(messages, tc.ID, tc.Name, res.Text)
		}
	}

	return "", fmt.Errorf("agent stopped after %d iterations without a final answer", a.maxIterations)
}

func (a *Agent) complete(ctx context.Context, messages []domain.Message, toolDefs []domain.ToolDefinition) (*domain.ChatResponse, error) {
	start := time.Now()
	metrics.LLMRequestsTotal.Inc()

	resp, err := a.provider.Chat(ctx, domain.ChatRequest{
		Messages:    messages,
		Tools:       toolDefs,
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	metrics.LLMLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMErrorsTotal.Inc()
		return nil, fmt.Errorf("LLM error: %w", err)
	}
	if resp == nil {
		metrics.LLMErrorsTotal.Inc()
		return nil, fmt.Errorf("LLM error: empty response")
	}
	a.session.AddTokenUsage(resp.Usage.TotalTokens)
	metrics.SessionTokens.Set(a.session.TokenUsage())
	a.logger.Debug("llm response",
		"provider", a.provider.Name(),
		"tool_calls", len(resp.ToolCalls),
		"session_tokens", a.session.TokenUsage(),
		"finish_reason", resp.FinishReason,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
