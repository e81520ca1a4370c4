package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scaffai/internal/domain"
	"scaffai/internal/metrics"
)

// Registry holds the dispatch table of tools the agent may call.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	order  []string
	filter *Filter
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// SetFilter restricts which registered tools are advertised and executable.
func (r *Registry) SetFilter(f *Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.IsEmpty() {
		f = nil
	}
	r.filter = f
}

// Register adds a tool. Names are unique within a registry.
func (r *Registry) Register(t domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tools[t.Name()]; dup {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	r.logger.Debug("registered tool", "name", t.Name())
	return nil
}

// Get returns the named tool, or nil if it is unknown or filtered out.
func (r *Registry) Get(name string) domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.filter.IsAllowed(name) {
		return nil
	}
	return r.tools[name]
}

// Execute runs the named tool and returns its structured result. Panics
// inside the tool are recovered and reported as an internal failure.
func (r *Registry) Execute(ctx context.Context, name, input string) (res domain.ToolResult) {
	t := r.Get(name)
	if t == nil {
		return domain.Fail(domain.ResultNotFound, fmt.Sprintf("Unknown tool '%s'", name), nil)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			res = domain.Fail(domain.ResultInternal, fmt.Sprintf("Tool '%s' failed: %v", name, rec), fmt.Errorf("panic: %v", rec))
		}
		metrics.ToolLatency.Observe(time.Since(start).Seconds())
		metrics.ToolResults(name, string(res.Kind)).Inc()
	}()

	r.logger.Debug("executing tool", "tool", name, "input_len", len(input))
	res = t.Execute(ctx, input)
	if res.Failed() {
		r.logger.Info("tool reported failure", "tool", name, "kind", res.Kind, "err", res.Err)
	}
	return res
}

// Dispatch is the text boundary used by the agent: it never fails and never
// panics, it only returns the message the model should read.
func (r *Registry) Dispatch(ctx context.Context, name, input string) string {
	return r.Execute(ctx, name, input).Text
}

// Definitions returns the advertised tools in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if !r.filter.IsAllowed(name) {
			continue
		}
		t := r.tools[name]
		defs = append(defs, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Param describes a single tool parameter.
type Param struct {
	Type        string
	Description string
}

// ToolParameters builds a JSON Schema "parameters" object for a tool.
func ToolParameters(properties map[string]Param, required []string) map[string]any {
	props := make(map[string]any)
	for name, p := range properties {
		props[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// InputParameters is the schema of a tool taking the single "input" string.
func InputParameters(description string, required bool) map[string]any {
	var req []string
	if required {
		req = []string{domain.InputKey}
	}
	return ToolParameters(map[string]Param{
		domain.InputKey: {Type: "string", Description: description},
	}, req)
}
