package provider

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"scaffai/internal/domain"
)

// mockProvider implements domain.Provider for testing.
type mockProvider struct {
	name      string
	chatErr   error
	chatResp  *domain.ChatResponse
	toolCalls bool
	lastReq   domain.ChatRequest
	calls     int
}

func (m *mockProvider) Name() string              { return m.name }
func (m *mockProvider) Models() []string          { return []string{"test-model"} }
func (m *mockProvider) SupportsToolCalling() bool { return m.toolCalls }

func (m *mockProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.lastReq = req
	m.calls++
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return m.chatResp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFailoverProvider_UsesFirstProvider(t *testing.T) {
	p1 := &mockProvider{name: "primary", chatResp: &domain.ChatResponse{Content: "from-primary"}}
	p2 := &mockProvider{name: "secondary", chatResp: &domain.ChatResponse{Content: "from-secondary"}}
	fp := NewFailoverProvider([]domain.Provider{p1, p2}, testLogger())

	resp, err := fp.Chat(context.Background(), domain.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from-primary" {
		t.Fatalf("expected 'from-primary', got %q", resp.Content)
	}
}

func TestFailoverProvider_FallsBackOnError(t *testing.T) {
	p1 := &mockProvider{name: "primary", chatErr: errors.New("api error")}
	p2 := &mockProvider{name: "secondary", chatResp: &domain.ChatResponse{Content: "from-secondary"}}
	fp := NewFailoverProvider([]domain.Provider{p1, p2}, testLogger())

	resp, err := fp.Chat(context.Background(), domain.ChatRequest{Model: "primary-only"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from-secondary" {
		t.Fatalf("expected 'from-secondary', got %q", resp.Content)
	}
	if p1.lastReq.Model != "primary-only" || p2.lastReq.Model != "" {
		t.Fatalf("model override should only reach the primary: %q / %q", p1.lastReq.Model, p2.lastReq.Model)
	}
}

func TestFailoverProvider_AllProvidersFail(t *testing.T) {
	last := errors.New("fail 2")
	p1 := &mockProvider{name: "p1", chatErr: errors.New("fail 1")}
	p2 := &mockProvider{name: "p2", chatErr: last}
	fp := NewFailoverProvider([]domain.Provider{p1, p2}, testLogger())

	_, err := fp.Chat(context.Background(), domain.ChatRequest{})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error to be wrapped, got %v", err)
	}
}

func TestFailoverProvider_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p1 := &mockProvider{name: "p1", chatErr: context.Canceled}
	p2 := &mockProvider{name: "p2", chatResp: &domain.ChatResponse{Content: "late"}}
	fp := NewFailoverProvider([]domain.Provider{p1, p2}, testLogger())

	if _, err := fp.Chat(ctx, domain.ChatRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if p2.calls != 0 {
		t.Fatal("fallback should not be tried after cancellation")
	}
}

func TestFailoverProvider_Empty(t *testing.T) {
	fp := NewFailoverProvider(nil, testLogger())
	if _, err := fp.Chat(context.Background(), domain.ChatRequest{}); err == nil {
		t.Fatal("expected error for empty chain")
	}
}

func TestFailoverProvider_Name(t *testing.T) {
	fp := NewFailoverProvider([]domain.Provider{&mockProvider{name: "anthropic"}, &mockProvider{name: "ollama"}}, testLogger())
	if name := fp.Name(); name != "failover(anthropic→ollama)" {
		t.Fatalf("unexpected name %q", name)
	}
}

func TestFailoverProvider_ToolCalling(t *testing.T) {
	fp := NewFailoverProvider([]domain.Provider{&mockProvider{name: "a"}, &mockProvider{name: "b", toolCalls: true}}, testLogger())
	if !fp.SupportsToolCalling() {
		t.Fatal("expected SupportsToolCalling=true")
	}
	fp = NewFailoverProvider([]domain.Provider{&mockProvider{name: "a"}}, testLogger())
	if fp.SupportsToolCalling() {
		t.Fatal("expected SupportsToolCalling=false")
	}
}

func TestFailoverProvider_Models_Deduplicated(t *testing.T) {
	fp := NewFailoverProvider([]domain.Provider{&mockProvider{name: "p1"}, &mockProvider{name: "p2"}}, testLogger())
	if models := fp.Models(); len(models) != 1 {
		t.Fatalf("expected 1 unique model, got %v", models)
	}
}
