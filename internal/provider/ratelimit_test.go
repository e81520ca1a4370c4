package provider

import (
	"context"
	"testing"
	"time"

	"scaffai/internal/domain"
)

func TestTokenBucket_Burst(t *testing.T) {
	b := newTokenBucket(3, 60)
	for i := 0; i < 3; i++ {
		if d := b.reserve(); d != 0 {
			t.Fatalf("burst token %d should be immediate, got wait %v", i, d)
		}
	}
	if d := b.reserve(); d <= 0 {
		t.Fatal("expected a wait once the burst is spent")
	}
}

func TestTokenBucket_Refill(t *testing.T) {
	now := time.Unix(0, 0)
	b := newTokenBucket(1, 60) // one per second
	b.now = func() time.Time { return now }
	b.lastTime = now

	if d := b.reserve(); d != 0 {
		t.Fatalf("first token should be immediate, got %v", d)
	}
	if d := b.reserve(); d < 900*time.Millisecond || d > time.Second {
		t.Fatalf("expected about one second, got %v", d)
	}
	now = now.Add(time.Second)
	if d := b.reserve(); d != 0 {
		t.Fatalf("token should have refilled, got %v", d)
	}
}

func TestTokenBucket_WaitCancelled(t *testing.T) {
	b := newTokenBucket(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := b.wait(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := b.wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestNewRateLimited_DisabledReturnsProvider(t *testing.T) {
	p := &mockProvider{name: "m"}
	if got := NewRateLimited(p, 0, 1, testLogger()); got != domain.Provider(p) {
		t.Fatal("expected the provider itself when limiting is off")
	}
}

func TestRateLimited_Delegates(t *testing.T) {
	p := &mockProvider{name: "m", chatResp: &domain.ChatResponse{Content: "hi"}}
	rl := NewRateLimited(p, 600, 2, testLogger())

	resp, err := rl.Chat(context.Background(), domain.ChatRequest{Model: "x"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "hi" || p.calls != 1 {
		t.Fatalf("unexpected delegation: %+v, calls=%d", resp, p.calls)
	}
	if rl.Name() != "m" {
		t.Fatalf("name should pass through, got %q", rl.Name())
	}
}
