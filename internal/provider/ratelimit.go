package provider

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scaffai/internal/domain"
)

// tokenBucket throttles LLM requests to a steady rate with a small burst.
type tokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastTime time.Time
	now      func() time.Time
}

func newTokenBucket(burst int, perMinute float64) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{
		tokens:   float64(burst),
		max:      float64(burst),
		rate:     perMinute / 60.0,
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// reserve takes a token if one is available and otherwise reports how long
// to wait before trying again.
func (b *tokenBucket) reserve() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens += now.Sub(b.lastTime).Seconds() * b.rate
	if b.tokens > b.max {
		b.tokens = b.max
	}
	b.lastTime = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return 0
	}
	return time.Duration((1.0 - b.tokens) / b.rate * float64(time.Second))
}

func (b *tokenBucket) wait(ctx context.Context) error {
	for {
		d := b.reserve()
		if d == 0 {
			return nil
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RateLimited delays Chat calls so that no more than the configured number
// of requests per minute reach the wrapped provider.
type RateLimited struct {
	domain.Provider
	bucket *tokenBucket
	logger *slog.Logger
}

// NewRateLimited wraps p. A non-positive perMinute returns p unchanged.
func NewRateLimited(p domain.Provider, perMinute, burst int, logger *slog.Logger) domain.Provider {
	if perMinute <= 0 {
		return p
	}
	return &RateLimited{
		Provider: p,
		bucket:   newTokenBucket(burst, float64(perMinute)),
		logger:   logger,
	}
}

func (r *RateLimited) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	start := time.Now()
	if err := r.bucket.wait(ctx); err != nil {
		return nil, err
	}
	if waited := time.Since(start); waited > 10*time.Millisecond {
		r.logger.Debug("rate limited", "provider", r.Provider.Name(), "waited", waited)
	}
	return r.Provider.Chat(ctx, req)
}
