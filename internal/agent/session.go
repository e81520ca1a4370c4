package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"scaffai/internal/domain"
	"scaffai/internal/metrics"
)

const defaultTitle = "New conversation"

// Session is the append-only transcript of one process run. It is kept in
// memory and mirrored into the store when one is configured; mirror failures
// are logged and never interrupt the conversation.
type Session struct {
	id       string
	store    domain.MemoryStore
	logger   *slog.Logger
	provider string
	model    string

	mu         sync.Mutex
	transcript []domain.Message
	created    bool
	tokens     int64
}

// NewSession starts a transcript with a fresh conversation id. store may be nil.
func NewSession(store domain.MemoryStore, provider, model string, logger *slog.Logger) *Session {
	return &Session{
		id:       uuid.NewString(),
		store:    store,
		logger:   logger,
		provider: provider,
		model:    model,
	}
}

func (s *Session) ID() string { return s.id }

// History returns a copy of the transcript.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Append adds one exchange to the transcript.
func (s *Session) Append(ctx context.Context, msgs ...domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil && !s.created {
		title := defaultTitle
		if len(msgs) > 0 {
			title = generateTitle(msgs[0].Content)
		}
		err := s.store.CreateConversation(ctx, domain.Conversation{
			ID:       s.id,
			Title:    title,
			Provider: s.provider,
			Model:    s.model,
		})
		if err != nil {
			s.logger.Warn("failed to create conversation", "id", s.id, "err", err)
		} else {
			s.created = true
			s.logger.Debug("created conversation", "id", s.id, "provider", s.provider)
		}
	}

	for _, m := range msgs {
		s.transcript = append(s.transcript, m)
		if s.store == nil || !s.created {
			continue
		}
		if err := s.store.AddMessage(ctx, s.id, toRecord(s.id, m)); err != nil {
			s.logger.Warn("failed to save message", "id", s.id, "role", m.Role, "err", err)
		}
	}
	metrics.TranscriptLength.Set(int64(len(s.transcript)))
}

// AddTokenUsage adds tokens used in a completion to the session total.
func (s *Session) AddTokenUsage(tokens int) {
	if tokens <= 0 {
		return
	}
	s.mu.Lock()
	s.tokens += int64(tokens)
	s.mu.Unlock()
}

// TokenUsage returns the total tokens used so far.
func (s *Session) TokenUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func toRecord(convID string, msg domain.Message) domain.MessageRecord {
	record := domain.MessageRecord{
		ConversationID: convID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCallID:     msg.ToolCallID,
		ToolName:       msg.ToolName,
	}
	if len(msg.ToolCalls) > 0 {
		if data, err := json.Marshal(msg.ToolCalls); err == nil {
			record.ToolCalls = string(data)
		}
	}
	return record
}

const titleMax = 60

func generateTitle(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return defaultTitle
	}
	if idx := strings.IndexAny(msg, "\n\r"); idx > 0 {
		msg = msg[:idx]
	}
	if len(msg) > titleMax {
		limit := titleMax
		for limit > 0 && !utf8.RuneStart(msg[limit]) {
			limit--
		}
		cut := strings.LastIndex(msg[:limit], " ")
		if cut < 20 {
			cut = limit
		}
		msg = msg[:cut] + "..."
	}
	return msg
}
