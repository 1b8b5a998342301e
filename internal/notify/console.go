package notify

import (
	"context"
	"log/slog"
	"sync"
)

// ConsoleSender logs messages instead of delivering them and keeps a copy of
// everything it was asked to send.
type ConsoleSender struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []Message
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "Email not delivered, no provider configured",
		"to", msg.To.Address,
		"subject", msg.Subject)

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

func (s *ConsoleSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
