package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/zenith-auth/internal/auth/domain"
	"github.com/aussiebroadwan/zenith-auth/pkg/slogx"
)

// CodeSender delivers a one-time code out of band. Implementations must not
// persist or log the code.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string, purpose domain.CodePurpose) error
}

// LogSender records that a code was dispatched without revealing it. It is
// the default when no delivery channel is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendCode(ctx context.Context, destination, _ string, purpose domain.CodePurpose) error {
	logger := s.Logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}
	logger.Info("one-time code dispatched", "destination", destination, "purpose", purpose)
	return nil
}

// SentCode is one delivery captured by MemorySender.
type SentCode struct {
	Destination string
	Code        string
	Purpose     domain.CodePurpose
}

// MemorySender keeps delivered codes in memory for local development and
// tests.
type MemorySender struct {
	mu   sync.Mutex
	sent []SentCode
}

func (s *MemorySender) SendCode(_ context.Context, destination, code string, purpose domain.CodePurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentCode{Destination: destination, Code: code, Purpose: purpose})
	return nil
}

// Last returns the most recent code sent to destination for purpose.
func (s *MemorySender) Last(destination string, purpose domain.CodePurpose) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].Destination == destination && s.sent[i].Purpose == purpose {
			return s.sent[i].Code, true
		}
	}
	return "", false
}

func (s *MemorySender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
