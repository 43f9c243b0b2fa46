package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// contextSearchLimit bounds how many remembered notes GetContext folds into
// one context string.
const contextSearchLimit = 5

// Service is the production ports.AIService: a completion provider behind a
// circuit breaker, plus a memory store for the suite's long-term notes. The
// breaker keeps a flapping model endpoint from stalling every request that
// merely wanted to ask IsAvailable.
type Service struct {
	provider Provider
	memory   ports.MemoryStore
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

var _ ports.AIService = (*Service)(nil)

// NewService wires a provider and a memory store into the AI capability.
func NewService(provider Provider, memory ports.MemoryStore, logger *zap.Logger) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-completions",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Service{
		provider: provider,
		memory:   memory,
		breaker:  breaker,
		logger:   logger,
	}
}

// IsAvailable reports whether a completion call is worth attempting: the
// provider must be configured and the breaker must not be open.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if s.provider == nil || !s.provider.IsAvailable() {
		return false
	}
	return s.breaker.State() != gobreaker.StateOpen
}

// Complete runs one prompt through the breaker-guarded provider.
func (s *Service) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	if s.provider == nil || !s.provider.IsAvailable() {
		return "", apperrors.NewUnavailableError("ai")
	}

	result, err := s.breaker.Execute(func() (any, error) {
		return s.provider.Complete(ctx, prompt, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperrors.NewUnavailableError("ai")
		}
		return "", fmt.Errorf("completion failed: %w", err)
	}

	return result.(string), nil
}

// GetContext searches the scope's memory and assembles the hits into a
// plain-text block for prompt stuffing. No hits yields an empty string, not
// an error.
func (s *Service) GetContext(ctx context.Context, query, scopeID string) (string, error) {
	entries, err := s.memory.Search(ctx, scopeID, query, contextSearchLimit)
	if err != nil {
		return "", fmt.Errorf("failed to search memory: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Relevant notes:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", entry.Title, entry.Content)
	}
	return b.String(), nil
}

// StoreMemory records a titled note in the scope's memory.
func (s *Service) StoreMemory(ctx context.Context, scopeID, title, content string) error {
	if err := s.memory.Store(ctx, scopeID, title, content); err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}
	s.logger.Debug("Stored memory",
		zap.String("scopeId", scopeID),
		zap.String("title", title))
	return nil
}
