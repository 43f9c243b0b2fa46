package ai

import (
	"context"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

// NoopService is the ports.AIService wired when no model is configured.
// Everything AI-adjacent degrades: extraction is rejected upstream because
// IsAvailable is false, and the decision memory mirror silently skips.
type NoopService struct{}

var _ ports.AIService = (*NoopService)(nil)

// NewNoopService returns the disabled AI capability.
func NewNoopService() *NoopService {
	return &NoopService{}
}

// IsAvailable always reports false.
func (s *NoopService) IsAvailable(ctx context.Context) bool {
	return false
}

// Complete always fails; callers are expected to check IsAvailable first.
func (s *NoopService) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	return "", apperrors.NewUnavailableError("ai")
}

// GetContext returns no context.
func (s *NoopService) GetContext(ctx context.Context, query, scopeID string) (string, error) {
	return "", nil
}

// StoreMemory drops the note. Memory writes are best-effort everywhere, so
// swallowing them here keeps disabled deployments quiet.
func (s *NoopService) StoreMemory(ctx context.Context, scopeID, title, content string) error {
	return nil
}
