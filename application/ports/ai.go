package ports

import (
	"context"
	"time"
)

// CompletionOptions controls a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	Format      string // "json" requests structured output
}

// AIService is the single injected capability for everything AI-adjacent:
// completions for extraction, and the long-term memory the suite mirrors
// decisions into. There is no global instance; callers receive it injected
// and must tolerate IsAvailable() == false, in which case the no-op
// implementation is wired instead.
type AIService interface {
	// IsAvailable reports whether the backing provider is configured and
	// reachable enough to try a call.
	IsAvailable(ctx context.Context) bool

	// Complete runs one prompt and returns the raw model output.
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

	// GetContext retrieves remembered material relevant to a query within
	// a scope (tenant or intent).
	GetContext(ctx context.Context, query, scopeID string) (string, error)

	// StoreMemory records a titled note in a scope. Callers treat this as
	// best-effort; failures are logged, never propagated to users.
	StoreMemory(ctx context.Context, scopeID, title, content string) error
}

// MemoryEntry is one remembered note returned from a memory search.
type MemoryEntry struct {
	Title     string
	Content   string
	CreatedAt time.Time
}

// MemoryStore is the persistence seam behind AIService's memory methods.
// Scope ids are opaque to the store; the suite uses intent ids and tenant
// ids. Search relevance is recency plus naive term matching, nothing more.
type MemoryStore interface {
	Store(ctx context.Context, scopeID, title, content string) error
	Search(ctx context.Context, scopeID, query string, limit int) ([]MemoryEntry, error)
}
