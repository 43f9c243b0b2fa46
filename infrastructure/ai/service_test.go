package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

type stubProvider struct {
	available bool
	response  string
	err       error
	calls     int
}

func (p *stubProvider) Complete(ctx context.Context, prompt string, opts ports.CompletionOptions) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *stubProvider) IsAvailable() bool { return p.available }

type stubMemory struct {
	entries   []ports.MemoryEntry
	searchErr error
	storeErr  error

	storedScope   string
	storedTitle   string
	storedContent string
}

func (m *stubMemory) Store(ctx context.Context, scopeID, title, content string) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.storedScope = scopeID
	m.storedTitle = title
	m.storedContent = content
	return nil
}

func (m *stubMemory) Search(ctx context.Context, scopeID, query string, limit int) ([]ports.MemoryEntry, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.entries) > limit {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func TestService_Complete_Delegates(t *testing.T) {
	provider := &stubProvider{available: true, response: "done"}
	svc := NewService(provider, &stubMemory{}, zap.NewNop())

	out, err := svc.Complete(context.Background(), "prompt", ports.CompletionOptions{})

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 1, provider.calls)
	assert.True(t, svc.IsAvailable(context.Background()))
}

func TestService_Complete_ProviderNotConfigured(t *testing.T) {
	provider := &stubProvider{available: false}
	svc := NewService(provider, &stubMemory{}, zap.NewNop())

	_, err := svc.Complete(context.Background(), "prompt", ports.CompletionOptions{})

	assert.True(t, apperrors.IsUnavailable(err))
	assert.Zero(t, provider.calls)
	assert.False(t, svc.IsAvailable(context.Background()))
}

func TestService_Complete_BreakerOpensAfterFailures(t *testing.T) {
	provider := &stubProvider{available: true, err: errors.New("endpoint down")}
	svc := NewService(provider, &stubMemory{}, zap.NewNop())

	// Three straight failures trip the breaker.
	for i := 0; i < 3; i++ {
		_, err := svc.Complete(context.Background(), "prompt", ports.CompletionOptions{})
		require.Error(t, err)
		assert.False(t, apperrors.IsUnavailable(err))
	}
	assert.Equal(t, 3, provider.calls)

	// The breaker is open now: the provider is no longer called and the
	// capability reports itself unavailable.
	_, err := svc.Complete(context.Background(), "prompt", ports.CompletionOptions{})
	assert.True(t, apperrors.IsUnavailable(err))
	assert.Equal(t, 3, provider.calls)
	assert.False(t, svc.IsAvailable(context.Background()))
}

func TestService_GetContext_FormatsEntries(t *testing.T) {
	memory := &stubMemory{entries: []ports.MemoryEntry{
		{Title: "Decision committed: Use Postgres", Content: "Chosen over Dynamo for relational reporting.", CreatedAt: time.Now()},
		{Title: "Decision committed: Weekly sync", Content: "Mondays 10:00.", CreatedAt: time.Now()},
	}}
	svc := NewService(&stubProvider{available: true}, memory, zap.NewNop())

	out, err := svc.GetContext(context.Background(), "postgres", "intent-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Relevant notes:")
	assert.Contains(t, out, "Decision committed: Use Postgres: Chosen over Dynamo for relational reporting.")
	assert.Contains(t, out, "Mondays 10:00.")
}

func TestService_GetContext_NoHits(t *testing.T) {
	svc := NewService(&stubProvider{available: true}, &stubMemory{}, zap.NewNop())

	out, err := svc.GetContext(context.Background(), "anything", "intent-1")

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestService_GetContext_SearchError(t *testing.T) {
	memory := &stubMemory{searchErr: errors.New("table missing")}
	svc := NewService(&stubProvider{available: true}, memory, zap.NewNop())

	_, err := svc.GetContext(context.Background(), "anything", "intent-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search memory")
}

func TestService_StoreMemory_Delegates(t *testing.T) {
	memory := &stubMemory{}
	svc := NewService(&stubProvider{available: true}, memory, zap.NewNop())

	err := svc.StoreMemory(context.Background(), "tenant-1", "a title", "a body")

	require.NoError(t, err)
	assert.Equal(t, "tenant-1", memory.storedScope)
	assert.Equal(t, "a title", memory.storedTitle)
	assert.Equal(t, "a body", memory.storedContent)
}

func TestNoopService(t *testing.T) {
	svc := NewNoopService()

	assert.False(t, svc.IsAvailable(context.Background()))

	_, err := svc.Complete(context.Background(), "prompt", ports.CompletionOptions{})
	assert.True(t, apperrors.IsUnavailable(err))

	out, err := svc.GetContext(context.Background(), "query", "scope")
	require.NoError(t, err)
	assert.Empty(t, out)

	assert.NoError(t, svc.StoreMemory(context.Background(), "scope", "title", "content"))
}
