package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/DoozHub/dooz-pm-suite/application/ports"
)

// MemoryStore is the in-memory ports.MemoryStore.
type MemoryStore struct {
	mu    sync.Mutex
	notes map[string][]ports.MemoryEntry // scopeID -> notes in append order
}

var _ ports.MemoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: make(map[string][]ports.MemoryEntry)}
}

func (s *MemoryStore) Store(ctx context.Context, scopeID, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[scopeID] = append(s.notes[scopeID], ports.MemoryEntry{
		Title:     title,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Search returns up to limit notes matching a query term, newest first.
// An empty query matches everything.
func (s *MemoryStore) Search(ctx context.Context, scopeID, query string, limit int) ([]ports.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	terms := strings.Fields(strings.ToLower(query))
	scoped := s.notes[scopeID]
	entries := make([]ports.MemoryEntry, 0, limit)
	for i := len(scoped) - 1; i >= 0; i-- {
		if !entryMatches(scoped[i], terms) {
			continue
		}
		entries = append(entries, scoped[i])
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}

func entryMatches(entry ports.MemoryEntry, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	haystack := strings.ToLower(entry.Title + " " + entry.Content)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}
