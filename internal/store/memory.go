package store

import (
	"context"
	"sync"
	"time"

	"github.com/sagarsarangi/startup-check/models"
)

// MemoryStore is the process-local backend used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	pairs map[string]Pair
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pairs: make(map[string]Pair)}
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, input models.StartupInput, result models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[sessionID] = Pair{Input: input, Result: result, SavedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.pairs[sessionID]
	if !ok {
		return Pair{}, models.ErrNoAnalysis
	}
	return pair, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, sessionID)
	return nil
}
