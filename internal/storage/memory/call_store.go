package memory

import (
	"context"
	"sort"
	"sync"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// CallStore is an in-memory implementation of storage.CallStore.
type CallStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenCall // keyed by call_id
}

// NewCallStore creates a new in-memory call store.
func NewCallStore() *CallStore {
	return &CallStore{
		data: make(map[string]*domain.TokenCall),
	}
}

// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(_ context.Context, c *domain.TokenCall) error {
	if c == nil || c.CallID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CallID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *c
	s.data[c.CallID] = &copy
	return nil
}

// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(_ context.Context, callID string) (*domain.TokenCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[callID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *c
	return &copy, nil
}

// GetByMint retrieves all calls for a given mint address, ordered by called_at ASC.
func (s *CallStore) GetByMint(_ context.Context, mint string) ([]*domain.TokenCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenCall
	for _, c := range s.data {
		if c.Mint == mint {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CalledAtMs < result[j].CalledAtMs
	})

	return result, nil
}

// GetBySource retrieves all calls of a given source, ordered by called_at ASC.
func (s *CallStore) GetBySource(_ context.Context, source string) ([]*domain.TokenCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenCall
	for _, c := range s.data {
		if c.Source == source {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CalledAtMs < result[j].CalledAtMs
	})

	return result, nil
}

// GetByTimeRange retrieves calls made within [start, end] (inclusive).
func (s *CallStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TokenCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenCall
	for _, c := range s.data {
		if c.CalledAtMs >= start && c.CalledAtMs <= end {
			copy := *c
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CalledAtMs < result[j].CalledAtMs
	})

	return result, nil
}

var _ storage.CallStore = (*CallStore)(nil)
