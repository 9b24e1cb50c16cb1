package memory

import (
	"context"
	"sort"
	"sync"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// SimulationStore is an in-memory implementation of storage.SimulationStore.
type SimulationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRecord // keyed by run_id
}

// NewSimulationStore creates a new in-memory simulation store.
func NewSimulationStore() *SimulationStore {
	return &SimulationStore{
		data: make(map[string]*domain.SimulationRecord),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationStore) Insert(_ context.Context, r *domain.SimulationRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	s.data[r.RunID] = &copy
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SimulationStore) InsertBulk(_ context.Context, records []*domain.SimulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(records))

	// First pass: check for duplicates (existing + intra-batch)
	for _, r := range records {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}

		if _, exists := s.data[r.RunID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RunID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RunID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		copy := *r
		s.data[r.RunID] = &copy
	}

	return nil
}

// GetByRunID retrieves a record by its run ID. Returns ErrNotFound if not exists.
func (s *SimulationStore) GetByRunID(_ context.Context, runID string) (*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *r
	return &copy, nil
}

// GetByCallID retrieves all records for a call, ordered by entry time ASC.
func (s *SimulationStore) GetByCallID(_ context.Context, callID string) ([]*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRecord
	for _, r := range s.data {
		if r.CallID == callID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortRecords(result)
	return result, nil
}

// GetByPlanID retrieves all records for an exit plan, ordered by entry time ASC.
func (s *SimulationStore) GetByPlanID(_ context.Context, planID string) ([]*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRecord
	for _, r := range s.data {
		if r.PlanID == planID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortRecords(result)
	return result, nil
}

// GetAll retrieves all records, ordered by entry time ASC.
func (s *SimulationStore) GetAll(_ context.Context) ([]*domain.SimulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationRecord, 0, len(s.data))
	for _, r := range s.data {
		copy := *r
		result = append(result, &copy)
	}

	sortRecords(result)
	return result, nil
}

// sortRecords orders by entry time, breaking ties by run_id for determinism.
func sortRecords(records []*domain.SimulationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EntryTimestampMs != records[j].EntryTimestampMs {
			return records[i].EntryTimestampMs < records[j].EntryTimestampMs
		}
		return records[i].RunID < records[j].RunID
	})
}

var _ storage.SimulationStore = (*SimulationStore)(nil)
