package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]candleRow // keyed by (mint, timestamp_ms)
}

type candleRow struct {
	mint   string
	candle domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]candleRow),
	}
}

// candleKey generates a unique key for a candle.
func candleKey(mint string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", mint, timestampMs)
}

// InsertBulk adds multiple candles for a mint. Fails entire batch on duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, mint string, candles []domain.Candle) error {
	if mint == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(candles))

	// First pass: check for duplicates (existing + intra-batch)
	for _, c := range candles {
		key := candleKey(mint, c.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, c := range candles {
		s.data[candleKey(mint, c.TimestampMs)] = candleRow{mint: mint, candle: c}
	}

	return nil
}

// GetByMint retrieves all candles for a mint, ordered by timestamp ASC.
func (s *CandleStore) GetByMint(_ context.Context, mint string) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Candle
	for _, row := range s.data {
		if row.mint == mint {
			result = append(result, row.candle)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves candles for a mint within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Candle
	for _, row := range s.data {
		if row.mint == mint && row.candle.TimestampMs >= start && row.candle.TimestampMs <= end {
			result = append(result, row.candle)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
