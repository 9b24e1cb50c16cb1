package storage

import (
	"context"

	"crypto-call-lab/internal/domain"
)

// CallStore provides access to token_calls storage.
type CallStore interface {
	// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
	Insert(ctx context.Context, c *domain.TokenCall) error

	// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, callID string) (*domain.TokenCall, error)

	// GetByMint retrieves all calls for a given mint address.
	GetByMint(ctx context.Context, mint string) ([]*domain.TokenCall, error)

	// GetBySource retrieves all calls of a given source.
	GetBySource(ctx context.Context, source string) ([]*domain.TokenCall, error)

	// GetByTimeRange retrieves calls made within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TokenCall, error)
}

// CandleStore provides access to candles storage, keyed by mint.
type CandleStore interface {
	// InsertBulk adds multiple candles for a mint. Fails entire batch on
	// duplicate (mint, timestamp_ms).
	InsertBulk(ctx context.Context, mint string, candles []domain.Candle) error

	// GetByMint retrieves all candles for a mint, ordered by timestamp ASC.
	GetByMint(ctx context.Context, mint string) ([]domain.Candle, error)

	// GetByTimeRange retrieves candles for a mint within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, mint string, start, end int64) ([]domain.Candle, error)
}

// SimulationStore provides access to simulation_records storage.
type SimulationStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.SimulationRecord) error

	// GetByRunID retrieves a record by its run ID. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.SimulationRecord, error)

	// GetByCallID retrieves all records for a call.
	GetByCallID(ctx context.Context, callID string) ([]*domain.SimulationRecord, error)

	// GetByPlanID retrieves all records for an exit plan.
	GetByPlanID(ctx context.Context, planID string) ([]*domain.SimulationRecord, error)

	// GetAll retrieves all records.
	GetAll(ctx context.Context) ([]*domain.SimulationRecord, error)
}
