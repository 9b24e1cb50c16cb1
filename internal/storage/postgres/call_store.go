package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// CallStore implements storage.CallStore using PostgreSQL.
type CallStore struct {
	pool *Pool
}

// NewCallStore creates a new CallStore.
func NewCallStore(pool *Pool) *CallStore {
	return &CallStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CallStore = (*CallStore)(nil)

// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(ctx context.Context, c *domain.TokenCall) error {
	if c == nil || c.CallID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_calls (
			call_id, mint, symbol, source, called_at_ms, call_price
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		c.CallID,
		c.Mint,
		c.Symbol,
		c.Source,
		c.CalledAtMs,
		c.CallPrice,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(ctx context.Context, callID string) (*domain.TokenCall, error) {
	query := `
		SELECT call_id, mint, symbol, source, called_at_ms, call_price
		FROM token_calls
		WHERE call_id = $1
	`

	row := s.pool.QueryRow(ctx, query, callID)
	c, err := scanCall(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get call by id: %w", err)
	}
	return c, nil
}

// GetByMint retrieves all calls for a given mint address.
func (s *CallStore) GetByMint(ctx context.Context, mint string) ([]*domain.TokenCall, error) {
	query := `
		SELECT call_id, mint, symbol, source, called_at_ms, call_price
		FROM token_calls
		WHERE mint = $1
		ORDER BY called_at_ms ASC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get calls by mint: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// GetBySource retrieves all calls of a given source.
func (s *CallStore) GetBySource(ctx context.Context, source string) ([]*domain.TokenCall, error) {
	query := `
		SELECT call_id, mint, symbol, source, called_at_ms, call_price
		FROM token_calls
		WHERE source = $1
		ORDER BY called_at_ms ASC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("get calls by source: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// GetByTimeRange retrieves calls made within [start, end] (inclusive).
func (s *CallStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TokenCall, error) {
	query := `
		SELECT call_id, mint, symbol, source, called_at_ms, call_price
		FROM token_calls
		WHERE called_at_ms >= $1 AND called_at_ms <= $2
		ORDER BY called_at_ms ASC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get calls by time range: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// scanCall scans a single row into a TokenCall.
func scanCall(row pgx.Row) (*domain.TokenCall, error) {
	var c domain.TokenCall

	err := row.Scan(
		&c.CallID,
		&c.Mint,
		&c.Symbol,
		&c.Source,
		&c.CalledAtMs,
		&c.CallPrice,
	)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// scanCalls scans multiple rows into a slice of TokenCall.
func scanCalls(rows pgx.Rows) ([]*domain.TokenCall, error) {
	var calls []*domain.TokenCall

	for rows.Next() {
		var c domain.TokenCall

		err := rows.Scan(
			&c.CallID,
			&c.Mint,
			&c.Symbol,
			&c.Source,
			&c.CalledAtMs,
			&c.CallPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}

		calls = append(calls, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}

	return calls, nil
}
