package clickhouse

import (
	"context"
	"fmt"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/storage"
)

// SimulationStore implements storage.SimulationStore using ClickHouse.
type SimulationStore struct {
	conn *Conn
}

// NewSimulationStore creates a new SimulationStore.
func NewSimulationStore(conn *Conn) *SimulationStore {
	return &SimulationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SimulationStore = (*SimulationStore)(nil)

const simulationColumns = `
	run_id, call_id, plan_id,
	entry_timestamp_ms, entry_price, position_notional_usd,
	exit_timestamp_ms, exit_reason, fill_count, re_entry_count,
	gross_return_pct, net_return_pct, fees_usd, exit_price_vwap,
	no_exit, outcome_class
`

// Insert adds a new record. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationStore) Insert(ctx context.Context, r *domain.SimulationRecord) error {
	return s.InsertBulk(ctx, []*domain.SimulationRecord{r})
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *SimulationStore) InsertBulk(ctx context.Context, records []*domain.SimulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.RunID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.RunID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.RunID] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.RunID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO simulation_records (`+simulationColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.RunID, r.CallID, r.PlanID,
			uint64(r.EntryTimestampMs), r.EntryPrice, r.PositionNotionalUSD,
			uint64(r.ExitTimestampMs), r.ExitReason, uint32(r.FillCount), uint32(r.ReEntryCount),
			r.GrossReturnPct, r.NetReturnPct, r.FeesUSD, r.ExitPriceVWAP,
			boolToUInt8(r.NoExit), r.OutcomeClass,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves a record by its run ID. Returns ErrNotFound if not exists.
func (s *SimulationStore) GetByRunID(ctx context.Context, runID string) (*domain.SimulationRecord, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulation_records WHERE run_id = ?`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	records, err := scanSimulationRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// GetByCallID retrieves all records for a call, ordered by entry time ASC.
func (s *SimulationStore) GetByCallID(ctx context.Context, callID string) ([]*domain.SimulationRecord, error) {
	query := `
		SELECT ` + simulationColumns + `
		FROM simulation_records
		WHERE call_id = ?
		ORDER BY entry_timestamp_ms ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, callID)
	if err != nil {
		return nil, fmt.Errorf("query by call id: %w", err)
	}
	defer rows.Close()

	return scanSimulationRecords(rows)
}

// GetByPlanID retrieves all records for an exit plan, ordered by entry time ASC.
func (s *SimulationStore) GetByPlanID(ctx context.Context, planID string) ([]*domain.SimulationRecord, error) {
	query := `
		SELECT ` + simulationColumns + `
		FROM simulation_records
		WHERE plan_id = ?
		ORDER BY entry_timestamp_ms ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("query by plan id: %w", err)
	}
	defer rows.Close()

	return scanSimulationRecords(rows)
}

// GetAll retrieves all records, ordered by entry time ASC.
func (s *SimulationStore) GetAll(ctx context.Context) ([]*domain.SimulationRecord, error) {
	query := `
		SELECT ` + simulationColumns + `
		FROM simulation_records
		ORDER BY entry_timestamp_ms ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	return scanSimulationRecords(rows)
}

// exists checks if a record with the given run_id exists.
func (s *SimulationStore) exists(ctx context.Context, runID string) (bool, error) {
	query := `SELECT count(*) FROM simulation_records WHERE run_id = ?`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSimulationRecords scans multiple rows.
func scanSimulationRecords(rows chRows) ([]*domain.SimulationRecord, error) {
	var records []*domain.SimulationRecord

	for rows.Next() {
		var r domain.SimulationRecord
		var entryTs, exitTs uint64
		var fillCount, reEntryCount uint32
		var noExit uint8

		err := rows.Scan(
			&r.RunID, &r.CallID, &r.PlanID,
			&entryTs, &r.EntryPrice, &r.PositionNotionalUSD,
			&exitTs, &r.ExitReason, &fillCount, &reEntryCount,
			&r.GrossReturnPct, &r.NetReturnPct, &r.FeesUSD, &r.ExitPriceVWAP,
			&noExit, &r.OutcomeClass,
		)
		if err != nil {
			return nil, fmt.Errorf("scan simulation record row: %w", err)
		}

		r.EntryTimestampMs = int64(entryTs)
		r.ExitTimestampMs = int64(exitTs)
		r.FillCount = int(fillCount)
		r.ReEntryCount = int(reEntryCount)
		r.NoExit = noExit != 0
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation record rows: %w", err)
	}

	return records, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
