package clickhouse

import (
	"context"
	"fmt"

	"solana-token-studio/internal/domain"
	"solana-token-studio/internal/storage"
)

// FundingEventStore implements storage.FundingEventStore using ClickHouse.
type FundingEventStore struct {
	conn *Conn
}

// NewFundingEventStore creates a new FundingEventStore.
func NewFundingEventStore(conn *Conn) *FundingEventStore {
	return &FundingEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FundingEventStore = (*FundingEventStore)(nil)

// Insert adds a new event. MergeTree does not enforce keys, so event_id is
// checked before the write.
func (s *FundingEventStore) Insert(ctx context.Context, e *domain.FundingEvent) error {
	if err := storage.ValidateFundingEvent(e); err != nil {
		return err
	}

	exists, err := s.exists(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO funding_events (
			event_id, owner, bundler, kind,
			required_lamports, balance_before_lamports, funded_lamports, balance_after_lamports,
			tx_signature, created_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.ID, e.Owner, e.Bundler, string(e.Kind),
		uint64(e.Required), uint64(e.BalanceBefore), uint64(e.Funded), uint64(e.BalanceAfter),
		e.TxSignature, uint64(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByOwner retrieves all events for a wallet, ordered by created_at ASC.
func (s *FundingEventStore) GetByOwner(ctx context.Context, owner string) ([]*domain.FundingEvent, error) {
	query := `
		SELECT event_id, owner, bundler, kind,
			required_lamports, balance_before_lamports, funded_lamports, balance_after_lamports,
			tx_signature, created_at_ms
		FROM funding_events
		WHERE owner = ?
		ORDER BY created_at_ms ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query by owner: %w", err)
	}
	defer rows.Close()

	return scanFundingEvents(rows)
}

// TotalFunded returns the lamports a wallet has sent to storage nodes.
func (s *FundingEventStore) TotalFunded(ctx context.Context, owner string) (domain.Lamports, error) {
	query := `SELECT sum(funded_lamports) FROM funding_events WHERE owner = ?`

	var total uint64
	if err := s.conn.QueryRow(ctx, query, owner).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum funded: %w", err)
	}
	return domain.Lamports(total), nil
}

// exists checks if an event with the given id exists.
func (s *FundingEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM funding_events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanFundingEvents scans multiple rows.
func scanFundingEvents(rows chRows) ([]*domain.FundingEvent, error) {
	var events []*domain.FundingEvent

	for rows.Next() {
		var e domain.FundingEvent
		var kind string
		var required, before, funded, after, createdAt uint64

		err := rows.Scan(
			&e.ID, &e.Owner, &e.Bundler, &kind,
			&required, &before, &funded, &after,
			&e.TxSignature, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan funding event row: %w", err)
		}

		e.Kind = domain.ArtifactKind(kind)
		e.Required = domain.Lamports(required)
		e.BalanceBefore = domain.Lamports(before)
		e.Funded = domain.Lamports(funded)
		e.BalanceAfter = domain.Lamports(after)
		e.CreatedAt = int64(createdAt)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funding event rows: %w", err)
	}

	return events, nil
}
