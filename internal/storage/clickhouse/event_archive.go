package clickhouse

import (
	"context"
	"fmt"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventArchive implements storage.EventArchive using ClickHouse.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchive)(nil)

// InsertBulk adds events. Fails entire batch on duplicate seq.
func (s *EventArchive) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seqs := make([]uint64, 0, len(events))
	seen := make(map[uint64]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Seq == 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.Seq] = struct{}{}
		seqs = append(seqs, e.Seq)
	}

	// MergeTree does not enforce keys, so check existing rows explicitly
	var existing uint64
	if err := s.conn.QueryRow(ctx,
		`SELECT count() FROM launch_events WHERE seq IN (?)`, seqs,
	).Scan(&existing); err != nil {
		return fmt.Errorf("check existing seqs: %w", err)
	}
	if existing > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO launch_events (
			seq, type, launch_id, block, actor, target,
			amount, tokens, refunded, fee, count, flag, reason, ref
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		var flag uint8
		if e.Flag {
			flag = 1
		}
		err = batch.Append(
			e.Seq, string(e.Type), e.LaunchID, e.Block,
			e.Actor.String(), e.Target.String(),
			e.Amount.String(), e.Tokens.String(), e.Refunded.String(), e.Fee.String(),
			e.Count, flag, e.Reason, e.Ref,
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

// GetByLaunch retrieves archived events of a launch, ordered by seq ASC.
func (s *EventArchive) GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Event, error) {
	query := `
		SELECT seq, type, launch_id, block, actor, target,
		       amount, tokens, refunded, fee, count, flag, reason, ref
		FROM launch_events FINAL
		WHERE launch_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, launchID)
	if err != nil {
		return nil, fmt.Errorf("query archived events: %w", err)
	}
	defer rows.Close()

	var result []*domain.Event
	for rows.Next() {
		var (
			e                              domain.Event
			typ, actor, target             string
			amount, tokens, refunded, feeS string
			flag                           uint8
		)
		if err := rows.Scan(
			&e.Seq, &typ, &e.LaunchID, &e.Block, &actor, &target,
			&amount, &tokens, &refunded, &feeS, &e.Count, &flag, &e.Reason, &e.Ref,
		); err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}

		e.Type = domain.EventType(typ)
		e.Flag = flag == 1
		if e.Actor, err = domain.ParseIdentity(actor); err != nil {
			return nil, fmt.Errorf("decode actor: %w", err)
		}
		if e.Target, err = domain.ParseIdentity(target); err != nil {
			return nil, fmt.Errorf("decode target: %w", err)
		}
		for _, f := range []struct {
			dst *domain.Amount
			src string
		}{{&e.Amount, amount}, {&e.Tokens, tokens}, {&e.Refunded, refunded}, {&e.Fee, feeS}} {
			if *f.dst, err = domain.ParseAmount(f.src); err != nil {
				return nil, fmt.Errorf("decode amount: %w", err)
			}
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived events: %w", err)
	}
	return result, nil
}

// CountByType returns event counts per type for a launch.
func (s *EventArchive) CountByType(ctx context.Context, launchID uint64) (map[domain.EventType]uint64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT type, count() AS n
		FROM launch_events FINAL
		WHERE launch_id = ?
		GROUP BY type
	`, launchID)
	if err != nil {
		return nil, fmt.Errorf("count archived events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]uint64)
	for rows.Next() {
		var (
			typ string
			n   uint64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.EventType(typ)] = n
	}
	return counts, rows.Err()
}
