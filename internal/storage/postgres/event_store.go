package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	seq, type, launch_id, block, actor, target,
	amount::text, tokens::text, refunded::text, fee::text,
	count, flag, reason, ref
`

// Append stores e and assigns seq from the BIGSERIAL.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) (uint64, error) {
	if e == nil || e.Type == "" {
		return 0, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO events (
			type, launch_id, block, actor, target,
			amount, tokens, refunded, fee, count, flag, reason, ref
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric, $10, $11, $12, $13)
		RETURNING seq
	`

	var seq int64
	err := s.pool.QueryRow(ctx, query,
		string(e.Type), int64(e.LaunchID), int64(e.Block), e.Actor.String(), e.Target.String(),
		e.Amount.String(), e.Tokens.String(), e.Refunded.String(), e.Fee.String(),
		int64(e.Count), e.Flag, e.Reason, e.Ref,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}

	e.Seq = uint64(seq)
	return e.Seq, nil
}

// GetByLaunch retrieves all events of a launch, ordered by seq ASC.
func (s *EventStore) GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Event, error) {
	return s.query(ctx, "get events by launch",
		`SELECT `+eventColumns+` FROM events WHERE launch_id = $1 ORDER BY seq ASC`, int64(launchID))
}

// GetRange retrieves up to limit events with seq > afterSeq, ordered by seq ASC.
func (s *EventStore) GetRange(ctx context.Context, afterSeq uint64, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	return s.query(ctx, "get event range",
		`SELECT `+eventColumns+` FROM events WHERE seq > $1 ORDER BY seq ASC LIMIT $2`, int64(afterSeq), limit)
}

// GetByType retrieves all events of a type, ordered by seq ASC.
func (s *EventStore) GetByType(ctx context.Context, eventType domain.EventType) ([]*domain.Event, error) {
	return s.query(ctx, "get events by type",
		`SELECT `+eventColumns+` FROM events WHERE type = $1 ORDER BY seq ASC`, string(eventType))
}

func (s *EventStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return result, nil
}

// scanEvent scans a single row into an Event.
func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e                             domain.Event
		seq, launchID, block, count   int64
		typ, actor, target            string
		amount, tokens, refunded, fee string
	)

	if err := row.Scan(
		&seq, &typ, &launchID, &block, &actor, &target,
		&amount, &tokens, &refunded, &fee,
		&count, &e.Flag, &e.Reason, &e.Ref,
	); err != nil {
		return nil, err
	}

	e.Seq = uint64(seq)
	e.Type = domain.EventType(typ)
	e.LaunchID = uint64(launchID)
	e.Block = uint64(block)
	e.Count = uint64(count)

	if err := parseIdentities([]*domain.Identity{&e.Actor, &e.Target}, []string{actor, target}); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if err := parseAmounts(
		[]*domain.Amount{&e.Amount, &e.Tokens, &e.Refunded, &e.Fee},
		[]string{amount, tokens, refunded, fee},
	); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	return &e, nil
}
