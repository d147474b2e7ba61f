package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// SettlementStore implements storage.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *Pool
}

// NewSettlementStore creates a new SettlementStore.
func NewSettlementStore(pool *Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SettlementStore = (*SettlementStore)(nil)

const settlementColumns = `
	id, kind, launch_id, token, from_account, to_account, amount::text,
	status, reason, attempts, created_at, updated_at
`

// Insert adds a new settlement. Returns ErrDuplicateKey if id exists.
func (s *SettlementStore) Insert(ctx context.Context, st *domain.Settlement) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO settlements (
			id, kind, launch_id, token, from_account, to_account, amount,
			status, reason, attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12)
	`

	_, err := s.pool.Exec(ctx, query,
		st.ID, string(st.Kind), int64(st.LaunchID), st.Token.String(), st.From.String(), st.To.String(),
		st.Amount.String(), string(st.Status), st.Reason, int32(st.Attempts),
		int64(st.CreatedAt), int64(st.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert settlement: %w", err)
	}
	return nil
}

// Update replaces status, reason, attempts and updated_at. Returns ErrNotFound if not exists.
func (s *SettlementStore) Update(ctx context.Context, st *domain.Settlement) error {
	if st == nil || st.ID == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE settlements
		SET status = $2, reason = $3, attempts = $4, updated_at = $5
		WHERE id = $1
	`, st.ID, string(st.Status), st.Reason, int32(st.Attempts), int64(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a settlement by id. Returns ErrNotFound if not exists.
func (s *SettlementStore) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
	st, err := scanSettlement(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get settlement by id: %w", err)
	}
	return st, nil
}

// GetByLaunch retrieves settlements of a launch, ordered by created_at ASC, id ASC.
func (s *SettlementStore) GetByLaunch(ctx context.Context, launchID uint64) ([]*domain.Settlement, error) {
	return s.query(ctx, "get settlements by launch",
		`SELECT `+settlementColumns+` FROM settlements WHERE launch_id = $1 ORDER BY created_at ASC, id ASC`,
		int64(launchID))
}

// GetByStatus retrieves settlements in status, ordered by created_at ASC, id ASC.
func (s *SettlementStore) GetByStatus(ctx context.Context, status domain.SettlementStatus) ([]*domain.Settlement, error) {
	return s.query(ctx, "get settlements by status",
		`SELECT `+settlementColumns+` FROM settlements WHERE status = $1 ORDER BY created_at ASC, id ASC`,
		string(status))
}

func (s *SettlementStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Settlement, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*domain.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return result, nil
}

// scanSettlement scans a single row into a Settlement.
func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		st                         domain.Settlement
		kind, status               string
		token, from, to, amount    string
		launchID, created, updated int64
		attempts                   int32
	)

	if err := row.Scan(
		&st.ID, &kind, &launchID, &token, &from, &to, &amount,
		&status, &st.Reason, &attempts, &created, &updated,
	); err != nil {
		return nil, err
	}

	st.Kind = domain.SettlementKind(kind)
	st.Status = domain.SettlementStatus(status)
	st.LaunchID = uint64(launchID)
	st.Attempts = int(attempts)
	st.CreatedAt = uint64(created)
	st.UpdatedAt = uint64(updated)

	if err := parseIdentities(
		[]*domain.Identity{&st.Token, &st.From, &st.To},
		[]string{token, from, to},
	); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	a, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	st.Amount = a
	return &st, nil
}
