package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// PlatformStore implements storage.PlatformStore using PostgreSQL.
type PlatformStore struct {
	pool *Pool
}

// NewPlatformStore creates a new PlatformStore.
func NewPlatformStore(pool *Pool) *PlatformStore {
	return &PlatformStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PlatformStore = (*PlatformStore)(nil)

// Get retrieves the platform record. Returns ErrNotFound before the first Put.
func (s *PlatformStore) Get(ctx context.Context) (*domain.Platform, error) {
	query := `
		SELECT owner, self_account, fee_recipient, paused, fee_basis_points,
		       fees_accumulated::text, fees_withdrawn::text, fee_guard, settling
		FROM platform
		WHERE id = 1
	`

	var (
		p                      domain.Platform
		owner, self, recipient string
		bps                    int32
		accumulated, withdrawn string
		settling               []byte
	)
	err := s.pool.QueryRow(ctx, query).Scan(
		&owner, &self, &recipient, &p.Paused, &bps, &accumulated, &withdrawn, &p.FeeGuard, &settling,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get platform: %w", err)
	}

	p.Fees.BasisPoints = uint16(bps)
	if err := parseIdentities(
		[]*domain.Identity{&p.Owner, &p.Self, &p.FeeRecipient},
		[]string{owner, self, recipient},
	); err != nil {
		return nil, fmt.Errorf("decode platform identity: %w", err)
	}
	if err := parseAmounts(
		[]*domain.Amount{&p.Fees.Accumulated, &p.Fees.Withdrawn},
		[]string{accumulated, withdrawn},
	); err != nil {
		return nil, fmt.Errorf("decode platform fees: %w", err)
	}
	if err := json.Unmarshal(settling, &p.Settling); err != nil {
		return nil, fmt.Errorf("decode platform settling: %w", err)
	}
	if len(p.Settling) == 0 {
		p.Settling = nil
	}
	return &p, nil
}

// Put creates or replaces the platform record.
func (s *PlatformStore) Put(ctx context.Context, p *domain.Platform) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	settling, err := json.Marshal(nonNilIDs(p.Settling))
	if err != nil {
		return fmt.Errorf("encode platform settling: %w", err)
	}

	query := `
		INSERT INTO platform (
			id, owner, self_account, fee_recipient, paused, fee_basis_points,
			fees_accumulated, fees_withdrawn, fee_guard, settling
		) VALUES (1, $1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			self_account = EXCLUDED.self_account,
			fee_recipient = EXCLUDED.fee_recipient,
			paused = EXCLUDED.paused,
			fee_basis_points = EXCLUDED.fee_basis_points,
			fees_accumulated = EXCLUDED.fees_accumulated,
			fees_withdrawn = EXCLUDED.fees_withdrawn,
			fee_guard = EXCLUDED.fee_guard,
			settling = EXCLUDED.settling,
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		p.Owner.String(), p.Self.String(), p.FeeRecipient.String(),
		p.Paused, int32(p.Fees.BasisPoints),
		p.Fees.Accumulated.String(), p.Fees.Withdrawn.String(), p.FeeGuard, settling,
	)
	if err != nil {
		return fmt.Errorf("put platform: %w", err)
	}
	return nil
}
