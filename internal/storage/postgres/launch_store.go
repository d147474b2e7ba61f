package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// LaunchStore implements storage.LaunchStore using PostgreSQL.
type LaunchStore struct {
	pool *Pool
}

// NewLaunchStore creates a new LaunchStore.
func NewLaunchStore(pool *Pool) *LaunchStore {
	return &LaunchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

const launchColumns = `
	id, creator, title, description, token,
	total_tokens::text, tokens_remaining::text, price_per_token::text,
	min_raise::text, max_raise::text, total_raised::text, total_refunded::text, max_per_wallet::text,
	start_time, end_time, whitelist_enabled, whitelist_locked,
	whitelist, contributions, claimed, vesting,
	status, outcome, end_reason, created_at,
	funds_withdrawn, tokens_deposited, guarded, settling
`

// NextID allocates the next launch id from launch_id_seq.
func (s *LaunchStore) NextID(ctx context.Context) (uint64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('launch_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next launch id: %w", err)
	}
	return uint64(id), nil
}

// Insert adds a new launch. Returns ErrDuplicateKey if id exists.
func (s *LaunchStore) Insert(ctx context.Context, l *domain.Launch) error {
	args, err := launchArgs(l)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO launches (
			id, creator, title, description, token,
			total_tokens, tokens_remaining, price_per_token,
			min_raise, max_raise, total_raised, total_refunded, max_per_wallet,
			start_time, end_time, whitelist_enabled, whitelist_locked,
			whitelist, contributions, claimed, vesting,
			status, outcome, end_reason, created_at,
			funds_withdrawn, tokens_deposited, guarded, settling
		) VALUES (
			$1, $2, $3, $4, $5,
			$6::numeric, $7::numeric, $8::numeric,
			$9::numeric, $10::numeric, $11::numeric, $12::numeric, $13::numeric,
			$14, $15, $16, $17,
			$18, $19, $20, $21,
			$22, $23, $24, $25,
			$26, $27, $28, $29
		)
	`

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch: %w", err)
	}
	return nil
}

// Update replaces an existing launch. Returns ErrNotFound if not exists.
func (s *LaunchStore) Update(ctx context.Context, l *domain.Launch) error {
	args, err := launchArgs(l)
	if err != nil {
		return err
	}

	query := `
		UPDATE launches SET
			creator = $2, title = $3, description = $4, token = $5,
			total_tokens = $6::numeric, tokens_remaining = $7::numeric, price_per_token = $8::numeric,
			min_raise = $9::numeric, max_raise = $10::numeric, total_raised = $11::numeric,
			total_refunded = $12::numeric, max_per_wallet = $13::numeric,
			start_time = $14, end_time = $15, whitelist_enabled = $16, whitelist_locked = $17,
			whitelist = $18, contributions = $19, claimed = $20, vesting = $21,
			status = $22, outcome = $23, end_reason = $24, created_at = $25,
			funds_withdrawn = $26, tokens_deposited = $27, guarded = $28, settling = $29,
			updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update launch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a launch by id. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(ctx context.Context, id uint64) (*domain.Launch, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+launchColumns+` FROM launches WHERE id = $1`, int64(id))
	l, err := scanLaunch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch by id: %w", err)
	}
	return l, nil
}

// List retrieves all launches, ordered by id ASC.
func (s *LaunchStore) List(ctx context.Context) ([]*domain.Launch, error) {
	return s.query(ctx, "list launches", `SELECT `+launchColumns+` FROM launches ORDER BY id ASC`)
}

// GetByCreator retrieves launches created by creator, ordered by id ASC.
func (s *LaunchStore) GetByCreator(ctx context.Context, creator domain.Identity) ([]*domain.Launch, error) {
	return s.query(ctx, "get launches by creator",
		`SELECT `+launchColumns+` FROM launches WHERE creator = $1 ORDER BY id ASC`, creator.String())
}

// GetByStatus retrieves launches in status, ordered by id ASC.
func (s *LaunchStore) GetByStatus(ctx context.Context, status domain.LaunchStatus) ([]*domain.Launch, error) {
	return s.query(ctx, "get launches by status",
		`SELECT `+launchColumns+` FROM launches WHERE status = $1 ORDER BY id ASC`, string(status))
}

// GetByToken retrieves launches selling token, ordered by id ASC.
func (s *LaunchStore) GetByToken(ctx context.Context, token domain.Identity) ([]*domain.Launch, error) {
	return s.query(ctx, "get launches by token",
		`SELECT `+launchColumns+` FROM launches WHERE token = $1 ORDER BY id ASC`, token.String())
}

// Count returns the number of launches.
func (s *LaunchStore) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM launches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count launches: %w", err)
	}
	return uint64(n), nil
}

func (s *LaunchStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Launch, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*domain.Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return result, nil
}

// launchArgs flattens l into the positional arguments shared by Insert and Update.
func launchArgs(l *domain.Launch) ([]any, error) {
	if l == nil || l.ID == 0 {
		return nil, storage.ErrInvalidInput
	}

	whitelist, err := json.Marshal(domain.SortedIdentities(l.Whitelist))
	if err != nil {
		return nil, fmt.Errorf("encode whitelist: %w", err)
	}
	contributions, err := json.Marshal(nonNil(l.Contributions))
	if err != nil {
		return nil, fmt.Errorf("encode contributions: %w", err)
	}
	claimed, err := json.Marshal(nonNil(l.Claimed))
	if err != nil {
		return nil, fmt.Errorf("encode claimed: %w", err)
	}
	settling, err := json.Marshal(nonNilIDs(l.Settling))
	if err != nil {
		return nil, fmt.Errorf("encode settling: %w", err)
	}
	var vesting []byte
	if l.Vesting != nil {
		if vesting, err = json.Marshal(l.Vesting); err != nil {
			return nil, fmt.Errorf("encode vesting: %w", err)
		}
	}

	return []any{
		int64(l.ID), l.Creator.String(), l.Title, l.Description, l.Token.String(),
		l.TotalTokens.String(), l.TokensRemaining.String(), l.PricePerToken.String(),
		l.MinRaise.String(), l.MaxRaise.String(), l.TotalRaised.String(), l.TotalRefunded.String(), l.MaxPerWallet.String(),
		int64(l.StartTime), int64(l.EndTime), l.WhitelistEnabled, l.WhitelistLocked,
		whitelist, contributions, claimed, vesting,
		string(l.Status), string(l.Outcome), string(l.EndReason), int64(l.CreatedAt),
		l.FundsWithdrawn, l.TokensDeposited, l.Guarded, settling,
	}, nil
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNil(m map[domain.Identity]domain.Amount) map[domain.Identity]domain.Amount {
	if m == nil {
		return map[domain.Identity]domain.Amount{}
	}
	return m
}

// scanLaunch scans a single row into a Launch.
func scanLaunch(row pgx.Row) (*domain.Launch, error) {
	var (
		l                                    domain.Launch
		id, startTime, endTime, createdAt    int64
		creator, token                       string
		totalTokens, remaining, price        string
		minRaise, maxRaise, raised, refunded string
		perWallet                            string
		whitelist, contributions, claimed    []byte
		vesting, settling                    []byte
		status, outcome, endReason           string
	)

	err := row.Scan(
		&id, &creator, &l.Title, &l.Description, &token,
		&totalTokens, &remaining, &price,
		&minRaise, &maxRaise, &raised, &refunded, &perWallet,
		&startTime, &endTime, &l.WhitelistEnabled, &l.WhitelistLocked,
		&whitelist, &contributions, &claimed, &vesting,
		&status, &outcome, &endReason, &createdAt,
		&l.FundsWithdrawn, &l.TokensDeposited, &l.Guarded, &settling,
	)
	if err != nil {
		return nil, err
	}

	l.ID = uint64(id)
	l.StartTime = uint64(startTime)
	l.EndTime = uint64(endTime)
	l.CreatedAt = uint64(createdAt)
	l.Status = domain.LaunchStatus(status)
	l.Outcome = domain.LaunchStatus(outcome)
	l.EndReason = domain.EndReason(endReason)

	if err := parseIdentities(
		[]*domain.Identity{&l.Creator, &l.Token},
		[]string{creator, token},
	); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if err := parseAmounts(
		[]*domain.Amount{&l.TotalTokens, &l.TokensRemaining, &l.PricePerToken, &l.MinRaise, &l.MaxRaise, &l.TotalRaised, &l.TotalRefunded, &l.MaxPerWallet},
		[]string{totalTokens, remaining, price, minRaise, maxRaise, raised, refunded, perWallet},
	); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}

	var members []domain.Identity
	if err := json.Unmarshal(whitelist, &members); err != nil {
		return nil, fmt.Errorf("decode whitelist: %w", err)
	}
	if err := json.Unmarshal(contributions, &l.Contributions); err != nil {
		return nil, fmt.Errorf("decode contributions: %w", err)
	}
	if err := json.Unmarshal(claimed, &l.Claimed); err != nil {
		return nil, fmt.Errorf("decode claimed: %w", err)
	}
	if err := json.Unmarshal(settling, &l.Settling); err != nil {
		return nil, fmt.Errorf("decode settling: %w", err)
	}
	if len(l.Settling) == 0 {
		l.Settling = nil
	}
	if len(vesting) > 0 {
		l.Vesting = &domain.VestingConfig{}
		if err := json.Unmarshal(vesting, l.Vesting); err != nil {
			return nil, fmt.Errorf("decode vesting: %w", err)
		}
	}

	l.EnsureMaps()
	for _, m := range members {
		l.Whitelist[m] = struct{}{}
	}
	return &l, nil
}
