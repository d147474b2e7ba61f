package launchpad

import (
	"context"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/vesting"
	"token-launchpad/internal/whitelist"
)

// GetLaunch returns a snapshot of one launch.
func (s *Service) GetLaunch(ctx context.Context, launchID uint64) (*domain.Launch, error) {
	return s.launches.Get(ctx, launchID)
}

// GetLaunches returns every launch ordered by id.
func (s *Service) GetLaunches(ctx context.Context) ([]*domain.Launch, error) {
	return s.launches.List(ctx)
}

// GetActiveLaunches returns launches currently accepting contributions.
func (s *Service) GetActiveLaunches(ctx context.Context) ([]*domain.Launch, error) {
	return s.launches.ByStatus(ctx, domain.StatusActive)
}

// GetCreatorLaunches returns the launches created by creator.
func (s *Service) GetCreatorLaunches(ctx context.Context, creator domain.Identity) ([]*domain.Launch, error) {
	return s.launches.ByCreator(ctx, creator)
}

// GetLaunchCount returns how many launches exist.
func (s *Service) GetLaunchCount(ctx context.Context) (uint64, error) {
	return s.launches.Count(ctx)
}

// GetContribution returns the value contributor has in the launch;
// refunded contributors read zero.
func (s *Service) GetContribution(ctx context.Context, launchID uint64, contributor domain.Identity) (domain.Amount, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return l.ContributionOf(contributor), nil
}

// GetTokensPurchased returns the tokens contributor bought: contribution
// divided by the price per token, rounded down.
func (s *Service) GetTokensPurchased(ctx context.Context, launchID uint64, contributor domain.Identity) (domain.Amount, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return l.Purchased(contributor), nil
}

// GetClaimed returns the tokens already released to contributor.
func (s *Service) GetClaimed(ctx context.Context, launchID uint64, contributor domain.Identity) (domain.Amount, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return l.ClaimedOf(contributor), nil
}

// GetClaimableTokens returns what contributor could claim right now.
// It is zero unless the launch succeeded.
func (s *Service) GetClaimableTokens(ctx context.Context, launchID uint64, contributor domain.Identity) (domain.Amount, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return domain.ZeroAmount, err
	}
	if !claimable(l) {
		return domain.ZeroAmount, nil
	}
	return vesting.Claimable(l.Purchased(contributor), l.ClaimedOf(contributor), l.Vesting, s.clock.Now()), nil
}

// IsWhitelisted reports membership only; it ignores whether the whitelist is enabled.
func (s *Service) IsWhitelisted(ctx context.Context, launchID uint64, id domain.Identity) (bool, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return false, err
	}
	return whitelist.Contains(l, id), nil
}

// GetWhitelist returns the members of a launch whitelist, ascending.
func (s *Service) GetWhitelist(ctx context.Context, launchID uint64) ([]domain.Identity, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return nil, err
	}
	return whitelist.Members(l), nil
}

// GetContributors returns contributors with a live entry, ascending.
func (s *Service) GetContributors(ctx context.Context, launchID uint64) ([]domain.Identity, error) {
	l, err := s.launches.Get(ctx, launchID)
	if err != nil {
		return nil, err
	}
	return ledger.Contributors(l), nil
}

// GetPlatform returns a snapshot of the platform record.
func (s *Service) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	return s.loadPlatform(ctx)
}

// GetOwner returns the platform owner.
func (s *Service) GetOwner(ctx context.Context) (domain.Identity, error) {
	p, err := s.loadPlatform(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	return p.Owner, nil
}

// IsPaused reports whether the platform is paused, which blocks new
// launches and contributions.
func (s *Service) IsPaused(ctx context.Context) (bool, error) {
	p, err := s.loadPlatform(ctx)
	if err != nil {
		return false, err
	}
	return p.Paused, nil
}

// GetAccumulatedFees returns every fee ever accrued, withdrawn or not.
func (s *Service) GetAccumulatedFees(ctx context.Context) (domain.Amount, error) {
	p, err := s.loadPlatform(ctx)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return p.Fees.Accumulated, nil
}

// GetAvailableFees returns accrued fees not yet withdrawn.
func (s *Service) GetAvailableFees(ctx context.Context) (domain.Amount, error) {
	p, err := s.loadPlatform(ctx)
	if err != nil {
		return domain.ZeroAmount, err
	}
	return p.Fees.Available(), nil
}

// GetEvents returns the events of a launch in append order.
// Launch 0 holds platform-level events.
func (s *Service) GetEvents(ctx context.Context, launchID uint64) ([]*domain.Event, error) {
	if launchID != 0 {
		if _, err := s.launches.Get(ctx, launchID); err != nil {
			return nil, err
		}
	}
	return s.events.ForLaunch(ctx, launchID)
}

// GetEventsSince pages through the whole log.
func (s *Service) GetEventsSince(ctx context.Context, afterSeq uint64, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "limit must be > 0")
	}
	return s.events.Since(ctx, afterSeq, limit)
}

// GetSettlements returns the settlements of a launch (0 for platform-level).
func (s *Service) GetSettlements(ctx context.Context, launchID uint64) ([]*domain.Settlement, error) {
	return s.settlements.GetByLaunch(ctx, launchID)
}

// GetFailedSettlements returns every settlement awaiting retry.
func (s *Service) GetFailedSettlements(ctx context.Context) ([]*domain.Settlement, error) {
	return s.settlements.GetByStatus(ctx, domain.SettlementFailed)
}

// GetSettlement returns one settlement by id.
func (s *Service) GetSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.getSettlement(ctx, id)
}
