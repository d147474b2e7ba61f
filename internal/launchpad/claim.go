package launchpad

import (
	"context"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/vesting"
)

func claimable(l *domain.Launch) bool {
	switch l.Status {
	case domain.StatusSucceeded, domain.StatusDistributionPending:
		return true
	case domain.StatusFinalized:
		return l.Outcome == domain.StatusSucceeded
	}
	return false
}

// ClaimTokens releases caller's vested, unclaimed tokens of a successful
// launch. The claimed ledger is updated before the transfer; a failed
// transfer leaves it committed and returns CrossContractCallFailed
// together with the amount.
func (s *Service) ClaimTokens(ctx context.Context, caller domain.Identity, launchID uint64) (_ domain.Amount, err error) {
	defer s.observe("claim_tokens", caller, &err)

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return domain.ZeroAmount, err
	}

	var (
		ts     []*transfer
		amount domain.Amount
	)
	committed, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireUnguarded(l); err != nil {
			return nil, err
		}
		if !claimable(l) {
			return nil, invalidState(l, "claim")
		}

		next, err := vesting.Next(l.Purchased(caller), l.ClaimedOf(caller), l.Vesting, s.clock.Now())
		if err != nil {
			return nil, err
		}
		l.Claimed[caller] = l.ClaimedOf(caller).Add(next)
		amount = next

		staged, err := s.stage(ctx, l.ID, []*domain.Settlement{{
			Kind:   domain.SettlementClaim,
			Token:  l.Token,
			From:   p.Self,
			To:     caller,
			Amount: next,
		}})
		if err != nil {
			return nil, err
		}
		ts = staged
		guardLaunch(l, ts)
		return nil, nil
	})
	if committed == nil {
		s.abandon(ctx, ts)
		return domain.ZeroAmount, err
	}

	_, serr := s.settleLaunch(ctx, launchID, ts, nil)
	return amount, joinErrs(err, serr)
}
