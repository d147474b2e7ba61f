package launchpad

import (
	"context"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/whitelist"
)

// Contribute commits amount of native value from caller to an Active
// launch. The part that does not buy a whole token, or exceeds the caps,
// is reported as Refunded in the receipt and handed back with the reply.
func (s *Service) Contribute(ctx context.Context, caller domain.Identity, launchID uint64, amount domain.Amount) (_ *domain.ContributionReceipt, err error) {
	defer s.observe("contribute", caller, &err)

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return nil, err
	}
	if p.Paused {
		return nil, apperrors.New(apperrors.CodeInvalidState, "platform is paused")
	}
	if amount.Gt(domain.MaxInput()) {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "amount exceeds 2^128-1")
	}

	var receipt domain.ContributionReceipt
	_, err = s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if l.Status != domain.StatusActive {
			return nil, invalidState(l, "contribute")
		}
		if now := s.clock.Now(); now < l.StartTime || now > l.EndTime {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "block %d outside sale window [%d, %d]", now, l.StartTime, l.EndTime)
		}
		if !whitelist.CanParticipate(l, caller) {
			return nil, apperrors.Newf(apperrors.CodeWhitelistRequired, "caller is not whitelisted for launch %d", l.ID)
		}

		q, err := ledger.Price(l, caller, amount)
		if err != nil {
			return nil, err
		}
		ledger.Record(l, caller, q)

		e := s.event(domain.EventContributed, l.ID, caller)
		e.Amount = q.Accepted
		e.Tokens = q.Tokens
		e.Refunded = q.Refunded
		e.Count = uint64(len(l.Contributions))
		evs := []*domain.Event{e}

		receipt = domain.ContributionReceipt{
			LaunchID:        l.ID,
			Accepted:        q.Accepted,
			TokensPurchased: q.Tokens,
			Refunded:        q.Refunded,
		}

		if ledger.CapReached(l) {
			ended, err := s.endSale(l, domain.EndReasonFullySubscribed)
			if err != nil {
				return nil, err
			}
			evs = append(evs, ended...)
			receipt.SaleEnded = true
		}
		return evs, nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordContribution(receipt.Accepted.Float64())
	return &receipt, nil
}
