package launchpad

import (
	"context"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
)

func refundable(l *domain.Launch) bool {
	switch l.Status {
	case domain.StatusRefundAvailable:
		return true
	case domain.StatusFinalized:
		return l.Outcome == domain.StatusFailed || l.Outcome == domain.StatusCancelled
	}
	return false
}

// ClaimRefund returns caller's whole contribution of a failed or cancelled
// launch. The entry is removed before the transfer.
func (s *Service) ClaimRefund(ctx context.Context, caller domain.Identity, launchID uint64) (_ domain.Amount, err error) {
	defer s.observe("claim_refund", caller, &err)

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
		if !refundable(l) {
			return nil, invalidState(l, "refund")
		}

		value, ok := ledger.Remove(l, caller)
		if !ok {
			return nil, apperrors.Newf(apperrors.CodeNothingToRefund, "no contribution to launch %d", l.ID)
		}
		amount = value

		staged, err := s.stage(ctx, l.ID, []*domain.Settlement{{
			Kind:   domain.SettlementRefund,
			Token:  domain.NativeToken,
			From:   p.Self,
			To:     caller,
			Amount: value,
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
