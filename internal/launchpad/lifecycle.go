package launchpad

import (
	"context"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/whitelist"
)

// StartLaunch activates a Pending launch before its start_time (creator only).
// The whitelist is locked from here on.
func (s *Service) StartLaunch(ctx context.Context, caller domain.Identity, launchID uint64) (err error) {
	defer s.observe("start_launch", caller, &err)

	_, err = s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireCreator(l, caller); err != nil {
			return nil, err
		}
		if l.Status != domain.StatusPending {
			return nil, invalidState(l, "start")
		}
		if now := s.clock.Now(); now >= l.StartTime {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "start_time %d has passed (now %d)", l.StartTime, now)
		}
		if s.requireDeposit && !l.TokensDeposited {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "sale tokens of launch %d not deposited", l.ID)
		}
		if err := advance(l, domain.StatusActive); err != nil {
			return nil, err
		}
		whitelist.Lock(l)

		e := s.event(domain.EventLaunchStarted, l.ID, caller)
		e.Count = uint64(len(l.Whitelist))
		e.Flag = l.WhitelistEnabled
		return []*domain.Event{e}, nil
	})
	return err
}

// MarkTokensDeposited pulls total_tokens of the sale token from the creator
// into the launchpad account using the creator's allowance (creator only,
// Pending only). The launch counts as deposited once the transfer succeeds.
func (s *Service) MarkTokensDeposited(ctx context.Context, caller domain.Identity, launchID uint64) (err error) {
	defer s.observe("mark_tokens_deposited", caller, &err)

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return err
	}

	var ts []*transfer
	committed, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireUnguarded(l); err != nil {
			return nil, err
		}
		if err := requireCreator(l, caller); err != nil {
			return nil, err
		}
		if l.Status != domain.StatusPending {
			return nil, invalidState(l, "deposit")
		}
		if l.TokensDeposited {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "tokens of launch %d already deposited", l.ID)
		}

		staged, err := s.stage(ctx, l.ID, []*domain.Settlement{{
			Kind:   domain.SettlementDeposit,
			Token:  l.Token,
			From:   l.Creator,
			To:     p.Self,
			Amount: l.TotalTokens,
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
		return err
	}

	_, serr := s.settleLaunch(ctx, launchID, ts, applySettlement)
	return joinErrs(err, serr)
}

// Finalize closes an Active launch whose window has elapsed and resolves
// an Ended launch to success or failure. Anyone may call it.
func (s *Service) Finalize(ctx context.Context, caller domain.Identity, launchID uint64) (_ domain.LaunchStatus, err error) {
	defer s.observe("finalize", caller, &err)

	l, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		var evs []*domain.Event
		switch l.Status {
		case domain.StatusActive:
			if now := s.clock.Now(); now <= l.EndTime {
				return nil, apperrors.Newf(apperrors.CodeInvalidState, "launch %d ends at %d (now %d)", l.ID, l.EndTime, now)
			}
			ended, err := s.endSale(l, domain.EndReasonTimeElapsed)
			if err != nil {
				return nil, err
			}
			evs = ended
		case domain.StatusEnded:
		default:
			return nil, invalidState(l, "finalize")
		}

		resolved, err := s.resolve(l)
		if err != nil {
			return nil, err
		}
		return append(evs, resolved...), nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("launch finalized",
		zap.Uint64("launch_id", l.ID),
		zap.String("outcome", string(l.Outcome)),
		zap.String("status", string(l.Status)),
		zap.Stringer("total_raised", l.TotalRaised),
	)
	return l.Status, nil
}

// CancelLaunch cancels a launch and opens refunds. The creator may cancel
// while Pending; the owner while Pending or Active.
func (s *Service) CancelLaunch(ctx context.Context, caller domain.Identity, launchID uint64) (err error) {
	defer s.observe("cancel_launch", caller, &err)

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return err
	}
	isOwner := caller == p.Owner

	_, err = s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if caller != l.Creator && !isOwner {
			return nil, apperrors.Newf(apperrors.CodeUnauthorized, "caller may not cancel launch %d", l.ID)
		}
		switch l.Status {
		case domain.StatusPending:
		case domain.StatusActive:
			if !isOwner {
				return nil, apperrors.Newf(apperrors.CodeInvalidState, "only the owner may cancel an active launch")
			}
		default:
			return nil, invalidState(l, "cancel")
		}

		if err := advance(l, domain.StatusCancelled); err != nil {
			return nil, err
		}
		cancelled := s.event(domain.EventLaunchCancelled, l.ID, caller)
		cancelled.Amount = l.TotalRaised
		cancelled.Count = uint64(len(l.Contributions))

		evs, err := s.openRefunds(l)
		if err != nil {
			return nil, err
		}
		return append([]*domain.Event{cancelled}, evs...), nil
	})
	if err == nil && isOwner {
		s.logger.Info("launch cancelled by owner",
			zap.Stringer("admin", caller),
			zap.Uint64("launch_id", launchID),
		)
	}
	return err
}
