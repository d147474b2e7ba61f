package launchpad

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
)

// WithdrawFunds pays the creator total_raised minus the platform fee,
// once (creator only). The fee is accrued and funds_withdrawn set before
// the transfer.
func (s *Service) WithdrawFunds(ctx context.Context, caller domain.Identity, launchID uint64) (_ domain.Amount, err error) {
	defer s.observe("withdraw_funds", caller, &err)

	var (
		ts       []*transfer
		net, fee domain.Amount
		before   *domain.Platform // platform as it was before a saved accrual
	)

	// Lock order: platform, then launch. The fee is saved inside the
	// launch mutation so a failed launch save can put the platform back.
	committed, err := func() (*domain.Launch, error) {
		s.platformMu.Lock()
		defer s.platformMu.Unlock()

		l, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
			if err := requireUnguarded(l); err != nil {
				return nil, err
			}
			if err := requireCreator(l, caller); err != nil {
				return nil, err
			}
			if !claimable(l) {
				return nil, invalidState(l, "withdraw")
			}
			if l.FundsWithdrawn {
				return nil, apperrors.Newf(apperrors.CodeAlreadyWithdrawn, "funds of launch %d already withdrawn", l.ID)
			}

			p, err := s.loadPlatform(ctx)
			if err != nil {
				return nil, err
			}
			fee, net = fees.Split(l.TotalRaised, p.Fees.BasisPoints)
			l.FundsWithdrawn = true

			var evs []*domain.Event
			if net.IsZero() {
				e := s.event(domain.EventFundsWithdrawn, l.ID, caller)
				e.Fee = fee
				evs = append([]*domain.Event{e}, s.maybeFinalize(l)...)
			} else {
				staged, err := s.stage(ctx, l.ID, []*domain.Settlement{{
					Kind:   domain.SettlementWithdraw,
					Token:  domain.NativeToken,
					From:   p.Self,
					To:     caller,
					Amount: net,
				}})
				if err != nil {
					return nil, err
				}
				staged[0].success.Fee = fee
				ts = staged
				guardLaunch(l, ts)
			}

			if !fee.IsZero() {
				prev := p.Clone()
				fees.Accrue(&p.Fees, fee)
				if err := s.platform.Put(ctx, p); err != nil {
					return nil, fmt.Errorf("save platform: %w", err)
				}
				before = prev
			}
			return evs, nil
		})
		if l == nil && before != nil {
			s.unaccrue(ctx, launchID, before, fee)
		}
		return l, err
	}()

	if committed == nil {
		s.abandon(ctx, ts)
		return domain.ZeroAmount, err
	}

	s.logger.Info("funds withdrawn",
		zap.Uint64("launch_id", launchID),
		zap.Stringer("creator", caller),
		zap.Stringer("net", net),
		zap.Stringer("fee", fee),
	)
	if len(ts) == 0 {
		return net, err
	}
	_, serr := s.settleLaunch(ctx, launchID, ts, nil)
	return net, joinErrs(err, serr)
}

// unaccrue restores the platform saved before a withdrawal whose launch
// change did not commit. Callers hold platformMu.
func (s *Service) unaccrue(ctx context.Context, launchID uint64, before *domain.Platform, fee domain.Amount) {
	if err := s.platform.Put(context.WithoutCancel(ctx), before); err != nil {
		s.logger.Error("fee accrued for an unsaved withdrawal",
			zap.Uint64("launch_id", launchID),
			zap.Stringer("fee", fee),
			zap.Error(err),
		)
	}
}
