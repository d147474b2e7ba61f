package launchpad

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/fees"
	"token-launchpad/internal/ledger"
)

// Pause blocks create_launch and contribute (owner only).
// Claims, refunds and withdrawals stay available.
func (s *Service) Pause(ctx context.Context, caller domain.Identity) (err error) {
	defer s.observe("pause", caller, &err)
	return s.setPaused(ctx, caller, true)
}

// Resume lifts a pause (owner only).
func (s *Service) Resume(ctx context.Context, caller domain.Identity) (err error) {
	defer s.observe("resume", caller, &err)
	return s.setPaused(ctx, caller, false)
}

func (s *Service) setPaused(ctx context.Context, caller domain.Identity, paused bool) error {
	_, err := s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if caller != p.Owner {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not the platform owner")
		}
		if p.Paused == paused {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "platform paused is already %t", paused)
		}
		p.Paused = paused

		t := domain.EventResumed
		if paused {
			t = domain.EventPaused
		}
		e := s.event(t, 0, caller)
		e.Flag = paused
		return []*domain.Event{e}, nil
	})
	if err == nil {
		s.logger.Info("platform pause changed", zap.Stringer("admin", caller), zap.Bool("paused", paused))
	}
	return err
}

// SetFeeRecipient changes who receives withdrawn fees (owner only).
func (s *Service) SetFeeRecipient(ctx context.Context, caller, recipient domain.Identity) (err error) {
	defer s.observe("set_fee_recipient", caller, &err)

	if recipient.IsZero() {
		return apperrors.New(apperrors.CodeInvalidInput, "fee recipient cannot be the zero identity")
	}
	_, err = s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if caller != p.Owner {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not the platform owner")
		}
		e := s.event(domain.EventFeeRecipientUpdated, 0, caller)
		e.Target = recipient
		p.FeeRecipient = recipient
		return []*domain.Event{e}, nil
	})
	if err == nil {
		s.logger.Info("fee recipient changed", zap.Stringer("admin", caller), zap.Stringer("recipient", recipient))
	}
	return err
}

// SetFeeBasisPoints changes the platform fee rate (owner only). The rate
// in effect at withdraw_funds time applies.
func (s *Service) SetFeeBasisPoints(ctx context.Context, caller domain.Identity, bps uint16) (err error) {
	defer s.observe("set_fee_basis_points", caller, &err)

	if err := fees.ValidateBasisPoints(bps); err != nil {
		return err
	}
	_, err = s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if caller != p.Owner {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not the platform owner")
		}
		e := s.event(domain.EventFeeRateUpdated, 0, caller)
		e.Count = uint64(bps)
		e.Reason = "previous=" + strconv.FormatUint(uint64(p.Fees.BasisPoints), 10)
		p.Fees.BasisPoints = bps
		return []*domain.Event{e}, nil
	})
	if err == nil {
		s.logger.Info("fee rate changed", zap.Stringer("admin", caller), zap.Uint16("fee_bps", bps))
	}
	return err
}

// WithdrawFees sends every available fee to the fee recipient (owner only).
func (s *Service) WithdrawFees(ctx context.Context, caller domain.Identity) (_ domain.Amount, err error) {
	defer s.observe("withdraw_fees", caller, &err)

	var t *transfer
	committed, err := s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if caller != p.Owner {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "caller is not the platform owner")
		}
		if p.FeeGuard {
			return nil, apperrors.New(apperrors.CodeReentrancyGuard, "fee withdrawal in flight")
		}
		if p.Fees.Available().IsZero() {
			return nil, apperrors.New(apperrors.CodeNothingToClaim, "no fees available")
		}

		amount := fees.Drain(&p.Fees)
		staged, err := s.stage(ctx, 0, []*domain.Settlement{{
			Kind:   domain.SettlementFees,
			Token:  domain.NativeToken,
			From:   p.Self,
			To:     p.FeeRecipient,
			Amount: amount,
		}})
		if err != nil {
			return nil, err
		}
		t = staged[0]
		guardPlatform(p, t, true)
		return nil, nil
	})
	if committed == nil {
		if t != nil {
			s.abandon(ctx, []*transfer{t})
		}
		return domain.ZeroAmount, err
	}

	s.logger.Info("fees withdrawn",
		zap.Stringer("admin", caller),
		zap.Stringer("recipient", t.settlement.To),
		zap.Stringer("amount", t.settlement.Amount),
	)
	return t.settlement.Amount, joinErrs(err, s.settlePlatform(ctx, t, true))
}

// AdminForceRefund refunds contributors of a failed or cancelled launch
// on their behalf (owner only), no earlier than AdminRefundDelay blocks
// after end_time. The zero identity refunds every remaining contributor
// in ascending identity order. Returns the total refunded.
func (s *Service) AdminForceRefund(ctx context.Context, caller domain.Identity, launchID uint64, contributor domain.Identity) (_ domain.Amount, err error) {
	defer s.observe("admin_force_refund", caller, &err)

	p, err := s.requireOwner(ctx, caller)
	if err != nil {
		return domain.ZeroAmount, err
	}

	var (
		ts    []*transfer
		total domain.Amount
	)
	committed, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireUnguarded(l); err != nil {
			return nil, err
		}
		if !refundable(l) {
			return nil, invalidState(l, "admin refund")
		}
		if now, earliest := s.clock.Now(), domain.SaturatingAdd(l.EndTime, s.adminRefundDelay); now <= earliest {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "admin refund allowed after block %d (now %d)", earliest, now)
		}

		targets := []domain.Identity{contributor}
		if contributor.IsZero() {
			targets = ledger.Contributors(l)
		}

		var (
			moves []*domain.Settlement
			evs   []*domain.Event
		)
		for _, id := range targets {
			value, ok := ledger.Remove(l, id)
			if !ok {
				continue
			}
			total = total.Add(value)
			moves = append(moves, &domain.Settlement{
				Kind:   domain.SettlementAdminRefund,
				Token:  domain.NativeToken,
				From:   p.Self,
				To:     id,
				Amount: value,
			})

			e := s.event(domain.EventAdminForceRefund, l.ID, id)
			e.Target = caller
			e.Amount = value
			evs = append(evs, e)
		}
		if len(moves) == 0 {
			return nil, apperrors.Newf(apperrors.CodeNothingToRefund, "no contribution to refund on launch %d", l.ID)
		}

		staged, err := s.stage(ctx, l.ID, moves)
		if err != nil {
			return nil, err
		}
		for i, t := range staged {
			evs[i].Ref = t.settlement.ID
		}
		ts = staged
		guardLaunch(l, ts)
		return evs, nil
	})
	if committed == nil {
		s.abandon(ctx, ts)
		return domain.ZeroAmount, err
	}

	s.logger.Info("admin force refund",
		zap.Stringer("admin", caller),
		zap.Uint64("launch_id", launchID),
		zap.Stringer("contributor", contributor),
		zap.Int("refunds", len(ts)),
		zap.Stringer("total", total),
	)
	_, serr := s.settleLaunch(ctx, launchID, ts, nil)
	return total, joinErrs(err, serr)
}

// RescueTokens sends tokens held by the launchpad account that belong to
// no unfinished launch (owner only). The native currency cannot be rescued.
func (s *Service) RescueTokens(ctx context.Context, caller, tok domain.Identity, amount domain.Amount, to domain.Identity) (err error) {
	defer s.observe("rescue_tokens", caller, &err)

	if _, err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	switch {
	case tok.IsZero():
		return apperrors.New(apperrors.CodeInvalidInput, "native currency cannot be rescued")
	case to.IsZero():
		return apperrors.New(apperrors.CodeInvalidInput, "recipient cannot be the zero identity")
	case amount.IsZero():
		return apperrors.New(apperrors.CodeInvalidInput, "amount must be > 0")
	}

	var t *transfer
	committed, err := s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		// Checked under the platform lock, which CreateLaunch holds shared,
		// so no launch of tok can appear before the rescue is staged.
		selling, err := s.launches.ByToken(ctx, tok)
		if err != nil {
			return nil, err
		}
		for _, l := range selling {
			if l.Status != domain.StatusFinalized {
				return nil, apperrors.Newf(apperrors.CodeInvalidState, "token is the sale token of launch %d (%s)", l.ID, l.Status)
			}
		}

		staged, err := s.stage(ctx, 0, []*domain.Settlement{{
			Kind:   domain.SettlementRescue,
			Token:  tok,
			From:   p.Self,
			To:     to,
			Amount: amount,
		}})
		if err != nil {
			return nil, err
		}
		t = staged[0]
		guardPlatform(p, t, false)
		return nil, nil
	})
	if committed == nil {
		if t != nil {
			s.abandon(ctx, []*transfer{t})
		}
		return err
	}

	s.logger.Info("tokens rescued",
		zap.Stringer("admin", caller),
		zap.Stringer("token", tok),
		zap.Stringer("to", to),
		zap.Stringer("amount", amount),
	)
	return joinErrs(err, s.settlePlatform(ctx, t, false))
}
