package launchpad

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/observability"
)

// transfer is one external token call owed after local effects are
// committed. It is staged under the launch lock, executed without it and
// completed under the lock again.
type transfer struct {
	settlement *domain.Settlement
	success    *domain.Event
	err        error
}

func settlementIDs(ts []*transfer) []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.settlement.ID
	}
	return ids
}

// stage records a Pending settlement for each movement and returns the
// transfers to execute. Runs inside the launch (or platform) mutation.
func (s *Service) stage(ctx context.Context, launchID uint64, moves []*domain.Settlement) ([]*transfer, error) {
	existing, err := s.settlements.GetByLaunch(ctx, launchID)
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	nonce := len(existing)
	now := s.clock.Now()

	out := make([]*transfer, 0, len(moves))
	for i, st := range moves {
		st.LaunchID = launchID
		st.ID = idhash.ComputeSettlementID(st.Kind, launchID, st.Token, st.To, st.Amount, nonce+i)
		st.Status = domain.SettlementPending
		st.Attempts = 1
		st.CreatedAt = now
		st.UpdatedAt = now
		if err := s.settlements.Insert(ctx, st); err != nil {
			s.abandon(ctx, out)
			return nil, fmt.Errorf("insert settlement %s: %w", st.ID, err)
		}
		t := &transfer{settlement: st, success: s.successEvent(st)}
		s.track(t)
		out = append(out, t)
	}
	return out, nil
}

// guardLaunch holds the launch guard for ts. The ids are committed with
// the guard so recovery knows which completion was interrupted.
func guardLaunch(l *domain.Launch, ts []*transfer) {
	l.Guarded = true
	l.Settling = append(l.Settling, settlementIDs(ts)...)
}

// track marks t as owned by a running operation of this process.
func (s *Service) track(t *transfer) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	s.inflight[t.settlement.ID] = struct{}{}
}

// land releases ts once their operation is over, successful or not.
func (s *Service) land(ts []*transfer) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	for _, t := range ts {
		delete(s.inflight, t.settlement.ID)
	}
}

func (s *Service) inFlight(ids []string) bool {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	for _, id := range ids {
		if _, ok := s.inflight[id]; ok {
			return true
		}
	}
	return false
}

// abandon undoes staging whose launch or platform change did not commit.
// Fresh settlements are voided; a retry goes back to Failed. Neither was
// executed.
func (s *Service) abandon(ctx context.Context, ts []*transfer) {
	if len(ts) == 0 {
		return
	}
	defer s.land(ts)

	ctx = context.WithoutCancel(ctx)
	for _, t := range ts {
		if err := s.unstage(ctx, t.settlement); err != nil {
			s.logger.Error("staged settlement left pending",
				zap.String("settlement_id", t.settlement.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) unstage(ctx context.Context, st *domain.Settlement) error {
	if st.Attempts > 1 {
		st.Status = domain.SettlementFailed
		st.Attempts--
	} else {
		st.Status = domain.SettlementVoided
		st.Reason = "staging not committed"
	}
	st.UpdatedAt = s.clock.Now()
	if err := s.settlements.Update(ctx, st); err != nil {
		return fmt.Errorf("update settlement %s: %w", st.ID, err)
	}
	return nil
}

// execute performs the external calls. No lock is held.
func (s *Service) execute(ctx context.Context, ts []*transfer) {
	for _, t := range ts {
		st := t.settlement
		observability.DefaultMetrics.SettlementsInFlight.Inc()
		start := time.Now()

		switch st.Kind {
		case domain.SettlementDeposit:
			t.err = s.token.TransferFrom(ctx, st.Token, st.From, st.To, st.Amount)
		default:
			t.err = s.token.Transfer(ctx, st.Token, st.To, st.Amount)
		}

		observability.DefaultMetrics.SettlementsInFlight.Dec()
		status := domain.SettlementCompleted
		if t.err != nil {
			status = domain.SettlementFailed
		}
		observability.RecordSettlement(string(st.Kind), string(status), time.Since(start).Seconds())
	}
}

// recordOutcomes persists each call's result. It runs before the guard
// is released: a guarded launch always names settlements whose records
// tell recovery what happened.
func (s *Service) recordOutcomes(ctx context.Context, ts []*transfer) error {
	now := s.clock.Now()
	for _, t := range ts {
		st := t.settlement
		st.UpdatedAt = now

		if t.err == nil {
			st.Status = domain.SettlementCompleted
			st.Reason = ""
		} else {
			st.Status = domain.SettlementFailed
			st.Reason = t.err.Error()
			s.logger.Warn("token transfer failed",
				zap.String("settlement_id", st.ID),
				zap.String("kind", string(st.Kind)),
				zap.Uint64("launch_id", st.LaunchID),
				zap.Stringer("to", st.To),
				zap.Stringer("amount", st.Amount),
				zap.Error(t.err),
			)
		}

		if err := s.settlements.Update(ctx, st); err != nil {
			return fmt.Errorf("update settlement %s: %w", st.ID, err)
		}
	}
	return nil
}

// outcomeEvents returns the event of each recorded outcome.
func (s *Service) outcomeEvents(ts []*transfer) []*domain.Event {
	now := s.clock.Now()
	evs := make([]*domain.Event, 0, len(ts))
	for _, t := range ts {
		if t.err != nil {
			evs = append(evs, s.failureEvent(t.settlement))
			continue
		}
		t.success.Block = now
		evs = append(evs, t.success)
	}
	return evs
}

func (s *Service) failureEvent(st *domain.Settlement) *domain.Event {
	e := s.event(domain.EventTokenTransferFailed, st.LaunchID, st.To)
	e.Target = st.Token
	e.Amount = st.Amount
	e.Reason = st.Reason
	e.Ref = st.ID
	return e
}

// settleLaunch runs the call and completion phases for transfers staged
// on launch id. onSuccess runs under the lock for each completed transfer.
// Committed effects are never reverted; a failed call yields
// CrossContractCallFailed after the failure is recorded. When completion
// cannot be saved the guard stays held until RecoverSettlements runs.
func (s *Service) settleLaunch(ctx context.Context, id uint64, ts []*transfer, onSuccess func(l *domain.Launch, st *domain.Settlement)) (*domain.Launch, error) {
	defer s.land(ts)
	s.execute(ctx, ts)

	// Completion must run even if the caller went away.
	done := context.WithoutCancel(ctx)
	if err := s.recordOutcomes(done, ts); err != nil {
		s.completionFailed(id, ts, err)
		return nil, err
	}

	l, err := s.launches.With(done, id, func(l *domain.Launch) ([]*domain.Event, error) {
		l.Settling = domain.RemoveSettling(l.Settling, settlementIDs(ts)...)
		l.Guarded = len(l.Settling) > 0

		if onSuccess != nil {
			for _, t := range ts {
				if t.err == nil {
					onSuccess(l, t.settlement)
				}
			}
		}
		return append(s.outcomeEvents(ts), s.maybeFinalize(l)...), nil
	})
	if l == nil {
		s.completionFailed(id, ts, err)
		return nil, err
	}
	return l, joinErrs(err, firstFailure(ts))
}

func (s *Service) completionFailed(launchID uint64, ts []*transfer, err error) {
	s.logger.Error("settlement completion not saved, guard held until recovered",
		zap.Uint64("launch_id", launchID),
		zap.Strings("settlements", settlementIDs(ts)),
		zap.Error(err),
	)
}

func firstFailure(ts []*transfer) error {
	for _, t := range ts {
		if t.err != nil {
			return &apperrors.Error{
				Code:    apperrors.CodeCrossContractCallFailed,
				Message: fmt.Sprintf("%s transfer failed", t.settlement.Kind),
				Metadata: map[string]string{
					"settlement_id": t.settlement.ID,
					"launch_id":     fmt.Sprint(t.settlement.LaunchID),
				},
				Cause: t.err,
			}
		}
	}
	return nil
}

// joinErrs returns nil, the only non-nil error, or all of them joined.
func joinErrs(errs ...error) error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return errors.Join(out...)
}

// successEvent is the event emitted when st completes.
func (s *Service) successEvent(st *domain.Settlement) *domain.Event {
	var e *domain.Event
	switch st.Kind {
	case domain.SettlementClaim:
		e = s.event(domain.EventTokensClaimed, st.LaunchID, st.To)
		e.Tokens = st.Amount
	case domain.SettlementRefund, domain.SettlementAdminRefund:
		e = s.event(domain.EventRefundClaimed, st.LaunchID, st.To)
		e.Amount = st.Amount
	case domain.SettlementWithdraw:
		e = s.event(domain.EventFundsWithdrawn, st.LaunchID, st.To)
		e.Amount = st.Amount
	case domain.SettlementFees:
		e = s.event(domain.EventFeesWithdrawn, 0, st.To)
		e.Amount = st.Amount
	case domain.SettlementDeposit:
		e = s.event(domain.EventTokensDeposited, st.LaunchID, st.From)
		e.Tokens = st.Amount
	case domain.SettlementRescue:
		e = s.event(domain.EventTokensRescued, 0, st.To)
		e.Amount = st.Amount
	default:
		e = s.event(domain.EventType(st.Kind), st.LaunchID, st.To)
		e.Amount = st.Amount
	}
	e.Target = st.Token
	e.Ref = st.ID
	return e
}

// applySettlement applies the effects that are deferred until a call
// succeeds. Only deposits have any.
func applySettlement(l *domain.Launch, st *domain.Settlement) {
	if st.Kind == domain.SettlementDeposit {
		l.TokensDeposited = true
	}
}

// RetrySettlement re-attempts a Failed settlement (owner only).
func (s *Service) RetrySettlement(ctx context.Context, caller domain.Identity, id string) (_ *domain.Settlement, err error) {
	defer s.observe("retry_settlement", caller, &err)

	if _, err := s.requireOwner(ctx, caller); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "settlement id required")
	}

	st, err := s.getSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Kind == domain.SettlementFees || st.Kind == domain.SettlementRescue {
		return s.retryPlatform(ctx, caller, st)
	}

	var ts []*transfer
	l, err := s.launches.With(ctx, st.LaunchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireUnguarded(l); err != nil {
			return nil, err
		}
		cur, err := s.resetForRetry(ctx, id)
		if err != nil {
			return nil, err
		}
		ts = []*transfer{{settlement: cur, success: s.successEvent(cur)}}
		s.track(ts[0])
		guardLaunch(l, ts)
		return nil, nil
	})
	if l == nil {
		s.abandon(ctx, ts)
		return nil, err
	}

	s.logger.Info("settlement retry",
		zap.Stringer("admin", caller),
		zap.String("settlement_id", id),
		zap.Int("attempt", ts[0].settlement.Attempts),
	)

	_, serr := s.settleLaunch(ctx, st.LaunchID, ts, applySettlement)
	if err := joinErrs(err, serr); err != nil {
		return ts[0].settlement, err
	}
	// SettlementRetried is only recorded for successful retries.
	if err := s.events.Append(context.WithoutCancel(ctx), s.retriedEvent(caller, ts[0])); err != nil {
		return ts[0].settlement, err
	}
	return ts[0].settlement, nil
}

// resetForRetry moves settlement id from Failed back to Pending. Callers
// hold the lock that owns it; the reload sees any retry that won.
func (s *Service) resetForRetry(ctx context.Context, id string) (*domain.Settlement, error) {
	cur, err := s.getSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != domain.SettlementFailed {
		return nil, apperrors.Newf(apperrors.CodeInvalidState, "settlement %s is %s", id, cur.Status)
	}
	cur.Status = domain.SettlementPending
	cur.Attempts++
	cur.UpdatedAt = s.clock.Now()
	if err := s.settlements.Update(ctx, cur); err != nil {
		return nil, fmt.Errorf("update settlement %s: %w", id, err)
	}
	return cur, nil
}

func (s *Service) retriedEvent(admin domain.Identity, t *transfer) *domain.Event {
	e := s.event(domain.EventSettlementRetried, t.settlement.LaunchID, t.settlement.To)
	e.Target = admin
	e.Amount = t.settlement.Amount
	e.Count = uint64(t.settlement.Attempts)
	e.Reason = string(t.settlement.Kind)
	e.Ref = t.settlement.ID
	return e
}

// retryPlatform retries fee withdrawals and rescues, which are not tied
// to a launch.
func (s *Service) retryPlatform(ctx context.Context, caller domain.Identity, st *domain.Settlement) (*domain.Settlement, error) {
	guarded := st.Kind == domain.SettlementFees

	var t *transfer
	p, err := s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if guarded && p.FeeGuard {
			return nil, apperrors.New(apperrors.CodeReentrancyGuard, "fee withdrawal in flight")
		}
		if slices.Contains(p.Settling, st.ID) {
			return nil, apperrors.Newf(apperrors.CodeReentrancyGuard, "settlement %s awaits recovery", st.ID)
		}
		cur, err := s.resetForRetry(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		t = &transfer{settlement: cur, success: s.successEvent(cur)}
		s.track(t)
		guardPlatform(p, t, guarded)
		return nil, nil
	})
	if p == nil {
		if t != nil {
			s.abandon(ctx, []*transfer{t})
		}
		return nil, err
	}

	s.logger.Info("settlement retry",
		zap.Stringer("admin", caller),
		zap.String("settlement_id", st.ID),
		zap.Int("attempt", t.settlement.Attempts),
	)

	if err := joinErrs(err, s.settlePlatform(ctx, t, guarded)); err != nil {
		return t.settlement, err
	}
	if err := s.events.Append(context.WithoutCancel(ctx), s.retriedEvent(caller, t)); err != nil {
		return t.settlement, err
	}
	return t.settlement, nil
}

// guardPlatform records t as settling on the platform, taking the fee
// guard for fee withdrawals.
func guardPlatform(p *domain.Platform, t *transfer, feeGuard bool) {
	p.Settling = append(p.Settling, t.settlement.ID)
	if feeGuard {
		p.FeeGuard = true
	}
}

// settlePlatform runs the call and completion phases for a platform-level
// transfer, releasing the fee guard if held.
func (s *Service) settlePlatform(ctx context.Context, t *transfer, guarded bool) error {
	ts := []*transfer{t}
	defer s.land(ts)
	s.execute(ctx, ts)

	done := context.WithoutCancel(ctx)
	if err := s.recordOutcomes(done, ts); err != nil {
		s.completionFailed(0, ts, err)
		return err
	}
	p, err := s.withPlatform(done, func(p *domain.Platform) ([]*domain.Event, error) {
		p.Settling = domain.RemoveSettling(p.Settling, t.settlement.ID)
		if guarded {
			p.FeeGuard = false
		}
		return s.outcomeEvents(ts), nil
	})
	if p == nil {
		s.completionFailed(0, ts, err)
		return err
	}
	return joinErrs(err, firstFailure(ts))
}

func (s *Service) getSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	st, err := s.settlements.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("settlement %s", id), err)
		}
		return nil, fmt.Errorf("get settlement %s: %w", id, err)
	}
	return st, nil
}
