package launchpad

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

// interruptedReason marks a settlement whose call may or may not have
// reached the token contract before its completion was lost.
const interruptedReason = "completion interrupted, transfer outcome unknown"

// Recovery reports what RecoverSettlements resolved.
type Recovery struct {
	LaunchID  uint64   `json:"launch_id"` // 0 for the platform
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
	Voided    []string `json:"voided"`
}

// RecoverSettlements releases a guard left held by a completion that was
// not saved (owner only). Launch id 0 recovers the platform.
//
// Settlements the guard was held for are resolved from their records:
// Completed ones apply their effects, Failed ones stay retryable and
// Pending ones become Failed with an unknown outcome. Pending settlements
// whose staging never committed are voided.
func (s *Service) RecoverSettlements(ctx context.Context, caller domain.Identity, launchID uint64) (_ *Recovery, err error) {
	defer s.observe("recover_settlements", caller, &err)

	if _, err := s.requireOwner(ctx, caller); err != nil {
		return nil, err
	}
	rec, err := s.recoverOne(ctx, launchID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("settlements recovered",
		zap.Stringer("admin", caller),
		zap.Uint64("launch_id", launchID),
		zap.Int("completed", len(rec.Completed)),
		zap.Int("failed", len(rec.Failed)),
		zap.Int("voided", len(rec.Voided)),
	)
	return rec, nil
}

// Reconcile recovers every launch and the platform left mid-settlement by
// an earlier process. Run it at startup before serving.
func (s *Service) Reconcile(ctx context.Context) ([]*Recovery, error) {
	ls, err := s.launches.List(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.settlements.GetByStatus(ctx, domain.SettlementPending)
	if err != nil {
		return nil, fmt.Errorf("load pending settlements: %w", err)
	}

	targets := map[uint64]struct{}{0: {}}
	for _, l := range ls {
		if l.Guarded || len(l.Settling) > 0 {
			targets[l.ID] = struct{}{}
		}
	}
	for _, st := range pending {
		targets[st.LaunchID] = struct{}{}
	}

	ids := make([]uint64, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*Recovery
	for _, id := range ids {
		rec, err := s.recoverOne(ctx, id)
		if apperrors.IsCode(err, apperrors.CodeInvalidState) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("recover launch %d: %w", id, err)
		}
		s.logger.Warn("interrupted settlements reconciled",
			zap.Uint64("launch_id", id),
			zap.Strings("completed", rec.Completed),
			zap.Strings("failed", rec.Failed),
			zap.Strings("voided", rec.Voided),
		)
		out = append(out, rec)
	}
	return out, nil
}

func (s *Service) recoverOne(ctx context.Context, launchID uint64) (*Recovery, error) {
	if launchID == 0 {
		return s.recoverPlatform(ctx)
	}
	return s.recoverLaunch(ctx, launchID)
}

func (s *Service) recoverLaunch(ctx context.Context, id uint64) (*Recovery, error) {
	rec := &Recovery{LaunchID: id}
	_, err := s.launches.With(ctx, id, func(l *domain.Launch) ([]*domain.Event, error) {
		if s.inFlight(l.Settling) {
			return nil, apperrors.Newf(apperrors.CodeReentrancyGuard, "launch %d has an external call in flight", id)
		}
		orphans, err := s.orphans(ctx, id, l.Settling)
		if err != nil {
			return nil, err
		}
		if !l.Guarded && len(l.Settling) == 0 && len(orphans) == 0 {
			return nil, apperrors.Newf(apperrors.CodeInvalidState, "launch %d has nothing to recover", id)
		}

		evs, err := s.resolveInterrupted(ctx, l.Settling, rec, func(st *domain.Settlement) {
			applySettlement(l, st)
		})
		if err != nil {
			return nil, err
		}
		if err := s.voidOrphans(ctx, orphans, rec); err != nil {
			return nil, err
		}
		l.Settling = nil
		l.Guarded = false
		return append(evs, s.maybeFinalize(l)...), nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) recoverPlatform(ctx context.Context) (*Recovery, error) {
	rec := &Recovery{}
	_, err := s.withPlatform(ctx, func(p *domain.Platform) ([]*domain.Event, error) {
		if s.inFlight(p.Settling) {
			return nil, apperrors.New(apperrors.CodeReentrancyGuard, "platform settlement in flight")
		}
		orphans, err := s.orphans(ctx, 0, p.Settling)
		if err != nil {
			return nil, err
		}
		if !p.FeeGuard && len(p.Settling) == 0 && len(orphans) == 0 {
			return nil, apperrors.New(apperrors.CodeInvalidState, "platform has nothing to recover")
		}

		evs, err := s.resolveInterrupted(ctx, p.Settling, rec, nil)
		if err != nil {
			return nil, err
		}
		if err := s.voidOrphans(ctx, orphans, rec); err != nil {
			return nil, err
		}
		p.Settling = nil
		p.FeeGuard = false
		return evs, nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveInterrupted settles the records of ids and returns the events
// their lost completion would have emitted.
func (s *Service) resolveInterrupted(ctx context.Context, ids []string, rec *Recovery, onSuccess func(st *domain.Settlement)) ([]*domain.Event, error) {
	var evs []*domain.Event
	for _, id := range ids {
		st, err := s.settlements.GetByID(ctx, id)
		if isNotFound(err) {
			s.logger.Warn("settling id without a settlement", zap.String("settlement_id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get settlement %s: %w", id, err)
		}

		switch st.Status {
		case domain.SettlementPending:
			st.Status = domain.SettlementFailed
			st.Reason = interruptedReason
			st.UpdatedAt = s.clock.Now()
			if err := s.settlements.Update(ctx, st); err != nil {
				return nil, fmt.Errorf("update settlement %s: %w", id, err)
			}
			fallthrough
		case domain.SettlementFailed:
			evs = append(evs, s.failureEvent(st))
			rec.Failed = append(rec.Failed, id)
		case domain.SettlementCompleted:
			e := s.successEvent(st)
			e.Reason = "recovered"
			evs = append(evs, e)
			if onSuccess != nil {
				onSuccess(st)
			}
			rec.Completed = append(rec.Completed, id)
		}
	}
	return evs, nil
}

// orphans returns the Pending settlements of launchID that no guard names
// and no running operation owns. Their staging never committed.
func (s *Service) orphans(ctx context.Context, launchID uint64, settling []string) ([]*domain.Settlement, error) {
	sts, err := s.settlements.GetByLaunch(ctx, launchID)
	if err != nil {
		return nil, fmt.Errorf("load settlements: %w", err)
	}
	var out []*domain.Settlement
	for _, st := range sts {
		if st.Status != domain.SettlementPending || slices.Contains(settling, st.ID) {
			continue
		}
		if s.inFlight([]string{st.ID}) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) voidOrphans(ctx context.Context, orphans []*domain.Settlement, rec *Recovery) error {
	for _, st := range orphans {
		if err := s.unstage(ctx, st); err != nil {
			return err
		}
		rec.Voided = append(rec.Voided, st.ID)
	}
	return nil
}
