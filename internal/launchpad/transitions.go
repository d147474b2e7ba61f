package launchpad

import (
	"fmt"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/observability"
)

// transitions is the complete launch state machine. A status never
// re-enters Pending or Active.
var transitions = map[domain.LaunchStatus][]domain.LaunchStatus{
	domain.StatusPending:             {domain.StatusActive, domain.StatusCancelled},
	domain.StatusActive:              {domain.StatusEnded, domain.StatusCancelled},
	domain.StatusEnded:               {domain.StatusSucceeded, domain.StatusFailed},
	domain.StatusSucceeded:           {domain.StatusDistributionPending},
	domain.StatusFailed:              {domain.StatusRefundAvailable},
	domain.StatusCancelled:           {domain.StatusRefundAvailable},
	domain.StatusDistributionPending: {domain.StatusFinalized},
	domain.StatusRefundAvailable:     {domain.StatusFinalized},
}

// CanTransition reports whether from -> to is part of the state machine.
func CanTransition(from, to domain.LaunchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves l to status to or fails with InvalidState.
func advance(l *domain.Launch, to domain.LaunchStatus) error {
	if !CanTransition(l.Status, to) {
		return apperrors.Newf(apperrors.CodeInvalidState, "launch %d: %s -> %s is not a valid transition", l.ID, l.Status, to)
	}
	l.Status = to
	if to == domain.StatusSucceeded || to == domain.StatusFailed || to == domain.StatusCancelled {
		l.Outcome = to
	}
	observability.RecordTransition(string(to))
	return nil
}

// endSale closes the sale window of an Active launch.
func (s *Service) endSale(l *domain.Launch, reason domain.EndReason) ([]*domain.Event, error) {
	if err := advance(l, domain.StatusEnded); err != nil {
		return nil, err
	}
	l.EndReason = reason

	ended := s.event(domain.EventSaleEnded, l.ID, l.Creator)
	ended.Amount = l.TotalRaised
	ended.Count = uint64(len(l.Contributions))
	ended.Reason = string(reason)
	evs := []*domain.Event{ended}

	if reason == domain.EndReasonFullySubscribed {
		full := s.event(domain.EventSaleFullySubscribed, l.ID, l.Creator)
		full.Amount = l.TotalRaised
		full.Tokens = l.TotalTokens.Sub(l.TokensRemaining)
		evs = append(evs, full)
	}
	return evs, nil
}

// resolve decides the outcome of an Ended launch and opens distribution
// or refunds.
func (s *Service) resolve(l *domain.Launch) ([]*domain.Event, error) {
	count := uint64(len(l.Contributions))

	if !l.TotalRaised.Lt(l.MinRaise) {
		if err := advance(l, domain.StatusSucceeded); err != nil {
			return nil, err
		}
		succeeded := s.event(domain.EventLaunchSucceeded, l.ID, l.Creator)
		succeeded.Amount = l.TotalRaised
		succeeded.Count = count
		succeeded.Reason = "min_raise met"

		if err := advance(l, domain.StatusDistributionPending); err != nil {
			return nil, err
		}
		pending := s.event(domain.EventDistributionPending, l.ID, l.Creator)
		pending.Amount = l.TotalRaised
		pending.Tokens = ledger.TotalPurchased(l)
		pending.Count = count
		return []*domain.Event{succeeded, pending}, nil
	}

	if err := advance(l, domain.StatusFailed); err != nil {
		return nil, err
	}
	failed := s.event(domain.EventLaunchFailed, l.ID, l.Creator)
	failed.Amount = l.TotalRaised
	failed.Count = count
	failed.Reason = fmt.Sprintf("raised %s below min_raise %s", l.TotalRaised, l.MinRaise)

	evs, err := s.openRefunds(l)
	if err != nil {
		return nil, err
	}
	return append([]*domain.Event{failed}, evs...), nil
}

// openRefunds moves a Failed or Cancelled launch to RefundAvailable.
func (s *Service) openRefunds(l *domain.Launch) ([]*domain.Event, error) {
	if err := advance(l, domain.StatusRefundAvailable); err != nil {
		return nil, err
	}
	refunds := s.event(domain.EventRefundsAvailable, l.ID, l.Creator)
	refunds.Amount = l.TotalRaised
	refunds.Count = uint64(len(l.Contributions))
	refunds.Reason = string(l.Outcome)

	return append([]*domain.Event{refunds}, s.maybeFinalize(l)...), nil
}

// maybeFinalize moves l to Finalized once nothing remains to distribute
// or refund. It returns the LaunchFinalized event, if any.
func (s *Service) maybeFinalize(l *domain.Launch) []*domain.Event {
	var done bool
	switch l.Status {
	case domain.StatusDistributionPending:
		done = l.FundsWithdrawn && ledger.FullyClaimed(l)
	case domain.StatusRefundAvailable:
		done = len(l.Contributions) == 0
	}
	if !done {
		return nil
	}
	if err := advance(l, domain.StatusFinalized); err != nil {
		return nil
	}

	e := s.event(domain.EventLaunchFinalized, l.ID, l.Creator)
	e.Reason = string(l.Outcome)
	e.Amount = l.TotalRaised
	return []*domain.Event{e}
}
