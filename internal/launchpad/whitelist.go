package launchpad

import (
	"context"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/whitelist"
)

// AddToWhitelist adds ids to the whitelist of a Pending launch (creator only).
// Returns the number of identities newly added.
func (s *Service) AddToWhitelist(ctx context.Context, caller domain.Identity, launchID uint64, ids []domain.Identity) (_ int, err error) {
	defer s.observe("add_to_whitelist", caller, &err)
	return s.updateWhitelist(ctx, caller, launchID, ids, true)
}

// RemoveFromWhitelist removes ids from the whitelist of a Pending launch
// (creator only). Returns the number of identities removed.
func (s *Service) RemoveFromWhitelist(ctx context.Context, caller domain.Identity, launchID uint64, ids []domain.Identity) (_ int, err error) {
	defer s.observe("remove_from_whitelist", caller, &err)
	return s.updateWhitelist(ctx, caller, launchID, ids, false)
}

func (s *Service) updateWhitelist(ctx context.Context, caller domain.Identity, launchID uint64, ids []domain.Identity, add bool) (int, error) {
	if len(ids) == 0 {
		return 0, apperrors.New(apperrors.CodeInvalidInput, "no identities given")
	}

	var changed int
	_, err := s.launches.With(ctx, launchID, func(l *domain.Launch) ([]*domain.Event, error) {
		if err := requireCreator(l, caller); err != nil {
			return nil, err
		}
		if l.WhitelistLocked {
			return nil, apperrors.Newf(apperrors.CodeWhitelistLocked, "whitelist of launch %d is locked", l.ID)
		}
		if l.Status != domain.StatusPending {
			return nil, invalidState(l, "whitelist update")
		}

		if add {
			changed = whitelist.Add(l, ids)
		} else {
			changed = whitelist.Remove(l, ids)
		}

		e := s.event(domain.EventWhitelistUpdated, l.ID, caller)
		e.Count = uint64(changed)
		e.Flag = add
		return []*domain.Event{e}, nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
