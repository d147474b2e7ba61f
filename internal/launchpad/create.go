package launchpad

import (
	"context"

	"go.uber.org/zap"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/vesting"
)

// CreateLaunch registers a new Pending launch owned by caller.
func (s *Service) CreateLaunch(ctx context.Context, caller domain.Identity, in domain.CreateLaunchInput) (_ uint64, err error) {
	defer s.observe("create_launch", caller, &err)

	// Shared hold: RescueTokens must not see the token unused while a
	// launch of it is being created.
	s.platformMu.RLock()
	defer s.platformMu.RUnlock()

	p, err := s.loadPlatform(ctx)
	if err != nil {
		return 0, err
	}
	if p.Paused {
		return 0, apperrors.New(apperrors.CodeInvalidState, "platform is paused")
	}

	now := s.clock.Now()
	if err := validateCreate(in, now); err != nil {
		return 0, err
	}

	l, err := s.launches.Create(ctx, func(id uint64) (*domain.Launch, []*domain.Event, error) {
		l := &domain.Launch{
			ID:               id,
			Creator:          caller,
			Title:            in.Title,
			Description:      in.Description,
			Token:            in.Token,
			TotalTokens:      in.TotalTokens,
			TokensRemaining:  in.TotalTokens,
			PricePerToken:    in.PricePerToken,
			MinRaise:         in.MinRaise,
			MaxRaise:         in.MaxRaise,
			MaxPerWallet:     in.MaxPerWallet,
			StartTime:        in.StartTime,
			EndTime:          in.EndTime,
			WhitelistEnabled: in.WhitelistEnabled,
			Vesting:          in.Vesting,
			Status:           domain.StatusPending,
			CreatedAt:        now,
		}

		e := s.event(domain.EventLaunchCreated, id, caller)
		e.Target = in.Token
		e.Tokens = in.TotalTokens
		e.Amount = in.MaxRaise
		return l, []*domain.Event{e}, nil
	})
	if err != nil {
		return 0, err
	}

	observability.RecordLaunchCreated()
	s.logger.Info("launch created",
		zap.Uint64("launch_id", l.ID),
		zap.Stringer("creator", caller),
		zap.Stringer("token", in.Token),
	)
	return l.ID, nil
}

func validateCreate(in domain.CreateLaunchInput, now uint64) error {
	invalid := func(msg string) error {
		return apperrors.New(apperrors.CodeInvalidInput, msg)
	}

	switch {
	case len(in.Title) == 0:
		return invalid("title cannot be empty")
	case len(in.Title) > domain.MaxTitleLen:
		return apperrors.Newf(apperrors.CodeInvalidInput, "title exceeds %d bytes", domain.MaxTitleLen)
	case len(in.Description) > domain.MaxDescriptionLen:
		return apperrors.Newf(apperrors.CodeInvalidInput, "description exceeds %d bytes", domain.MaxDescriptionLen)
	case in.Token.IsZero():
		return invalid("sale token cannot be the native currency")
	}

	bounded := []struct {
		name string
		v    domain.Amount
	}{
		{"total_tokens", in.TotalTokens},
		{"price_per_token", in.PricePerToken},
		{"min_raise", in.MinRaise},
		{"max_raise", in.MaxRaise},
		{"max_per_wallet", in.MaxPerWallet},
	}
	for _, b := range bounded {
		if b.v.Gt(domain.MaxInput()) {
			return apperrors.Newf(apperrors.CodeInvalidInput, "%s exceeds 2^128-1", b.name)
		}
	}

	switch {
	case in.TotalTokens.IsZero():
		return invalid("total_tokens must be > 0")
	case in.PricePerToken.IsZero():
		return invalid("price_per_token must be > 0")
	case in.MaxPerWallet.IsZero():
		return invalid("max_per_wallet must be > 0")
	case in.MaxRaise.IsZero():
		return invalid("max_raise must be > 0")
	case in.MinRaise.Gt(in.MaxRaise):
		return invalid("min_raise exceeds max_raise")
	case in.MaxRaise.Gt(in.TotalTokens.Mul(in.PricePerToken)):
		return invalid("max_raise exceeds total_tokens * price_per_token")
	case in.StartTime <= now:
		return invalid("start_time must be in the future")
	case in.EndTime <= in.StartTime:
		return invalid("end_time must be after start_time")
	}

	return vesting.Validate(in.Vesting, in.EndTime)
}
