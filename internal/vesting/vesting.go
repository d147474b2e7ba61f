// Package vesting computes how many purchased tokens a contributor may claim.
package vesting

import (
	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

// Scale is the fixed-point precision of the vested fraction.
var Scale = domain.NewAmount(1_000_000_000_000)

// Vested returns the tokens released by now out of purchased.
// Without a config everything is released.
func Vested(purchased domain.Amount, cfg *domain.VestingConfig, now uint64) domain.Amount {
	if cfg == nil || cfg.VestingDuration == 0 {
		return purchased
	}

	cliffEnd := cfg.CliffEnd()
	if now <= cliffEnd {
		return domain.ZeroAmount
	}

	elapsed := now - cliffEnd
	if elapsed > cfg.VestingDuration {
		elapsed = cfg.VestingDuration
	}

	fraction := domain.NewAmount(elapsed).MulDiv(Scale, domain.NewAmount(cfg.VestingDuration))
	return domain.MinAmount(purchased, purchased.MulDiv(fraction, Scale))
}

// Claimable returns vested - claimed, never negative.
func Claimable(purchased, claimed domain.Amount, cfg *domain.VestingConfig, now uint64) domain.Amount {
	return Vested(purchased, cfg, now).Sub(claimed)
}

// Next returns the amount to release for a claim or the coded reason
// nothing can be released.
func Next(purchased, claimed domain.Amount, cfg *domain.VestingConfig, now uint64) (domain.Amount, error) {
	if purchased.IsZero() {
		return domain.ZeroAmount, apperrors.New(apperrors.CodeNothingToClaim, "no tokens purchased")
	}
	if !claimed.Lt(purchased) {
		return domain.ZeroAmount, apperrors.New(apperrors.CodeAlreadyClaimed, "all purchased tokens claimed")
	}
	c := Claimable(purchased, claimed, cfg, now)
	if c.IsZero() {
		return domain.ZeroAmount, apperrors.New(apperrors.CodeNothingToClaim, "nothing vested yet")
	}
	return c, nil
}

// Validate checks cfg against the sale window.
func Validate(cfg *domain.VestingConfig, endTime uint64) error {
	if cfg == nil {
		return nil
	}
	if cfg.VestingDuration == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "vesting_duration must be > 0")
	}
	if cfg.End() < endTime {
		return apperrors.New(apperrors.CodeInvalidInput, "vesting ends before sale end")
	}
	return nil
}
