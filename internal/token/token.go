// Package token defines the boundary to the external fungible-token
// contract that holds sale tokens and native value.
package token

import (
	"context"

	"token-launchpad/internal/domain"
)

// Client moves tokens on behalf of the launchpad account.
// The zero identity as token denotes the native currency.
// Every call may fail independently of launchpad state.
type Client interface {
	// Transfer sends amount of token from the launchpad account to to.
	Transfer(ctx context.Context, token, to domain.Identity, amount domain.Amount) error

	// TransferFrom moves amount of token from from to to using an allowance
	// previously granted to the launchpad account.
	TransferFrom(ctx context.Context, token, from, to domain.Identity, amount domain.Amount) error

	// Approve lets spender move up to amount of token out of the launchpad account.
	Approve(ctx context.Context, token, spender domain.Identity, amount domain.Amount) error

	// BalanceOf returns the token balance of account.
	BalanceOf(ctx context.Context, token, account domain.Identity) (domain.Amount, error)
}
