// Package ledger implements contribution pricing, cap enforcement and
// the per-launch contribution accounting.
package ledger

import (
	"fmt"

	"token-launchpad/internal/apperrors"
	"token-launchpad/internal/domain"
)

// Quote is the outcome of pricing one contribution against a launch.
type Quote struct {
	Accepted Amount // value actually used: Tokens * price
	Tokens   Amount // whole tokens purchased
	Refunded Amount // amount - Accepted, returned to the caller
}

// Amount is re-exported for brevity in this package.
type Amount = domain.Amount

// WalletRemaining returns how much more contributor may commit.
func WalletRemaining(l *domain.Launch, contributor domain.Identity) Amount {
	return l.MaxPerWallet.Sub(l.Contributions[contributor])
}

// RaiseRemaining returns how much more the launch may raise.
func RaiseRemaining(l *domain.Launch) Amount {
	return l.MaxRaise.Sub(l.TotalRaised)
}

// Price computes the quote for contributor sending amount. It does not
// mutate l. Status, timing and whitelist checks are the caller's job.
func Price(l *domain.Launch, contributor domain.Identity, amount Amount) (Quote, error) {
	if amount.IsZero() {
		return Quote{}, apperrors.New(apperrors.CodeInvalidInput, "zero contribution")
	}
	if l.PricePerToken.IsZero() {
		return Quote{}, apperrors.New(apperrors.CodeInvalidState, "launch has zero price")
	}

	effective := domain.MinAmount(amount, RaiseRemaining(l), WalletRemaining(l, contributor))
	if effective.IsZero() {
		return Quote{}, apperrors.New(apperrors.CodeLimitExceeded, "wallet or raise cap reached")
	}

	tokens := domain.MinAmount(effective.Div(l.PricePerToken), l.TokensRemaining)
	if tokens.IsZero() {
		return Quote{}, apperrors.New(apperrors.CodeInvalidInput, "contribution too small for 1 token")
	}

	used := tokens.Mul(l.PricePerToken)
	return Quote{
		Accepted: used,
		Tokens:   tokens,
		Refunded: amount.Sub(used),
	}, nil
}

// Record applies q to l.
func Record(l *domain.Launch, contributor domain.Identity, q Quote) {
	l.EnsureMaps()
	l.Contributions[contributor] = l.Contributions[contributor].Add(q.Accepted)
	l.TotalRaised = l.TotalRaised.Add(q.Accepted)
	l.TokensRemaining = l.TokensRemaining.Sub(q.Tokens)
}

// CapReached reports whether no further whole token can be bought.
func CapReached(l *domain.Launch) bool {
	return l.TokensRemaining.IsZero() || RaiseRemaining(l).Lt(l.PricePerToken)
}

// Remove deletes contributor's entry whole and returns the value it held.
// The value leaves TotalRaised and its tokens return to TokensRemaining;
// TotalRefunded keeps the running history.
func Remove(l *domain.Launch, contributor domain.Identity) (Amount, bool) {
	amt, ok := l.Contributions[contributor]
	if !ok || amt.IsZero() {
		return domain.ZeroAmount, false
	}
	delete(l.Contributions, contributor)
	l.TotalRaised = l.TotalRaised.Sub(amt)
	l.TokensRemaining = l.TokensRemaining.Add(amt.Div(l.PricePerToken))
	l.TotalRefunded = l.TotalRefunded.Add(amt)
	return amt, true
}

// Contributors returns every contributor with a live entry, ascending.
func Contributors(l *domain.Launch) []domain.Identity {
	return domain.SortedIdentities(l.Contributions)
}

// TotalPurchased sums purchased tokens across contributors.
func TotalPurchased(l *domain.Launch) Amount {
	sum := domain.ZeroAmount
	for _, c := range l.Contributions {
		sum = sum.Add(c.Div(l.PricePerToken))
	}
	return sum
}

// FullyClaimed reports whether every contributor has received all purchased tokens.
func FullyClaimed(l *domain.Launch) bool {
	for id := range l.Contributions {
		if l.Claimed[id].Lt(l.Purchased(id)) {
			return false
		}
	}
	return true
}

// Violation describes one broken accounting rule.
type Violation struct {
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
}

// VerifyInvariants checks ledger consistency and returns every broken rule.
func VerifyInvariants(l *domain.Launch) []Violation {
	var out []Violation

	if l.MinRaise.Gt(l.MaxRaise) {
		out = append(out, Violation{"raise_bounds", fmt.Sprintf("min_raise %s > max_raise %s", l.MinRaise, l.MaxRaise)})
	}
	if l.MaxRaise.Gt(l.TotalTokens.Mul(l.PricePerToken)) {
		out = append(out, Violation{"raise_bounds", fmt.Sprintf("max_raise %s exceeds total_tokens*price", l.MaxRaise)})
	}
	if l.TotalRaised.Gt(l.MaxRaise) {
		out = append(out, Violation{"raise_cap", fmt.Sprintf("total_raised %s > max_raise %s", l.TotalRaised, l.MaxRaise)})
	}

	for _, id := range domain.SortedIdentities(l.Claimed) {
		if l.Claimed[id].Gt(l.Purchased(id)) {
			out = append(out, Violation{"claim_bound", fmt.Sprintf("%s claimed %s > purchased %s", id, l.Claimed[id], l.Purchased(id))})
		}
	}

	sumContrib := domain.ZeroAmount
	for _, id := range Contributors(l) {
		c := l.Contributions[id]
		if c.Div(l.PricePerToken).Mul(l.PricePerToken).Cmp(c) != 0 {
			out = append(out, Violation{"whole_tokens", fmt.Sprintf("%s contribution %s is not a multiple of price", id, c)})
		}
		if c.Gt(l.MaxPerWallet) {
			out = append(out, Violation{"wallet_cap", fmt.Sprintf("%s contribution %s > max_per_wallet", id, c)})
		}
		sumContrib = sumContrib.Add(c)
	}
	if sumContrib.Cmp(l.TotalRaised) != 0 {
		out = append(out, Violation{"raised_sum", fmt.Sprintf("sum(contributions) %s != total_raised %s", sumContrib, l.TotalRaised)})
	}

	purchased := TotalPurchased(l)
	if l.TokensRemaining.Add(purchased).Cmp(l.TotalTokens) != 0 {
		out = append(out, Violation{"token_conservation", fmt.Sprintf("tokens_remaining %s + purchased %s != total_tokens %s", l.TokensRemaining, purchased, l.TotalTokens)})
	}
	return out
}
