// Package stub provides an in-memory token contract for tests and
// memory-mode servers.
package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/token"
)

// ErrInsufficientBalance is returned when a debit exceeds the balance.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrInsufficientAllowance is returned when TransferFrom exceeds the allowance.
var ErrInsufficientAllowance = errors.New("insufficient allowance")

// Call records one invocation of the client.
type Call struct {
	Method string
	Token  domain.Identity
	From   domain.Identity
	To     domain.Identity
	Amount domain.Amount
}

// Client implements token.Client over in-memory balances.
// Self is the launchpad account that Transfer debits.
type Client struct {
	Self domain.Identity

	// OnCall, when set, runs before every value-moving call without the
	// client lock held. A non-nil error fails the call.
	OnCall func(ctx context.Context, c Call) error

	mu         sync.Mutex
	balances   map[domain.Identity]map[domain.Identity]domain.Amount
	allowances map[domain.Identity]map[[2]domain.Identity]domain.Amount
	failures   map[domain.Identity]error // keyed by recipient
	failNext   []error
	calls      []Call
}

// NewClient creates a stub token contract for the launchpad account self.
func NewClient(self domain.Identity) *Client {
	return &Client{
		Self:       self,
		balances:   make(map[domain.Identity]map[domain.Identity]domain.Amount),
		allowances: make(map[domain.Identity]map[[2]domain.Identity]domain.Amount),
		failures:   make(map[domain.Identity]error),
	}
}

// Compile-time interface check.
var _ token.Client = (*Client)(nil)

// Mint credits account with amount of token.
func (c *Client) Mint(tok, account domain.Identity, amount domain.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(tok, account, amount)
}

// Allow records an allowance from owner to spender, as if owner had
// called approve on the token contract.
func (c *Client) Allow(tok, owner, spender domain.Identity, amount domain.Amount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAllowance(tok, owner, spender, amount)
}

// FailTo makes every value-moving call to recipient fail with err.
// A nil err clears the failure.
func (c *Client) FailTo(recipient domain.Identity, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, recipient)
		return
	}
	c.failures[recipient] = err
}

// FailNext queues err for the next value-moving call.
func (c *Client) FailNext(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = append(c.failNext, err)
}

// Calls returns every value-moving call attempted so far.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Balance returns the balance without a context, for assertions.
func (c *Client) Balance(tok, account domain.Identity) domain.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[tok][account]
}

// Transfer debits Self and credits to.
func (c *Client) Transfer(ctx context.Context, tok, to domain.Identity, amount domain.Amount) error {
	call := Call{Method: "transfer", Token: tok, From: c.Self, To: to, Amount: amount}
	if err := c.before(ctx, call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(tok, c.Self, to, amount)
}

// TransferFrom moves amount from from to to against the allowance granted to Self.
func (c *Client) TransferFrom(ctx context.Context, tok, from, to domain.Identity, amount domain.Amount) error {
	call := Call{Method: "transferFrom", Token: tok, From: from, To: to, Amount: amount}
	if err := c.before(ctx, call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	allowed := c.allowances[tok][[2]domain.Identity{from, c.Self}]
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientAllowance, allowed, amount)
	}
	if err := c.move(tok, from, to, amount); err != nil {
		return err
	}
	c.setAllowance(tok, from, c.Self, allowed.Sub(amount))
	return nil
}

// Approve lets spender move amount out of Self.
func (c *Client) Approve(ctx context.Context, tok, spender domain.Identity, amount domain.Amount) error {
	call := Call{Method: "approve", Token: tok, From: c.Self, To: spender, Amount: amount}
	if err := c.before(ctx, call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAllowance(tok, c.Self, spender, amount)
	return nil
}

// BalanceOf returns the balance of account.
func (c *Client) BalanceOf(_ context.Context, tok, account domain.Identity) (domain.Amount, error) {
	return c.Balance(tok, account), nil
}

func (c *Client) before(ctx context.Context, call Call) error {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	var err error
	if len(c.failNext) > 0 {
		err = c.failNext[0]
		c.failNext = c.failNext[1:]
	} else if f, ok := c.failures[call.To]; ok {
		err = f
	}
	hook := c.OnCall
	c.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		return hook(ctx, call)
	}
	return nil
}

func (c *Client) move(tok, from, to domain.Identity, amount domain.Amount) error {
	have := c.balances[tok][from]
	if have.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, have, amount)
	}
	c.debit(tok, from, amount)
	c.credit(tok, to, amount)
	return nil
}

func (c *Client) credit(tok, account domain.Identity, amount domain.Amount) {
	if c.balances[tok] == nil {
		c.balances[tok] = make(map[domain.Identity]domain.Amount)
	}
	c.balances[tok][account] = c.balances[tok][account].Add(amount)
}

func (c *Client) debit(tok, account domain.Identity, amount domain.Amount) {
	c.balances[tok][account] = c.balances[tok][account].Sub(amount)
}

func (c *Client) setAllowance(tok, owner, spender domain.Identity, amount domain.Amount) {
	if c.allowances[tok] == nil {
		c.allowances[tok] = make(map[[2]domain.Identity]domain.Amount)
	}
	c.allowances[tok][[2]domain.Identity{owner, spender}] = amount
}
