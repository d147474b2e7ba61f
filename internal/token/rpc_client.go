package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"token-launchpad/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements Client over HTTP JSON-RPC 2.0.
// Only BalanceOf is retried; value-moving calls are attempted once.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for read calls.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a token contract client for endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error reported by the token contract itself.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// transferParams is shared by all value-moving methods.
type transferParams struct {
	Token   domain.Identity `json:"token"`
	From    domain.Identity `json:"from"`
	To      domain.Identity `json:"to"`
	Spender domain.Identity `json:"spender"`
	Amount  domain.Amount   `json:"amount"`
}

type balanceParams struct {
	Token   domain.Identity `json:"token"`
	Account domain.Identity `json:"account"`
}

// do performs a single JSON-RPC round trip.
func (c *HTTPClient) do(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		// RPC errors are not retried
		return backoff.Permanent(rpcResp.Error)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal result: %w", err))
		}
	}
	return nil
}

// callOnce performs a call that must not be repeated.
func (c *HTTPClient) callOnce(ctx context.Context, method string, params any) error {
	err := c.do(ctx, method, params, nil)
	if perm, ok := err.(*backoff.PermanentError); ok {
		return perm.Err
	}
	return err
}

// callWithRetry performs an idempotent call with exponential backoff.
func (c *HTTPClient) callWithRetry(ctx context.Context, method string, params any, result any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = c.maxDelay
	b.Multiplier = c.backoffMult
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
	return backoff.Retry(func() error {
		return c.do(ctx, method, params, result)
	}, policy)
}

// Transfer sends amount of token from the launchpad account to to.
func (c *HTTPClient) Transfer(ctx context.Context, token, to domain.Identity, amount domain.Amount) error {
	return c.callOnce(ctx, "token_transfer", transferParams{Token: token, To: to, Amount: amount})
}

// TransferFrom moves amount of token from from to to.
func (c *HTTPClient) TransferFrom(ctx context.Context, token, from, to domain.Identity, amount domain.Amount) error {
	return c.callOnce(ctx, "token_transferFrom", transferParams{Token: token, From: from, To: to, Amount: amount})
}

// Approve grants spender an allowance of amount.
func (c *HTTPClient) Approve(ctx context.Context, token, spender domain.Identity, amount domain.Amount) error {
	return c.callOnce(ctx, "token_approve", transferParams{Token: token, Spender: spender, Amount: amount})
}

// BalanceOf returns the token balance of account.
func (c *HTTPClient) BalanceOf(ctx context.Context, token, account domain.Identity) (domain.Amount, error) {
	var result domain.Amount
	if err := c.callWithRetry(ctx, "token_balanceOf", balanceParams{Token: token, Account: account}, &result); err != nil {
		return domain.ZeroAmount, err
	}
	return result, nil
}
