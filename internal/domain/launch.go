package domain

import "sort"

// LaunchStatus is the lifecycle state of a launch.
type LaunchStatus string

const (
	StatusPending             LaunchStatus = "PENDING"
	StatusActive              LaunchStatus = "ACTIVE"
	StatusEnded               LaunchStatus = "ENDED"
	StatusSucceeded           LaunchStatus = "SUCCEEDED"
	StatusFailed              LaunchStatus = "FAILED"
	StatusCancelled           LaunchStatus = "CANCELLED"
	StatusDistributionPending LaunchStatus = "DISTRIBUTION_PENDING"
	StatusRefundAvailable     LaunchStatus = "REFUND_AVAILABLE"
	StatusFinalized           LaunchStatus = "FINALIZED"
)

// EndReason records why a sale window closed.
type EndReason string

const (
	EndReasonNone            EndReason = ""
	EndReasonTimeElapsed     EndReason = "TIME_ELAPSED"
	EndReasonFullySubscribed EndReason = "FULLY_SUBSCRIBED"
)

// Limits on descriptive fields, in bytes.
const (
	MaxTitleLen       = 128
	MaxDescriptionLen = 2048
)

// VestingConfig describes linear release after a cliff.
type VestingConfig struct {
	StartBlock      uint64 `json:"start_block"`
	CliffDuration   uint64 `json:"cliff_duration"`
	VestingDuration uint64 `json:"vesting_duration"` // must be > 0
}

// CliffEnd returns start+cliff, saturating.
func (v VestingConfig) CliffEnd() uint64 {
	return SaturatingAdd(v.StartBlock, v.CliffDuration)
}

// End returns start+cliff+duration, saturating.
func (v VestingConfig) End() uint64 {
	return SaturatingAdd(v.CliffEnd(), v.VestingDuration)
}

// Launch is one fundraising sale and its ledgers.
// Corresponds to launches table in PostgreSQL.
type Launch struct {
	ID          uint64   `json:"id"`
	Creator     Identity `json:"creator"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Token       Identity `json:"token"` // token being sold

	TotalTokens     Amount `json:"total_tokens"`
	TokensRemaining Amount `json:"tokens_remaining"`
	PricePerToken   Amount `json:"price_per_token"`
	MinRaise        Amount `json:"min_raise"`
	MaxRaise        Amount `json:"max_raise"`
	TotalRaised     Amount `json:"total_raised"`
	TotalRefunded   Amount `json:"total_refunded"` // value removed by refunds, history only
	MaxPerWallet    Amount `json:"max_per_wallet"`

	StartTime uint64 `json:"start_time"` // block height, inclusive
	EndTime   uint64 `json:"end_time"`   // block height, inclusive

	WhitelistEnabled bool                  `json:"whitelist_enabled"`
	WhitelistLocked  bool                  `json:"whitelist_locked"`
	Whitelist        map[Identity]struct{} `json:"whitelist"`

	Contributions map[Identity]Amount `json:"contributions"` // value actually used
	Claimed       map[Identity]Amount `json:"claimed"`       // tokens released

	Vesting *VestingConfig `json:"vesting,omitempty"`

	Status    LaunchStatus `json:"status"`
	Outcome   LaunchStatus `json:"outcome,omitempty"` // SUCCEEDED | FAILED | CANCELLED once resolved
	EndReason EndReason    `json:"end_reason,omitempty"`

	CreatedAt       uint64 `json:"created_at"`
	FundsWithdrawn  bool   `json:"funds_withdrawn"`
	TokensDeposited bool   `json:"tokens_deposited"`
	Guarded         bool   `json:"guarded"` // an external call is in flight

	// Settling lists the settlements covered by Guarded. It is committed
	// with the guard so an interrupted completion can be finished.
	Settling []string `json:"settling,omitempty"`
}

// Purchased returns the whole tokens bought by contributor.
func (l *Launch) Purchased(contributor Identity) Amount {
	return l.Contributions[contributor].Div(l.PricePerToken)
}

// ContributionOf returns the value committed by contributor.
func (l *Launch) ContributionOf(contributor Identity) Amount {
	return l.Contributions[contributor]
}

// ClaimedOf returns the tokens already released to contributor.
func (l *Launch) ClaimedOf(contributor Identity) Amount {
	return l.Claimed[contributor]
}

// IsResolved reports whether the outcome has been decided.
func (l *Launch) IsResolved() bool {
	return l.Outcome != ""
}

// Clone returns a deep copy.
func (l *Launch) Clone() *Launch {
	if l == nil {
		return nil
	}
	c := *l
	c.Whitelist = make(map[Identity]struct{}, len(l.Whitelist))
	for k := range l.Whitelist {
		c.Whitelist[k] = struct{}{}
	}
	c.Contributions = cloneAmounts(l.Contributions)
	c.Claimed = cloneAmounts(l.Claimed)
	if l.Vesting != nil {
		v := *l.Vesting
		c.Vesting = &v
	}
	c.Settling = append([]string(nil), l.Settling...)
	return &c
}

// EnsureMaps initializes nil ledger maps, e.g. after decoding.
func (l *Launch) EnsureMaps() {
	if l.Whitelist == nil {
		l.Whitelist = make(map[Identity]struct{})
	}
	if l.Contributions == nil {
		l.Contributions = make(map[Identity]Amount)
	}
	if l.Claimed == nil {
		l.Claimed = make(map[Identity]Amount)
	}
}

func cloneAmounts(m map[Identity]Amount) map[Identity]Amount {
	out := make(map[Identity]Amount, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SortedIdentities returns the keys of m in ascending byte order.
func SortedIdentities[V any](m map[Identity]V) []Identity {
	keys := make([]Identity, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})
	return keys
}

// CreateLaunchInput holds the caller-supplied parameters of create_launch.
type CreateLaunchInput struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Token            Identity       `json:"token"`
	TotalTokens      Amount         `json:"total_tokens"`
	PricePerToken    Amount         `json:"price_per_token"`
	MinRaise         Amount         `json:"min_raise"`
	MaxRaise         Amount         `json:"max_raise"`
	MaxPerWallet     Amount         `json:"max_per_wallet"`
	StartTime        uint64         `json:"start_time"`
	EndTime          uint64         `json:"end_time"`
	WhitelistEnabled bool           `json:"whitelist_enabled"`
	Vesting          *VestingConfig `json:"vesting,omitempty"`
}

// ContributionReceipt is returned to the contributor by contribute.
type ContributionReceipt struct {
	LaunchID        uint64 `json:"launch_id"`
	Accepted        Amount `json:"accepted"`
	TokensPurchased Amount `json:"tokens_purchased"`
	Refunded        Amount `json:"refunded"` // excess value handed back to the caller
	SaleEnded       bool   `json:"sale_ended"`
}

// SaturatingAdd returns a+b clamped to the uint64 range.
func SaturatingAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}
