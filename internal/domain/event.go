package domain

// EventType names an observable state change.
type EventType string

const (
	EventLaunchCreated       EventType = "LaunchCreated"
	EventLaunchStarted       EventType = "LaunchStarted"
	EventTokensDeposited     EventType = "TokensDeposited"
	EventContributed         EventType = "Contributed"
	EventSaleEnded           EventType = "SaleEnded"
	EventSaleFullySubscribed EventType = "SaleFullySubscribed"
	EventLaunchSucceeded     EventType = "LaunchSucceeded"
	EventLaunchFailed        EventType = "LaunchFailed"
	EventLaunchCancelled     EventType = "LaunchCancelled"
	EventDistributionPending EventType = "DistributionPending"
	EventRefundsAvailable    EventType = "RefundsAvailable"
	EventTokensClaimed       EventType = "TokensClaimed"
	EventRefundClaimed       EventType = "RefundClaimed"
	EventTokenTransferFailed EventType = "TokenTransferFailed"
	EventFundsWithdrawn      EventType = "FundsWithdrawn"
	EventFeesWithdrawn       EventType = "FeesWithdrawn"
	EventWhitelistUpdated    EventType = "WhitelistUpdated"
	EventLaunchFinalized     EventType = "LaunchFinalized"
	EventPaused              EventType = "Paused"
	EventResumed             EventType = "Resumed"
	EventFeeRecipientUpdated EventType = "FeeRecipientUpdated"
	EventFeeRateUpdated      EventType = "FeeRateUpdated"
	EventAdminForceRefund    EventType = "AdminForceRefund"
	EventTokensRescued       EventType = "TokensRescued"
	EventSettlementRetried   EventType = "SettlementRetried"
)

// Event is a flat, append-only record of a state change.
// Fields not relevant to a given type are left zero.
// Corresponds to events table in PostgreSQL and launch_events in ClickHouse.
type Event struct {
	Seq      uint64    `json:"seq"` // assigned by the event store
	Type     EventType `json:"type"`
	LaunchID uint64    `json:"launch_id,omitempty"`
	Block    uint64    `json:"block"`

	Actor  Identity `json:"actor"`            // caller or beneficiary
	Target Identity `json:"target,omitempty"` // token, recipient or admin

	Amount   Amount `json:"amount"`   // value moved or committed
	Tokens   Amount `json:"tokens"`   // tokens moved or purchased
	Refunded Amount `json:"refunded"` // excess value returned to the caller
	Fee      Amount `json:"fee"`

	Count  uint64 `json:"count,omitempty"` // contributors, whitelist size, ...
	Flag   bool   `json:"flag,omitempty"`  // whitelist added/removed, paused, ...
	Reason string `json:"reason,omitempty"`
	Ref    string `json:"ref,omitempty"` // settlement id
}
